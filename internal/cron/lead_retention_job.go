package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/sagebrookliving/sagebrook-backend/pkg/config"
	"github.com/sagebrookliving/sagebrook-backend/pkg/logger"
)

// maxScrubBatches bounds a single run so one cycle cannot hold the database
// for an unbounded backlog.
const maxScrubBatches = 50

type leadScrubber interface {
	ScrubExpiredPII(ctx context.Context, cutoff time.Time, batch int) (int64, error)
}

// LeadRetentionJobParams configure the PII retention scrubber.
type LeadRetentionJobParams struct {
	Logger    *logger.Logger
	Leads     leadScrubber
	Retention config.RetentionConfig
}

// NewLeadRetentionJob builds the job that clears plaintext contact details
// from leads past the retention window. Hashed identifiers and dispatch
// records are kept for attribution continuity.
func NewLeadRetentionJob(params LeadRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Leads == nil {
		return nil, fmt.Errorf("leads service required")
	}
	if params.Retention.LeadPIIDays <= 0 {
		return nil, fmt.Errorf("lead pii retention days must be positive")
	}
	if params.Retention.RetentionScrubBatch <= 0 {
		return nil, fmt.Errorf("scrub batch size must be positive")
	}
	return &leadRetentionJob{
		logg:      params.Logger,
		leads:     params.Leads,
		retention: params.Retention,
		now:       time.Now,
	}, nil
}

type leadRetentionJob struct {
	logg      *logger.Logger
	leads     leadScrubber
	retention config.RetentionConfig
	now       func() time.Time
}

func (j *leadRetentionJob) Name() string { return "lead-pii-retention" }

func (j *leadRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().AddDate(0, 0, -j.retention.LeadPIIDays)
	batch := j.retention.RetentionScrubBatch

	var total int64
	for i := 0; i < maxScrubBatches; i++ {
		scrubbed, err := j.leads.ScrubExpiredPII(ctx, cutoff, batch)
		if err != nil {
			return fmt.Errorf("scrub lead pii: %w", err)
		}
		total += scrubbed
		if scrubbed < int64(batch) {
			break
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":         cutoff,
		"retention_days": j.retention.LeadPIIDays,
		"rows_scrubbed":  total,
	})
	j.logg.Info(logCtx, "lead pii retention complete")
	return nil
}
