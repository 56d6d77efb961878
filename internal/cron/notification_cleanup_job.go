package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/sagebrookliving/sagebrook-backend/pkg/config"
	"github.com/sagebrookliving/sagebrook-backend/pkg/logger"
)

type notificationCleaner interface {
	DeleteReadBefore(ctx context.Context, cutoff time.Time, limit int) (int64, error)
}

// NotificationCleanupJobParams configure the notification janitor.
type NotificationCleanupJobParams struct {
	Logger        *logger.Logger
	Notifications notificationCleaner
	Retention     config.RetentionConfig
}

// NewNotificationCleanupJob builds the job that deletes read staff
// notifications past the retention window.
func NewNotificationCleanupJob(params NotificationCleanupJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Notifications == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if params.Retention.NotificationDays <= 0 {
		return nil, fmt.Errorf("notification retention days must be positive")
	}
	if params.Retention.NotificationBatchCap <= 0 {
		return nil, fmt.Errorf("notification batch cap must be positive")
	}
	return &notificationCleanupJob{
		logg:      params.Logger,
		repo:      params.Notifications,
		retention: params.Retention,
		now:       time.Now,
	}, nil
}

type notificationCleanupJob struct {
	logg      *logger.Logger
	repo      notificationCleaner
	retention config.RetentionConfig
	now       func() time.Time
}

func (j *notificationCleanupJob) Name() string { return "notification-cleanup" }

func (j *notificationCleanupJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().AddDate(0, 0, -j.retention.NotificationDays)
	deleted, err := j.repo.DeleteReadBefore(ctx, cutoff, j.retention.NotificationBatchCap)
	if err != nil {
		return fmt.Errorf("notification cleanup: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":         cutoff,
		"retention_days": j.retention.NotificationDays,
		"rows_deleted":   deleted,
	})
	j.logg.Info(logCtx, "notification cleanup complete")
	return nil
}
