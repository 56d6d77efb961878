package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sagebrookliving/sagebrook-backend/pkg/config"
	"github.com/sagebrookliving/sagebrook-backend/pkg/logger"
)

type fakeScrubber struct {
	batches    []int
	lastCutoff time.Time
	perBatch   []int64
	err        error
}

func (f *fakeScrubber) ScrubExpiredPII(ctx context.Context, cutoff time.Time, batch int) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.lastCutoff = cutoff
	f.batches = append(f.batches, batch)
	if len(f.perBatch) == 0 {
		return 0, nil
	}
	next := f.perBatch[0]
	f.perBatch = f.perBatch[1:]
	return next, nil
}

func testRetention() config.RetentionConfig {
	return config.RetentionConfig{
		LeadPIIDays:          395,
		NotificationDays:     90,
		RetentionScrubBatch:  500,
		NotificationBatchCap: 1000,
	}
}

func newLeadRetentionJob(t *testing.T, scrubber *fakeScrubber) *leadRetentionJob {
	t.Helper()
	jobIface, err := NewLeadRetentionJob(LeadRetentionJobParams{
		Logger:    logger.New(logger.Options{ServiceName: "test"}),
		Leads:     scrubber,
		Retention: testRetention(),
	})
	if err != nil {
		t.Fatalf("NewLeadRetentionJob: %v", err)
	}
	job, ok := jobIface.(*leadRetentionJob)
	if !ok {
		t.Fatalf("expected leadRetentionJob, got %T", jobIface)
	}
	return job
}

func TestLeadRetentionJobScrubsUntilBatchNotFull(t *testing.T) {
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	scrubber := &fakeScrubber{perBatch: []int64{500, 500, 120}}
	job := newLeadRetentionJob(t, scrubber)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	expectedCutoff := now.AddDate(0, 0, -395)
	if !scrubber.lastCutoff.Equal(expectedCutoff) {
		t.Fatalf("expected cutoff %s, got %s", expectedCutoff, scrubber.lastCutoff)
	}
	if len(scrubber.batches) != 3 {
		t.Fatalf("expected 3 batches, got %d", len(scrubber.batches))
	}
	for _, batch := range scrubber.batches {
		if batch != 500 {
			t.Fatalf("unexpected batch size %d", batch)
		}
	}
}

func TestLeadRetentionJobPropagatesErrors(t *testing.T) {
	scrubber := &fakeScrubber{err: errors.New("boom")}
	job := newLeadRetentionJob(t, scrubber)

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

type fakeCleaner struct {
	lastCutoff time.Time
	lastLimit  int
	deleted    int64
	called     int
	err        error
}

func (f *fakeCleaner) DeleteReadBefore(ctx context.Context, cutoff time.Time, limit int) (int64, error) {
	f.called++
	f.lastCutoff = cutoff
	f.lastLimit = limit
	return f.deleted, f.err
}

func TestNotificationCleanupJobDeletesExpiredRows(t *testing.T) {
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	cleaner := &fakeCleaner{deleted: 42}
	jobIface, err := NewNotificationCleanupJob(NotificationCleanupJobParams{
		Logger:        logger.New(logger.Options{ServiceName: "test"}),
		Notifications: cleaner,
		Retention:     testRetention(),
	})
	if err != nil {
		t.Fatalf("NewNotificationCleanupJob: %v", err)
	}
	job := jobIface.(*notificationCleanupJob)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	expectedCutoff := now.AddDate(0, 0, -90)
	if !cleaner.lastCutoff.Equal(expectedCutoff) {
		t.Fatalf("expected cutoff %s, got %s", expectedCutoff, cleaner.lastCutoff)
	}
	if cleaner.lastLimit != 1000 {
		t.Fatalf("expected batch cap 1000, got %d", cleaner.lastLimit)
	}
	if cleaner.called != 1 {
		t.Fatalf("expected repo called once, got %d", cleaner.called)
	}
}

type fakePublisher struct {
	published int64
	called    int
	err       error
}

func (f *fakePublisher) PublishDue(ctx context.Context) (int64, error) {
	f.called++
	return f.published, f.err
}

func TestBlogPublishJob(t *testing.T) {
	publisher := &fakePublisher{published: 2}
	job, err := NewBlogPublishJob(BlogPublishJobParams{
		Logger: logger.New(logger.Options{ServiceName: "test"}),
		Blog:   publisher,
	})
	if err != nil {
		t.Fatalf("NewBlogPublishJob: %v", err)
	}

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if publisher.called != 1 {
		t.Fatalf("expected one publish call, got %d", publisher.called)
	}
}

func TestBlogPublishJobPropagatesErrors(t *testing.T) {
	publisher := &fakePublisher{err: errors.New("boom")}
	job, err := NewBlogPublishJob(BlogPublishJobParams{
		Logger: logger.New(logger.Options{ServiceName: "test"}),
		Blog:   publisher,
	})
	if err != nil {
		t.Fatalf("NewBlogPublishJob: %v", err)
	}

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
