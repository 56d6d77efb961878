package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/sagebrookliving/sagebrook-backend/internal/blog"
	"github.com/sagebrookliving/sagebrook-backend/internal/conversions"
	"github.com/sagebrookliving/sagebrook-backend/internal/cron"
	"github.com/sagebrookliving/sagebrook-backend/internal/leads"
	"github.com/sagebrookliving/sagebrook-backend/internal/notifications"
	"github.com/sagebrookliving/sagebrook-backend/pkg/config"
	"github.com/sagebrookliving/sagebrook-backend/pkg/db"
	"github.com/sagebrookliving/sagebrook-backend/pkg/logger"
	"github.com/sagebrookliving/sagebrook-backend/pkg/metrics"
	"github.com/sagebrookliving/sagebrook-backend/pkg/migrate"
	"github.com/sagebrookliving/sagebrook-backend/pkg/redis"
)

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "error closing redis", err)
		}
	}()

	// The scrub path never dispatches, so the adapters run without clients.
	dispatcher := conversions.NewDispatcher(
		conversions.NewGoogleAdapter(cfg.GoogleAds, nil, cfg.Conversions, logg),
		conversions.NewMetaAdapter(cfg.Meta, nil, cfg.Conversions, logg),
		logg,
		nil,
	)
	leadsService, err := leads.NewService(
		leads.NewRepository(dbClient.DB()),
		dispatcher,
		nil,
		nil,
		nil,
		cfg.Conversions,
		logg,
	)
	requireResource(ctx, logg, "leads service", err)

	blogService, err := blog.NewService(blog.NewRepository(dbClient.DB()))
	requireResource(ctx, logg, "blog service", err)

	retentionJob, err := cron.NewLeadRetentionJob(cron.LeadRetentionJobParams{
		Logger:    logg,
		Leads:     leadsService,
		Retention: cfg.Retention,
	})
	requireResource(ctx, logg, "lead retention job", err)

	cleanupJob, err := cron.NewNotificationCleanupJob(cron.NotificationCleanupJobParams{
		Logger:        logg,
		Notifications: notifications.NewRepository(dbClient.DB()),
		Retention:     cfg.Retention,
	})
	requireResource(ctx, logg, "notification cleanup job", err)

	publishJob, err := cron.NewBlogPublishJob(cron.BlogPublishJobParams{
		Logger: logg,
		Blog:   blogService,
	})
	requireResource(ctx, logg, "blog publish job", err)

	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(lockName(cfg.App.Env)), 0)
	requireResource(ctx, logg, "cron lock", err)

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(retentionJob, cleanupJob, publishJob),
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
	})
	requireResource(ctx, logg, "cron service", err)

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(runCtx, "starting cron worker")

	if err := service.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(runCtx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(runCtx, "cron worker shutting down gracefully")
}

func lockName(env string) string {
	if env == "" {
		env = "local"
	}
	return "cron-worker:" + env
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
