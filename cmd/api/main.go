package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/sagebrookliving/sagebrook-backend/api/routes"
	"github.com/sagebrookliving/sagebrook-backend/internal/analytics"
	"github.com/sagebrookliving/sagebrook-backend/internal/auth"
	"github.com/sagebrookliving/sagebrook-backend/internal/blog"
	"github.com/sagebrookliving/sagebrook-backend/internal/communities"
	"github.com/sagebrookliving/sagebrook-backend/internal/conversions"
	"github.com/sagebrookliving/sagebrook-backend/internal/leads"
	"github.com/sagebrookliving/sagebrook-backend/internal/notifications"
	"github.com/sagebrookliving/sagebrook-backend/internal/users"
	"github.com/sagebrookliving/sagebrook-backend/pkg/auth/session"
	"github.com/sagebrookliving/sagebrook-backend/pkg/bigquery"
	"github.com/sagebrookliving/sagebrook-backend/pkg/config"
	"github.com/sagebrookliving/sagebrook-backend/pkg/db"
	"github.com/sagebrookliving/sagebrook-backend/pkg/googleads"
	"github.com/sagebrookliving/sagebrook-backend/pkg/logger"
	"github.com/sagebrookliving/sagebrook-backend/pkg/metacapi"
	"github.com/sagebrookliving/sagebrook-backend/pkg/metrics"
	"github.com/sagebrookliving/sagebrook-backend/pkg/migrate"
	"github.com/sagebrookliving/sagebrook-backend/pkg/pubsub"
	"github.com/sagebrookliving/sagebrook-backend/pkg/redis"
)

const shutdownGrace = 15 * time.Second

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	requireResource(ctx, logg, "pubsub", err)
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(ctx, "error closing pubsub", err)
		}
	}()

	bqClient, err := bigquery.NewClient(ctx, cfg.GCP, cfg.BigQuery, logg)
	requireResource(ctx, logg, "bigquery", err)
	defer func() {
		if err := bqClient.Close(); err != nil {
			logg.Error(ctx, "error closing bigquery", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	requireResource(ctx, logg, "session manager", err)

	usersRepo := users.NewRepository(dbClient.DB())

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       usersRepo,
		SessionManager: sessionManager,
		RateLimiter:    redisClient,
		JWTConfig:      cfg.JWT,
		RateLimits:     cfg.AuthRateLimit,
	})
	requireResource(ctx, logg, "auth service", err)

	registerService, err := auth.NewAdminRegisterService(auth.AdminRegisterServiceParams{
		DB:             dbClient,
		PasswordConfig: cfg.Password,
	})
	requireResource(ctx, logg, "register service", err)

	usersService, err := users.NewService(usersRepo, cfg.Password)
	requireResource(ctx, logg, "users service", err)

	notificationsService, err := notifications.NewService(notifications.NewRepository(dbClient.DB()))
	requireResource(ctx, logg, "notifications service", err)

	communitiesService, err := communities.NewService(communities.NewRepository(dbClient.DB()))
	requireResource(ctx, logg, "communities service", err)

	blogService, err := blog.NewService(blog.NewRepository(dbClient.DB()))
	requireResource(ctx, logg, "blog service", err)

	eventsPublisher, err := analytics.NewPublisher(pubsubClient.SiteEventsPublisher(), logg)
	requireResource(ctx, logg, "site events publisher", err)

	dispatcher := buildDispatcher(ctx, cfg, logg)

	leadsService, err := leads.NewService(
		leads.NewRepository(dbClient.DB()),
		dispatcher,
		notificationsService,
		usersRepo,
		eventsPublisher,
		cfg.Conversions,
		logg,
	)
	requireResource(ctx, logg, "leads service", err)

	handler := routes.NewRouter(
		cfg,
		logg,
		dbClient,
		redisClient,
		pubsubClient,
		bqClient,
		sessionManager,
		authService,
		registerService,
		usersService,
		leadsService,
		communitiesService,
		blogService,
		notificationsService,
		eventsPublisher,
	)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(runCtx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(runCtx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-runCtx.Done():
		logg.Info(runCtx, "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(runCtx, "api server shutdown failed", err)
			os.Exit(1)
		}
	}
}

// buildDispatcher wires the conversion adapters. Missing ad platform
// credentials are a configuration state, not a boot failure: the adapter
// reports the skip at dispatch time.
func buildDispatcher(ctx context.Context, cfg *config.Config, logg *logger.Logger) *conversions.Dispatcher {
	// Adapters receive a nil dependency unless client init succeeds. Assigning
	// a failed *Client pointer would make the interface value non-nil and the
	// adapter would report a transport failure instead of a credentials skip.
	google := conversions.NewGoogleAdapter(cfg.GoogleAds, nil, cfg.Conversions, logg)
	if cfg.GoogleAds.Configured() {
		client, err := googleads.NewClient(ctx, cfg.GoogleAds, logg)
		if err != nil {
			logg.Error(ctx, "google ads client init failed, dispatch will skip google", err)
		} else {
			google = conversions.NewGoogleAdapter(cfg.GoogleAds, client, cfg.Conversions, logg)
		}
	}

	meta := conversions.NewMetaAdapter(cfg.Meta, nil, cfg.Conversions, logg)
	if cfg.Meta.Configured() {
		client, err := metacapi.NewClient(ctx, cfg.Meta, logg)
		if err != nil {
			logg.Error(ctx, "meta conversions client init failed, dispatch will skip meta", err)
		} else {
			meta = conversions.NewMetaAdapter(cfg.Meta, client, cfg.Conversions, logg)
		}
	}

	dispatchMetrics := metrics.NewDispatchMetrics(prometheus.DefaultRegisterer)
	return conversions.NewDispatcher(google, meta, logg, dispatchMetrics)
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
