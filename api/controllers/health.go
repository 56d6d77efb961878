package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/sagebrookliving/sagebrook-backend/api/responses"
	"github.com/sagebrookliving/sagebrook-backend/pkg/config"
	"github.com/sagebrookliving/sagebrook-backend/pkg/logger"
)

const envHeader = "X-Sagebrook-Env"

type pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports per-dependency reachability. A failing dependency flips
// the overall status but the endpoint still returns 200 so load balancers can
// read the detail.
func HealthReady(cfg *config.Config, logg *logger.Logger, deps map[string]pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		status := "ready"
		checks := map[string]string{}
		for name, dep := range deps {
			if dep == nil {
				checks[name] = "not configured"
				continue
			}
			if err := dep.Ping(ctx); err != nil {
				checks[name] = err.Error()
				status = "degraded"
				if logg != nil {
					logg.Error(logg.WithField(ctx, "dependency", name), "readiness check failed", err)
				}
				continue
			}
			checks[name] = "ok"
		}

		responses.WriteSuccess(w, map[string]any{
			"status": status,
			"checks": checks,
		})
	}
}

// ReadinessDeps bundles named dependencies for the readiness endpoint.
func ReadinessDeps(db, redis, pubsub, bigquery pinger) map[string]pinger {
	deps := map[string]pinger{}
	if db != nil {
		deps["postgres"] = db
	}
	if redis != nil {
		deps["redis"] = redis
	}
	if pubsub != nil {
		deps["pubsub"] = pubsub
	}
	if bigquery != nil {
		deps["bigquery"] = bigquery
	}
	return deps
}
