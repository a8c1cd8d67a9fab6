package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const readinessTimeout = 2 * time.Second

// Pinger is a dependency the readiness probe checks.
type Pinger interface {
	Ping(context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Storefront-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings every named dependency and reports the first failure.
func HealthReady(cfg *config.Config, logg *logger.Logger, deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Storefront-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		checks := make(map[string]string, len(deps))
		var failed error
		for name, dep := range deps {
			if dep == nil {
				continue
			}
			if err := dep.Ping(ctx); err != nil {
				checks[name] = "down"
				if failed == nil {
					failed = pkgerrors.Wrap(pkgerrors.CodeDependency, err, name+" unavailable").
						WithDetails(map[string]any{"dependency": name})
				}
				continue
			}
			checks[name] = "up"
		}

		if failed != nil {
			responses.WriteError(r.Context(), logg, w, failed)
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
