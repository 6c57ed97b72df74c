package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/superkart/kart-backend/api/responses"
	"github.com/superkart/kart-backend/pkg/config"
	"github.com/superkart/kart-backend/pkg/db"
	pkgerrors "github.com/superkart/kart-backend/pkg/errors"
)

const readyProbeTimeout = 2 * time.Second

// HealthLive reports process liveness without touching dependencies.
func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, http.StatusOK, map[string]string{
			"status": "live",
			"env":    cfg.App.Env,
		})
	}
}

// HealthReady pings the database and session store before reporting readiness.
func HealthReady(cfg *config.Config, dbP db.Pinger, sessionP db.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readyProbeTimeout)
		defer cancel()

		checks := map[string]string{}
		healthy := true

		if dbP != nil {
			if err := dbP.Ping(ctx); err != nil {
				checks["database"] = err.Error()
				healthy = false
			} else {
				checks["database"] = "ok"
			}
		}
		if sessionP != nil {
			if err := sessionP.Ping(ctx); err != nil {
				checks["redis"] = err.Error()
				healthy = false
			} else {
				checks["redis"] = "ok"
			}
		}

		if !healthy {
			responses.WriteError(w, pkgerrors.New(pkgerrors.CodeDependency, "dependencies unavailable").WithDetails(checks))
			return
		}

		responses.WriteSuccess(w, http.StatusOK, map[string]any{
			"status": "ready",
			"env":    cfg.App.Env,
			"checks": checks,
		})
	}
}
