package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/assistantd/llm-router/app"
)

// HealthCheck returns a simple liveness handler
func HealthCheck(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}
}

// ReadinessCheck performs a more thorough readiness check. The database check
// only runs when a ledger database is configured; its absence is not a fault.
func ReadinessCheck(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		checks := map[string]string{}
		ready := true

		if deps.Catalog == nil || deps.Catalog.Len() == 0 {
			checks["catalog"] = "empty"
			ready = false
		} else {
			checks["catalog"] = "loaded"
		}

		if deps.Adapters.Count() == 0 {
			checks["backends"] = "none_registered"
			ready = false
		} else {
			checks["backends"] = "registered"
		}

		if deps.DB != nil {
			if err := deps.DB.HealthCheck(ctx); err != nil {
				checks["database"] = "unhealthy"
				ready = false
				deps.Logger.Error("database health check failed", zap.Error(err))
			} else {
				checks["database"] = "healthy"
			}
		}

		status := "ready"
		code := http.StatusOK
		if !ready {
			status = "not_ready"
			code = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status": status,
			"checks": checks,
		})
	}
}
