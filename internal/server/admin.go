package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/joseph-ayodele/ecoscore/internal/observability"
)

// HealthChecker is satisfied by *repository.DB.
type HealthChecker interface {
	HealthCheck(ctx context.Context, timeout time.Duration) error
}

const healthTimeout = 3 * time.Second

// NewAdminRouter serves /healthz and /metrics. A nil db reports healthy.
func NewAdminRouter(db HealthChecker, metrics *observability.Metrics, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Method(http.MethodGet, "/healthz", metrics.WrapHandler("/healthz", http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		body := map[string]string{"status": "ok"}
		code := http.StatusOK
		if db != nil {
			if err := db.HealthCheck(req.Context(), healthTimeout); err != nil {
				logger.Warn("admin.healthz.db_failed", "error", err)
				body = map[string]string{"status": "unavailable", "database": err.Error()}
				code = http.StatusServiceUnavailable
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(body)
	})))
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	return r
}
