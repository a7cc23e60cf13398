package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"tutordesk/internal/domain/notifications"
	"tutordesk/internal/domain/payroll"
	"tutordesk/internal/platform/config"
	"tutordesk/internal/platform/metrics"
	"tutordesk/internal/transport/http/api"
	notificationshandler "tutordesk/internal/transport/http/handlers/notifications"
	payrollhandler "tutordesk/internal/transport/http/handlers/payroll"
	"tutordesk/internal/transport/http/middleware"
)

type RouterDeps struct {
	Config      config.Config
	Logger      *slog.Logger
	Metrics     *metrics.Collector
	Ready       func(ctx context.Context) error
	Payroll     *payroll.Service
	Lessons     payrollhandler.LessonRecorder
	Audit       payrollhandler.Auditor
	Idempotency middleware.IdempotencyStore
	Inbox       *notifications.Service
}

func NewRouter(deps RouterDeps) http.Handler {
	cfg := deps.Config
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(deps.Logger, deps.Metrics))
	router.Use(chimw.Recoverer)
	router.Use(middleware.SecureHeaders(cfg.Environment == "production"))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	router.Use(middleware.Auth(cfg.JWTSecret))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if deps.Ready != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := deps.Ready(ctx); err != nil {
				slog.Warn("readiness check failed", "err", err)
				http.Error(w, "not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	if cfg.MetricsEnabled {
		router.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
			api.Success(w, deps.Metrics.Snapshot(), middleware.GetRequestID(r.Context()))
		})
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RateLimit(cfg.RateLimitPerMinute))

		if deps.Payroll != nil {
			payrollhandler.NewHandler(deps.Payroll, deps.Lessons, deps.Audit, deps.Idempotency).RegisterRoutes(r)
		}
		if deps.Inbox != nil {
			notificationshandler.NewHandler(deps.Inbox).RegisterRoutes(r)
		}
	})

	return router
}
