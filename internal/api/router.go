package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/notifyhub/mail-scheduler/internal/api/handler"
	apimw "github.com/notifyhub/mail-scheduler/internal/api/middleware"
	"github.com/notifyhub/mail-scheduler/internal/service"
)

// NewRouter wires the chi router, attaches all middleware, and registers
// every route. It is the single source of truth for the HTTP surface area.
func NewRouter(
	svc *service.SchedulerService,
	reg prometheus.Gatherer,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	// --- global middleware (applied to every route) ---
	r.Use(chimw.Recoverer)            // recover panics, return 500
	r.Use(chimw.RealIP)               // trust X-Forwarded-For / X-Real-IP
	r.Use(chimw.RequestSize(1 << 20)) // 1 MB max request body
	r.Use(apimw.CorrelationID)        // X-Correlation-ID inject / echo
	r.Use(apimw.RequestLogger(logger))

	// --- handler instances ---
	sh := handler.NewScheduleHandler(svc, logger)
	hh := handler.NewHealthHandler()

	// --- routes ---
	r.Get("/", sh.Home)
	r.Get("/health", hh.Health)

	// Prometheus scrape endpoint
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	r.Post("/schedule", sh.Schedule)
	r.Get("/notifications", sh.ListNotifications)
	r.Get("/jobs", sh.ListJobs)
	r.Delete("/cancel/{job_id}", sh.Cancel)

	return r
}
