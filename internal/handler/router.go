package handler

import (
	"net/http"
	"time"

	"github.com/boddenberg/carcare-engine/internal/domain"
	"github.com/boddenberg/carcare-engine/internal/infra/cache"
	"github.com/boddenberg/carcare-engine/internal/infra/observability"
	"github.com/boddenberg/carcare-engine/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var tracer = otel.Tracer("handler")

// RouterConfig holds transport-level knobs.
type RouterConfig struct {
	RequireEntitlementToken bool
	RateLimitRPS            float64 // 0 disables rate limiting
	RateLimitBurst          int
	CORSOrigin              string
	RequestTimeout          time.Duration
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(svc *service.Maintenance, tokens *service.EntitlementTokens, cfg RouterConfig, metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))
	if cfg.CORSOrigin != "" {
		r.Use(CORS(cfg.CORSOrigin))
	}

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(svc))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {
		if cfg.RateLimitRPS > 0 {
			r.Use(RateLimitMiddleware(cfg.RateLimitRPS, cfg.RateLimitBurst, cache.New[*rate.Limiter](10*time.Minute), logger))
		}
		if cfg.RequestTimeout > 0 {
			r.Use(middleware.Timeout(cfg.RequestTimeout))
		}
		r.Use(EntitlementMiddleware(tokens, cfg.RequireEntitlementToken, logger))

		// =============================================
		// Pure engine
		// =============================================
		r.Route("/engine", func(r chi.Router) {
			r.Get("/catalog", catalogHandler(svc))
			r.Post("/tasks/compute", computeTaskHandler(svc, logger))
			r.Post("/risk/assess", assessRiskHandler(svc, logger))
			r.Post("/visibility/resolve", resolveVisibilityHandler(svc))
			r.Post("/quotes/evaluate", evaluateQuoteHandler(svc, logger))
			r.Post("/quotes/batch", evaluateQuotesHandler(svc, logger))
			r.Get("/metrics/snapshot", metricsSnapshotHandler(svc))
		})

		// =============================================
		// Stored vehicle facts
		// =============================================
		r.Route("/vehicles/{vehicleId}", func(r chi.Router) {
			r.Get("/tasks", vehicleTasksHandler(svc, logger))
			r.Get("/risk", vehicleRiskHandler(svc, logger))
			r.Get("/dashboard", vehicleDashboardHandler(svc, logger))
			r.Post("/service-records", recordServiceHandler(svc, logger))
			r.Put("/onboarding", saveOnboardingHandler(svc, logger))
			r.Put("/odometer", updateOdometerHandler(svc, logger))
			r.Post("/odometer/sync", syncOdometerHandler(svc, logger))
		})
	})

	return r
}

// ============================================================
// Operational
// ============================================================

func healthzHandler(svc *service.Maintenance) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now().UTC().Format(time.RFC3339)
		services := []domain.ServiceHealth{
			{Name: "carcare-engine", Status: "healthy", LastChecked: now},
			svc.Health(r.Context()),
		}

		overall := "healthy"
		for _, s := range services {
			if s.Status != "healthy" {
				overall = "degraded"
			}
		}
		status := http.StatusOK
		if overall != "healthy" {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, domain.HealthStatus{Status: overall, Services: services})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}
