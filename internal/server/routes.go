package server

import (
	"github.com/fulmenhq/gofulmen/signals"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/platelog/platelog/internal/observability"
	"github.com/platelog/platelog/internal/server/handlers"
)

// Admin signal endpoint limits, per minute.
const (
	adminRateLimit = 10
	adminRateBurst = 5
)

func (s *Server) registerRoutes() {
	if !s.opts.DisableHealth {
		s.router.Get("/health", handlers.HealthHandler)
		s.router.Get("/health/live", handlers.LivenessHandler)
		s.router.Get("/health/ready", handlers.ReadinessHandler)
		s.router.Get("/health/startup", handlers.StartupHandler)
	}

	s.router.Get("/version", handlers.VersionHandler)
	s.router.Get("/metrics", MetricsHandler)

	s.registerMealRoutes()

	if s.opts.Pprof {
		s.router.Mount("/debug", middleware.Profiler())
		s.logInfo("pprof endpoints enabled", zap.String("path", "/debug/pprof/"))
	}
	s.registerAdminEndpoint()
}

func (s *Server) registerMealRoutes() {
	meals := s.opts.Meals
	if meals == nil {
		return
	}

	s.router.Get("/", meals.Index)
	s.router.Post("/analyze", meals.AnalyzeForm)

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/parse", meals.Parse)
		r.Post("/analyze", meals.Analyze)
		r.Post("/entries", meals.SaveEntry)
		r.Get("/entries", meals.ListEntries)
		r.Get("/entries/{id}", meals.GetEntry)
	})
}

// registerAdminEndpoint exposes the gofulmen signal handler so operators
// can trigger shutdown or reload over HTTP.
func (s *Server) registerAdminEndpoint() {
	if s.opts.AdminToken == "" {
		return
	}

	handler := signals.NewHTTPHandler(signals.HTTPConfig{
		TokenAuth: s.opts.AdminToken,
		RateLimit: adminRateLimit,
		RateBurst: adminRateBurst,
	})
	s.router.Post("/admin/signal", handler.ServeHTTP)

	s.logInfo("Admin signal endpoint enabled",
		zap.String("path", "/admin/signal"),
		zap.Int("rate_limit_per_min", adminRateLimit),
		zap.Int("rate_burst", adminRateBurst))
}

func (s *Server) logInfo(msg string, fields ...zap.Field) {
	if logger := observability.ServerLogger; logger != nil {
		logger.Info(msg, fields...)
	}
}
