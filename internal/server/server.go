package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	apperrors "github.com/platelog/platelog/internal/errors"
	"github.com/platelog/platelog/internal/observability"
	"github.com/platelog/platelog/internal/server/handlers"
	servermw "github.com/platelog/platelog/internal/server/middleware"
)

// Default timeouts applied when Options leaves them unset.
const (
	DefaultReadTimeout  = 30 * time.Second
	DefaultWriteTimeout = 30 * time.Second
	DefaultIdleTimeout  = 120 * time.Second
)

// Options configures a Server.
type Options struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// Meals serves the page and the meal API. Meal routes are not registered
	// when nil.
	Meals *handlers.MealHandler

	// DisableHealth drops the /health probes.
	DisableHealth bool

	// Pprof mounts net/http/pprof under /debug.
	Pprof bool

	// AdminToken enables POST /admin/signal with bearer auth when set.
	AdminToken string
}

// Server serves the meal page, the JSON API and the operational endpoints.
type Server struct {
	router *chi.Mux
	server *http.Server
	opts   Options
}

// New builds the router. Nothing listens until Start.
func New(opts Options) *Server {
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = DefaultReadTimeout
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = DefaultWriteTimeout
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = DefaultIdleTimeout
	}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)

	// Recovery sits inside metrics so a panic is still counted as a 500.
	r.Use(servermw.RequestID)
	r.Use(servermw.RequestMetrics)
	r.Use(servermw.Recovery)

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		HandleError(w, req, apperrors.NewNotFoundError("The requested resource was not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		HandleError(w, req, apperrors.NewMethodNotAllowedError("The requested method is not allowed for this resource"))
	})

	s := &Server{
		router: r,
		opts:   opts,
	}

	s.registerRoutes()

	return s
}

// Start listens on Host:Port and blocks until the server stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.opts.Host, s.opts.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		IdleTimeout:  s.opts.IdleTimeout,
	}

	if observability.ServerLogger != nil {
		observability.ServerLogger.Info("Starting HTTP server",
			zap.String("host", s.opts.Host),
			zap.Int("port", s.opts.Port),
			zap.String("addr", addr))
	}

	return s.server.ListenAndServe()
}

// Shutdown drains in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	if observability.ServerLogger != nil {
		observability.ServerLogger.Info("Shutting down HTTP server")
	}
	return s.server.Shutdown(ctx)
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Port() int {
	return s.opts.Port
}
