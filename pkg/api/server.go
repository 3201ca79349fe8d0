package api

import (
	"database/sql"
	"net/http"

	"github.com/AmiraaaF/Projet-Rust/pkg/billing"
	"github.com/AmiraaaF/Projet-Rust/pkg/httputil"
	"github.com/AmiraaaF/Projet-Rust/pkg/middleware"
	"github.com/AmiraaaF/Projet-Rust/pkg/observability"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// DefaultMaxBodyBytes caps JSON request bodies
const DefaultMaxBodyBytes int64 = 1 << 20

// ServerOptions wires the billing API. Service, Logger and Authenticator are
// required; the rest may be left nil to disable the feature.
type ServerOptions struct {
	Service       billing.Service
	Logger        *observability.Logger
	Authenticator *middleware.Authenticator
	Limiter       middleware.Limiter
	Metrics       *observability.Metrics
	Registry      *prometheus.Registry
	Health        *observability.HealthChecker
	DB            *sql.DB
	MaxBodyBytes  int64
}

// Server represents our API server
type Server struct {
	router  *mux.Router
	handler http.Handler
	billing *BillingHandlers
}

// NewServer creates a new API server
func NewServer(opts ServerOptions) *Server {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}

	s := &Server{
		router:  mux.NewRouter(),
		billing: NewBillingHandlers(opts.Service),
	}
	s.setupRoutes(opts)

	s.handler = otelhttp.NewHandler(s.router, "billing-api",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
	return s
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes(opts ServerOptions) {
	s.router.Use(
		httputil.RequestIDMiddleware,
		httputil.LoggingMiddleware(opts.Logger),
		httputil.RecoveryMiddleware,
	)
	if opts.Metrics != nil {
		s.router.Use(observability.HTTPMetricsMiddleware(opts.Metrics))
	}

	// Operational routes stay outside authentication
	if opts.Health != nil {
		observability.RegisterHealthRoutes(s.router, opts.Health)
	}
	if opts.Registry != nil {
		var refresh []func()
		if opts.Metrics != nil && opts.DB != nil {
			refresh = append(refresh, func() { opts.Metrics.UpdateDBStats(opts.DB.Stats()) })
		}
		observability.RegisterMetricsEndpoint(s.router, opts.Registry, refresh...)
	}

	api := s.router.PathPrefix("/billing").Subrouter()
	api.Use(opts.Authenticator.Handler)
	if opts.Limiter != nil {
		api.Use(middleware.RateLimit(opts.Limiter))
	}
	api.Use(
		httputil.MaxBytesMiddleware(opts.MaxBodyBytes),
		httputil.ContentTypeMiddleware,
	)
	s.billing.RegisterRoutes(api)
}

// Router returns the underlying router
func (s *Server) Router() *mux.Router {
	return s.router
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}
