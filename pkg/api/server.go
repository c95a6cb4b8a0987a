package api

import (
	"net/http"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/troopbase/troopbase/pkg/access"
	"github.com/troopbase/troopbase/pkg/groups"
	"github.com/troopbase/troopbase/pkg/middleware"
	"github.com/troopbase/troopbase/pkg/observability"
	"github.com/troopbase/troopbase/pkg/session"
	"github.com/troopbase/troopbase/pkg/teams"
)

// Options carries the dependencies the server wires together
type Options struct {
	Logger   *observability.Logger
	Engine   *access.Engine
	Teams    teams.Registry
	Groups   groups.Store
	Sessions session.Store

	// Metrics is optional; when nil no HTTP metrics are recorded.
	Metrics *observability.Metrics

	// Redis enables the shared rate limiter when DistributedRateLimit is
	// set. The in-memory limiter is used otherwise.
	Redis                *redis.Client
	DistributedRateLimit bool

	// Tracing wraps the router in otelhttp instrumentation.
	Tracing bool
}

// Server is the assembled API surface
type Server struct {
	router  *mux.Router
	handler http.Handler
	logger  *observability.Logger
}

// NewServer builds the router, registers all routes, and installs the
// middleware chain
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}

	s := &Server{
		router: mux.NewRouter(),
		logger: logger,
	}

	guard := access.NewGuardMiddleware(opts.Engine)

	access.NewHandlers(opts.Engine).RegisterRoutes(s.router)
	teams.NewHandlers(opts.Teams, logger).RegisterRoutes(s.router, guard, middleware.TeamContext(opts.Teams))
	groups.NewHandlers(opts.Groups).RegisterRoutes(s.router, guard)

	s.router.Use(mux.MiddlewareFunc(middleware.RequestID))
	if opts.Sessions != nil {
		s.router.Use(session.NewMiddleware(opts.Sessions, logger).Handler)
	}
	s.router.Use(middleware.Logging(logger))
	if opts.Metrics != nil {
		s.router.Use(mux.MiddlewareFunc(observability.HTTPMetricsMiddleware(opts.Metrics)))
	}
	s.router.Use(s.rateLimiter(opts))

	s.handler = s.router
	if opts.Tracing {
		s.handler = otelhttp.NewHandler(s.router, "troopbase-api")
	}

	return s
}

func (s *Server) rateLimiter(opts Options) mux.MiddlewareFunc {
	if opts.DistributedRateLimit && opts.Redis != nil {
		return middleware.NewDistributedRateLimitMiddleware(opts.Redis, s.logger).Handler
	}
	return middleware.NewRateLimitMiddleware().Handler
}

// Handler returns the root handler for the HTTP server
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Router exposes the underlying router so callers can mount extra routes
func (s *Server) Router() *mux.Router {
	return s.router
}
