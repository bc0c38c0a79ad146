package api

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/platinummonkey/huddle/pkg/config"
	"github.com/platinummonkey/huddle/pkg/httputil"
	"github.com/platinummonkey/huddle/pkg/loader"
	"github.com/platinummonkey/huddle/pkg/middleware"
	"github.com/platinummonkey/huddle/pkg/observability"
)

// ServerDeps collects everything the HTTP surface needs
type ServerDeps struct {
	Users     UserService
	Schools   SchoolService
	Relations Relations

	Authenticator middleware.Authenticator
	// RateLimit is nil when rate limiting is disabled
	RateLimit *middleware.RateLimitMiddleware
	Metrics   *observability.Metrics
	Logger    *observability.Logger

	Loader         loader.Options
	GraphQL        config.GraphQLConfig
	WebURL         string
	AllowedOrigins []string
	MaxBodyBytes   int64
}

// Server represents our API server
type Server struct {
	router  *mux.Router
	handler http.Handler
}

// NewServer creates a new API server with every route and middleware wired
func NewServer(deps ServerDeps) (*Server, error) {
	s := &Server{router: mux.NewRouter()}

	RegisterRoutes(s.router, Routes(
		NewUserHandlers(deps.Users),
		NewSchoolHandlers(deps.Schools),
		NewConfirmHandler(deps.Users, deps.WebURL),
	))

	if deps.GraphQL.Enabled {
		gql, err := NewGraphQLHandler(NewResolver(deps.Users, deps.Schools, deps.Relations), deps.GraphQL)
		if err != nil {
			return nil, fmt.Errorf("failed to create graphql handler: %w", err)
		}
		s.router.Handle("/graphql", gql).Methods(http.MethodPost).Name("graphql")
	}

	// Route-aware middleware runs after matching so metrics see the template
	if deps.Metrics != nil {
		s.router.Use(observability.HTTPMetricsMiddleware(deps.Metrics))
	}
	s.router.Use(httputil.ContentTypeMiddleware)
	if deps.Authenticator != nil {
		s.router.Use(middleware.NewAuthMiddleware(deps.Authenticator).Handler)
	}
	if deps.RateLimit != nil {
		s.router.Use(deps.RateLimit.Handler)
	}
	s.router.Use(middleware.LoaderScope(deps.Loader))

	logger := deps.Logger
	if logger == nil {
		logger = observability.Default()
	}
	outer := []func(http.Handler) http.Handler{
		httputil.RequestIDMiddleware,
		httputil.LoggingMiddleware(logger),
		httputil.RecoveryMiddleware,
		httputil.CORSMiddleware(deps.AllowedOrigins),
		otelhttp.NewMiddleware("huddle"),
	}
	if deps.MaxBodyBytes > 0 {
		outer = append(outer, httputil.MaxBytesMiddleware(deps.MaxBodyBytes))
	}
	s.handler = httputil.Chain(outer...)(s.router)

	return s, nil
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Router exposes the router for additional registrations
func (s *Server) Router() *mux.Router {
	return s.router
}
