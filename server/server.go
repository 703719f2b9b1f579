package server

import (
	"net/http"
	"strings"

	"github.com/nexahq/nexa-auth/auth"
	"github.com/nexahq/nexa-auth/internal/config"
	"github.com/nexahq/nexa-auth/rbac"
	"github.com/pkg/errors"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
)

type Server struct {
	env      string // Environment (e.g., "DEV", "PROD")
	mux      *http.ServeMux
	routes   []string
	handler  http.Handler
	config   config.Config
	auth     *auth.Service
	strategy AuthStrategy
	roles    *rbac.Resolver
}

// New builds the HTTP surface over the auth service. The authentication
// strategy is fixed at construction time from deployment configuration,
// never selected per request.
func New(cfg config.Config, authService *auth.Service, strategy AuthStrategy, roles *rbac.Resolver) (*Server, error) {
	if authService == nil {
		return nil, errors.New("[Server New] auth service is required")
	}
	if strategy == nil {
		return nil, errors.New("[Server New] auth strategy is required")
	}
	if roles == nil {
		return nil, errors.New("[Server New] role resolver is required")
	}

	s := &Server{
		mux:      http.NewServeMux(),
		config:   cfg,
		auth:     authService,
		strategy: strategy,
		roles:    roles,
	}
	s.env = cfg.GetEnv()

	s.initRoutes()
	s.logRoutes()

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.GetAllowedOrigins(),
		AllowedMethods:   cfg.GetAllowedMethods(),
		AllowedHeaders:   cfg.GetAllowedHeaders(),
		AllowCredentials: true,
		MaxAge:           86400,
	})
	s.handler = corsHandler.Handler(s.mux)

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)
		if len(parts) > 1 {
			log.Debug().Str("method", parts[0]).Str("path", parts[1]).Msg("route registered")
		} else {
			log.Debug().Str("path", parts[0]).Msg("route registered")
		}
	}
}

// Helper function to determine the scheme (http/https)
func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return scheme
	}
	return "http"
}
