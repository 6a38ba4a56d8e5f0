package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/ledgerly/auth-service/auth"
	"github.com/ledgerly/auth-service/internal/config"
	"github.com/ledgerly/auth-service/sessioncookie"
	"github.com/rs/zerolog/log"
)

// Server is the HTTP edge of the auth core: it owns the route table, the
// edge security middleware and the JSON handlers that drive the auth
// service.
type Server struct {
	env     string // Environment (e.g., "DEV", "PROD")
	mux     *http.ServeMux
	routes  []string
	config  config.Config
	auth    *auth.Service
	cookies *sessioncookie.Codec
}

func New(cfg config.Config, authService *auth.Service, cookieCodec *sessioncookie.Codec) (*Server, error) {
	if authService == nil {
		return nil, fmt.Errorf("[Server New] auth service is required")
	}
	if cookieCodec == nil {
		return nil, fmt.Errorf("[Server New] session cookie codec is required")
	}

	s := &Server{
		mux:     http.NewServeMux(),
		config:  cfg,
		auth:    authService,
		cookies: cookieCodec,
	}
	s.env = cfg.GetEnv()

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
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
			log.Debug().Str("method", parts[0]).Str("path", parts[1]).Msg("route")
		} else {
			log.Debug().Str("path", parts[0]).Msg("route")
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
