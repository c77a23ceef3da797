// Package server exposes the sign-in flows over HTTP and gates every other route
// behind a valid session.
package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/jrsteele09/dashboard-auth/auth"
	"github.com/jrsteele09/dashboard-auth/cookies"
	"github.com/jrsteele09/dashboard-auth/internal/config"
	"github.com/jrsteele09/dashboard-auth/internal/metrics"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

type Server struct {
	env            string // Environment (e.g., "DEV", "PROD")
	mux            *http.ServeMux
	handler        http.Handler
	routes         []string
	config         config.Config
	orchestrator   *auth.Orchestrator
	transport      *cookies.Transport
	gate           *Gate
	metrics        *metrics.Metrics
	metricsHandler http.Handler
	challenges     ChallengeVerifier
}

type Option func(*Server)

// WithMetrics records gate outcomes in m and serves handler on /metrics.
func WithMetrics(m *metrics.Metrics, handler http.Handler) Option {
	return func(s *Server) {
		s.metrics = m
		s.metricsHandler = handler
	}
}

// WithChallengeVerifier lets a solved human-verification challenge bypass the risk gate.
func WithChallengeVerifier(v ChallengeVerifier) Option {
	return func(s *Server) {
		s.challenges = v
	}
}

func New(cfg config.Config, orchestrator *auth.Orchestrator, opts ...Option) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("[server.New] config is required")
	}
	if orchestrator == nil {
		return nil, errors.New("[server.New] orchestrator is required")
	}
	s := &Server{
		env:            cfg.GetEnv(),
		mux:            http.NewServeMux(),
		config:         cfg,
		orchestrator:   orchestrator,
		transport:      cookies.NewTransport(cfg.GetSecureCookies()),
		metricsHandler: metrics.Handler(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.gate = NewGate(orchestrator.Provider(), s.transport, NewPathMatcher(cfg.GetPublicPaths()), s.metrics)

	s.initRoutes()
	s.handler = ChainMiddleware(s.mux, s.StandardMiddleware(s.gate.Middleware)...)
	s.logRoutes()
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
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	var displayMethod string
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		displayMethod = color + paddedMethod + ResetColor
	} else {
		displayMethod = Gray + paddedMethod + ResetColor
	}
	log.Debug().Msgf("[%-19s] %s", displayMethod, path)
}
