package server

import (
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/chetanran/devsecops-sec-dashboard/findings"
	"github.com/chetanran/devsecops-sec-dashboard/internal/config"
)

// APIVersion is reported by the root status endpoint.
const APIVersion = "0.1.0"

// Server is the dashboard API: findings queries for the SPA, scanner
// uploads from CI, and finding triage updates.
type Server struct {
	env      string
	mux      *http.ServeMux
	routes   []string
	config   config.Config
	repo     findings.Repo
	verifier TokenVerifier
	logger   zerolog.Logger
}

// Options configures optional Server behaviour.
type Options func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger zerolog.Logger) Options {
	return func(s *Server) {
		s.logger = logger
	}
}

func New(config config.Config, repo findings.Repo, verifier TokenVerifier, opts ...Options) *Server {
	s := &Server{
		mux:      http.NewServeMux(),
		config:   config,
		repo:     repo,
		verifier: verifier,
		logger:   zerolog.Nop(),
	}
	s.env = config.GetEnv()

	for _, opt := range opts {
		opt(s)
	}

	s.initRoutes()
	s.logRoutes()

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
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
	log.Printf("[%-19s] %s\n", displayMethod, path)
}
