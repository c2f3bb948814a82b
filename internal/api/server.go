// Package api provides the HTTP surface for Splashboard: interaction
// ingestion, display confirmation, operator stats, and the SSE streams.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/splashlab/splashboard/internal/app"
	"github.com/splashlab/splashboard/internal/ingest"
)

// ThrowUsecase is the ingestion entry point, implemented by
// ingest.Service.
type ThrowUsecase interface {
	Throw(ctx context.Context, req ingest.ThrowRequest) (*ingest.ThrowResult, error)
}

// Server represents the HTTP API server.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux

	// Use case dependencies
	health  app.HealthUsecase
	ingest  ThrowUsecase
	confirm app.ConfirmUsecase
	stats   app.StatsUsecase

	// SSE hub
	hub *Hub

	// Auth configuration
	authEnabled  bool
	authUsername string
	authPassword string
	streamSecret []byte

	// Abuse guards and CORS
	cors         *CORSConfig
	ipLimiter    *RateLimiter
	authFailures *AuthFailureLimiter
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithIngestService sets the interaction ingestion service.
func WithIngestService(svc ThrowUsecase) ServerOption {
	return func(s *Server) { s.ingest = svc }
}

// WithConfirmUsecase sets the display-confirmation use case.
func WithConfirmUsecase(confirm app.ConfirmUsecase) ServerOption {
	return func(s *Server) { s.confirm = confirm }
}

// WithStatsUsecase sets the stats use case.
func WithStatsUsecase(stats app.StatsUsecase) ServerOption {
	return func(s *Server) { s.stats = stats }
}

// WithHub sets the SSE hub.
func WithHub(hub *Hub) ServerOption {
	return func(s *Server) { s.hub = hub }
}

// WithBasicAuth enables HTTP Basic Auth for the operator endpoints.
func WithBasicAuth(username, password string) ServerOption {
	return func(s *Server) {
		if username != "" && password != "" {
			s.authEnabled = true
			s.authUsername = username
			s.authPassword = password
		}
	}
}

// WithStreamSecret sets the HMAC secret for admin stream tokens.
func WithStreamSecret(secret []byte) ServerOption {
	return func(s *Server) { s.streamSecret = secret }
}

// WithCORS enables CORS handling for the public pages.
func WithCORS(cfg CORSConfig) ServerOption {
	return func(s *Server) { s.cors = &cfg }
}

// WithIPRateLimiter applies per-IP rate limiting to the POST endpoints.
func WithIPRateLimiter(rl *RateLimiter) ServerOption {
	return func(s *Server) { s.ipLimiter = rl }
}

// WithAuthFailureLimiter blocks IPs that repeatedly fail Basic Auth.
func WithAuthFailureLimiter(afl *AuthFailureLimiter) ServerOption {
	return func(s *Server) { s.authFailures = afl }
}

// NewServer creates a new API server with the given dependencies.
func NewServer(addr string, health app.HealthUsecase, opts ...ServerOption) *Server {
	mux := http.NewServeMux()
	s := &Server{
		mux:    mux,
		health: health,
	}
	for _, opt := range opts {
		opt(s)
	}

	var handler http.Handler = mux
	if s.cors != nil {
		handler = corsMiddleware(*s.cors)(handler)
	}

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 0, // Disable for SSE (long-lived connections)
		IdleTimeout:  60 * time.Second,
	}

	s.registerRoutes()
	return s
}

// wrapAuth wraps a handler with Basic Auth, plus the failure lockout when
// one is configured. Without credentials the handler stays open, which is
// the development default.
func (s *Server) wrapAuth(h http.Handler) http.Handler {
	if !s.authEnabled {
		return h
	}
	h = basicAuthMiddleware(s.authUsername, s.authPassword, s.authFailures)(h)
	if s.authFailures != nil {
		h = s.authFailures.Middleware(h)
	}
	return h
}

// wrapPublic applies the per-IP abuse guard to a public endpoint.
func (s *Server) wrapPublic(h http.Handler) http.Handler {
	if s.ipLimiter == nil {
		return h
	}
	return s.ipLimiter.Middleware(h)
}

// registerRoutes sets up the API routes.
func (s *Server) registerRoutes() {
	// Health endpoint (no auth required)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)

	// Public ingestion endpoints
	if s.ingest != nil {
		s.mux.Handle("POST /interaction", s.wrapPublic(http.HandlerFunc(s.handleThrow)))
	}
	if s.confirm != nil {
		s.mux.Handle("POST /interaction/displayed", s.wrapPublic(http.HandlerFunc(s.handleDisplayed)))
	}

	// Operator endpoints
	if s.stats != nil {
		s.mux.Handle("GET /stats", s.wrapAuth(http.HandlerFunc(s.handleStats)))
	}
	if s.authEnabled && len(s.streamSecret) > 0 {
		s.mux.Handle("POST /auth/token", s.wrapAuth(http.HandlerFunc(s.handleAuthToken)))
	}

	// SSE streams
	if s.hub != nil {
		s.mux.HandleFunc("GET /stream/screen/{id}", s.handleScreenStream)

		admin := http.Handler(http.HandlerFunc(s.handleAdminStream))
		if s.authEnabled {
			admin = streamTokenMiddleware(s.authUsername, s.authPassword, s.streamSecret)(admin)
		}
		s.mux.Handle("GET /stream/admin", admin)
	}
}

// handleHealth handles the health check endpoint.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	result, err := s.health.Handle(r.Context())
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Addr returns the server address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Handler returns the root handler (for tests).
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}
