// Package server exposes Translate Blitz game sessions over HTTP.
//
// Every game action is a JSON request against /api/sessions/{id}/...; the
// presentation of a running game streams back over a WebSocket at
// /api/sessions/{id}/events. Health checks, metrics and the optional static
// browser client share the same mux.
package server

import (
	"net/http"
	"strings"

	"github.com/MrWong99/translateblitz/internal/app"
	"github.com/MrWong99/translateblitz/internal/health"
	"github.com/MrWong99/translateblitz/internal/observe"
)

// Option configures a [Server].
type Option func(*Server)

// WithMetricsHandler serves h at GET /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.metricsHandler = h }
}

// WithOriginPatterns allows WebSocket connections from the given host
// patterns in addition to same-origin requests.
func WithOriginPatterns(patterns ...string) Option {
	return func(s *Server) { s.originPatterns = patterns }
}

// Server routes HTTP requests to the sessions of an [app.App].
type Server struct {
	app            *app.App
	mux            *http.ServeMux
	limiter        *ipLimiter
	metricsHandler http.Handler
	originPatterns []string
}

// New creates a Server for a. Rate limits are read from the app config once.
func New(a *app.App, opts ...Option) *Server {
	s := &Server{
		app: a,
		mux: http.NewServeMux(),
	}
	for _, o := range opts {
		o(s)
	}
	if rl := a.Config().Server.RateLimit; rl.RPS > 0 {
		s.limiter = newIPLimiter(rl.RPS, rl.Burst)
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	m := s.mux

	m.HandleFunc("POST /api/sessions", s.handleCreate)
	m.HandleFunc("GET /api/sessions/{id}", s.handleSnapshot)
	m.HandleFunc("DELETE /api/sessions/{id}", s.handleClose)
	m.HandleFunc("POST /api/sessions/{id}/start", s.handleStart)
	m.HandleFunc("POST /api/sessions/{id}/translation", s.handleTranslation)
	m.HandleFunc("POST /api/sessions/{id}/pronunciation", s.handlePronunciation)
	m.HandleFunc("POST /api/sessions/{id}/decision", s.handleDecision)
	m.HandleFunc("POST /api/sessions/{id}/advance", s.handleAdvance)
	m.HandleFunc("POST /api/sessions/{id}/pause", s.handlePause)
	m.HandleFunc("POST /api/sessions/{id}/resume", s.handleResume)
	m.HandleFunc("POST /api/sessions/{id}/reset", s.handleReset)
	m.HandleFunc("GET /api/sessions/{id}/summary", s.handleSummary)
	m.HandleFunc("GET /api/sessions/{id}/events", s.handleEvents)
	m.HandleFunc("GET /api/sessions/{id}/speak", s.handleSpeak)

	m.HandleFunc("GET /api/vocabulary", s.handleVocabulary)

	m.HandleFunc("GET /api/settings/api-key", s.handleAPIKeyStatus)
	m.HandleFunc("PUT /api/settings/api-key", s.handleSetAPIKey)
	m.HandleFunc("DELETE /api/settings/api-key", s.handleDeleteAPIKey)

	health.New(s.app.Checkers()...).Register(m)
	if s.metricsHandler != nil {
		m.Handle("GET /metrics", s.metricsHandler)
	}
	if dir := s.app.Config().Server.StaticDir; dir != "" {
		m.Handle("GET /", http.FileServer(http.Dir(dir)))
	}
}

// Handler returns the root handler with tracing, request metrics and rate
// limiting applied.
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.mux
	if s.limiter != nil {
		h = s.rateLimit(h)
	}
	return observe.Middleware(s.app.Metrics())(h)
}

// rateLimit throttles /api requests per client IP. Health checks and static files
// are never limited.
func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") && !s.limiter.Allow(clientIP(r)) {
			writeError(w, r, errRateLimited)
			return
		}
		next.ServeHTTP(w, r)
	})
}
