// Package http serves the landing page: static assets, the lead endpoint and
// the simulator session API.
package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"regexp"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/microcosm-cc/bluemonday"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/guihenriquebr/sefra/internal/logging"
	"github.com/guihenriquebr/sefra/internal/metrics"
	"github.com/guihenriquebr/sefra/pkg/analytics"
	pii "github.com/guihenriquebr/sefra/pkg/persistence/middleware"
	"github.com/guihenriquebr/sefra/pkg/ports"
	"github.com/guihenriquebr/sefra/pkg/session"
)

// DefaultLeadDelay simulates the processing time of the lead endpoint.
const DefaultLeadDelay = 500 * time.Millisecond

// Server holds the dependencies of the HTTP handlers.
type Server struct {
	root      string
	sessions  *session.Manager
	events    ports.EventSink
	metrics   *metrics.Metrics
	gatherer  prometheus.Gatherer
	logger    *slog.Logger
	leadDelay time.Duration
	now       func() time.Time
	policy    *bluemonday.Policy
	patterns  []*regexp.Regexp
}

// Option configures the Server.
type Option func(*Server)

// WithSessions enables the simulator session API.
func WithSessions(m *session.Manager) Option {
	return func(s *Server) {
		s.sessions = m
	}
}

// WithEventSink receives the page events posted to /api/events.
func WithEventSink(sink ports.EventSink) Option {
	return func(s *Server) {
		s.events = sink
	}
}

// WithMetrics records request and lead counters and serves /metrics from gatherer.
func WithMetrics(m *metrics.Metrics, gatherer prometheus.Gatherer) Option {
	return func(s *Server) {
		s.metrics = m
		s.gatherer = gatherer
	}
}

// WithLogger sets a structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// WithLeadDelay overrides DefaultLeadDelay.
func WithLeadDelay(d time.Duration) Option {
	return func(s *Server) {
		s.leadDelay = d
	}
}

// WithClock overrides the clock used for lead IDs.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}

// WithPIIPatterns sets the field name patterns masked in lead logs.
func WithPIIPatterns(patterns []*regexp.Regexp) Option {
	return func(s *Server) {
		s.patterns = patterns
	}
}

// New creates a server for the site rooted at root.
func New(root string, opts ...Option) (*Server, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	patterns, err := pii.CompilePatterns(pii.DefaultPIIPatterns)
	if err != nil {
		return nil, err
	}

	s := &Server{
		root:      abs,
		events:    analytics.Nop{},
		logger:    logging.NewNop(),
		leadDelay: DefaultLeadDelay,
		now:       time.Now,
		policy:    bluemonday.StrictPolicy(),
		patterns:  patterns,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(securityHeaders)
	r.Use(enableCORS)
	r.Use(s.instrument)

	r.Get("/health", s.health)
	if s.gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.HandleFunc("/api/leads", s.receiveLead)
	r.Post("/api/events", s.recordEvent)

	if s.sessions != nil {
		r.Route("/api/simulator/sessions", func(r chi.Router) {
			r.Post("/", s.createSession)
			r.Get("/{id}", s.getSession)
			r.Post("/{id}/next", s.nextStep)
			r.Post("/{id}/prev", s.prevStep)
			r.Post("/{id}/submit", s.submit)
			r.Post("/{id}/input", s.input)
			r.Delete("/{id}", s.closeSession)
		})
	}

	r.HandleFunc("/*", s.serveStatic)
	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-XSS-Protection", "1; mode=block")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// instrument counts requests by route pattern and status code.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.metrics.ObserveHTTP(route, fmt.Sprintf("%dxx", status/100))
		s.logger.DebugContext(r.Context(), "request served",
			"method", r.Method,
			"path", r.URL.Path,
			"route", route,
			"status", status,
			"elapsed", time.Since(start),
		)
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("response encode failed", "error", err)
	}
}
