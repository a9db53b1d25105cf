// Package server exposes glucose snapshots over HTTP
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mrcode/glucoshare/internal/app"
	"github.com/mrcode/glucoshare/internal/badge"
	"github.com/mrcode/glucoshare/internal/metrics"
	"github.com/mrcode/glucoshare/internal/models"
	"github.com/mrcode/glucoshare/internal/stats"
	"github.com/prometheus/client_golang/prometheus"
)

const shutdownTimeout = 30 * time.Second

// GlucoseSource produces the data served by the API. *app.GlucoseService
// satisfies it.
type GlucoseSource interface {
	Snapshot(ctx context.Context) (*app.Snapshot, error)
	Current(ctx context.Context) (*models.NormalizedReading, error)
	Stats(ctx context.Context) (*stats.Summary, error)
	Status(snap *app.Snapshot) *models.GlucoseStatus
}

// Server is the HTTP front end
type Server struct {
	source      GlucoseSource
	renderer    *badge.Renderer
	gatherer    prometheus.Gatherer
	webPassword string
	publicDir   string
	authLimit   AuthLimitConfig
	logger      *slog.Logger

	limiter *authLimiter
	handler http.Handler
}

// Option configures a Server
type Option func(*Server)

// WithWebPassword enables Basic auth on everything except /health and /metrics
func WithWebPassword(password string) Option {
	return func(s *Server) {
		s.webPassword = password
	}
}

// WithPublicDir sets the directory served at /
func WithPublicDir(dir string) Option {
	return func(s *Server) {
		s.publicDir = dir
	}
}

// WithBadgeRenderer sets the renderer behind /api/badge.png
func WithBadgeRenderer(r *badge.Renderer) Option {
	return func(s *Server) {
		if r != nil {
			s.renderer = r
		}
	}
}

// WithGatherer exposes the given registry at /metrics
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithAuthLimit overrides the failed-auth rate limit
func WithAuthLimit(cfg AuthLimitConfig) Option {
	return func(s *Server) {
		s.authLimit = cfg
	}
}

// WithLogger sets the server logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New builds the server and its routes
func New(source GlucoseSource, opts ...Option) *Server {
	s := &Server{
		source:    source,
		renderer:  badge.NewRenderer(models.DefaultSettings(), badge.DefaultSize),
		authLimit: DefaultAuthLimitConfig(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.limiter = newAuthLimiter(s.authLimit)
	s.handler = s.routes()
	return s
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(recoverer(s.logger))
	r.Use(requestLogger(s.logger))
	r.Use(securityHeaders)

	// unauthenticated
	r.Get("/health", s.handleHealth)
	if s.gatherer != nil {
		r.Handle("/metrics", metrics.Handler(s.gatherer))
	}

	r.Group(func(r chi.Router) {
		r.Use(basicAuth(s.webPassword, s.limiter, s.logger))

		r.Route("/api", func(r chi.Router) {
			r.Get("/data", s.handleData)
			r.Get("/current", s.handleCurrent)
			r.Get("/stats", s.handleStats)
			r.Get("/badge.png", s.handleBadge)
		})

		if s.publicDir != "" {
			r.Handle("/*", http.FileServer(http.Dir(s.publicDir)))
		}
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleData(w http.ResponseWriter, r *http.Request) {
	snap, err := s.source.Snapshot(r.Context())
	if err != nil {
		s.logger.Error("error fetching glucose data", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleCurrent(w http.ResponseWriter, r *http.Request) {
	current, err := s.source.Current(r.Context())
	if err != nil {
		s.logger.Error("error fetching current reading", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if current == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, current)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	summary, err := s.source.Stats(r.Context())
	if err != nil {
		s.logger.Error("error computing statistics", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// handleBadge renders the current status. A failed fetch still answers
// with an image so embedding pages show the error.
func (s *Server) handleBadge(w http.ResponseWriter, r *http.Request) {
	renderer := s.renderer
	if raw := r.URL.Query().Get("size"); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil || size < badge.MinSize || size > badge.MaxSize {
			writeError(w, http.StatusBadRequest,
				fmt.Sprintf("size must be an integer between %d and %d", badge.MinSize, badge.MaxSize))
			return
		}
		renderer = renderer.WithSize(size)
	}

	var img []byte
	snap, err := s.source.Snapshot(r.Context())
	if err != nil {
		s.logger.Error("error fetching glucose data for badge", slog.String("error", err.Error()))
		img, err = renderer.RenderError()
	} else {
		img, err = renderer.Render(s.source.Status(snap))
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(img)
}

// Run listens on addr until ctx is done, then shuts down gracefully
func (s *Server) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      s.handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", slog.String("addr", ln.Addr().String()))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.logger.Info("server stopped")
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
