// Package server serves the icon catalog and sprite during development and
// reloads open pages after every rebuild.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/conneroisu/svgsprite/internal/config"
	"github.com/conneroisu/svgsprite/internal/docs"
	"github.com/conneroisu/svgsprite/internal/logging"
	"github.com/conneroisu/svgsprite/internal/pipeline"
)

// Routes.
const (
	CatalogPath     = "/"
	SpritePath      = "/sprite.svg"
	ReloadPath      = "/ws"
	HealthPath      = "/health"
	BuildStatusPath = "/api/build/status"
)

// MetricsSource reports pipeline build metrics.
type MetricsSource interface {
	GetMetrics() pipeline.BuildMetrics
}

// Server is the development HTTP server.
type Server struct {
	cfg     config.ServeConfig
	metrics MetricsSource
	logger  logging.Logger
	hub     *ReloadHub
	catalog docs.Catalog

	stateMutex sync.RWMutex
	page       []byte
	sprite     []byte
	lastErr    error
	builtAt    time.Time

	serverMutex  sync.Mutex
	httpServer   *http.Server
	listener     net.Listener
	shutdownOnce sync.Once
}

// New creates a server for cfg. metrics may be nil.
func New(cfg config.ServeConfig, metrics MetricsSource, logger logging.Logger) *Server {
	if logger == nil {
		logger = logging.Discard()
	}
	logger = logger.WithComponent("server")

	return &Server{
		cfg:     cfg,
		metrics: metrics,
		logger:  logger,
		hub:     NewReloadHub(logger),
		catalog: docs.Catalog{ReloadPath: ReloadPath},
	}
}

// Hub returns the live reload hub.
func (s *Server) Hub() *ReloadHub { return s.hub }

// Update is a pipeline.BuildCallback. A successful build replaces the
// served catalog and sprite; a failed one is reported on the catalog page
// while the last good sprite stays available. Open pages reload either way.
func (s *Server) Update(result pipeline.BuildResult) {
	ctx := context.Background()

	if result.Error != nil {
		s.stateMutex.Lock()
		s.lastErr = result.Error
		s.stateMutex.Unlock()
		s.hub.Broadcast([]byte(ReloadMessage))
		return
	}

	set := result.Documented
	if set == nil {
		set = result.Set
	}
	if set == nil {
		return
	}

	page, err := s.catalog.Render(ctx, set.View())
	if err != nil {
		s.logger.Error(ctx, err, "Failed to render catalog")
		s.stateMutex.Lock()
		s.lastErr = err
		s.stateMutex.Unlock()
		return
	}

	var sprite []byte
	if a, ok := result.Artifact(pipeline.ArtifactSprite); ok {
		sprite = a.Data
	}

	s.stateMutex.Lock()
	s.page = page
	s.sprite = sprite
	s.lastErr = nil
	s.builtAt = time.Now()
	s.stateMutex.Unlock()

	s.hub.Broadcast([]byte(ReloadMessage))
}

// Handler returns the HTTP handler with every route mounted.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(CatalogPath, s.handleCatalog)
	mux.HandleFunc(SpritePath, s.handleSprite)
	mux.Handle(ReloadPath, s.hub)
	mux.HandleFunc(HealthPath, s.handleHealth)
	mux.HandleFunc(BuildStatusPath, s.handleBuildStatus)

	return s.logRequests(securityHeaders(mux))
}

// Listen binds the configured address. Port 0 picks a free port.
func (s *Server) Listen() (net.Addr, error) {
	s.serverMutex.Lock()
	defer s.serverMutex.Unlock()

	if s.listener != nil {
		return s.listener.Addr(), nil
	}

	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}
	s.listener = ln
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return ln.Addr(), nil
}

// Serve serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	if _, err := s.Listen(); err != nil {
		return err
	}

	s.serverMutex.Lock()
	server, ln := s.httpServer, s.listener
	s.serverMutex.Unlock()

	errCh := make(chan error, 1)
	go func() {
		if err := server.Serve(ln); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("server error: %w", err)
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return <-errCh
	}
}

// Shutdown closes reload connections and stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.logger.Info(ctx, "Shutting down server")

		if err := s.hub.Shutdown(ctx); err != nil {
			shutdownErr = err
		}

		s.serverMutex.Lock()
		server := s.httpServer
		s.serverMutex.Unlock()

		if server != nil {
			if err := server.Shutdown(ctx); err != nil && shutdownErr == nil {
				shutdownErr = err
			}
		}
	})

	return shutdownErr
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != CatalogPath {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.stateMutex.RLock()
	page, lastErr := s.page, s.lastErr
	s.stateMutex.RUnlock()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")

	if lastErr != nil || page == nil {
		message := "waiting for the first build"
		status := http.StatusServiceUnavailable
		if lastErr != nil {
			message = lastErr.Error()
			status = http.StatusInternalServerError
		}
		var buf bytes.Buffer
		if err := s.catalog.ErrorPage(message).Render(r.Context(), &buf); err != nil {
			http.Error(w, message, status)
			return
		}
		w.WriteHeader(status)
		w.Write(buf.Bytes())
		return
	}

	w.Write(page)
}

func (s *Server) handleSprite(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.stateMutex.RLock()
	sprite, builtAt := s.sprite, s.builtAt
	s.stateMutex.RUnlock()

	if sprite == nil {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "image/svg+xml")
	http.ServeContent(w, r, "sprite.svg", builtAt, bytes.NewReader(sprite))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.writeJSON(w, map[string]interface{}{
		"status":    "healthy",
		"clients":   s.hub.ClientCount(),
		"timestamp": time.Now().UTC(),
	})
}

// BuildStatus is the body of the build status endpoint.
type BuildStatus struct {
	Status           string  `json:"status"`
	Icons            int     `json:"icons"`
	TotalBuilds      int64   `json:"total_builds"`
	SuccessfulBuilds int64   `json:"successful_builds"`
	FailedBuilds     int64   `json:"failed_builds"`
	SuccessRate      float64 `json:"success_rate"`
	AverageDuration  string  `json:"average_duration"`
	LastError        string  `json:"last_error,omitempty"`
	Timestamp        int64   `json:"timestamp"`
}

func (s *Server) handleBuildStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.stateMutex.RLock()
	lastErr, built := s.lastErr, s.page != nil
	s.stateMutex.RUnlock()

	status := BuildStatus{Status: "pending", Timestamp: time.Now().Unix()}
	switch {
	case lastErr != nil:
		status.Status = "error"
		status.LastError = lastErr.Error()
	case built:
		status.Status = "healthy"
	}

	if s.metrics != nil {
		m := s.metrics.GetMetrics()
		status.Icons = m.LastIconCount
		status.TotalBuilds = m.TotalBuilds
		status.SuccessfulBuilds = m.SuccessfulBuilds
		status.FailedBuilds = m.FailedBuilds
		status.AverageDuration = m.AverageDuration.String()
		status.SuccessRate = m.GetSuccessRate()
	}

	s.writeJSON(w, status)
}

func (s *Server) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn(context.Background(), err, "Failed to encode response")
	}
}

// catalogCSP permits only what the catalog page itself loads.
const catalogCSP = "default-src 'none'; img-src 'self' data:; style-src 'unsafe-inline'; " +
	"script-src 'unsafe-inline'; connect-src 'self'; frame-ancestors 'none'"

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Content-Security-Policy", catalogCSP)
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Cross-Origin-Resource-Policy", "same-origin")
		next.ServeHTTP(w, r)
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		if r.URL.Path != ReloadPath {
			s.logger.Debug(r.Context(), "Request served",
				"method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
		}
	})
}
