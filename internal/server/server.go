// Package server provides the HTTP server for the kiosk.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/ayusman/akushu/internal/capture"
	"github.com/ayusman/akushu/internal/display"
	"github.com/ayusman/akushu/internal/logging"
	"github.com/ayusman/akushu/internal/server/api"
	"github.com/ayusman/akushu/internal/store"
)

// Config holds the server configuration. Nil collaborators disable their
// endpoints.
type Config struct {
	StaticDir string
	Store     *store.Store
	Runner    api.Runner
	Latest    *display.Latest
	Preview   *capture.Preview
	Hub       *Hub
	// StreamInterval is how often the MJPEG stream checks for a new frame.
	StreamInterval time.Duration
}

// Server represents the HTTP server for the kiosk.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
	logger *slog.Logger
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
		logger: logging.GetLogger().With("component", "server"),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if s.config.Runner != nil {
		sessionHandler := api.NewSessionHandler(s.config.Runner)
		s.mux.Handle("/api/session", sessionHandler)
		s.mux.Handle("/api/session/", sessionHandler)
	}

	if s.config.Store != nil {
		capturesHandler := api.NewCapturesHandler(s.config.Store)
		s.mux.Handle("/api/captures", capturesHandler)
		s.mux.Handle("/api/captures/", capturesHandler)
		s.mux.Handle("/api/sessions", api.NewSessionsHandler(s.config.Store))
		s.mux.Handle("/api/settings", api.NewSettingsHandler(s.config.Store))
	}

	if s.config.Latest != nil {
		s.mux.Handle("/api/photo/latest", NewPhotoHandler(s.config.Latest))
	}

	if s.config.Preview != nil {
		s.mux.Handle("/api/stream", NewStreamHandler(s.config.Preview, s.config.StreamInterval))
	}

	if s.config.Hub != nil {
		s.mux.Handle("/api/events", s.config.Hub)
	}

	// Serve static files if StaticDir is configured
	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	}
	if s.config.Runner != nil {
		response["running"] = s.config.Runner.Status().Running
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
