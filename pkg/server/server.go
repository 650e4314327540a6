// Package server is the web rendering surface: a preview page with one
// embedded frame per selected device, and a JSON API over the device
// registry and the server-side load detection.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/entrhq/devpreview/pkg/preview"
	"github.com/entrhq/devpreview/pkg/registry"
	"github.com/gorilla/mux"
)

// Logger is the logging used by the server.
type Logger interface {
	Debugf(format string, v ...interface{})
	Infof(format string, v ...interface{})
	Errorf(format string, v ...interface{})
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...interface{}) {}
func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Errorf(string, ...interface{}) {}

// Config holds server configuration.
type Config struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// DefaultURL is previewed when the page is opened without a url
	// parameter.
	DefaultURL string
}

// DefaultConfig returns a default server configuration.
func DefaultConfig() Config {
	return Config{
		Host:         "127.0.0.1",
		Port:         7878,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
		DefaultURL:   "https://example.com",
	}
}

// Server serves the preview page and API.
type Server struct {
	cfg        Config
	addr       string
	registry   *registry.Store
	surface    *preview.Surface
	logger     Logger
	router     *mux.Router
	httpServer *http.Server

	syncMu      sync.Mutex
	unsubscribe func()
}

// New creates a server over store. surface may be nil, in which case
// server-side load detection is disabled and /api/preview reports 503.
func New(cfg Config, store *registry.Store, surface *preview.Surface, logger Logger) *Server {
	if logger == nil {
		logger = nopLogger{}
	}
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	s := &Server{
		cfg:      cfg,
		addr:     addr,
		registry: store,
		surface:  surface,
		logger:   logger,
	}
	s.router = s.routes()
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	// Keep the surface in step with selection changes from any client.
	// Notifications can arrive out of order, so each pass reads the newest
	// snapshot rather than the one it was handed.
	if surface != nil {
		s.unsubscribe = store.Subscribe(func(registry.State) {
			s.syncMu.Lock()
			defer s.syncMu.Unlock()
			surface.Sync(store.Snapshot(), surface.URL())
		})
	}
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.addr
}

// BaseURL returns the http address clients use to reach the server.
func (s *Server) BaseURL() string {
	return "http://" + s.addr
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter().UseEncodedPath()
	r.Use(s.logRequests)

	r.HandleFunc("/health", s.handleHealth).Methods("GET")
	r.HandleFunc("/", s.handlePage).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/devices", s.handleListDevices).Methods("GET")
	api.HandleFunc("/devices", s.handleAddDevice).Methods("POST")
	api.HandleFunc("/devices/{name}", s.handleRemoveDevice).Methods("DELETE")
	api.HandleFunc("/devices/{name}/toggle", s.handleToggleDevice).Methods("POST")
	api.HandleFunc("/selection", s.handleSetSelection).Methods("PUT")
	api.HandleFunc("/preview", s.handlePreview).Methods("GET")
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debugf("server: %s %s (%v)", r.Method, r.URL.RequestURI(), time.Since(start))
	})
}

// syncSurface points the surface at url for the current selection.
func (s *Server) syncSurface(url string) {
	if s.surface == nil {
		return
	}
	s.syncMu.Lock()
	defer s.syncMu.Unlock()
	s.surface.Sync(s.registry.Snapshot(), url)
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errChan := make(chan error, 1)
	go func() {
		s.logger.Infof("server: listening on %s", s.addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Infof("server: shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		return nil
	case err := <-errChan:
		return err
	}
}

// Close stops following registry changes. The surface is left to its owner.
func (s *Server) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
}
