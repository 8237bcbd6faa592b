// Package api provides the HTTP server and handlers for the retrieval tool.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/coderag/coderag/internal/config"
	"github.com/coderag/coderag/internal/embedder"
	"github.com/coderag/coderag/internal/metrics"
	"github.com/coderag/coderag/internal/vectorstore"
)

// Server represents the HTTP API server: the ambient status/search surface
// that sits in front of the indexing pipeline (not a full MCP or web search
// surface - see Non-goals).
type Server struct {
	cfg        *config.Manager
	embedder   embedder.Provider
	store      vectorstore.Store
	logger     *zap.Logger
	httpServer *http.Server
	mu         sync.RWMutex
	version    string
}

// NewServer creates a new API server.
func NewServer(
	cfg *config.Manager,
	emb embedder.Provider,
	store vectorstore.Store,
	logger *zap.Logger,
) *Server {
	return &Server{
		cfg:      cfg,
		embedder: emb,
		store:    store,
		logger:   logger,
		version:  "1.0.0",
	}
}

// Start starts the HTTP server with graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	cfg := s.cfg.Get()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /retrieve", s.handleRetrieve)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /", s.handleRoot)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      s.loggingMiddleware(mux),
		ReadTimeout:  cfg.Server.GetReadTimeout(),
		WriteTimeout: cfg.Server.GetWriteTimeout(),
	}

	// Setup hot reload
	s.setupHotReload()

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", zap.Int("port", cfg.Server.Port), zap.String("version", s.version))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for shutdown signal or error
	select {
	case <-ctx.Done():
		return s.shutdown()
	case err := <-errCh:
		return err
	}
}

// shutdown performs graceful shutdown.
func (s *Server) shutdown() error {
	cfg := s.cfg.Get()
	s.logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.GetShutdownTimeout())
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}

	// Close providers
	if err := s.embedder.Close(); err != nil {
		s.logger.Warn("embedder close error", zap.Error(err))
	}
	if err := s.store.Close(); err != nil {
		s.logger.Warn("vector store close error", zap.Error(err))
	}

	s.logger.Info("server stopped")
	return nil
}

// setupHotReload configures SIGHUP handler for config reload.
func (s *Server) setupHotReload() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP)

	go func() {
		for range sigCh {
			s.logger.Info("received SIGHUP, reloading config")
			if err := s.cfg.Reload(); err != nil {
				s.logger.Error("config reload failed", zap.Error(err))
			} else {
				s.logger.Info("config reloaded successfully")
			}
		}
	}()
}

// UpdateProviders updates the embedding and vector store providers (for hot reload).
func (s *Server) UpdateProviders(emb embedder.Provider, store vectorstore.Store) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Close old providers
	if s.embedder != nil {
		s.embedder.Close()
	}
	if s.store != nil {
		s.store.Close()
	}

	s.embedder = emb
	s.store = store
}

// getProviders returns thread-safe access to providers.
func (s *Server) getProviders() (embedder.Provider, vectorstore.Store) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.embedder, s.store
}

// loggingMiddleware logs all HTTP requests.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Wrap response writer to capture status
		wrapped := &statusResponseWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", wrapped.status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()))
	})
}

// statusResponseWriter captures the response status code.
type statusResponseWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusResponseWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
