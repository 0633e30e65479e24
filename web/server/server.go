// Package server serves progressive renders over HTTP. Passes stream to the
// browser as server-sent events.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/cors"
	"go.uber.org/zap"
	"goji.io"
	"goji.io/pat"

	"github.com/df07/go-diffuse-raytracer/pkg/scene"
)

// Server handles web requests for the progressive raytracer
type Server struct {
	port      int
	scenesDir string
	staticDir string
	logger    *zap.SugaredLogger
}

// Options configures a Server
type Options struct {
	Port      int
	ScenesDir string // Directory scanned for .json scene files
	StaticDir string // Served at / when set
}

// NewServer creates a new web server. A nil logger discards log output.
func NewServer(opts Options, logger *zap.SugaredLogger) *Server {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Server{
		port:      opts.Port,
		scenesDir: opts.ScenesDir,
		staticDir: opts.StaticDir,
		logger:    logger,
	}
}

// Handler returns the routes of the server with permissive CORS applied
func (s *Server) Handler() http.Handler {
	mux := goji.NewMux()
	mux.HandleFunc(pat.Get("/api/health"), s.handleHealth)
	mux.HandleFunc(pat.Get("/api/scenes"), s.handleScenes)
	mux.HandleFunc(pat.Get("/api/schema"), s.handleSchema)
	mux.HandleFunc(pat.Get("/api/render"), s.handleRender)
	mux.HandleFunc(pat.Get("/api/image"), s.handleImage)
	mux.HandleFunc(pat.Get("/api/inspect"), s.handleInspect)
	if s.staticDir != "" {
		mux.Handle(pat.Get("/*"), http.FileServer(http.Dir(s.staticDir)))
	}
	return cors.AllowAll().Handler(mux)
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Infow("starting web server", "address", fmt.Sprintf("http://localhost:%d", s.port))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return errors.Wrap(err, "web server stopped")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.logger.Info("shutting down web server")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "shutting down web server")
	}
	return nil
}

// handleHealth provides a simple health check endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleScenes lists built-in scenes and scene files
func (s *Server) handleScenes(w http.ResponseWriter, r *http.Request) {
	response, err := scene.ListScenes(s.scenesDir, s.logger)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, response)
}

// handleSchema returns the JSON schema of scene files
func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, scene.Schema())
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warnw("failed to write response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}
