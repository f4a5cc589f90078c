package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/dashvoice/dashvoice/internal/config"
	"github.com/dashvoice/dashvoice/internal/storage"
	"github.com/dashvoice/dashvoice/internal/tts"
)

// Session is the per-request handle on one realtime synthesis session.
// *tts.Session implements it; tests substitute fakes.
type Session interface {
	Dial(ctx context.Context) error
	UpdateSession(params tts.SessionParams) error
	AppendText(text string) error
	Finish() error
	Close()
	SessionID() string
	FirstAudioDelayMillis() int64
}

// SessionFactory builds a fresh session wired to the given event sink.
// Each request gets an isolated session; none is ever shared or reused.
type SessionFactory func(model string, sink tts.Sink) Session

// Server handles HTTP API requests.
type Server struct {
	cfg      *config.Config
	logger   *slog.Logger
	server   *http.Server
	store    storage.Store
	sessions SessionFactory
}

// New creates a new API server.
func New(cfg *config.Config, logger *slog.Logger, store storage.Store) *Server {
	s := &Server{
		cfg:    cfg,
		logger: logger,
		store:  store,
	}
	s.sessions = func(model string, sink tts.Sink) Session {
		return tts.NewSession(tts.SessionConfig{
			URL:    cfg.DashScope.URL,
			APIKey: cfg.DashScope.APIKey,
			Model:  model,
		}, sink, logger)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /tts", s.withAuth(s.handleTTS))
	mux.HandleFunc("POST /tts_stream", s.withAuth(s.handleTTSStream))

	// Serve saved artifacts when persisting locally.
	if cfg.Storage.EnableSave && cfg.Storage.Type == "local" {
		mux.Handle("GET /output/", http.StripPrefix("/output/", http.FileServer(http.Dir(cfg.Storage.OutputDir))))
	}

	s.server = &http.Server{
		Addr:        fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:     mux,
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 60 * time.Second,
		// No WriteTimeout: the sync endpoint blocks up to the synthesis
		// timeout and SSE streams have no fixed bound.
	}

	return s
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server error: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.server.Shutdown(ctx)
}
