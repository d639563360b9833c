package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"cosmossdk.io/log"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/openalpha/cardex/engine"
	"github.com/openalpha/cardex/metrics"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Config holds the HTTP server settings.
type Config struct {
	ListenAddr string
}

// DefaultConfig returns the default server settings.
func DefaultConfig() Config {
	return Config{
		ListenAddr: ":8887",
	}
}

// Server exposes the engine over WebSocket plus health and metrics
// endpoints on one listener.
type Server struct {
	cfg    Config
	logger log.Logger
	engine *engine.Engine
	http   *http.Server
}

// NewServer wires the routes around an engine.
func NewServer(cfg Config, eng *engine.Engine, logger log.Logger) *Server {
	s := &Server{
		cfg:    cfg,
		logger: logger.With("module", "api"),
		engine: eng,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.Handle("/metrics", metrics.Handler())

	s.http = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
	return s
}

// Start serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.cfg.ListenAddr)
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	}
}

// handleWS upgrades the connection and hands it to the engine.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("upgrade failed", "err", err)
		return
	}

	c := newClient(uuid.NewString(), s.engine, conn, s.logger)
	s.logger.Info("connection accepted", "conn", c.ID(), "remote", r.RemoteAddr)
	metrics.GetCollector().RecordWSConnection(1)
	s.engine.Attach(c)

	go c.writePump()
	go c.readPump()
}

// handleHealthz reports liveness and basic engine counters.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	st := s.engine.Stats()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":      "ok",
		"connections": st.Connections.Load(),
		"commands":    st.CommandsProcessed.Load(),
	})
}
