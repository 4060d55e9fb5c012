package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"polymarket-mm/internal/config"
)

// Server runs the HTTP/WebSocket status surface over a bot registry.
type Server struct {
	cfg      config.APIServerConfig
	provider StatusProvider
	fullCfg  config.Config
	bus      *EventBus
	handlers *Handlers
	server   *http.Server
	logger   *slog.Logger
}

// NewServer creates a new API server over provider (typically a
// *bot.Registry).
func NewServer(
	cfg config.APIServerConfig,
	provider StatusProvider,
	fullCfg config.Config,
	logger *slog.Logger,
) *Server {
	bus := NewEventBus(logger)
	handlers := NewHandlers(provider, fullCfg, bus, logger)

	mux := http.NewServeMux()

	// API routes
	mux.HandleFunc("/health", handlers.HandleHealth)
	mux.HandleFunc("/api/snapshot", handlers.HandleSnapshot)
	mux.HandleFunc("/api/bots/{bot_id}", handlers.HandleBotSnapshot)
	mux.HandleFunc("/ws", handlers.HandleWebSocket)

	// Serve static files (web dashboard)
	mux.Handle("/", http.FileServer(http.Dir("web")))

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		cfg:      cfg,
		provider: provider,
		fullCfg:  fullCfg,
		bus:      bus,
		handlers: handlers,
		server:   server,
		logger:   logger.With("component", "api-server"),
	}
}

// Start starts the API server and event bus.
func (s *Server) Start() error {
	go s.bus.Run()

	// Periodically rebroadcast the aggregate snapshot so connected
	// clients see bot status changes without polling /api/snapshot.
	go s.broadcastLoop()

	s.logger.Info("dashboard server starting", "addr", s.server.Addr)

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Stop gracefully stops the server
func (s *Server) Stop() error {
	s.logger.Info("stopping dashboard server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return s.server.Shutdown(ctx)
}

const broadcastInterval = 2 * time.Second

// broadcastLoop rebroadcasts the aggregate bot snapshot on a fixed tick,
// stopped implicitly when the process exits (the hub has no separate
// shutdown signal distinct from process lifetime).
func (s *Server) broadcastLoop() {
	ticker := time.NewTicker(broadcastInterval)
	defer ticker.Stop()
	for range ticker.C {
		s.bus.BroadcastSnapshot(BuildSnapshot(s.provider, s.fullCfg))
	}
}
