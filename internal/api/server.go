package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"arena-survival/internal/config"
	"arena-survival/internal/game"
)

const shutdownTimeout = 5 * time.Second

// Server is the HTTP API server with WebSocket support.
// It combines the HTTP router with WebSocket hub for real-time updates.
type Server struct {
	sim         SimulationInterface
	cfg         config.ServerConfig
	router      *chi.Mux
	wsHub       *WebSocketHub
	rateLimiter *IPRateLimiter
	log         zerolog.Logger
}

// NewServer creates the presentation bridge. renderer may be nil.
//
// IMPORTANT: Background workers do NOT start until Start() is called.
// This enables testing by allowing the server to be constructed without
// starting goroutines or opening network listeners.
//
// For testing HTTP endpoints without WebSocket support, use NewRouter() directly.
func NewServer(sim SimulationInterface, renderer FrameRenderer, cfg config.ServerConfig, logger zerolog.Logger) *Server {
	s := &Server{
		sim:   sim,
		cfg:   cfg,
		wsHub: NewWebSocketHub(sim, cfg, logger),
		log:   logger.With().Str("component", "server").Logger(),
	}

	// Create rate limiter (we track it for cleanup)
	s.rateLimiter = NewIPRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)

	s.router = NewRouter(RouterConfig{
		Sim:         sim,
		Renderer:    renderer,
		RateLimiter: s.rateLimiter,
		CORSOrigins: cfg.CORSOrigins,
		Logger:      logger,
	})

	// The websocket route needs the hub instance, so it can't be part of
	// the generic NewRouter factory.
	s.router.Get("/ws", s.wsHub.HandleWebSocket)

	return s
}

// Callbacks returns simulation hooks that broadcast run events to websocket
// clients. Install them with Simulation.SetCallbacks before the loop starts.
func (s *Server) Callbacks() game.Callbacks {
	return s.wsHub.eventCallbacks()
}

// Start serves HTTP and runs the websocket workers until ctx is done, then
// shuts down gracefully. This is the ONLY method that starts goroutines or
// opens network listeners.
func (s *Server) Start(ctx context.Context) error {
	go s.wsHub.Run(ctx)
	s.wsHub.StartBroadcastLoop(ctx, s.cfg.BroadcastRate)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", srv.Addr).Msg("🌐 API server starting")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		s.Stop()
		return fmt.Errorf("api server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.Stop()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("api server shutdown: %w", err)
	}
	s.log.Info().Msg("🛑 API server stopped")
	return nil
}

// Router returns the HTTP handler for use with httptest.
// Use this in integration tests instead of calling Start().
//
// Example:
//
//	server := api.NewServer(sim, nil, config.DefaultServer(), zerolog.Nop())
//	ts := httptest.NewServer(server.Router())
//	defer ts.Close()
//	resp, _ := http.Get(ts.URL + "/api/state")
func (s *Server) Router() http.Handler {
	return s.router
}

// Hub exposes the websocket hub so tests can run it without Start.
func (s *Server) Hub() *WebSocketHub {
	return s.wsHub
}

// Stop releases background workers owned by the server.
func (s *Server) Stop() {
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}
}
