// Package server hosts the HTTP and WebSocket surface of the game service.
//
// The REST routes cover session creation and ledger mutations; the WebSocket
// route streams live participant snapshots and drives presence for the
// lifetime of each connection.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/hanz94/monopoly-tool/internal/game/presence"
	"github.com/hanz94/monopoly-tool/internal/game/realtime"
	"github.com/hanz94/monopoly-tool/internal/game/service"
	"github.com/hanz94/monopoly-tool/internal/ledger"
)

const (
	defaultReadHeaderTimeout = 5 * time.Second
	defaultShutdownTimeout   = 10 * time.Second
)

// Config defines the inputs for the game transport boundary.
type Config struct {
	HTTPAddr          string
	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration
}

// Server hosts the game HTTP/WebSocket process.
type Server struct {
	httpAddr        string
	shutdownTimeout time.Duration
	httpServer      *http.Server
}

// Deps are the service-layer collaborators behind the transport.
type Deps struct {
	Games    *service.GameService
	Ledger   *ledger.Ledger
	Presence *presence.Tracker
	Realtime func(ctx context.Context, l *ledger.Ledger, sessionID int) (*realtime.Channel, error)
}

// NewServer builds a configured game server.
func NewServer(config Config, deps Deps) (*Server, error) {
	httpAddr := strings.TrimSpace(config.HTTPAddr)
	if httpAddr == "" {
		return nil, errors.New("http address is required")
	}
	if deps.Games == nil || deps.Ledger == nil || deps.Presence == nil {
		return nil, errors.New("game service, ledger and presence tracker are required")
	}
	if config.ReadHeaderTimeout <= 0 {
		config.ReadHeaderTimeout = defaultReadHeaderTimeout
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = defaultShutdownTimeout
	}

	httpServer := &http.Server{
		Addr:              httpAddr,
		Handler:           NewHandler(deps),
		ReadHeaderTimeout: config.ReadHeaderTimeout,
	}

	return &Server{
		httpAddr:        httpAddr,
		shutdownTimeout: config.ShutdownTimeout,
		httpServer:      httpServer,
	}, nil
}

// Run creates and serves a game server until the context ends.
func Run(ctx context.Context, config Config, deps Deps) error {
	server, err := NewServer(config, deps)
	if err != nil {
		return fmt.Errorf("init game server: %w", err)
	}

	if err := server.ListenAndServe(ctx); err != nil {
		return fmt.Errorf("serve game: %w", err)
	}
	return nil
}

// ListenAndServe runs the HTTP server until the context ends.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s == nil {
		return errors.New("game server is nil")
	}
	if ctx == nil {
		return errors.New("context is required")
	}

	serveErr := make(chan error, 1)
	log.Printf("game server listening on %s", s.httpAddr)
	go func() {
		serveErr <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		err := s.httpServer.Shutdown(shutdownCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	}
}
