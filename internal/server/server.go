// Package server accepts WebSocket connections and runs one command loop
// per client.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	DefaultPort     = 9002
	shutdownTimeout = 5 * time.Second
)

// DefaultMaxMessageSize caps one inbound message. Larger messages close
// the connection with 1009.
const DefaultMaxMessageSize int64 = 64 << 20

// Config holds the listener settings.
type Config struct {
	// Addr to listen on, e.g. "0.0.0.0:9002".
	Addr string

	// TraceDecode logs decoded command arguments at info instead of debug.
	TraceDecode bool

	// MaxUpgradesPerMinute caps accepted WebSocket upgrades across all
	// clients. Zero disables the limit.
	MaxUpgradesPerMinute int
	// UpgradeBurst is the token bucket size when the limit is enabled.
	UpgradeBurst int

	// MaxMessageSize defaults to DefaultMaxMessageSize when zero.
	MaxMessageSize int64
}

// Server is the chip-tool interactive WebSocket endpoint.
type Server struct {
	cfg      Config
	log      zerolog.Logger
	upgrader websocket.Upgrader
	limiter  *rate.Limiter
}

// New creates a server. logger is the shared sink every connection logs to.
func New(cfg Config, logger zerolog.Logger) *Server {
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = DefaultMaxMessageSize
	}
	s := &Server{
		cfg: cfg,
		log: logger,
		upgrader: websocket.Upgrader{
			// Test runners are not browsers; accept any origin.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	if cfg.MaxUpgradesPerMinute > 0 {
		burst := cfg.UpgradeBurst
		if burst <= 0 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(cfg.MaxUpgradesPerMinute)/60.0, burst)
	}
	return s
}

// Handler returns the HTTP handler serving the WebSocket endpoint on "/".
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/{$}", s.handleWebSocket)
	return mux
}

// ListenAndServe listens on cfg.Addr and serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, listener)
}

// Serve accepts connections on listener until ctx is cancelled or the
// listener fails.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	httpServer := &http.Server{Handler: s.Handler()}

	s.log.Info().Msg("== WebSocket Server Ready")
	s.log.Info().Str("addr", listener.Addr().String()).Msg("WebSocket server listening")
	s.log.Info().Msg("Waiting for connections...")

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Serve(listener)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
		s.log.Info().Msg("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		// Hijacked WebSocket connections are not tracked by Shutdown; they
		// end when the process exits or the peer leaves.
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.limiter != nil && !s.limiter.Allow() {
		s.log.Warn().Str("peer", r.RemoteAddr).Msg("Upgrade rate limit exceeded")
		http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
		return
	}

	userAgent := r.UserAgent()
	if userAgent == "" {
		userAgent = "Unknown"
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied with an HTTP error.
		s.log.Error().Err(err).Str("peer", r.RemoteAddr).Msg("WebSocket upgrade error")
		return
	}
	s.log.Info().Str("user_agent", userAgent).Str("peer", r.RemoteAddr).Msg("Client connected")
	ws.SetReadLimit(s.cfg.MaxMessageSize)

	c := newConnection(ws, ulid.Make().String(), r.RemoteAddr, userAgent, s.log, s.cfg.TraceDecode)
	c.serve()
}
