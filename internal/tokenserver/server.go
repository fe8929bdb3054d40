package tokenserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// Server runs the token handler on a TCP address.
type Server struct {
	addr    string
	handler http.Handler
	logger  *slog.Logger
	srv     *http.Server

	// ready receives the bound address once listening; used by tests.
	ready chan string
}

// NewServer returns a Server listening on addr (host:port).
func NewServer(addr string, handler http.Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		addr:    addr,
		handler: handler,
		logger:  logger,
		ready:   make(chan string, 1),
	}
}

// Run serves until ctx is cancelled or the listener fails.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.addr, err)
	}

	s.srv = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	bound := ln.Addr().String()
	s.logger.Info("Starting LiveKit token server", slog.String("addr", bound))
	s.ready <- bound

	errCh := make(chan error, 1)
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("Token server shutdown", slog.String("error", err.Error()))
		}
		s.logger.Info("Token server stopped")
		return nil
	case err := <-errCh:
		return err
	}
}
