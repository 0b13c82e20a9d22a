// Package server provides HTTP server initialization and management.
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"

	"github.com/opentravelmate/bridge-go/internal/application/container"
	"github.com/opentravelmate/bridge-go/internal/presentation/http/routes"
	"github.com/opentravelmate/bridge-go/pkg/config"
)

// Server wraps the embedded HTTP server. It binds an ephemeral loopback
// port: the web layer learns the origin through the container after Start.
type Server struct {
	httpServer *http.Server
	listener   net.Listener
	container  *container.Container
}

// New creates the embedded server with dependency injection.
func New(c *container.Container) *Server {
	router := routes.SetupRoutes(c)

	httpServer := &http.Server{
		Handler:      router,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: config.ServerWriteTimeout,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	return &Server{
		httpServer: httpServer,
		container:  c,
	}
}

// Start binds the loopback listener and begins serving. It blocks until the
// server stops; callers learn the bound port through Port or BaseURL once
// Listen has returned, which happens before Start is called from Listen's
// caller goroutine.
func (s *Server) Start() error {
	if s.listener == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}

	s.container.Logger.Startup().Info("Embedded server listening", "addr", s.listener.Addr().String())
	if err := s.httpServer.Serve(s.listener); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("embedded server failed: %w", err)
	}
	return nil
}

// Listen binds the loopback listener without serving yet, so the bound port
// is known before any request can arrive.
func (s *Server) Listen() error {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("failed to bind loopback listener: %w", err)
	}
	s.listener = listener
	s.container.SetBaseURL(s.BaseURL())
	return nil
}

// Port returns the bound port, or 0 before Listen.
func (s *Server) Port() int {
	if s.listener == nil {
		return 0
	}
	return s.listener.Addr().(*net.TCPAddr).Port
}

// BaseURL returns the server origin, e.g. http://127.0.0.1:49152.
func (s *Server) BaseURL() string {
	return fmt.Sprintf("http://127.0.0.1:%d", s.Port())
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	s.container.Logger.Shutdown().Info("Shutting down embedded server")
	return s.httpServer.Shutdown(ctx)
}
