package api

import (
	"context"
	"net/http"
	"time"

	"github.com/buildmart/storefront-client/pkg/logger"
)

// Server wraps the webhook listener's HTTP server with a graceful
// shutdown.
type Server struct {
	httpServer *http.Server
	logg       *logger.Logger
}

// NewServer builds the listener on the given port.
func NewServer(port string, handler http.Handler, logg *logger.Logger) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              ":" + port,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logg: logg,
	}
}

// Start serves until the listener is shut down.
func (s *Server) Start(ctx context.Context) error {
	s.logg.Info(s.logg.WithField(ctx, "addr", s.httpServer.Addr), "webhook listener starting")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
