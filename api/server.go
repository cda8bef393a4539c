package api

import (
	"context"
	"net/http"
	"time"

	"github.com/cartfold/cartfold-backend/pkg/logger"
)

// Server wraps http.Server with sane timeouts and graceful shutdown.
type Server struct {
	inner *http.Server
	logg  *logger.Logger
}

// NewServer builds a server listening on the given port.
func NewServer(port string, handler http.Handler, logg *logger.Logger) *Server {
	return &Server{
		inner: &http.Server{
			Addr:              ":" + port,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       2 * time.Minute,
		},
		logg: logg,
	}
}

// Start blocks serving requests until the listener closes.
func (s *Server) Start() error {
	s.logg.Info(context.Background(), "http server listening on "+s.inner.Addr)
	if err := s.inner.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.inner.Shutdown(ctx)
}
