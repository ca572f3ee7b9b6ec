package server

import (
	"context"
	"errors"
	"net/http"
	"time"
)

const readHeaderTimeout = 10 * time.Second

// HTTPServer serves the panel, health and metrics.
type HTTPServer struct {
	Server *http.Server
}

func NewHTTPServer(addr string, handler http.Handler) *HTTPServer {
	return &HTTPServer{Server: &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}}
}

// ListenAndServe blocks until the server stops. A graceful shutdown is not
// reported as an error.
func (s *HTTPServer) ListenAndServe() error {
	if err := s.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.Server.Shutdown(ctx)
}
