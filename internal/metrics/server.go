package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server serves a registry's families over /metrics for an external
// scraper: a thin http.Server wrapper the caller starts and shuts down
// explicitly.
type Server struct {
	httpServer *http.Server
}

// NewServer builds a Server bound to addr, exposing reg at /metrics.
func NewServer(addr string, reg *prometheus.Registry) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return &Server{httpServer: &http.Server{Addr: addr, Handler: mux}}
}

// Serve starts ListenAndServe on a background goroutine and returns
// immediately; errFn, if non-nil, is called with any error other than the
// expected one from a clean Shutdown.
func (s *Server) Serve(errFn func(error)) {
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if errFn != nil {
				errFn(err)
			}
		}
	}()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
