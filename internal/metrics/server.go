package metrics

import (
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Klingon-tech/powledger/internal/log"
)

// Serve exposes /metrics on addr. The listener is bound before returning so
// address errors surface to the caller. The returned server carries the
// bound address in Addr; call Shutdown on it when done.
func Serve(m *Metrics, addr string) (*http.Server, error) {
	if m == nil {
		return nil, fmt.Errorf("metrics are nil")
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: ln.Addr().String(), Handler: mux}

	go func() {
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Metrics.Error().Err(err).Msg("Metrics server stopped")
		}
	}()
	log.Metrics.Info().Str("addr", ln.Addr().String()).Msg("Metrics server listening")
	return server, nil
}
