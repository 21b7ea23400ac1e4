// Package obs provides observability functionality including metrics and HTTP endpoints
package obs

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Health reports readiness on /healthz. The zero value is not ready.
type Health struct {
	ready atomic.Bool
}

// SetReady flips the readiness flag
func (h *Health) SetReady(ready bool) { h.ready.Store(ready) }

// ServeHTTP answers 200 when ready and 503 otherwise
func (h *Health) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	if h == nil || !h.ready.Load() {
		http.Error(w, "not ready", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// NewMux returns the observability routes: /metrics from gatherer and /healthz
func NewMux(gatherer prometheus.Gatherer, health *Health) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.Handle("/healthz", health)
	return mux
}

// StartMetricsServer starts an HTTP server that exposes Prometheus metrics
// and the health endpoint. It respects context cancellation for graceful shutdown.
func StartMetricsServer(ctx context.Context, port string, handler http.Handler, logger *zap.Logger) error {
	// Validate port
	portNum, err := strconv.Atoi(port)
	if err != nil || portNum <= 0 || portNum > 65535 {
		return fmt.Errorf("invalid port: %s", port)
	}

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      handler,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Starting metrics server",
			zap.String("address", server.Addr),
			zap.Strings("endpoints", []string{"/metrics", "/healthz"}),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	// Wait for context cancellation or server error
	select {
	case <-ctx.Done():
		logger.Info("Shutting down metrics server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("Error shutting down metrics server", zap.Error(err))
			return fmt.Errorf("error shutting down metrics server: %w", err)
		}
		logger.Info("Metrics server stopped gracefully")
		return nil
	case err := <-serverErr:
		return fmt.Errorf("metrics server error: %w", err)
	}
}
