package observability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Providers bundles the meter backing the driver's instruments with the
// scrape handler exposing them.
type Providers struct {
	Meter   metric.Meter
	handler http.Handler
}

// meterName scopes the driver's instruments.
const meterName = "github.com/Sumatoshi-tech/eqwald"

// NewProviders creates an independent Prometheus registry, attaches it as a
// reader to an OTel MeterProvider, and returns the meter plus the scrape
// handler. Independent registries avoid collector conflicts when called more
// than once.
func NewProviders() (Providers, error) {
	registry := prometheus.NewRegistry()

	exporter, err := promexporter.New(promexporter.WithRegisterer(registry))
	if err != nil {
		return Providers{}, fmt.Errorf("create prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))

	return Providers{
		Meter:   provider.Meter(meterName),
		handler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	}, nil
}

// DiagnosticsServer exposes health and Prometheus metrics endpoints over
// HTTP for operational monitoring of a long-lived driver.
type DiagnosticsServer struct {
	server   *http.Server
	listener net.Listener
}

// NewDiagnosticsServer starts an HTTP server at addr with /healthz, /readyz,
// and /metrics endpoints.
func NewDiagnosticsServer(addr string, providers Providers) (*DiagnosticsServer, error) {
	mux := http.NewServeMux()

	alive := http.HandlerFunc(func(rw http.ResponseWriter, _ *http.Request) {
		rw.Header().Set("Content-Type", "application/json")
		rw.WriteHeader(http.StatusOK)
		_, _ = rw.Write([]byte(`{"status":"ok"}`))
	})

	mux.Handle("/healthz", alive)
	mux.Handle("/readyz", alive)
	mux.Handle("/metrics", providers.handler)

	var lc net.ListenConfig

	listener, err := lc.Listen(context.Background(), "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	srv := &http.Server{Handler: mux}

	go func() {
		serveErr := srv.Serve(listener)
		if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			slog.Warn("diagnostics server stopped", "error", serveErr)
		}
	}()

	return &DiagnosticsServer{server: srv, listener: listener}, nil
}

// Addr returns the bound address.
func (s *DiagnosticsServer) Addr() string {
	return s.listener.Addr().String()
}

// Shutdown stops the server gracefully.
func (s *DiagnosticsServer) Shutdown(ctx context.Context) error {
	err := s.server.Shutdown(ctx)
	if err != nil {
		return fmt.Errorf("shutdown diagnostics server: %w", err)
	}

	return nil
}
