package observability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/mossland/Algora-sub004/internal/kpi"
	"github.com/mossland/Algora-sub004/internal/types"
)

// MetricsSource supplies gauge values on each scrape. The KPI collector
// satisfies it.
type MetricsSource interface {
	ExportMetrics() map[string]float64
}

// MetricsServer exposes KPI snapshots as Prometheus gauges over HTTP.
// One observable gauge is registered per KPI target plus the uptime and
// alert counters; values are pulled from the source on each scrape, so
// nothing is pushed between scrapes.
type MetricsServer struct {
	provider *sdkmetric.MeterProvider
	handler  http.Handler
	logger   *slog.Logger

	server *http.Server
	ln     net.Listener
}

// NewMetricsServer wires the source's gauges into an OpenTelemetry meter
// backed by a Prometheus exporter. Call Start to serve and Shutdown to stop.
func NewMetricsServer(source MetricsSource, logger *slog.Logger) (*MetricsServer, error) {
	if source == nil {
		return nil, types.NewError(types.CONFIG_VALIDATION_FAILED, "metrics source cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	registry := prometheus.NewRegistry()
	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	meter := provider.Meter("algora")

	gauges := make(map[string]metric.Float64ObservableGauge, len(kpi.Targets())+2)
	observables := make([]metric.Observable, 0, len(kpi.Targets())+2)
	for _, name := range gaugeNames() {
		gauge, err := meter.Float64ObservableGauge(name)
		if err != nil {
			shutdownErr := provider.Shutdown(context.Background())
			return nil, errors.Join(fmt.Errorf("register gauge %s: %w", name, err), shutdownErr)
		}
		gauges[name] = gauge
		observables = append(observables, gauge)
	}

	_, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		snapshot := source.ExportMetrics()
		for name, gauge := range gauges {
			if value, ok := snapshot[name]; ok {
				o.ObserveFloat64(gauge, value)
			}
		}
		return nil
	}, observables...)
	if err != nil {
		shutdownErr := provider.Shutdown(context.Background())
		return nil, errors.Join(fmt.Errorf("register metrics callback: %w", err), shutdownErr)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	return &MetricsServer{
		provider: provider,
		handler:  mux,
		logger:   logger,
	}, nil
}

// gaugeNames enumerates every exported gauge: one per KPI target plus the
// uptime and alert totals. Sorted for deterministic registration.
func gaugeNames() []string {
	targets := kpi.Targets()
	names := make([]string, 0, len(targets)+2)
	for name := range targets {
		names = append(names, "algora_"+name)
	}
	names = append(names, "algora_uptime_seconds", "algora_alerts_total")
	sort.Strings(names)
	return names
}

// Handler returns the HTTP handler serving /metrics and /healthz, for
// embedding in an existing server.
func (m *MetricsServer) Handler() http.Handler {
	return m.handler
}

// Start binds listen and serves scrapes in the background. The bind happens
// synchronously so address conflicts surface to the caller.
func (m *MetricsServer) Start(listen string) error {
	ln, err := net.Listen("tcp", listen)
	if err != nil {
		return fmt.Errorf("bind metrics listener on %s: %w", listen, err)
	}

	m.ln = ln
	m.server = &http.Server{
		Handler:           m.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := m.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error("metrics server stopped", "error", err)
		}
	}()

	m.logger.Info("metrics endpoint listening", "addr", ln.Addr().String())
	return nil
}

// Addr returns the bound address after Start, or "" before it.
func (m *MetricsServer) Addr() string {
	if m.ln == nil {
		return ""
	}
	return m.ln.Addr().String()
}

// Shutdown stops the HTTP server and flushes the meter provider.
func (m *MetricsServer) Shutdown(ctx context.Context) error {
	var errs []error
	if m.server != nil {
		if err := m.server.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := m.provider.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
