package metrics

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
	ExportInterval   time.Duration
}

// Metrics holds the OTLP instruments for quoting and governance activity. The
// Prometheus collectors scraped from /metrics live in pkg/telemetry.
type Metrics struct {
	quotations     metric.Int64Counter
	quoteDuration  metric.Float64Histogram
	corrections    metric.Int64Counter
	impactAnalyzed metric.Int64Histogram
	catalogReloads metric.Int64Counter
}

// NewProvider installs the global meter provider. With OTLP disabled every
// instrument is a noop.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, fmt.Errorf("metrics exporter: %w", err)
	}
	interval := cfg.ExportInterval
	if interval <= 0 {
		interval = 15 * time.Second
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval))),
		sdkmetric.WithResource(resource.NewSchemaless(
			attribute.String("service.name", cfg.ServiceName),
			attribute.String("deployment.environment", cfg.Environment),
		)),
	)
	otel.SetMeterProvider(provider)
	lc.Append(fx.StopHook(func(ctx context.Context) error {
		return provider.Shutdown(ctx)
	}))

	log.Info("otlp metrics enabled",
		zap.String("protocol", cfg.ExporterProtocol),
		zap.Duration("interval", interval),
	)
	return provider, nil
}

// New creates the instruments on the service meter.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "panelquote"
	}
	meter := provider.Meter(name)

	var (
		m    Metrics
		errs []error
	)
	counter := func(name, desc string) metric.Int64Counter {
		c, err := meter.Int64Counter(name, metric.WithDescription(desc))
		errs = append(errs, err)
		return c
	}
	m.quotations = counter("panelquote_quotations_total", "Quotations assembled, by family and outcome.")
	m.corrections = counter("panelquote_corrections_total", "Correction workflow operations, by outcome.")
	m.catalogReloads = counter("panelquote_catalog_reloads_total", "Reference snapshot reloads.")

	var err error
	m.quoteDuration, err = meter.Float64Histogram("panelquote_quote_duration_seconds", metric.WithUnit("s"))
	errs = append(errs, err)
	m.impactAnalyzed, err = meter.Int64Histogram("panelquote_impact_quotations_analyzed",
		metric.WithDescription("Historical quotations re-run per validation."))
	errs = append(errs, err)

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return &m, nil
}

// NewNop returns instruments backed by the noop provider.
func NewNop() *Metrics {
	m, _ := New(Config{}, noop.NewMeterProvider())
	return m
}

// RecordQuotation counts an assembled quotation and its latency.
func (m *Metrics) RecordQuotation(ctx context.Context, family, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("family", strings.TrimSpace(family)),
		attribute.String("outcome", strings.TrimSpace(outcome)),
	)
	m.quotations.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.quoteDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attrs...))
}

// RecordCorrection counts a governance operation by outcome code.
func (m *Metrics) RecordCorrection(ctx context.Context, operation, outcome string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("operation", strings.TrimSpace(operation)),
		attribute.String("outcome", strings.TrimSpace(outcome)),
	)
	m.corrections.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordImpactAnalyzed records how many historical quotations a validation re-ran.
func (m *Metrics) RecordImpactAnalyzed(ctx context.Context, field string, analyzed int) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("field", strings.TrimSpace(field)))
	m.impactAnalyzed.Record(ctx, int64(analyzed), metric.WithAttributes(attrs...))
}

// RecordCatalogReload counts snapshot reloads.
func (m *Metrics) RecordCatalogReload(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("outcome", strings.TrimSpace(outcome)))
	m.catalogReloads.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	ctx := context.Background()
	switch strings.ToLower(strings.TrimSpace(protocol)) {
	case "grpc", "grpc/protobuf", "":
		if endpoint == "" {
			return otlpmetricgrpc.New(ctx, otlpmetricgrpc.WithInsecure())
		}
		return otlpmetricgrpc.New(ctx, otlpmetricgrpc.WithInsecure(), otlpmetricgrpc.WithEndpoint(endpoint))
	case "http", "http/protobuf":
		if endpoint == "" {
			return otlpmetrichttp.New(ctx, otlpmetrichttp.WithInsecure())
		}
		return otlpmetrichttp.New(ctx, otlpmetrichttp.WithInsecure(), otlpmetrichttp.WithEndpoint(endpoint))
	}
	return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"family":    {},
	"field":     {},
	"operation": {},
	"outcome":   {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
