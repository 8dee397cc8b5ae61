// Package observability wires tracing, OTLP metrics and the Prometheus collectors the
// API and workflow services report to.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/smallbiznis/panelquote/internal/observability/metrics"
	"github.com/smallbiznis/panelquote/internal/observability/tracing"
	"github.com/smallbiznis/panelquote/pkg/telemetry"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
)

var Module = fx.Module("observability",
	fx.Provide(LoadConfig),
	fx.Provide(func(cfg Config) tracing.Config {
		return tracing.Config{
			Enabled:          cfg.OtelEnabled,
			ServiceName:      cfg.ServiceName,
			ServiceVersion:   cfg.Version,
			Environment:      cfg.Environment,
			ExporterEndpoint: cfg.Endpoint,
			ExporterProtocol: cfg.Protocol,
			SamplingRatio:    cfg.SamplingRatio,
		}
	}),
	fx.Provide(tracing.NewProvider),
	fx.Provide(func(cfg Config) metrics.Config {
		return metrics.Config{
			Enabled:          cfg.OtelEnabled,
			ExporterEndpoint: cfg.Endpoint,
			ExporterProtocol: cfg.Protocol,
			ServiceName:      cfg.ServiceName,
			Environment:      cfg.Environment,
		}
	}),
	fx.Provide(metrics.NewProvider, metrics.New),
	// Prometheus collectors go on the default registry so /metrics serves them.
	fx.Provide(func() *telemetry.Metrics { return telemetry.NewMetrics(prometheus.DefaultRegisterer) }),
	// Installs the global tracer provider even when no handler asks for it.
	fx.Invoke(func(trace.TracerProvider) {}),
)
