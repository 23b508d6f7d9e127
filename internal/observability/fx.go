// Package observability wires tracing and OpenTelemetry metrics from the
// process config.
package observability

import (
	"github.com/smallbiznis/contractledger/internal/config"
	"github.com/smallbiznis/contractledger/internal/observability/metrics"
	"github.com/smallbiznis/contractledger/internal/observability/tracing"
	"github.com/smallbiznis/contractledger/pkg/telemetry"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
)

var Module = fx.Module("observability",
	fx.Provide(
		tracingConfig,
		tracing.NewProvider,
		metricsConfig,
		metrics.NewProvider,
		metrics.New,
		telemetry.NewDefaultMetrics,
	),
	// Registers the global tracer provider even when nothing injects it.
	fx.Invoke(func(*sdktrace.TracerProvider) {}),
)

func serviceName(cfg config.Config) string {
	if cfg.AppName == "" {
		return "contractledger"
	}
	return cfg.AppName
}

func tracingConfig(cfg config.Config) tracing.Config {
	return tracing.Config{
		Enabled:          cfg.OtelEnabled,
		ServiceName:      serviceName(cfg),
		ServiceVersion:   cfg.AppVersion,
		Environment:      cfg.Environment,
		ExporterEndpoint: cfg.OTLPEndpoint,
		ExporterProtocol: cfg.TracesProtocol(),
		SamplingRatio:    cfg.OtelSamplingRatio,
	}
}

func metricsConfig(cfg config.Config) metrics.Config {
	return metrics.Config{
		Enabled:          cfg.OtelEnabled,
		ExporterEndpoint: cfg.OTLPEndpoint,
		ExporterProtocol: cfg.OTLPProtocol,
		ServiceName:      serviceName(cfg),
		Environment:      cfg.Environment,
	}
}
