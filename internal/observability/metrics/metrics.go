package metrics

import (
	"context"
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
}

// Metrics exposes application-level instruments.
type Metrics struct {
	contractWrites       metric.Int64Counter
	installmentsPlanned  metric.Int64Counter
	ledgerEntries        metric.Int64Counter
	ledgerRemovals       metric.Int64Counter
	goLiveTransitions    metric.Int64Counter
	commissionTransition metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "contractledger"
	}
	meter := provider.Meter(name)

	m := &Metrics{}
	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&m.contractWrites, "contractledger_contract_writes_total", "Contract creates and updates."},
		{&m.installmentsPlanned, "contractledger_installments_planned_total", "Installments produced by the planner."},
		{&m.ledgerEntries, "contractledger_ledger_entries_total", "Ledger entries written."},
		{&m.ledgerRemovals, "contractledger_ledger_entries_removed_total", "Ledger entries removed on rebuild or revert."},
		{&m.goLiveTransitions, "contractledger_golive_transitions_total", "Go-live completions and reverts."},
		{&m.commissionTransition, "contractledger_commission_transitions_total", "Commission request status changes."},
	}
	for _, c := range counters {
		counter, err := meter.Int64Counter(c.name, metric.WithDescription(c.desc), metric.WithUnit("{event}"))
		if err != nil {
			return nil, fmt.Errorf("counter %s: %w", c.name, err)
		}
		*c.dst = counter
	}
	return m, nil
}

// NewNoop returns instruments backed by the noop provider.
func NewNoop() *Metrics {
	m, _ := New(Config{}, noop.NewMeterProvider())
	return m
}

// RecordContractWrite counts contract creates and updates.
func (m *Metrics) RecordContractWrite(ctx context.Context, operation, kind string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("operation", strings.TrimSpace(operation)),
		attribute.String("contract_kind", strings.TrimSpace(kind)),
	)
	m.contractWrites.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordInstallmentsPlanned counts generated installments.
func (m *Metrics) RecordInstallmentsPlanned(ctx context.Context, kind string, count int) {
	if m == nil || count <= 0 {
		return
	}
	attrs := FilterAttributes(attribute.String("contract_kind", strings.TrimSpace(kind)))
	m.installmentsPlanned.Add(ctx, int64(count), metric.WithAttributes(attrs...))
}

// RecordLedgerEntry increments ledger entry counts.
func (m *Metrics) RecordLedgerEntry(ctx context.Context, sourceType, direction string, count int) {
	if m == nil || count <= 0 {
		return
	}
	attrs := FilterAttributes(
		attribute.String("source_type", strings.TrimSpace(sourceType)),
		attribute.String("direction", strings.TrimSpace(direction)),
	)
	m.ledgerEntries.Add(ctx, int64(count), metric.WithAttributes(attrs...))
}

// RecordLedgerRemoval counts deleted ledger entries.
func (m *Metrics) RecordLedgerRemoval(ctx context.Context, sourceType string, count int64) {
	if m == nil || count <= 0 {
		return
	}
	attrs := FilterAttributes(attribute.String("source_type", strings.TrimSpace(sourceType)))
	m.ledgerRemovals.Add(ctx, count, metric.WithAttributes(attrs...))
}

// RecordGoLiveTransition counts go-live completions and reverts.
func (m *Metrics) RecordGoLiveTransition(ctx context.Context, action string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("action", strings.TrimSpace(action)))
	m.goLiveTransitions.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordCommissionTransition counts commission status changes.
func (m *Metrics) RecordCommissionTransition(ctx context.Context, from, to string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("from_status", strings.TrimSpace(from)),
		attribute.String("to_status", strings.TrimSpace(to)),
	)
	m.commissionTransition.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"operation":     {},
	"contract_kind": {},
	"source_type":   {},
	"direction":     {},
	"action":        {},
	"from_status":   {},
	"to_status":     {},
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
