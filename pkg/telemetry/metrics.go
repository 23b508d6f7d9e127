package telemetry

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus primitives scraped from /metrics.
type Metrics struct {
	apiRequests    *prometheus.CounterVec
	apiDuration    *prometheus.HistogramVec
	contractValue  *prometheus.HistogramVec
	ledgerAmount   *prometheus.CounterVec
	pendingGoLives prometheus.Gauge
}

// NewDefaultMetrics registers metrics on the default Prometheus registry.
func NewDefaultMetrics() (*Metrics, error) {
	return NewMetrics(prometheus.DefaultRegisterer)
}

// NewMetrics registers and returns Prometheus metrics on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	apiRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "contractledger_api_requests_total",
		Help: "Counts API requests by method, route and status.",
	}, []string{"method", "route", "status"})

	apiDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "contractledger_api_duration_seconds",
		Help:    "API request latency per method and route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	contractValue := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "contractledger_contract_net_value",
		Help:    "Net value distribution of saved contracts.",
		Buckets: []float64{100, 1000, 5000, 10000, 50000, 100000, 500000},
	}, []string{"kind"})

	ledgerAmount := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "contractledger_ledger_amount_total",
		Help: "Sum of ledger entry amounts written by direction.",
	}, []string{"direction", "source_type"})

	pendingGoLives := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "contractledger_golive_awaiting_completion",
		Help: "Go-live installments observed awaiting completion on the last listing.",
	})

	var err error
	if apiRequests, err = register(reg, apiRequests); err != nil {
		return nil, err
	}
	if apiDuration, err = register(reg, apiDuration); err != nil {
		return nil, err
	}
	if contractValue, err = register(reg, contractValue); err != nil {
		return nil, err
	}
	if ledgerAmount, err = register(reg, ledgerAmount); err != nil {
		return nil, err
	}
	if pendingGoLives, err = register(reg, pendingGoLives); err != nil {
		return nil, err
	}

	return &Metrics{
		apiRequests:    apiRequests,
		apiDuration:    apiDuration,
		contractValue:  contractValue,
		ledgerAmount:   ledgerAmount,
		pendingGoLives: pendingGoLives,
	}, nil
}

// ObserveAPIRequest records an API request and latency.
func (m *Metrics) ObserveAPIRequest(method, route, status string, duration time.Duration) {
	if m == nil {
		return
	}
	methodLabel := sanitizeLabel(method)
	routeLabel := sanitizeLabel(route)
	m.apiRequests.WithLabelValues(methodLabel, routeLabel, sanitizeLabel(status)).Inc()
	m.apiDuration.WithLabelValues(methodLabel, routeLabel).Observe(duration.Seconds())
}

// ObserveContractValue records the net value of a saved contract.
func (m *Metrics) ObserveContractValue(kind string, net float64) {
	if m == nil {
		return
	}
	m.contractValue.WithLabelValues(sanitizeLabel(kind)).Observe(net)
}

// AddLedgerAmount accumulates written ledger amounts.
func (m *Metrics) AddLedgerAmount(direction, sourceType string, amount float64) {
	if m == nil || amount <= 0 {
		return
	}
	m.ledgerAmount.WithLabelValues(sanitizeLabel(direction), sanitizeLabel(sourceType)).Add(amount)
}

// SetAwaitingGoLives updates the awaiting completion gauge.
func (m *Metrics) SetAwaitingGoLives(value float64) {
	if m == nil {
		return
	}
	m.pendingGoLives.Set(value)
}

// register reuses the collector already registered under the same name.
func register[T prometheus.Collector](reg prometheus.Registerer, collector T) (T, error) {
	if err := reg.Register(collector); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return collector, err
	}
	return collector, nil
}

func sanitizeLabel(val string) string {
	if val == "" {
		return "unknown"
	}
	return val
}
