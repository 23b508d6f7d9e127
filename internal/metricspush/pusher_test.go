package metricspush

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/golang/snappy"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/prometheus/prompb"
	"github.com/smallbiznis/contractledger/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testRegistry(t *testing.T) *prometheus.Registry {
	t.Helper()
	reg := prometheus.NewRegistry()

	entries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_entries_total",
		Help: "test counter",
	}, []string{"direction"})
	awaiting := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "golive_awaiting",
		Help: "test gauge",
	})
	latency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name: "request_seconds",
		Help: "test histogram",
	})
	reg.MustRegister(entries, awaiting, latency)

	entries.WithLabelValues("receivable").Add(12)
	entries.WithLabelValues("payable").Add(1)
	awaiting.Set(3)
	latency.Observe(0.2)
	return reg
}

func labelValue(series prompb.TimeSeries, name string) string {
	for _, label := range series.Labels {
		if label.Name == name {
			return label.Value
		}
	}
	return ""
}

func TestBuildRemoteWriteSeriesExpandsHistograms(t *testing.T) {
	families, err := testRegistry(t).Gather()
	require.NoError(t, err)

	series := buildRemoteWriteSeries(families, 1000, map[string]string{"job": "contractledger", "direction": "ignored"})
	// two counters, one gauge, default buckets plus +Inf, _sum and _count
	require.Len(t, series, 3+len(prometheus.DefBuckets)+1+2)

	values := map[string]float64{}
	for _, s := range series {
		require.Len(t, s.Samples, 1)
		assert.Equal(t, int64(1000), s.Samples[0].Timestamp)
		assert.Equal(t, "__name__", s.Labels[0].Name)
		assert.Equal(t, "contractledger", labelValue(s, "job"))
		key := labelValue(s, "__name__") + "/" + labelValue(s, "direction") + labelValue(s, "le")
		values[key] = s.Samples[0].Value
	}
	assert.Equal(t, float64(12), values["ledger_entries_total/receivable"])
	assert.Equal(t, float64(1), values["ledger_entries_total/payable"])
	assert.Equal(t, float64(3), values["golive_awaiting/ignored"])
	assert.Equal(t, float64(0), values["request_seconds_bucket/ignored0.1"])
	assert.Equal(t, float64(1), values["request_seconds_bucket/ignored0.25"])
	assert.Equal(t, float64(1), values["request_seconds_bucket/ignored+Inf"])
	assert.Equal(t, float64(1), values["request_seconds_count/ignored"])
	assert.InDelta(t, 0.2, values["request_seconds_sum/ignored"], 1e-9)
}

func TestBuildRemoteWriteSeriesSummaryQuantiles(t *testing.T) {
	reg := prometheus.NewRegistry()
	summary := prometheus.NewSummary(prometheus.SummaryOpts{
		Name:       "settle_seconds",
		Help:       "test summary",
		Objectives: map[float64]float64{0.5: 0.05},
	})
	reg.MustRegister(summary)
	summary.Observe(2)

	families, err := reg.Gather()
	require.NoError(t, err)
	series := buildRemoteWriteSeries(families, 1, nil)
	require.Len(t, series, 3)

	names := map[string]string{}
	for _, s := range series {
		names[labelValue(s, "__name__")] = labelValue(s, "quantile")
	}
	assert.Equal(t, "0.5", names["settle_seconds"])
	assert.Contains(t, names, "settle_seconds_sum")
	assert.Contains(t, names, "settle_seconds_count")
}

func TestRemoteWritePusherSendsSnappyProtobuf(t *testing.T) {
	var (
		mu      sync.Mutex
		headers http.Header
		decoded prompb.WriteRequest
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		raw, err := snappy.Decode(nil, body)
		require.NoError(t, err)

		mu.Lock()
		defer mu.Unlock()
		headers = r.Header.Clone()
		require.NoError(t, decoded.Unmarshal(raw))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	pusher := NewRemoteWritePusher(srv.URL, "secret", map[string]string{"job": "contractledger"})
	pusher.now = func() time.Time { return time.UnixMilli(5000) }

	require.NoError(t, pusher.Push(context.Background(), testRegistry(t)))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "snappy", headers.Get("Content-Encoding"))
	assert.Equal(t, "Bearer secret", headers.Get("Authorization"))
	require.Len(t, decoded.Timeseries, 3+len(prometheus.DefBuckets)+3)
	assert.Equal(t, int64(5000), decoded.Timeseries[0].Samples[0].Timestamp)
}

func TestRemoteWritePusherReportsRejectedPush(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	err := NewRemoteWritePusher(srv.URL, "", nil).Push(context.Background(), testRegistry(t))
	assert.Error(t, err)
}

func TestPushgatewayPusherUsesJobAndGrouping(t *testing.T) {
	var (
		mu     sync.Mutex
		method string
		path   string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		method, path = r.Method, r.URL.Path
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	pusher := NewPushgatewayPusher(srv.URL, "contractledger", map[string]string{"environment": "test", "empty": " "})
	require.NoError(t, pusher.Push(context.Background(), testRegistry(t)))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, http.MethodPut, method)
	assert.Equal(t, "/metrics/job/contractledger/environment/test", path)
}

func TestNewPusherFromConfig(t *testing.T) {
	log := zap.NewNop()

	assert.Nil(t, NewPusher(config.Config{}, log))
	assert.Nil(t, NewPusher(config.Config{MetricsPushExporter: ExporterRemoteWrite}, log))
	assert.Nil(t, NewPusher(config.Config{MetricsPushExporter: ExporterRemoteWrite, MetricsPushEndpoint: "not a url"}, log))
	assert.Nil(t, NewPusher(config.Config{MetricsPushExporter: "statsd", MetricsPushEndpoint: "http://x"}, log))

	_, ok := NewPusher(config.Config{MetricsPushExporter: ExporterRemoteWrite, MetricsPushEndpoint: "http://metrics.local/api/v1/write"}, log).(*RemoteWritePusher)
	assert.True(t, ok)
	_, ok = NewPusher(config.Config{MetricsPushExporter: ExporterPushgateway, MetricsPushEndpoint: "http://gateway:9091", AppName: "contractledger"}, log).(*PushgatewayPusher)
	assert.True(t, ok)
}

type countingPusher struct {
	mu    sync.Mutex
	calls int
}

func (p *countingPusher) Push(context.Context, prometheus.Gatherer) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	return nil
}

func (p *countingPusher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func TestWorkerPushesOnStartAndStop(t *testing.T) {
	pusher := &countingPusher{}
	w := &worker{
		pusher:   pusher,
		gatherer: testRegistry(t),
		interval: time.Hour,
		log:      zap.NewNop(),
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.run(ctx)
	}()

	require.Eventually(t, func() bool { return pusher.count() == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
	assert.Equal(t, 2, pusher.count())
}
