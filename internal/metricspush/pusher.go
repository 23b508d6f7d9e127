// Package metricspush ships the process metrics to a Prometheus remote_write
// endpoint or a Pushgateway for deployments that cannot be scraped.
package metricspush

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/golang/snappy"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/prometheus/prompb"
	"github.com/smallbiznis/contractledger/internal/config"
	obstracing "github.com/smallbiznis/contractledger/internal/observability/tracing"
	"go.uber.org/zap"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/protoadapt"
)

const (
	ExporterRemoteWrite = "prometheus_remote_write"
	ExporterPushgateway = "prometheus_pushgateway"
	defaultPushTimeout  = 5 * time.Second
)

// Pusher sends one snapshot of gathered metrics.
type Pusher interface {
	Push(ctx context.Context, gatherer prometheus.Gatherer) error
}

// NewPusher builds a pusher from config. It returns nil when pushing is
// disabled or misconfigured; the problem is logged instead of failing startup.
func NewPusher(cfg config.Config, logger *zap.Logger) Pusher {
	if logger == nil {
		logger = zap.NewNop()
	}

	exporter := strings.ToLower(strings.TrimSpace(cfg.MetricsPushExporter))
	endpoint := strings.TrimSpace(cfg.MetricsPushEndpoint)
	if exporter == "" {
		return nil
	}
	if endpoint == "" {
		logger.Warn("metrics push disabled", zap.Error(errors.New("METRICS_PUSH_ENDPOINT is required")))
		return nil
	}

	labels := map[string]string{"environment": strings.TrimSpace(cfg.Environment)}
	switch exporter {
	case ExporterRemoteWrite:
		if _, err := url.ParseRequestURI(endpoint); err != nil {
			logger.Warn("metrics push disabled", zap.Error(fmt.Errorf("invalid METRICS_PUSH_ENDPOINT: %w", err)))
			return nil
		}
		labels["job"] = strings.TrimSpace(cfg.AppName)
		return NewRemoteWritePusher(endpoint, cfg.MetricsPushToken, labels)
	case ExporterPushgateway:
		return NewPushgatewayPusher(endpoint, cfg.AppName, labels)
	default:
		logger.Warn("metrics push disabled", zap.String("exporter", exporter))
		return nil
	}
}

// RemoteWritePusher sends a snapshot of every gathered series to a
// remote_write endpoint, tagged with the process job and environment.
type RemoteWritePusher struct {
	endpoint   string
	authToken  string
	external   map[string]string
	httpClient *http.Client
	now        func() time.Time
}

func NewRemoteWritePusher(endpoint, authToken string, external map[string]string) *RemoteWritePusher {
	return &RemoteWritePusher{
		endpoint:  endpoint,
		authToken: strings.TrimSpace(authToken),
		external:  external,
		httpClient: obstracing.WrapHTTPClient(&http.Client{
			Timeout: defaultPushTimeout,
		}),
		now: time.Now,
	}
}

func (p *RemoteWritePusher) Push(ctx context.Context, gatherer prometheus.Gatherer) error {
	if p == nil || gatherer == nil {
		return nil
	}

	families, err := gatherer.Gather()
	if err != nil {
		return err
	}
	series := buildRemoteWriteSeries(families, p.now().UnixMilli(), p.external)
	if len(series) == 0 {
		return nil
	}

	req := &prompb.WriteRequest{Timeseries: series}
	payload, err := proto.Marshal(protoadapt.MessageV2Of(req))
	if err != nil {
		return err
	}

	compressed := snappy.Encode(nil, payload)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(compressed))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/x-protobuf")
	httpReq.Header.Set("Content-Encoding", "snappy")
	httpReq.Header.Set("X-Prometheus-Remote-Write-Version", "0.1.0")
	if p.authToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.authToken)
	}

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("remote write returned %s", resp.Status)
	}
	return nil
}

// PushgatewayPusher replaces the job's metric group on a Pushgateway.
type PushgatewayPusher struct {
	endpoint string
	job      string
	grouping map[string]string
}

func NewPushgatewayPusher(endpoint, job string, grouping map[string]string) *PushgatewayPusher {
	return &PushgatewayPusher{
		endpoint: endpoint,
		job:      strings.TrimSpace(job),
		grouping: grouping,
	}
}

func (p *PushgatewayPusher) Push(ctx context.Context, gatherer prometheus.Gatherer) error {
	if p == nil || gatherer == nil {
		return nil
	}
	if p.job == "" {
		return errors.New("pushgateway job is required")
	}

	pusher := push.New(p.endpoint, p.job).Gatherer(gatherer)
	for key, value := range p.grouping {
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if key == "" || value == "" {
			continue
		}
		pusher = pusher.Grouping(key, value)
	}
	return pusher.PushContext(ctx)
}

// buildRemoteWriteSeries flattens gathered families into remote_write series.
// Histograms and summaries expand into their _bucket, quantile, _sum and
// _count series the way a scrape would expose them. External labels are added
// unless the metric already carries a label of that name.
func buildRemoteWriteSeries(families []*dto.MetricFamily, timestampMs int64, external map[string]string) []prompb.TimeSeries {
	b := seriesBuilder{ts: timestampMs, external: external}
	for _, family := range families {
		name := family.GetName()
		for _, m := range family.GetMetric() {
			if m == nil {
				continue
			}
			switch family.GetType() {
			case dto.MetricType_COUNTER:
				if c := m.GetCounter(); c != nil {
					b.add(name, m, c.GetValue())
				}
			case dto.MetricType_GAUGE:
				if g := m.GetGauge(); g != nil {
					b.add(name, m, g.GetValue())
				}
			case dto.MetricType_UNTYPED:
				if u := m.GetUntyped(); u != nil {
					b.add(name, m, u.GetValue())
				}
			case dto.MetricType_HISTOGRAM:
				h := m.GetHistogram()
				if h == nil {
					continue
				}
				for _, bucket := range h.GetBucket() {
					if math.IsInf(bucket.GetUpperBound(), 1) {
						continue
					}
					b.add(name+"_bucket", m, float64(bucket.GetCumulativeCount()), label("le", formatBound(bucket.GetUpperBound())))
				}
				b.add(name+"_bucket", m, float64(h.GetSampleCount()), label("le", "+Inf"))
				b.add(name+"_sum", m, h.GetSampleSum())
				b.add(name+"_count", m, float64(h.GetSampleCount()))
			case dto.MetricType_SUMMARY:
				sm := m.GetSummary()
				if sm == nil {
					continue
				}
				for _, q := range sm.GetQuantile() {
					b.add(name, m, q.GetValue(), label("quantile", formatBound(q.GetQuantile())))
				}
				b.add(name+"_sum", m, sm.GetSampleSum())
				b.add(name+"_count", m, float64(sm.GetSampleCount()))
			}
		}
	}
	return b.out
}

type seriesBuilder struct {
	ts       int64
	external map[string]string
	out      []prompb.TimeSeries
}

func (b *seriesBuilder) add(name string, m *dto.Metric, value float64, extra ...prompb.Label) {
	labels := make([]prompb.Label, 0, len(m.GetLabel())+len(extra)+len(b.external)+1)
	labels = append(labels, label("__name__", name))
	seen := map[string]struct{}{}
	for _, l := range m.GetLabel() {
		labels = append(labels, label(l.GetName(), l.GetValue()))
		seen[l.GetName()] = struct{}{}
	}
	for _, l := range extra {
		labels = append(labels, l)
		seen[l.Name] = struct{}{}
	}
	for key, value := range b.external {
		if _, ok := seen[key]; ok || value == "" {
			continue
		}
		labels = append(labels, label(key, value))
	}
	sort.Slice(labels, func(i, j int) bool { return labels[i].Name < labels[j].Name })

	b.out = append(b.out, prompb.TimeSeries{
		Labels:  labels,
		Samples: []prompb.Sample{{Value: value, Timestamp: b.ts}},
	})
}

func label(name, value string) prompb.Label {
	return prompb.Label{Name: name, Value: value}
}

func formatBound(v float64) string {
	if math.IsInf(v, 1) {
		return "+Inf"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
