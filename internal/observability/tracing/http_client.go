package tracing

import (
	"net/http"
	"strings"

	"github.com/smallbiznis/contractledger/pkg/telemetry/correlation"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// WrapHTTPClient returns a copy of client whose requests open a client span
// and carry the trace context and correlation id downstream.
func WrapHTTPClient(client *http.Client) *http.Client {
	if client == nil {
		client = &http.Client{}
	}
	base := client.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	wrapped := *client
	wrapped.Transport = &tracingTransport{
		base:   base,
		tracer: otel.Tracer("contractledger/http-client"),
	}
	return &wrapped
}

type tracingTransport struct {
	base   http.RoundTripper
	tracer trace.Tracer
}

func (t *tracingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx, span := t.tracer.Start(req.Context(), "HTTP "+strings.ToUpper(req.Method)+" "+req.URL.Host, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	outbound := req.Clone(ctx)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(outbound.Header))
	if cid := correlation.ExtractCorrelationID(ctx); cid != "" && outbound.Header.Get(correlation.HeaderName) == "" {
		outbound.Header.Set(correlation.HeaderName, cid)
	}

	resp, err := t.base.RoundTrip(outbound)
	if err != nil {
		span.RecordError(SafeError(err))
		span.SetStatus(codes.Error, "request failed")
		return nil, err
	}
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode >= http.StatusInternalServerError {
		span.SetStatus(codes.Error, "server error")
	}
	return resp, nil
}
