package tracing

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/contractledger/pkg/telemetry/correlation"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// GinMiddleware opens a server span per request, continuing any remote
// parent. Handler errors are classified with classify, which may be nil; 5xx
// responses mark the span as failed while 4xx only annotate it.
func GinMiddleware(classify func(error) (string, string)) gin.HandlerFunc {
	tracer := otel.Tracer("contractledger/http")
	return func(c *gin.Context) {
		method := strings.ToUpper(c.Request.Method)
		parent := ExtractContext(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
		ctx, span := tracer.Start(parent, "HTTP "+method, trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()
		if cid := correlation.ExtractCorrelationID(ctx); cid != "" {
			span.SetAttributes(attribute.String("correlation_id", cid))
		}

		start := time.Now()
		c.Request = c.Request.WithContext(ctx)
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		status := c.Writer.Status()
		span.SetName("HTTP " + method + " " + route)
		attrs := []attribute.KeyValue{
			attribute.String("http.method", method),
			attribute.String("http.route", route),
			attribute.Int("http.status_code", status),
			attribute.Int64("http.server_duration_ms", time.Since(start).Milliseconds()),
		}

		last := c.Errors.Last()
		if last != nil && classify != nil {
			errType, errCode := classify(last.Err)
			attrs = append(attrs, attribute.String("error.type", errType), attribute.String("error.code", errCode))
		}
		span.SetAttributes(SafeAttributes(attrs...)...)

		if status >= http.StatusInternalServerError {
			if last != nil {
				span.RecordError(SafeError(last.Err))
			}
			span.SetStatus(codes.Error, "request error")
		}
	}
}

// ExtractContext pulls a remote parent span from the carrier.
func ExtractContext(ctx context.Context, carrier propagation.TextMapCarrier) context.Context {
	return otel.GetTextMapPropagator().Extract(ctx, carrier)
}

var allowedSpanKeys = map[attribute.Key]struct{}{
	"http.method":             {},
	"http.route":              {},
	"http.status_code":        {},
	"http.server_duration_ms": {},
	"error.type":              {},
	"error.code":              {},
}

// SafeAttributes keeps only attributes that carry no tenant data.
func SafeAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	out := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedSpanKeys[attr.Key]; ok {
			out = append(out, attr)
		}
	}
	return out
}

// SafeError reduces err to its message so wrapped payloads are not exported.
func SafeError(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.TrimSpace(err.Error())
	if len(msg) > 256 {
		msg = msg[:256]
	}
	return errors.New(msg)
}
