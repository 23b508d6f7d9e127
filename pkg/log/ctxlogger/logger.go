package ctxlogger

import (
	"context"
	"sync/atomic"

	"github.com/smallbiznis/contractledger/internal/orgcontext"
	"github.com/smallbiznis/contractledger/pkg/telemetry/correlation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var serviceName atomic.Pointer[string]

// SetServiceName configures the service name added to every log entry.
func SetServiceName(name string) {
	serviceName.Store(&name)
}

// FromContext returns the global logger enriched with request metadata.
func FromContext(ctx context.Context) *zap.Logger {
	return WithContext(ctx, zap.L())
}

// WithContext enriches base with the request metadata found on ctx.
func WithContext(ctx context.Context, base *zap.Logger) *zap.Logger {
	if ctx == nil || base == nil {
		return base
	}
	return base.With(Fields(ctx)...)
}

// Fields lists the request metadata on ctx: service, correlation id, trace
// and span ids, org and actor. Absent values are left out.
func Fields(ctx context.Context) []zap.Field {
	fields := make([]zap.Field, 0, 6)

	name := "unknown"
	if p := serviceName.Load(); p != nil && *p != "" {
		name = *p
	}
	fields = append(fields, zap.String("service", name))

	if cid := correlation.ExtractCorrelationID(ctx); cid != "" {
		fields = append(fields, zap.String("correlation_id", cid))
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
	}
	if orgID, ok := orgcontext.OrgIDFromContext(ctx); ok {
		fields = append(fields, zap.String("org_id", orgID.String()))
	}
	if actorID, ok := orgcontext.ActorIDFromContext(ctx); ok {
		fields = append(fields, zap.String("actor_id", actorID.String()))
	}
	return fields
}
