package tracing

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)))
	t.Cleanup(func() { otel.SetTracerProvider(prev) })
	return recorder
}

func spanAttrs(span sdktrace.ReadOnlySpan) map[attribute.Key]attribute.Value {
	out := map[attribute.Key]attribute.Value{}
	for _, kv := range span.Attributes() {
		out[kv.Key] = kv.Value
	}
	return out
}

func TestGinMiddlewareAnnotatesRejectedTransition(t *testing.T) {
	recorder := recordSpans(t)
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(GinMiddleware(func(error) (string, string) { return "domain_error", "golive_already_completed" }))
	r.POST("/installments/:id/go-live", func(c *gin.Context) {
		_ = c.Error(errors.New("already completed"))
		c.Status(http.StatusUnprocessableEntity)
	})
	r.GET("/boom", func(c *gin.Context) {
		_ = c.Error(errors.New("db down"))
		c.Status(http.StatusInternalServerError)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/installments/9/go-live", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/boom", nil))

	spans := recorder.Ended()
	require.Len(t, spans, 2)

	rejected := spans[0]
	assert.Equal(t, "HTTP POST /installments/:id/go-live", rejected.Name())
	attrs := spanAttrs(rejected)
	assert.Equal(t, "golive_already_completed", attrs["error.code"].AsString())
	assert.Equal(t, int64(422), attrs["http.status_code"].AsInt64())
	assert.NotEqual(t, codes.Error, rejected.Status().Code)

	assert.Equal(t, codes.Error, spans[1].Status().Code)
}

func TestSafeAttributesDropsTenantData(t *testing.T) {
	attrs := SafeAttributes(
		attribute.String("http.route", "/contracts/:id"),
		attribute.String("org_id", "42"),
	)
	require.Len(t, attrs, 1)
	assert.Equal(t, attribute.Key("http.route"), attrs[0].Key)
}
