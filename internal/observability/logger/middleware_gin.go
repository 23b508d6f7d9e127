package logger

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/contractledger/pkg/log/ctxlogger"
	"github.com/smallbiznis/contractledger/pkg/telemetry/correlation"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// MiddlewareConfig controls request logging behavior.
type MiddlewareConfig struct {
	Debug bool
	// ErrorClassifier maps the last handler error to (type, code) log fields.
	ErrorClassifier func(err error) (string, string)
	// SlowThreshold promotes successful requests slower than this to warn.
	SlowThreshold time.Duration
	// QuietRoutes are logged at debug, e.g. probes and scrapes.
	QuietRoutes []string
}

// GinMiddleware logs one line per request tagged with the correlation id.
// Server errors log at error, rejected state transitions (409, 422) and
// slow requests at warn, everything else at info.
func GinMiddleware(cfg MiddlewareConfig) gin.HandlerFunc {
	quiet := make(map[string]struct{}, len(cfg.QuietRoutes))
	for _, route := range cfg.QuietRoutes {
		quiet[strings.ToLower(strings.TrimSpace(route))] = struct{}{}
	}

	return func(c *gin.Context) {
		start := time.Now()
		cid := correlation.Sanitize(c.GetHeader(correlation.HeaderName))
		ctx, cid := correlation.EnsureCorrelationID(correlation.ContextWithCorrelationID(c.Request.Context(), cid))
		c.Request = c.Request.WithContext(ctx)
		c.Header(correlation.HeaderName, cid)

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		status := c.Writer.Status()
		elapsed := time.Since(start)

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("route", route),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Int64("duration_ms", elapsed.Milliseconds()),
			zap.Int64("bytes_in", max(c.Request.ContentLength, 0)),
			zap.Int("bytes_out", max(c.Writer.Size(), 0)),
			zap.String("client_ip", c.ClientIP()),
		}
		if last := c.Errors.Last(); last != nil {
			errType, errCode := "internal_error", ""
			if cfg.ErrorClassifier != nil {
				errType, errCode = cfg.ErrorClassifier(last.Err)
			}
			fields = append(fields, zap.String("error_type", errType), zap.String("error_code", errCode))
			if cfg.Debug {
				fields = append(fields, zap.Error(last.Err), zap.Stack("stack"))
			}
		}

		_, isQuiet := quiet[strings.ToLower(route)]
		level := requestLevel(status, elapsed, cfg.SlowThreshold, isQuiet)
		if ce := ctxlogger.FromContext(c.Request.Context()).Check(level, "http_request"); ce != nil {
			ce.Write(fields...)
		}
	}
}

func requestLevel(status int, elapsed, slow time.Duration, quiet bool) zapcore.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return zapcore.ErrorLevel
	case status == http.StatusConflict || status == http.StatusUnprocessableEntity:
		return zapcore.WarnLevel
	case slow > 0 && elapsed > slow:
		return zapcore.WarnLevel
	case quiet:
		return zapcore.DebugLevel
	default:
		return zapcore.InfoLevel
	}
}
