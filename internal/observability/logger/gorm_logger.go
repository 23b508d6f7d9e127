package logger

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/smallbiznis/contractledger/pkg/log/ctxlogger"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	gormlogger "gorm.io/gorm/logger"
)

// GormLoggerConfig configures the zap-backed gorm logger.
type GormLoggerConfig struct {
	Level                gormlogger.LogLevel
	SlowThreshold        time.Duration
	IgnoreRecordNotFound bool
}

// GormLoggerConfigFor maps the process log level onto gorm levels. Statement
// tracing is only enabled at debug. Missing rows are expected on lookups and
// are not logged as errors.
func GormLoggerConfigFor(logLevel string) GormLoggerConfig {
	cfg := GormLoggerConfig{
		Level:                gormlogger.Warn,
		SlowThreshold:        200 * time.Millisecond,
		IgnoreRecordNotFound: true,
	}
	switch strings.ToLower(strings.TrimSpace(logLevel)) {
	case "debug":
		cfg.Level = gormlogger.Info
	case "error", "dpanic", "panic", "fatal":
		cfg.Level = gormlogger.Error
	}
	return cfg
}

type GormLogger struct {
	cfg GormLoggerConfig
}

func NewGormLogger(cfg GormLoggerConfig) *GormLogger {
	return &GormLogger{cfg: cfg}
}

func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	next := *l
	next.cfg.Level = level
	return &next
}

func (l *GormLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	l.message(ctx, gormlogger.Info, zap.InfoLevel, msg, data)
}

func (l *GormLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	l.message(ctx, gormlogger.Warn, zap.WarnLevel, msg, data)
}

func (l *GormLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	l.message(ctx, gormlogger.Error, zap.ErrorLevel, msg, data)
}

func (l *GormLogger) message(ctx context.Context, min gormlogger.LogLevel, level zapcore.Level, msg string, data []interface{}) {
	if l.cfg.Level < min {
		return
	}
	fields := []zap.Field{zap.String("component", "gorm")}
	if len(data) > 0 {
		fields = append(fields, zap.Any("data", data))
	}
	if ce := ctxlogger.FromContext(ctx).Check(level, msg); ce != nil {
		ce.Write(fields...)
	}
}

// Trace logs failed statements as errors, slow ones as warnings and the rest
// at debug when statement tracing is on.
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.cfg.Level <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	switch {
	case err != nil && l.cfg.Level >= gormlogger.Error && !l.ignored(err):
		l.logQuery(ctx, fc, elapsed, err, zap.ErrorLevel)
	case l.cfg.SlowThreshold != 0 && elapsed > l.cfg.SlowThreshold && l.cfg.Level >= gormlogger.Warn:
		l.logQuery(ctx, fc, elapsed, nil, zap.WarnLevel)
	case l.cfg.Level >= gormlogger.Info:
		l.logQuery(ctx, fc, elapsed, nil, zap.DebugLevel)
	}
}

func (l *GormLogger) ignored(err error) bool {
	return l.cfg.IgnoreRecordNotFound && errors.Is(err, gormlogger.ErrRecordNotFound)
}

// ParamsFilter drops bound values; amounts and counterparty ids stay out of logs.
func (l *GormLogger) ParamsFilter(_ context.Context, sql string, _ ...interface{}) (string, []interface{}) {
	return sql, nil
}

func (l *GormLogger) logQuery(ctx context.Context, fc func() (string, int64), elapsed time.Duration, err error, level zapcore.Level) {
	sql, rows := fc()
	op, table := describeSQL(sql)
	fields := []zap.Field{
		zap.String("component", "gorm"),
		zap.String("sql", strings.TrimSpace(sql)),
		zap.String("operation", op),
		zap.String("table", table),
		zap.Int64("duration_ms", elapsed.Milliseconds()),
	}
	if rows >= 0 {
		fields = append(fields, zap.Int64("rows_affected", rows))
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}

	if ce := ctxlogger.FromContext(ctx).Check(level, "gorm.query"); ce != nil {
		ce.Write(fields...)
	}
}

// describeSQL returns the statement verb and the first table it touches.
func describeSQL(sql string) (string, string) {
	tokens := strings.Fields(strings.TrimSpace(sql))
	op := "UNKNOWN"
	for i, raw := range tokens {
		token := strings.ToUpper(strings.Trim(raw, "();"))
		switch token {
		case "SELECT", "INSERT", "UPDATE", "DELETE", "MERGE":
			if op == "UNKNOWN" {
				op = token
			}
			if token == "UPDATE" && i+1 < len(tokens) {
				return op, cleanTable(tokens[i+1])
			}
		case "FROM", "INTO":
			if op != "UNKNOWN" && i+1 < len(tokens) {
				return op, cleanTable(tokens[i+1])
			}
		}
	}
	return op, ""
}

func cleanTable(token string) string {
	return strings.Trim(token, "`\"();")
}

var _ gormlogger.Interface = (*GormLogger)(nil)
