package log

import (
	"context"
	"fmt"
	"strings"

	"github.com/smallbiznis/contractledger/internal/config"
	"github.com/smallbiznis/contractledger/pkg/log/ctxlogger"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Module provides a zap logger configured for production.
var Module = fx.Options(
	fx.Provide(NewLogger),
	fx.Invoke(registerHooks),
)

// NewLogger returns a zap logger with consistent JSON output and replaces globals.
func NewLogger(cfg config.Config) (*zap.Logger, error) {
	zapCfg := zap.NewProductionConfig()
	zapCfg.Encoding = "json"
	if strings.EqualFold(cfg.LogFormat, "console") {
		zapCfg.Encoding = "console"
	}
	zapCfg.EncoderConfig.TimeKey = "ts"
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	zapCfg.OutputPaths = []string{"stdout"}
	zapCfg.ErrorOutputPaths = []string{"stderr"}

	level := strings.TrimSpace(cfg.LogLevel)
	if level == "" {
		level = "info"
	}
	if err := zapCfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	logger, err := zapCfg.Build(zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		return nil, err
	}

	logger = logger.With(
		zap.String("env", cfg.Environment),
		zap.String("version", cfg.AppVersion),
	)

	ctxlogger.SetServiceName(cfg.AppName)
	zap.ReplaceGlobals(logger)
	return logger, nil
}

// L returns a context-aware logger with correlation and tracing metadata.
func L(ctx context.Context) *zap.Logger {
	return ctxlogger.FromContext(ctx)
}

func registerHooks(lc fx.Lifecycle, log *zap.Logger) {
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			_ = log.Sync()
			return nil
		},
	})
}
