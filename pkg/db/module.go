package db

import (
	"context"
	"fmt"

	"github.com/smallbiznis/contractledger/internal/config"
	obslogger "github.com/smallbiznis/contractledger/internal/observability/logger"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormprometheus "gorm.io/plugin/prometheus"
)

var Module = fx.Module("db",
	fx.Provide(Open),
)

// Open connects to the configured store with query logging, tracing and
// connection pool metrics attached.
func Open(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) (*gorm.DB, error) {
	dialector, err := Dialect(cfg)
	if err != nil {
		return nil, err
	}

	conn, err := gorm.Open(dialector, &gorm.Config{
		Logger:         obslogger.NewGormLogger(obslogger.GormLoggerConfigFor(cfg.LogLevel)),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.DBType, err)
	}

	if err := conn.Use(otelgorm.NewPlugin(otelgorm.WithDBName(cfg.DBName))); err != nil {
		return nil, fmt.Errorf("otelgorm plugin: %w", err)
	}
	if err := conn.Use(gormprometheus.New(gormprometheus.Config{
		DBName:          cfg.DBName,
		RefreshInterval: 15,
		StartServer:     false,
	})); err != nil {
		return nil, fmt.Errorf("prometheus plugin: %w", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, err
	}
	pool := poolConfigFrom(cfg)
	if pool.MaxIdleConn > 0 {
		sqlDB.SetMaxIdleConns(pool.MaxIdleConn)
	}
	if pool.MaxOpenConn > 0 {
		sqlDB.SetMaxOpenConns(pool.MaxOpenConn)
	}
	if pool.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(pool.ConnMaxLifetime)
	}
	if pool.ConnMaxIdleTime > 0 {
		sqlDB.SetConnMaxIdleTime(pool.ConnMaxIdleTime)
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			log.Info("closing database connections")
			return sqlDB.Close()
		},
	})

	log.Info("database connected", zap.String("type", cfg.DBType))
	return conn, nil
}
