package lock

import (
	"context"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/contractledger/internal/clock"
	"github.com/smallbiznis/contractledger/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("lock",
	fx.Provide(NewLocker),
)

// NewLocker returns a redis-backed locker when REDIS_ADDR is set and an
// in-process one otherwise.
func NewLocker(lc fx.Lifecycle, cfg config.Config, c clock.Clock, log *zap.Logger) Locker {
	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		log.Info("using in-process aggregate locks")
		return NewLocalLocker(c)
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(cfg.RedisPassword),
		DB:       cfg.RedisDB,
	})
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		},
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	log.Info("using redis aggregate locks", zap.String("addr", addr))
	return NewRedisLocker(client)
}
