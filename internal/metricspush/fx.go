package metricspush

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/smallbiznis/contractledger/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("metrics.push",
	fx.Provide(NewPusher),
	fx.Invoke(startWorker),
)

func startWorker(lc fx.Lifecycle, cfg config.Config, pusher Pusher, logger *zap.Logger) {
	if pusher == nil {
		return
	}

	interval := time.Duration(cfg.MetricsPushInterval) * time.Second
	if interval <= 0 {
		interval = time.Minute
	}
	w := &worker{
		pusher:   pusher,
		gatherer: prometheus.DefaultGatherer,
		interval: interval,
		log:      logger.Named("metrics.push"),
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			w.log.Info("starting metrics push worker", zap.Duration("interval", interval))
			go func() {
				defer close(done)
				w.run(ctx)
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
			case <-stopCtx.Done():
			}
			return nil
		},
	})
}

type worker struct {
	pusher   Pusher
	gatherer prometheus.Gatherer
	interval time.Duration
	log      *zap.Logger
}

// run pushes once immediately, then on every tick, and a final time on stop.
func (w *worker) run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.pushOnce(ctx)
	for {
		select {
		case <-ticker.C:
			w.pushOnce(ctx)
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), defaultPushTimeout)
			w.pushOnce(flushCtx)
			cancel()
			w.log.Info("stopping metrics push worker")
			return
		}
	}
}

func (w *worker) pushOnce(ctx context.Context) {
	if err := w.pusher.Push(ctx, w.gatherer); err != nil {
		w.log.Warn("metrics push failed", zap.Error(err))
	}
}
