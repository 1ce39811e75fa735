// Command notifier drains the Redis notification queue filled by
// order-service: it publishes order events and emails customers.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/MikeMC777/ecom-checkout/internal/config"
	"github.com/MikeMC777/ecom-checkout/internal/logger"
	"github.com/MikeMC777/ecom-checkout/internal/notify"
)

func main() {
	cfg := config.Load()
	log := logger.Must(cfg.Env, "notifier")
	defer func() { _ = log.Sync() }()
	cfg.Log(log)

	if cfg.RedisURL == "" {
		log.Fatal("REDIS_URL is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal("notifier stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Config, log *zap.Logger) error {
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return err
	}
	rdb := redis.NewClient(opt)
	defer func() { _ = rdb.Close() }()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return err
	}

	w, cleanup, err := notify.NewWorkerFromConfig(cfg, notify.NewRedisQueue(rdb, ""), log)
	if err != nil {
		return err
	}
	defer cleanup()

	return w.Run(ctx)
}
