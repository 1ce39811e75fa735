// @title           Checkout API
// @version         1.0
// @description     Cart, checkout and order lifecycle.
// @BasePath        /v1
// @securityDefinitions.apikey BearerAuth
// @in              header
// @name            Authorization
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/MikeMC777/ecom-checkout/internal/cart"
	"github.com/MikeMC777/ecom-checkout/internal/config"
	"github.com/MikeMC777/ecom-checkout/internal/db"
	"github.com/MikeMC777/ecom-checkout/internal/httpx"
	"github.com/MikeMC777/ecom-checkout/internal/idempotency"
	"github.com/MikeMC777/ecom-checkout/internal/logger"
	"github.com/MikeMC777/ecom-checkout/internal/notify"
	"github.com/MikeMC777/ecom-checkout/internal/order"
)

func main() {
	cfg := config.Load()
	log := logger.Must(cfg.Env, "order-service")
	defer func() { _ = log.Sync() }()
	cfg.Log(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal("order-service stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Config, log *zap.Logger) error {
	if cfg.RunMigrations {
		if err := db.Migrate(cfg.PostgresDSN, log); err != nil {
			return err
		}
	}
	pool, err := db.Connect(ctx, cfg.PostgresDSN, db.Options{MaxConns: 20})
	if err != nil {
		return err
	}
	defer pool.Close()

	var (
		queue notify.Queue
		idem  idempotency.Store
	)
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return err
		}
		rdb := redis.NewClient(opt)
		defer func() { _ = rdb.Close() }()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return err
		}
		// cmd/notifier consumes the shared queue
		queue = notify.NewRedisQueue(rdb, "")
		idem = idempotency.NewRedisStore(rdb, cfg.IdempotencyTTL)
	} else {
		mq := notify.NewMemQueue(1024)
		queue = mq
		w, cleanup, err := notify.NewWorkerFromConfig(cfg, mq, log)
		if err != nil {
			return err
		}
		defer cleanup()
		go func() {
			if err := w.Run(ctx); err != nil {
				log.Error("notify worker", zap.Error(err))
			}
		}()
		log.Warn("REDIS_URL not set: in-process notifications, idempotency keys ignored")
	}

	svc := order.NewService(order.NewPGStore(pool), notify.NewDispatcher(queue, log.Named("dispatch")), log)
	r := newRouter(deps{
		Orders:      svc,
		Carts:       cart.NewPGRepo(pool),
		Idempotency: idem,
		Limiter:     httpx.NewRateLimiter(cfg.CheckoutRatePerMin, 5),
		JWTSecret:   []byte(cfg.JWTSecret),
		CORSOrigins: cfg.CORSOrigins,
		Log:         log,
	})
	return httpx.Serve(ctx, cfg.OrderSvcAddr, r, log)
}
