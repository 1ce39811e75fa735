// @title           Catalog API
// @version         1.0
// @description     Product catalog; writes need an admin token.
// @BasePath        /v1
// @securityDefinitions.apikey BearerAuth
// @in              header
// @name            Authorization
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/MikeMC777/ecom-checkout/internal/config"
	"github.com/MikeMC777/ecom-checkout/internal/db"
	"github.com/MikeMC777/ecom-checkout/internal/httpx"
	"github.com/MikeMC777/ecom-checkout/internal/logger"
	prod "github.com/MikeMC777/ecom-checkout/internal/product"
)

func main() {
	cfg := config.Load()
	log := logger.Must(cfg.Env, "product-service")
	defer func() { _ = log.Sync() }()
	cfg.Log(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal("product-service stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Config, log *zap.Logger) error {
	if cfg.RunMigrations {
		if err := db.Migrate(cfg.PostgresDSN, log); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	pool, err := db.Connect(ctx, cfg.PostgresDSN, db.Options{MaxConns: 10})
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	defer pool.Close()

	r := newRouter(prod.NewPGRepo(pool), []byte(cfg.JWTSecret), cfg.CORSOrigins, log)
	return httpx.Serve(ctx, cfg.ProductSvcAddr, r, log)
}
