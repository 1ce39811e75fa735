package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/MikeMC777/ecom-checkout/internal/config"
	"github.com/MikeMC777/ecom-checkout/internal/db"
	"github.com/MikeMC777/ecom-checkout/internal/logger"
	"github.com/MikeMC777/ecom-checkout/internal/user"
)

func main() {
	cfg := config.Load()
	log := logger.Must(cfg.Env, "user-service")
	defer func() { _ = log.Sync() }()
	cfg.Log(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal("user-service stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Config, log *zap.Logger) error {
	if cfg.RunMigrations {
		if err := db.Migrate(cfg.PostgresDSN, log); err != nil {
			return err
		}
	}
	pool, err := db.Connect(ctx, cfg.PostgresDSN, db.Options{MaxConns: 5})
	if err != nil {
		return err
	}
	defer pool.Close()

	// USER_SERVICE_ADDR is host:port for clients; listen on its port only
	addr := cfg.UserSvcAddr
	if i := strings.LastIndex(addr, ":"); i >= 0 {
		addr = addr[i:]
	}
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	srv := grpc.NewServer()
	user.RegisterDirectoryServer(srv, user.NewService(user.NewPGRepo(pool), log))
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	hs.SetServingStatus(user.ServiceName, healthpb.HealthCheckResponse_SERVING)

	go func() {
		<-ctx.Done()
		log.Info("shutting down")
		hs.Shutdown()
		srv.GracefulStop()
	}()

	log.Info("listening", zap.String("addr", lis.Addr().String()))
	return srv.Serve(lis)
}
