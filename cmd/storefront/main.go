package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	storefrontclient "github.com/buildmart/storefront-client"
	apiserver "github.com/buildmart/storefront-client/api"
	webhookcontrollers "github.com/buildmart/storefront-client/api/controllers/webhooks"
	"github.com/buildmart/storefront-client/api/routes"
	"github.com/buildmart/storefront-client/pkg/config"
	"github.com/buildmart/storefront-client/pkg/logger"
	"github.com/joho/godotenv"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "storefront"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "storefront",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := storefrontclient.New(ctx, cfg, logg)
	if err != nil {
		logg.Error(ctx, "failed to build storefront client", err)
		os.Exit(1)
	}
	defer func() {
		if err := client.Close(); err != nil {
			logg.Error(ctx, "error closing storefront client", err)
		}
	}()

	runCtx := logg.WithField(ctx, "env", cfg.App.Env)
	logg.Info(runCtx, "storefront workflow client ready")

	if !cfg.Webhook.Enabled {
		<-ctx.Done()
		logg.Info(runCtx, "shutting down")
		return
	}

	guard, err := webhookcontrollers.NewIdempotencyGuard(client.Store())
	if err != nil {
		logg.Error(runCtx, "failed to build webhook guard", err)
		os.Exit(1)
	}
	server := apiserver.NewServer(cfg.Webhook.Port, routes.NewRouter(cfg, logg, client.Payments, guard), logg)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start(runCtx) }()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			logg.Error(runCtx, "webhook listener stopped unexpectedly", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logg.Error(runCtx, "webhook listener shutdown", err)
	}
	logg.Info(runCtx, "shutting down")
}
