package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"centrovision-data/internal/app"
	"centrovision-data/internal/config"
	httpapi "centrovision-data/internal/http"
	"centrovision-data/internal/logger"
	"centrovision-data/internal/service"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "centrovision-data")
	if err != nil {
		log = zap.NewExample()
		log.Warn("Logger config invalid, using example logger", zap.Error(err))
	}
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal("Startup failed", zap.Error(err))
	}
	go a.Resolver.Run(ctx, cfg.Connectivity.ProbeInterval)

	router := httpapi.NewRouter(log)
	router.RegisterRoutes(httpapi.NewHandlers(a.Services, a.Resolver, log.Named("http")))
	router.HandleHandler("GET /metrics", promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{}))

	srv := service.NewServer(cfg.HTTP.Addr, router, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			log.Error("HTTP server stopped", zap.Error(err))
		}
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
	if err := a.Close(); err != nil {
		log.Warn("Close failed", zap.Error(err))
	}
}
