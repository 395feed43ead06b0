package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"StockLens/internal/app"
	"StockLens/internal/config"
	"StockLens/internal/logging"
	"StockLens/internal/server"
)

func main() {
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("config validation")
	}
	gin.SetMode(cfg.Server.GinMode)
	logger.Info("StockLens dashboard starting...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	services, err := app.Build(ctx, cfg, logger)
	cancel()
	if err != nil {
		logger.WithError(err).Fatal("init services")
	}
	defer services.Close()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           server.New(services.Analysis, services.CAPM, services.Forecast, logger).Router(),
		ReadHeaderTimeout: 10 * time.Second,
		// Cold fetches plus model fits can take a while.
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  time.Minute,
	}

	go func() {
		logger.WithField("port", cfg.Server.Port).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutdown signal received, stopping...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("server forced to shutdown")
	}
	logger.Info("StockLens dashboard stopped")
}
