package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"StockLens/internal/app"
	"StockLens/internal/commentary"
	"StockLens/internal/config"
	"StockLens/internal/digest"
	"StockLens/internal/logging"
	"StockLens/internal/notifier"
	"StockLens/internal/recorder"
	"StockLens/internal/scheduler"
)

func main() {
	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err := cfg.ValidateDigest(); err != nil {
		log.WithError(err).Fatal("config validation")
	}
	log.Info("StockLens digest bot starting...")

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	services, err := app.Build(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("init services")
	}
	defer services.Close()

	tn, err := notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy, log)
	if err != nil {
		log.WithError(err).Fatal("init telegram notifier")
	}

	// Init recorder
	var rec recorder.Recorder
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath, log)
		if err != nil {
			log.WithError(err).Warn("init sqlite recorder failed, using noop")
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
			defer sr.Close()
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}

	var comm scheduler.Commentator
	if cfg.OpenAI.APIKey != "" {
		comm = commentary.New(cfg.OpenAI.APIKey, cfg.OpenAI.Model)
		log.WithField("model", cfg.OpenAI.Model).Info("digest commentary enabled")
	}

	builder := digest.NewBuilder(services.Collector, services.CAPM, services.Forecast, digest.Options{
		Benchmark:    cfg.Digest.Benchmark,
		RiskFreeRate: cfg.Digest.RiskFreeRate,
		Model:        cfg.Digest.Model,
		Horizon:      cfg.Digest.Horizon,
	}, log)

	sched := scheduler.NewScheduler(ctx, builder, services.Forecast, tn, rec, comm, cfg.Digest.Tickers, log)
	if cfg.DigestEnabled() {
		if err := sched.RegisterDigest(cfg.Schedule.DigestCron); err != nil {
			log.WithError(err).Fatal("register cron task")
		}
		log.WithField("cron", cfg.Schedule.DigestCron).Info("digest scheduled")
	}
	sched.Start()
	defer sched.Stop()

	// Start Telegram polling
	go tn.StartPolling(ctx, sched.HandleCommand)
	log.Info("telegram polling started")

	if os.Getenv("RUN_ON_START") == "true" {
		log.Info("RUN_ON_START enabled, executing digest now")
		go sched.RunDigestNow()
	}

	log.WithFields(logrus.Fields{"tickers": cfg.Digest.Tickers}).Info("StockLens digest bot is running. Press Ctrl+C to stop.")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutdown signal received, stopping...")
	cancel()
	log.Info("StockLens digest bot stopped")
}
