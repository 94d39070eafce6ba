package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"pricewatch/internal/alert"
	"pricewatch/internal/config"
	"pricewatch/internal/notify"
	"pricewatch/internal/scheduler"
	"pricewatch/internal/scraper"
	"pricewatch/internal/storage"
)

func main() {
	// A missing .env is fine; real environments set variables directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	log := newLogger(cfg.LogLevel)

	if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			log.Error("create data directory", "path", dir, "error", err)
			os.Exit(1)
		}
	}

	store, err := storage.NewSQLite(cfg.DatabasePath)
	if err != nil {
		log.Error("open database", "path", cfg.DatabasePath, "error", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	fetcher := scraper.NewFetcher(nil)
	registry := scraper.NewDefaultRegistry(fetcher, log)
	limiter := scraper.NewDomainLimiter(cfg.MinDomainDelay)
	scrapeSvc := scraper.NewService(limiter, registry, log)

	engine := alert.NewEngine(store, log)

	sched := scheduler.New(store, scrapeSvc, engine, log)
	sched.SetCheckInterval(cfg.CheckInterval)
	sched.SetItemPause(cfg.ItemPause)

	senders := []notify.Sender{
		notify.NewEmailSender(notify.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		}, log),
	}
	if cfg.TelegramBotToken != "" {
		tg, err := notify.NewTelegramSender(cfg.TelegramBotToken, log)
		if err != nil {
			log.Error("create telegram sender", "error", err)
			os.Exit(1)
		}
		senders = append(senders, tg)
	}

	dispatcher := notify.NewDispatcher(store, log, senders...)
	dispatcher.SetDispatchInterval(cfg.DispatchInterval)
	dispatcher.SetBatchSize(cfg.DispatchBatch)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Info("starting pricewatch",
		"check_interval", cfg.CheckInterval,
		"dispatch_interval", cfg.DispatchInterval,
		"stores", registry.SupportedStores())

	go dispatcher.Run(ctx)

	sched.Run(ctx)

	log.Info("pricewatch stopped")
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
