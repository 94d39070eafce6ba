// Package config handles application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds the application configuration.
type Config struct {
	DatabasePath string
	LogLevel     string

	// Scheduler.
	CheckInterval  time.Duration
	ItemPause      time.Duration
	MinDomainDelay time.Duration

	// Notification dispatch.
	DispatchInterval time.Duration
	DispatchBatch    int

	// Email delivery.
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string

	// Optional telegram channel; empty token disables it.
	TelegramBotToken string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		DatabasePath:     envOr("DATABASE_PATH", "./data/pricewatch.db"),
		LogLevel:         envOr("LOG_LEVEL", "info"),
		SMTPHost:         os.Getenv("SMTP_HOST"),
		SMTPUsername:     os.Getenv("SMTP_USERNAME"),
		SMTPPassword:     os.Getenv("SMTP_PASSWORD"),
		SMTPFrom:         envOr("SMTP_FROM", "alerts@pricewatch.local"),
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
	}

	if cfg.SMTPHost == "" {
		return nil, fmt.Errorf("SMTP_HOST is required")
	}

	var err error
	if cfg.SMTPPort, err = envInt("SMTP_PORT", 587); err != nil {
		return nil, err
	}
	if cfg.DispatchBatch, err = envInt("DISPATCH_BATCH", 50); err != nil {
		return nil, err
	}
	if cfg.CheckInterval, err = envDuration("CHECK_INTERVAL", 6*time.Hour); err != nil {
		return nil, err
	}
	if cfg.ItemPause, err = envDuration("ITEM_PAUSE", time.Second); err != nil {
		return nil, err
	}
	if cfg.MinDomainDelay, err = envDuration("MIN_DOMAIN_DELAY", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.DispatchInterval, err = envDuration("DISPATCH_INTERVAL", 5*time.Minute); err != nil {
		return nil, err
	}

	if cfg.CheckInterval <= 0 {
		return nil, fmt.Errorf("CHECK_INTERVAL must be positive")
	}
	if cfg.DispatchBatch <= 0 {
		return nil, fmt.Errorf("DISPATCH_BATCH must be positive")
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return v, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return v, nil
}
