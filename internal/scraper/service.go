package scraper

import (
	"context"
	"log/slog"
	"time"
)

// Service is the single entry point for fetching a product snapshot:
// it rate-limits the domain, resolves the adapter and runs the scrape.
// It never retries; retry policy belongs to the caller.
type Service struct {
	limiter  *DomainLimiter
	registry *Registry
	log      *slog.Logger
}

// NewService composes the rate limiter and adapter registry.
func NewService(limiter *DomainLimiter, registry *Registry, log *slog.Logger) *Service {
	return &Service{limiter: limiter, registry: registry, log: log}
}

// FetchSnapshot scrapes the current state of the product at rawURL.
// All adapter and network failures come back as *ScrapeError carrying
// the offending URL.
func (s *Service) FetchSnapshot(ctx context.Context, rawURL string) (*Snapshot, error) {
	if host, err := hostOf(rawURL); err != nil {
		// Malformed URLs skip rate limiting; the adapter will surface
		// the real failure.
		s.log.Warn("skipping rate limit for malformed url", "url", rawURL, "error", err)
	} else if err := s.limiter.Acquire(ctx, host); err != nil {
		return nil, &ScrapeError{URL: rawURL, Err: err}
	}

	adapter := s.registry.Resolve(rawURL)
	s.log.Debug("scraping product", "store", adapter.StoreName(), "url", rawURL)

	snap, err := adapter.Scrape(ctx, rawURL)
	if err != nil {
		return nil, &ScrapeError{URL: rawURL, Err: err}
	}

	s.log.Info("scraped product", "store", adapter.StoreName(), "url", rawURL,
		"price", snap.Price, "currency", snap.Currency, "available", snap.IsAvailable)
	return snap, nil
}

// ApplyStoreDelay registers a store-configured minimum delay for the
// domain of the given product URL. No-op on a malformed URL.
func (s *Service) ApplyStoreDelay(rawURL string, delay time.Duration) {
	if delay <= 0 {
		return
	}
	host, err := hostOf(rawURL)
	if err != nil {
		return
	}
	s.limiter.SetDelay(host, delay)
}
