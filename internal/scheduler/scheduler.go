// Package scheduler drives the periodic price checks for all actively
// tracked items.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"

	"pricewatch/internal/alert"
	"pricewatch/internal/model"
	"pricewatch/internal/scraper"
	"pricewatch/internal/storage"
)

const (
	defaultCheckInterval = 6 * time.Hour
	defaultItemPause     = 1 * time.Second

	defaultRetryBase = 2 * time.Second
	retryCap         = 30 * time.Second
	maxRetries       = 2
)

// Scheduler walks the active tracked items on a fixed interval, scrapes
// each one, appends history and hands the price transition to the alert
// engine. One failing item never aborts the run.
type Scheduler struct {
	store   storage.Storage
	scraper *scraper.Service
	alerts  *alert.Engine
	log     *slog.Logger

	interval  time.Duration
	itemPause time.Duration
	retryBase time.Duration
}

// New creates a Scheduler with the default check interval.
func New(store storage.Storage, svc *scraper.Service, alerts *alert.Engine, log *slog.Logger) *Scheduler {
	return &Scheduler{
		store:     store,
		scraper:   svc,
		alerts:    alerts,
		log:       log,
		interval:  defaultCheckInterval,
		itemPause: defaultItemPause,
		retryBase: defaultRetryBase,
	}
}

// SetCheckInterval overrides the default 6-hour check interval.
func (s *Scheduler) SetCheckInterval(d time.Duration) {
	s.interval = d
}

// SetItemPause overrides the pause between consecutive items in a run.
func (s *Scheduler) SetItemPause(d time.Duration) {
	s.itemPause = d
}

// Run starts the scheduler loop, blocking until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	s.checkAll(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.checkAll(ctx)
		}
	}
}

func (s *Scheduler) checkAll(ctx context.Context) {
	items, err := s.store.ListActiveTrackedItems(ctx)
	if err != nil {
		s.log.Error("list active items", "error", err)
		return
	}
	if len(items) == 0 {
		return
	}

	s.log.Info("starting price check run", "items", len(items))
	checked, failed := 0, 0

	for i := range items {
		if ctx.Err() != nil {
			return
		}
		if err := s.checkItem(ctx, &items[i]); err != nil {
			failed++
			s.log.Error("check item", "item_id", items[i].ID, "url", items[i].ProductURL, "error", err)
		} else {
			checked++
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(s.itemPause):
		}
	}

	s.log.Info("price check run finished", "checked", checked, "failed", failed)
}

// CheckItemPrice runs a single on-demand price check, outside the
// periodic schedule. Unlike the scheduled run it propagates failures.
func (s *Scheduler) CheckItemPrice(ctx context.Context, itemID int64) error {
	item, err := s.store.GetTrackedItem(ctx, itemID)
	if err != nil {
		return fmt.Errorf("load item %d: %w", itemID, err)
	}
	return s.checkItem(ctx, item)
}

func (s *Scheduler) checkItem(ctx context.Context, item *model.TrackedItem) error {
	s.log.Debug("checking item", "item_id", item.ID, "url", item.ProductURL)

	if store, err := s.store.GetStore(ctx, item.StoreID); err != nil {
		s.log.Warn("load store for delay", "item_id", item.ID, "store_id", item.StoreID, "error", err)
	} else {
		s.scraper.ApplyStoreDelay(item.ProductURL, store.MinDelay())
	}

	snap, err := s.fetchWithRetry(ctx, item.ProductURL)
	if err != nil {
		return err
	}

	oldPrice := item.CurrentPrice
	now := time.Now().UTC()

	history := model.PriceHistory{
		ItemID:      item.ID,
		Price:       snap.Price,
		Currency:    snap.Currency,
		IsAvailable: snap.IsAvailable,
		CheckedAt:   now,
	}
	if err := s.store.AddPriceHistory(ctx, &history); err != nil {
		return fmt.Errorf("add price history: %w", err)
	}

	item.UpdatePrice(snap.Price, snap.Currency, snap.IsAvailable, now)
	if snap.Title != "" && item.Name == "" {
		item.Name = snap.Title
	}
	if snap.ImageURL != "" && item.ImageURL == "" {
		item.ImageURL = snap.ImageURL
	}
	if err := s.store.UpdateTrackedItem(ctx, item); err != nil {
		return fmt.Errorf("update item: %w", err)
	}

	if err := s.alerts.Evaluate(ctx, item, oldPrice, snap.Price); err != nil {
		return fmt.Errorf("evaluate alerts: %w", err)
	}
	return nil
}

// fetchWithRetry retries transient fetch failures with capped
// exponential backoff. Extraction failures (no price on the page) are
// permanent and fail immediately.
func (s *Scheduler) fetchWithRetry(ctx context.Context, rawURL string) (*scraper.Snapshot, error) {
	backoff := retry.WithMaxRetries(maxRetries, retry.WithCappedDuration(retryCap, retry.NewExponential(s.retryBase)))

	var snap *scraper.Snapshot
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var err error
		snap, err = s.scraper.FetchSnapshot(ctx, rawURL)
		if err == nil {
			return nil
		}
		var fetchErr *scraper.FetchError
		if errors.As(err, &fetchErr) {
			s.log.Warn("transient fetch failure, retrying", "url", rawURL, "error", err)
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}
