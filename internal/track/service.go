// Package track is the boundary service for the inbound tracking
// operations: start/stop tracking, manual refresh, preview and alert
// management. Ownership checks live here, not in storage.
package track

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"time"

	"pricewatch/internal/model"
	"pricewatch/internal/scraper"
	"pricewatch/internal/storage"
)

// ErrForbidden is returned when a user operates on a record they do not
// own or track.
var ErrForbidden = errors.New("access denied")

// ErrAlreadyTracked is returned when the user already tracks the item.
var ErrAlreadyTracked = errors.New("item already tracked")

// ErrInvalidAlert is returned when an alert rule misses its kind's
// required parameter.
var ErrInvalidAlert = errors.New("invalid alert parameters")

// PriceChecker runs a single on-demand price check.
type PriceChecker interface {
	CheckItemPrice(ctx context.Context, itemID int64) error
}

// Service implements the inbound operations.
type Service struct {
	store   storage.Storage
	scraper *scraper.Service
	checker PriceChecker
	log     *slog.Logger
}

// NewService wires storage, the scrape orchestrator and the on-demand
// price checker.
func NewService(store storage.Storage, svc *scraper.Service, checker PriceChecker, log *slog.Logger) *Service {
	return &Service{store: store, scraper: svc, checker: checker, log: log}
}

// TrackItem starts tracking the product at rawURL for a user. The first
// scrape seeds the shared item and its initial price-history row; if
// another user already tracks the same URL the item record is reused.
func (s *Service) TrackItem(ctx context.Context, userID int64, rawURL string, targetPrice *float64, notes string) (*model.TrackedItem, error) {
	store, err := s.resolveStore(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	item, err := s.store.GetTrackedItemByURL(ctx, rawURL)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		item, err = s.createItemFromScrape(ctx, store.ID, rawURL)
		if err != nil {
			return nil, err
		}
	case err != nil:
		return nil, fmt.Errorf("look up item: %w", err)
	}

	if _, err := s.store.GetUserTrackedItem(ctx, userID, item.ID); err == nil {
		return nil, ErrAlreadyTracked
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("look up association: %w", err)
	}

	uti := model.UserTrackedItem{
		UserID:      userID,
		ItemID:      item.ID,
		TargetPrice: targetPrice,
		IsTracking:  true,
		Status:      model.StatusTracking,
		Notes:       notes,
	}
	if err := s.store.CreateUserTrackedItem(ctx, &uti); err != nil {
		return nil, fmt.Errorf("create association: %w", err)
	}

	s.log.Info("tracking started", "user_id", userID, "item_id", item.ID, "url", rawURL)
	return item, nil
}

func (s *Service) createItemFromScrape(ctx context.Context, storeID int64, rawURL string) (*model.TrackedItem, error) {
	snap, err := s.scraper.FetchSnapshot(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	item := &model.TrackedItem{
		StoreID:     storeID,
		Name:        snap.Title,
		ImageURL:    snap.ImageURL,
		ProductURL:  rawURL,
		SKU:         snap.SKU,
		Currency:    snap.Currency,
		IsAvailable: snap.IsAvailable,
	}
	item.UpdatePrice(snap.Price, snap.Currency, snap.IsAvailable, now)
	if err := s.store.CreateTrackedItem(ctx, item); err != nil {
		return nil, fmt.Errorf("create item: %w", err)
	}

	history := model.PriceHistory{
		ItemID:      item.ID,
		Price:       snap.Price,
		Currency:    snap.Currency,
		IsAvailable: snap.IsAvailable,
		CheckedAt:   now,
	}
	if err := s.store.AddPriceHistory(ctx, &history); err != nil {
		return nil, fmt.Errorf("seed price history: %w", err)
	}
	return item, nil
}

// StopTracking removes the user's association. The shared item and its
// price history are deleted only when the last tracker leaves.
func (s *Service) StopTracking(ctx context.Context, userID, itemID int64) error {
	if _, err := s.store.GetUserTrackedItem(ctx, userID, itemID); err != nil {
		return err
	}
	if err := s.store.DeleteUserTrackedItem(ctx, userID, itemID); err != nil {
		return fmt.Errorf("delete association: %w", err)
	}

	count, err := s.store.CountItemTrackers(ctx, itemID)
	if err != nil {
		return fmt.Errorf("count trackers: %w", err)
	}
	if count == 0 {
		if err := s.store.DeleteTrackedItem(ctx, itemID); err != nil {
			return fmt.Errorf("delete orphaned item: %w", err)
		}
		s.log.Info("orphaned item removed", "item_id", itemID)
	}
	return nil
}

// RefreshPrice runs an immediate price check for an item the user
// tracks. Failures propagate unmodified; a human is waiting on them.
func (s *Service) RefreshPrice(ctx context.Context, userID, itemID int64) error {
	if err := s.authorize(ctx, userID, itemID); err != nil {
		return err
	}
	return s.checker.CheckItemPrice(ctx, itemID)
}

// PreviewItem scrapes a URL without persisting anything. It shares the
// rate limiter with every other scrape path.
func (s *Service) PreviewItem(ctx context.Context, rawURL string) (*scraper.Snapshot, error) {
	return s.scraper.FetchSnapshot(ctx, rawURL)
}

// SetStatus transitions the user's tracking association between
// tracking, paused and purchased.
func (s *Service) SetStatus(ctx context.Context, userID, itemID int64, status model.TrackingStatus) error {
	switch status {
	case model.StatusTracking, model.StatusPaused, model.StatusPurchased:
	default:
		return fmt.Errorf("unknown status %q", status)
	}

	uti, err := s.store.GetUserTrackedItem(ctx, userID, itemID)
	if err != nil {
		return err
	}
	uti.SetStatus(status)
	if err := s.store.UpdateUserTrackedItem(ctx, uti); err != nil {
		return fmt.Errorf("update association: %w", err)
	}
	return nil
}

// SetTargetPrice updates (or clears) the user's personal target price.
func (s *Service) SetTargetPrice(ctx context.Context, userID, itemID int64, target *float64) error {
	uti, err := s.store.GetUserTrackedItem(ctx, userID, itemID)
	if err != nil {
		return err
	}
	uti.TargetPrice = target
	if err := s.store.UpdateUserTrackedItem(ctx, uti); err != nil {
		return fmt.Errorf("update association: %w", err)
	}
	return nil
}

// CreateAlert validates and stores an alert rule for an item the user
// tracks.
func (s *Service) CreateAlert(ctx context.Context, userID, itemID int64, kind model.AlertKind, triggerPrice, percentageDrop *float64) (*model.PriceAlert, error) {
	if err := s.authorize(ctx, userID, itemID); err != nil {
		return nil, err
	}

	switch kind {
	case model.AlertTargetReached:
		if triggerPrice == nil || *triggerPrice <= 0 {
			return nil, fmt.Errorf("%w: target_reached needs a positive trigger price", ErrInvalidAlert)
		}
	case model.AlertPercentageDrop:
		if percentageDrop == nil || *percentageDrop <= 0 || *percentageDrop > 100 {
			return nil, fmt.Errorf("%w: percentage_drop needs a threshold in (0, 100]", ErrInvalidAlert)
		}
	case model.AlertPriceDrop, model.AlertBackInStock:
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidAlert, kind)
	}

	a := model.PriceAlert{
		UserID:         userID,
		ItemID:         itemID,
		Kind:           kind,
		TriggerPrice:   triggerPrice,
		PercentageDrop: percentageDrop,
		IsActive:       true,
	}
	if err := s.store.CreateAlert(ctx, &a); err != nil {
		return nil, fmt.Errorf("create alert: %w", err)
	}
	return &a, nil
}

// ListAlerts returns the user's alert rules, newest first.
func (s *Service) ListAlerts(ctx context.Context, userID int64) ([]model.PriceAlert, error) {
	return s.store.ListAlerts(ctx, userID)
}

// DeleteAlert removes an alert rule the user owns.
func (s *Service) DeleteAlert(ctx context.Context, userID, alertID int64) error {
	a, err := s.store.GetAlert(ctx, alertID)
	if err != nil {
		return err
	}
	if a.UserID != userID {
		return ErrForbidden
	}
	return s.store.DeleteAlert(ctx, alertID)
}

// ListNotifications returns the user's recent notifications.
func (s *Service) ListNotifications(ctx context.Context, userID int64, limit int) ([]model.Notification, error) {
	return s.store.ListNotifications(ctx, userID, limit)
}

// Stats summarizes a user's tracked items.
type Stats struct {
	TotalItems       int
	ActivelyTracking int
	TargetsReached   int
	// PotentialSavings sums first-seen minus current price over items
	// that got cheaper since tracking began.
	PotentialSavings float64
}

// TrackingStats computes per-user totals from the tracked set.
func (s *Service) TrackingStats(ctx context.Context, userID int64) (*Stats, error) {
	associations, err := s.store.ListUserTrackedItems(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list associations: %w", err)
	}

	stats := &Stats{TotalItems: len(associations)}
	for _, uti := range associations {
		if uti.IsTracking {
			stats.ActivelyTracking++
		}

		item, err := s.store.GetTrackedItem(ctx, uti.ItemID)
		if err != nil {
			s.log.Warn("stats: load item", "item_id", uti.ItemID, "error", err)
			continue
		}
		if item.CurrentPrice == nil {
			continue
		}
		if uti.HasReachedTargetPrice(*item.CurrentPrice) {
			stats.TargetsReached++
		}

		history, err := s.store.ListPriceHistory(ctx, uti.ItemID)
		if err != nil {
			s.log.Warn("stats: load history", "item_id", uti.ItemID, "error", err)
			continue
		}
		if len(history) == 0 {
			continue
		}
		first := history[len(history)-1].Price
		if drop := first - *item.CurrentPrice; drop > 0 {
			stats.PotentialSavings += drop
		}
	}
	return stats, nil
}

// authorize confirms the item exists and the user tracks it.
func (s *Service) authorize(ctx context.Context, userID, itemID int64) error {
	if _, err := s.store.GetTrackedItem(ctx, itemID); err != nil {
		return err
	}
	if _, err := s.store.GetUserTrackedItem(ctx, userID, itemID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrForbidden
		}
		return err
	}
	return nil
}

// resolveStore matches the URL's hostname against the store domain
// patterns; a wildcard pattern such as "amazon.*" covers every country
// TLD. Falls back to the catch-all store ("*") when nothing matches.
func (s *Service) resolveStore(ctx context.Context, rawURL string) (*model.Store, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return nil, fmt.Errorf("invalid product url %q", rawURL)
	}
	host := strings.ToLower(u.Hostname())

	stores, err := s.store.ListStores(ctx)
	if err != nil {
		return nil, fmt.Errorf("list stores: %w", err)
	}

	var fallback *model.Store
	for i := range stores {
		st := &stores[i]
		if !st.IsActive {
			continue
		}
		if st.Domain == "*" || st.Domain == "" {
			if fallback == nil {
				fallback = st
			}
			continue
		}
		if domainPattern(st.Domain).MatchString(host) {
			return st, nil
		}
	}
	if fallback != nil {
		return fallback, nil
	}
	return nil, fmt.Errorf("no store configured for host %q", host)
}

// domainPattern compiles a store domain pattern ("amazon.*",
// "zalando.*") into an anchored hostname matcher tolerating a "www."
// prefix.
func domainPattern(pattern string) *regexp.Regexp {
	escaped := strings.ReplaceAll(regexp.QuoteMeta(pattern), `\*`, `[a-z.]+`)
	return regexp.MustCompile(`(?i)^(www\.)?` + escaped + `$`)
}
