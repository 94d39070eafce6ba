// Package alert decides whether a price transition fires user rules and
// turns firings into pending notifications.
package alert

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"pricewatch/internal/model"
	"pricewatch/internal/storage"
)

// Engine evaluates alert rules against successive price checks.
type Engine struct {
	store storage.Storage
	log   *slog.Logger
}

// NewEngine wires storage.
func NewEngine(store storage.Storage, log *slog.Logger) *Engine {
	return &Engine{store: store, log: log}
}

// Evaluate runs both alerting paths for one price event: the stored
// PriceAlert rules for the item and the per-user target prices on the
// tracking associations. oldPrice is nil when the item had no previous
// price. A rule that stays satisfied re-fires on every qualifying
// check; only LastTriggeredAt moves.
func (e *Engine) Evaluate(ctx context.Context, item *model.TrackedItem, oldPrice *float64, newPrice float64) error {
	alerts, err := e.store.ListActiveAlertsForItem(ctx, item.ID)
	if err != nil {
		return fmt.Errorf("list alerts for item %d: %w", item.ID, err)
	}

	for _, a := range alerts {
		if !shouldFire(&a, oldPrice, newPrice) {
			continue
		}
		if err := e.fireAlert(ctx, &a, item, oldPrice, newPrice); err != nil {
			e.log.Error("fire alert", "alert_id", a.ID, "item_id", item.ID, "error", err)
		}
	}

	if err := e.evaluateTargetPrices(ctx, item, oldPrice, newPrice); err != nil {
		e.log.Error("evaluate target prices", "item_id", item.ID, "error", err)
	}
	return nil
}

func shouldFire(a *model.PriceAlert, oldPrice *float64, newPrice float64) bool {
	switch a.Kind {
	case model.AlertTargetReached:
		return a.TriggerPrice != nil && newPrice <= *a.TriggerPrice
	case model.AlertPriceDrop:
		return oldPrice != nil && newPrice < *oldPrice
	case model.AlertPercentageDrop:
		if oldPrice == nil || a.PercentageDrop == nil || *oldPrice <= 0 {
			return false
		}
		drop := (*oldPrice - newPrice) / *oldPrice * 100
		return drop >= *a.PercentageDrop
	case model.AlertBackInStock:
		// The previous availability state is not tracked, so this kind
		// cannot fire yet. Rules of this kind are stored but inert.
		return false
	}
	return false
}

func (e *Engine) fireAlert(ctx context.Context, a *model.PriceAlert, item *model.TrackedItem, oldPrice *float64, newPrice float64) error {
	e.log.Info("alert fired", "alert_id", a.ID, "kind", a.Kind, "item_id", item.ID,
		"old_price", oldPrice, "new_price", newPrice)

	data, err := json.Marshal(model.NotificationData{
		ItemID:     item.ID,
		ItemName:   item.Name,
		ProductURL: item.ProductURL,
		OldPrice:   oldPrice,
		NewPrice:   newPrice,
	})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	for _, channel := range e.channelsFor(ctx, a.UserID) {
		alertID := a.ID
		n := &model.Notification{
			UserID:  a.UserID,
			AlertID: &alertID,
			Type:    string(a.Kind),
			Channel: channel,
			Title:   "Price Alert",
			Message: alertMessage(a.Kind, item, oldPrice, newPrice),
			Data:    string(data),
		}
		if err := e.store.CreateNotification(ctx, n); err != nil {
			return fmt.Errorf("create notification: %w", err)
		}
	}

	if err := e.store.MarkAlertTriggered(ctx, a.ID, time.Now().UTC()); err != nil {
		return fmt.Errorf("mark triggered: %w", err)
	}
	return nil
}

// evaluateTargetPrices is the second, independent alerting path: every
// actively tracking user with a personal target price gets their own
// target_reached notification, decoupled from PriceAlert rules.
func (e *Engine) evaluateTargetPrices(ctx context.Context, item *model.TrackedItem, oldPrice *float64, newPrice float64) error {
	trackers, err := e.store.ListItemTrackers(ctx, item.ID)
	if err != nil {
		return fmt.Errorf("list trackers: %w", err)
	}

	data, err := json.Marshal(model.NotificationData{
		ItemID:     item.ID,
		ItemName:   item.Name,
		ProductURL: item.ProductURL,
		OldPrice:   oldPrice,
		NewPrice:   newPrice,
	})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	for _, uti := range trackers {
		if !uti.HasReachedTargetPrice(newPrice) {
			continue
		}
		e.log.Info("target price reached", "user_id", uti.UserID, "item_id", item.ID,
			"target", *uti.TargetPrice, "new_price", newPrice)

		for _, channel := range e.channelsFor(ctx, uti.UserID) {
			n := &model.Notification{
				UserID:  uti.UserID,
				Type:    string(model.AlertTargetReached),
				Channel: channel,
				Title:   "Price Alert",
				Message: alertMessage(model.AlertTargetReached, item, oldPrice, newPrice),
				Data:    string(data),
			}
			if err := e.store.CreateNotification(ctx, n); err != nil {
				e.log.Error("create target notification", "user_id", uti.UserID, "error", err)
			}
		}
	}
	return nil
}

// channelsFor returns the delivery channels for a user: email always,
// telegram when a chat is linked.
func (e *Engine) channelsFor(ctx context.Context, userID int64) []model.NotificationChannel {
	channels := []model.NotificationChannel{model.ChannelEmail}
	user, err := e.store.GetUser(ctx, userID)
	if err != nil {
		e.log.Warn("load user for channels", "user_id", userID, "error", err)
		return channels
	}
	if user.TelegramChatID != nil {
		channels = append(channels, model.ChannelTelegram)
	}
	return channels
}

func alertMessage(kind model.AlertKind, item *model.TrackedItem, oldPrice *float64, newPrice float64) string {
	name := item.Name
	if name == "" {
		name = item.ProductURL
	}
	switch kind {
	case model.AlertTargetReached:
		return fmt.Sprintf("%s has reached your target price of %.2f %s!", name, newPrice, item.Currency)
	case model.AlertPriceDrop:
		if oldPrice != nil {
			pct := (*oldPrice - newPrice) / *oldPrice * 100
			return fmt.Sprintf("%s price dropped from %.2f to %.2f %s (-%.2f%%)",
				name, *oldPrice, newPrice, item.Currency, pct)
		}
		return fmt.Sprintf("%s price dropped to %.2f %s", name, newPrice, item.Currency)
	case model.AlertPercentageDrop:
		if oldPrice != nil {
			pct := (*oldPrice - newPrice) / *oldPrice * 100
			return fmt.Sprintf("%s price dropped by %.2f%%! Now %.2f %s", name, pct, newPrice, item.Currency)
		}
		return fmt.Sprintf("%s price dropped! Now %.2f %s", name, newPrice, item.Currency)
	default:
		return fmt.Sprintf("Price alert for %s", name)
	}
}
