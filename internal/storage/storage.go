// Package storage defines the persistence interface and its implementations.
package storage

import (
	"context"
	"errors"
	"time"

	"pricewatch/internal/model"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Storage is the interface for all persistence operations.
type Storage interface {
	// Users.
	CreateUser(ctx context.Context, u *model.User) error
	GetUser(ctx context.Context, id int64) (*model.User, error)

	// Stores.
	CreateStore(ctx context.Context, s *model.Store) error
	GetStore(ctx context.Context, id int64) (*model.Store, error)
	ListStores(ctx context.Context) ([]model.Store, error)

	// Tracked items (shared product records).
	CreateTrackedItem(ctx context.Context, item *model.TrackedItem) error
	GetTrackedItem(ctx context.Context, id int64) (*model.TrackedItem, error)
	GetTrackedItemByURL(ctx context.Context, productURL string) (*model.TrackedItem, error)
	UpdateTrackedItem(ctx context.Context, item *model.TrackedItem) error
	// ListActiveTrackedItems returns items with at least one association
	// that is actively tracking.
	ListActiveTrackedItems(ctx context.Context) ([]model.TrackedItem, error)
	// DeleteTrackedItem removes an item with its price history and
	// alerts; notifications keep their rows but lose the alert link.
	DeleteTrackedItem(ctx context.Context, id int64) error

	// Per-user tracking associations.
	CreateUserTrackedItem(ctx context.Context, uti *model.UserTrackedItem) error
	GetUserTrackedItem(ctx context.Context, userID, itemID int64) (*model.UserTrackedItem, error)
	ListUserTrackedItems(ctx context.Context, userID int64) ([]model.UserTrackedItem, error)
	ListItemTrackers(ctx context.Context, itemID int64) ([]model.UserTrackedItem, error)
	UpdateUserTrackedItem(ctx context.Context, uti *model.UserTrackedItem) error
	DeleteUserTrackedItem(ctx context.Context, userID, itemID int64) error
	CountItemTrackers(ctx context.Context, itemID int64) (int, error)

	// Price history (append-only).
	AddPriceHistory(ctx context.Context, h *model.PriceHistory) error
	ListPriceHistory(ctx context.Context, itemID int64) ([]model.PriceHistory, error)

	// Price alerts.
	CreateAlert(ctx context.Context, a *model.PriceAlert) error
	GetAlert(ctx context.Context, id int64) (*model.PriceAlert, error)
	ListAlerts(ctx context.Context, userID int64) ([]model.PriceAlert, error)
	ListActiveAlertsForItem(ctx context.Context, itemID int64) ([]model.PriceAlert, error)
	UpdateAlert(ctx context.Context, a *model.PriceAlert) error
	MarkAlertTriggered(ctx context.Context, id int64, at time.Time) error
	DeleteAlert(ctx context.Context, id int64) error

	// Notifications.
	CreateNotification(ctx context.Context, n *model.Notification) error
	ListPendingNotifications(ctx context.Context, channel model.NotificationChannel, limit int) ([]model.Notification, error)
	ListNotifications(ctx context.Context, userID int64, limit int) ([]model.Notification, error)
	MarkNotificationSent(ctx context.Context, id int64, at time.Time) error
	MarkNotificationFailed(ctx context.Context, id int64) error

	Close() error
}
