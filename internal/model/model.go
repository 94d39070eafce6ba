// Package model defines the domain types used across the application.
package model

import "time"

// Store describes a supported retailer.
type Store struct {
	ID         int64
	Name       string
	Domain     string // domain pattern, may contain a wildcard TLD segment (e.g. "amazon.*")
	LogoURL    string
	IsActive   bool
	MinDelayMs int
	CreatedAt  time.Time
}

// MinDelay returns the minimum inter-request delay for this store's domain.
func (s *Store) MinDelay() time.Duration {
	return time.Duration(s.MinDelayMs) * time.Millisecond
}

// TrackedItem is a product record shared between all users tracking the
// same URL. User-specific settings live on UserTrackedItem.
type TrackedItem struct {
	ID            int64
	StoreID       int64
	Name          string
	ImageURL      string
	ProductURL    string
	SKU           string
	CurrentPrice  *float64
	Currency      string
	IsAvailable   bool
	LastCheckedAt *time.Time
	CreatedAt     time.Time
}

// UpdatePrice applies a fresh snapshot to the item.
func (t *TrackedItem) UpdatePrice(price float64, currency string, available bool, at time.Time) {
	t.CurrentPrice = &price
	if currency != "" {
		t.Currency = currency
	}
	t.IsAvailable = available
	t.LastCheckedAt = &at
}

// TrackingStatus is the lifecycle state of a user's tracking association.
type TrackingStatus string

// Supported tracking statuses.
const (
	StatusTracking  TrackingStatus = "tracking"
	StatusPaused    TrackingStatus = "paused"
	StatusPurchased TrackingStatus = "purchased"
)

// UserTrackedItem links a user to a TrackedItem with personal settings.
// Unique per (UserID, ItemID).
type UserTrackedItem struct {
	ID          int64
	UserID      int64
	ItemID      int64
	TargetPrice *float64
	IsTracking  bool
	Status      TrackingStatus
	Notes       string
	CreatedAt   time.Time
}

// HasReachedTargetPrice reports whether the given price satisfies the
// user's personal target.
func (u *UserTrackedItem) HasReachedTargetPrice(price float64) bool {
	return u.TargetPrice != nil && price <= *u.TargetPrice
}

// SetStatus changes the lifecycle status and keeps IsTracking consistent.
func (u *UserTrackedItem) SetStatus(status TrackingStatus) {
	u.Status = status
	switch status {
	case StatusPaused, StatusPurchased:
		u.IsTracking = false
	case StatusTracking:
		u.IsTracking = true
	}
}

// PriceHistory is one append-only price snapshot for an item.
type PriceHistory struct {
	ID          int64
	ItemID      int64
	Price       float64
	Currency    string
	IsAvailable bool
	CheckedAt   time.Time
}

// AlertKind is the type of condition a PriceAlert evaluates.
type AlertKind string

// Supported alert kinds.
const (
	AlertPriceDrop      AlertKind = "price_drop"
	AlertTargetReached  AlertKind = "target_reached"
	AlertPercentageDrop AlertKind = "percentage_drop"
	AlertBackInStock    AlertKind = "back_in_stock"
)

// PriceAlert is a user-defined rule evaluated against successive price
// checks of one item.
type PriceAlert struct {
	ID              int64
	UserID          int64
	ItemID          int64
	Kind            AlertKind
	TriggerPrice    *float64
	PercentageDrop  *float64
	IsActive        bool
	LastTriggeredAt *time.Time
	CreatedAt       time.Time
}

// NotificationChannel is the delivery mechanism for a notification.
type NotificationChannel string

// Supported delivery channels.
const (
	ChannelEmail    NotificationChannel = "email"
	ChannelTelegram NotificationChannel = "telegram"
)

// NotificationStatus tracks delivery progress.
type NotificationStatus string

// Notification lifecycle states.
const (
	NotificationPending NotificationStatus = "pending"
	NotificationSent    NotificationStatus = "sent"
	NotificationFailed  NotificationStatus = "failed"
)

// Notification is a single outbound message owned by a user. Created by
// the alert engine, delivered and mutated only by the dispatcher.
type Notification struct {
	ID        int64
	UserID    int64
	AlertID   *int64
	Type      string
	Channel   NotificationChannel
	Status    NotificationStatus
	Title     string
	Message   string
	Data      string // JSON payload: item name, URL, old/new price
	SentAt    *time.Time
	CreatedAt time.Time
}

// NotificationData is the structured payload carried on a notification.
type NotificationData struct {
	ItemID     int64    `json:"itemId"`
	ItemName   string   `json:"itemName"`
	ProductURL string   `json:"productUrl"`
	OldPrice   *float64 `json:"oldPrice,omitempty"`
	NewPrice   float64  `json:"newPrice"`
}

// User is the boundary view of an account: just enough to deliver
// notifications. Authentication lives outside this service.
type User struct {
	ID                 int64
	Email              string
	Name               string
	TelegramChatID     *int64
	EmailNotifications bool
	CreatedAt          time.Time
}
