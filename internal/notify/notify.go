// Package notify delivers pending notifications over their channels.
// The alert engine only enqueues; everything outbound happens here.
package notify

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"pricewatch/internal/model"
	"pricewatch/internal/storage"
)

const (
	defaultDispatchInterval = 5 * time.Minute
	defaultBatchSize        = 50
)

// ErrChannelUnavailable means the user cannot receive this channel
// (no telegram chat linked, no email address).
var ErrChannelUnavailable = errors.New("channel unavailable for user")

// Sender delivers one notification over one channel.
type Sender interface {
	Channel() model.NotificationChannel
	Send(ctx context.Context, user *model.User, n *model.Notification) error
}

// Dispatcher drains the pending notification queue on a fixed interval,
// one batch per channel per tick. Delivery outcomes are persisted per
// notification so a crash never loses or duplicates more than the batch
// in flight.
type Dispatcher struct {
	store   storage.Storage
	senders []Sender
	log     *slog.Logger

	interval  time.Duration
	batchSize int
}

// NewDispatcher wires the senders; each covers one channel.
func NewDispatcher(store storage.Storage, log *slog.Logger, senders ...Sender) *Dispatcher {
	return &Dispatcher{
		store:     store,
		senders:   senders,
		log:       log,
		interval:  defaultDispatchInterval,
		batchSize: defaultBatchSize,
	}
}

// SetDispatchInterval overrides the default 5-minute dispatch interval.
func (d *Dispatcher) SetDispatchInterval(interval time.Duration) {
	d.interval = interval
}

// SetBatchSize overrides the per-channel batch size.
func (d *Dispatcher) SetBatchSize(n int) {
	d.batchSize = n
}

// Run starts the dispatch loop, blocking until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	d.dispatchAll(ctx)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.dispatchAll(ctx)
		}
	}
}

func (d *Dispatcher) dispatchAll(ctx context.Context) {
	for _, sender := range d.senders {
		if ctx.Err() != nil {
			return
		}
		d.dispatchChannel(ctx, sender)
	}
}

func (d *Dispatcher) dispatchChannel(ctx context.Context, sender Sender) {
	channel := sender.Channel()
	pending, err := d.store.ListPendingNotifications(ctx, channel, d.batchSize)
	if err != nil {
		d.log.Error("list pending notifications", "channel", channel, "error", err)
		return
	}

	sent, failed := 0, 0
	for i := range pending {
		if ctx.Err() != nil {
			return
		}
		n := &pending[i]

		user, err := d.store.GetUser(ctx, n.UserID)
		if err != nil {
			d.log.Error("load notification user", "notification_id", n.ID, "user_id", n.UserID, "error", err)
			if err := d.store.MarkNotificationFailed(ctx, n.ID); err != nil {
				d.log.Error("mark failed", "notification_id", n.ID, "error", err)
			}
			failed++
			continue
		}

		// A disabled channel is not a failure: the notification stays
		// pending and goes out if the user re-enables it.
		if !channelEnabled(user, channel) {
			continue
		}

		if err := sender.Send(ctx, user, n); err != nil {
			d.log.Error("send notification", "notification_id", n.ID, "channel", channel, "error", err)
			if err := d.store.MarkNotificationFailed(ctx, n.ID); err != nil {
				d.log.Error("mark failed", "notification_id", n.ID, "error", err)
			}
			failed++
			continue
		}
		if err := d.store.MarkNotificationSent(ctx, n.ID, time.Now().UTC()); err != nil {
			d.log.Error("mark sent", "notification_id", n.ID, "error", err)
		}
		sent++
	}

	if sent > 0 || failed > 0 {
		d.log.Info("dispatched notifications", "channel", channel, "sent", sent, "failed", failed)
	}
}

func channelEnabled(user *model.User, channel model.NotificationChannel) bool {
	switch channel {
	case model.ChannelEmail:
		return user.EmailNotifications && user.Email != ""
	case model.ChannelTelegram:
		return user.TelegramChatID != nil
	}
	return false
}
