package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/smtp"
	"strings"
	"sync"
	"testing"

	"pricewatch/internal/model"
	"pricewatch/internal/storage"
)

type fakeSender struct {
	mu      sync.Mutex
	channel model.NotificationChannel
	err     error
	sent    []int64
}

func (f *fakeSender) Channel() model.NotificationChannel { return f.channel }

func (f *fakeSender) Send(_ context.Context, _ *model.User, n *model.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, n.ID)
	return nil
}

func (f *fakeSender) sentIDs() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := make([]int64, len(f.sent))
	copy(cp, f.sent)
	return cp
}

func discardLog() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T) *storage.SQLite {
	t.Helper()
	s, err := storage.NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("new sqlite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func createUser(t *testing.T, s *storage.SQLite, u model.User) *model.User {
	t.Helper()
	if err := s.CreateUser(context.Background(), &u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return &u
}

func enqueue(t *testing.T, s *storage.SQLite, userID int64, channel model.NotificationChannel) *model.Notification {
	t.Helper()
	n := &model.Notification{
		UserID:  userID,
		Type:    string(model.AlertTargetReached),
		Channel: channel,
		Title:   "Price Alert",
		Message: "Headphones reached your target price of 95.00 EUR!",
	}
	if err := s.CreateNotification(context.Background(), n); err != nil {
		t.Fatalf("create notification: %v", err)
	}
	return n
}

func TestDispatcherSendsAndMarks(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	user := createUser(t, store, model.User{Email: "a@example.com", EmailNotifications: true})

	first := enqueue(t, store, user.ID, model.ChannelEmail)
	second := enqueue(t, store, user.ID, model.ChannelEmail)

	sender := &fakeSender{channel: model.ChannelEmail}
	d := NewDispatcher(store, discardLog(), sender)
	d.dispatchAll(ctx)

	got := sender.sentIDs()
	if len(got) != 2 || got[0] != first.ID || got[1] != second.ID {
		t.Fatalf("expected notifications %d,%d sent in order, got %v", first.ID, second.ID, got)
	}

	pending, err := store.ListPendingNotifications(ctx, model.ChannelEmail, 10)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected empty queue, got %d", len(pending))
	}

	all, err := store.ListNotifications(ctx, user.ID, 10)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	for _, n := range all {
		if n.Status != model.NotificationSent {
			t.Errorf("notification %d status %s, want sent", n.ID, n.Status)
		}
		if n.SentAt == nil {
			t.Errorf("notification %d missing SentAt", n.ID)
		}
	}
}

func TestDispatcherMarksFailed(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	user := createUser(t, store, model.User{Email: "a@example.com", EmailNotifications: true})
	n := enqueue(t, store, user.ID, model.ChannelEmail)

	sender := &fakeSender{channel: model.ChannelEmail, err: errors.New("smtp down")}
	d := NewDispatcher(store, discardLog(), sender)
	d.dispatchAll(ctx)

	all, err := store.ListNotifications(ctx, user.ID, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 1 || all[0].ID != n.ID {
		t.Fatalf("unexpected notifications: %v", all)
	}
	if all[0].Status != model.NotificationFailed {
		t.Errorf("status %s, want failed", all[0].Status)
	}
}

func TestDispatcherSkipsDisabledChannelWithoutMarking(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	optedOut := createUser(t, store, model.User{Email: "quiet@example.com", EmailNotifications: false})
	unlinked := createUser(t, store, model.User{Email: "nochat@example.com", EmailNotifications: true})

	enqueue(t, store, optedOut.ID, model.ChannelEmail)
	enqueue(t, store, unlinked.ID, model.ChannelTelegram)

	email := &fakeSender{channel: model.ChannelEmail}
	telegram := &fakeSender{channel: model.ChannelTelegram}
	d := NewDispatcher(store, discardLog(), email, telegram)
	d.dispatchAll(ctx)

	if len(email.sentIDs()) != 0 || len(telegram.sentIDs()) != 0 {
		t.Fatal("expected no deliveries for disabled channels")
	}

	// Both stay pending so they go out once the user re-enables.
	for _, ch := range []model.NotificationChannel{model.ChannelEmail, model.ChannelTelegram} {
		pending, err := store.ListPendingNotifications(ctx, ch, 10)
		if err != nil {
			t.Fatalf("list pending %s: %v", ch, err)
		}
		if len(pending) != 1 {
			t.Errorf("channel %s: expected 1 still pending, got %d", ch, len(pending))
		}
	}
}

func TestDispatcherHonorsBatchSize(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	user := createUser(t, store, model.User{Email: "a@example.com", EmailNotifications: true})

	for i := 0; i < 5; i++ {
		enqueue(t, store, user.ID, model.ChannelEmail)
	}

	sender := &fakeSender{channel: model.ChannelEmail}
	d := NewDispatcher(store, discardLog(), sender)
	d.SetBatchSize(3)
	d.dispatchAll(ctx)

	if got := len(sender.sentIDs()); got != 3 {
		t.Fatalf("expected 3 sent in one batch, got %d", got)
	}
	pending, err := store.ListPendingNotifications(ctx, model.ChannelEmail, 10)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected 2 left pending, got %d", len(pending))
	}
}

func TestEmailSenderBuildsMessage(t *testing.T) {
	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte

	sender := NewEmailSender(SMTPConfig{
		Host: "smtp.example.com", Port: 587, From: "alerts@example.com",
	}, discardLog())
	sender.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		return nil
	}

	old := 120.0
	data, _ := json.Marshal(model.NotificationData{
		ItemID: 1, ItemName: "Headphones",
		ProductURL: "https://www.amazon.it/dp/B0HEADPHONE",
		OldPrice:   &old, NewPrice: 95,
	})
	user := &model.User{Email: "buyer@example.com", EmailNotifications: true}
	n := &model.Notification{
		ID: 7, UserID: 1, Title: "Price Alert",
		Message: "Headphones has reached your target price of 95.00 EUR!",
		Data:    string(data),
	}

	if err := sender.Send(context.Background(), user, n); err != nil {
		t.Fatalf("send: %v", err)
	}

	if gotAddr != "smtp.example.com:587" {
		t.Errorf("addr = %s", gotAddr)
	}
	if gotFrom != "alerts@example.com" || len(gotTo) != 1 || gotTo[0] != "buyer@example.com" {
		t.Errorf("envelope mismatch: from=%s to=%v", gotFrom, gotTo)
	}

	body := string(gotMsg)
	for _, want := range []string{
		"Subject: Price Alert",
		"To: buyer@example.com",
		"Current price: 95.00",
		"Previous price: 120.00",
		"You save: 25.00 (20.8%)",
		"https://www.amazon.it/dp/B0HEADPHONE",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("message missing %q:\n%s", want, body)
		}
	}
}

func TestEmailSenderOmitsSavingsWithoutOldPrice(t *testing.T) {
	n := &model.Notification{
		Message: "Price alert",
		Data:    `{"itemId":1,"itemName":"X","productUrl":"https://x.example.com","newPrice":50}`,
	}
	body, err := renderEmailBody(n)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(body, "You save") {
		t.Errorf("unexpected savings block:\n%s", body)
	}
	if !strings.Contains(body, "Current price: 50.00") {
		t.Errorf("missing current price:\n%s", body)
	}
}

func TestTelegramTextIncludesURL(t *testing.T) {
	n := &model.Notification{
		Title:   "Price Alert",
		Message: "dropped to 95",
		Data:    `{"itemId":1,"itemName":"X","productUrl":"https://shop.example.com/p","newPrice":95}`,
	}
	text := telegramText(n)
	if !strings.HasPrefix(text, "Price Alert\n\n") {
		t.Errorf("missing title prefix: %q", text)
	}
	if !strings.Contains(text, "https://shop.example.com/p") {
		t.Errorf("missing product URL: %q", text)
	}
}
