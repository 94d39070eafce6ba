package track

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"pricewatch/internal/model"
	"pricewatch/internal/scraper"
	"pricewatch/internal/storage"
)

const productPage = `<html><body>
<span id="productTitle">Espresso Machine</span>
<div class="a-price"><span class="a-offscreen">249,99 €</span></div>
<div id="availability">In stock</div>
</body></html>`

type mockHTTP struct {
	body   string
	status int
}

func (m *mockHTTP) Do(req *http.Request) (*http.Response, error) {
	status := m.status
	if status == 0 {
		status = http.StatusOK
	}
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewBufferString(m.body)),
		Request:    req,
	}, nil
}

type stubChecker struct {
	checked []int64
	err     error
}

func (c *stubChecker) CheckItemPrice(_ context.Context, itemID int64) error {
	c.checked = append(c.checked, itemID)
	return c.err
}

type env struct {
	store   *storage.SQLite
	checker *stubChecker
	svc     *Service
	user    *model.User
}

func newEnv(t *testing.T, client *mockHTTP) *env {
	t.Helper()
	ctx := context.Background()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	store, err := storage.NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("new sqlite: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	for _, st := range []model.Store{
		{Name: "Amazon", Domain: "amazon.*", IsActive: true, MinDelayMs: 0},
		{Name: "Zalando", Domain: "zalando.*", IsActive: true, MinDelayMs: 0},
		{Name: "Other", Domain: "*", IsActive: true, MinDelayMs: 0},
	} {
		s := st
		if err := store.CreateStore(ctx, &s); err != nil {
			t.Fatalf("create store: %v", err)
		}
	}

	user := &model.User{Email: "user@example.com", EmailNotifications: true}
	if err := store.CreateUser(ctx, user); err != nil {
		t.Fatalf("create user: %v", err)
	}

	fetcher := scraper.NewFetcher(client)
	registry := scraper.NewDefaultRegistry(fetcher, log)
	limiter := scraper.NewDomainLimiter(0)
	scrapeSvc := scraper.NewService(limiter, registry, log)

	checker := &stubChecker{}
	return &env{
		store:   store,
		checker: checker,
		svc:     NewService(store, scrapeSvc, checker, log),
		user:    user,
	}
}

func ptr(v float64) *float64 { return &v }

func TestTrackItemCreatesItemAndHistory(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, &mockHTTP{body: productPage})

	item, err := e.svc.TrackItem(ctx, e.user.ID, "https://www.amazon.it/dp/B0ESPRESSO", ptr(200), "for the office")
	if err != nil {
		t.Fatalf("track: %v", err)
	}

	if item.Name != "Espresso Machine" {
		t.Errorf("item name %q", item.Name)
	}
	if item.CurrentPrice == nil || *item.CurrentPrice != 249.99 {
		t.Errorf("current price %v, want 249.99", item.CurrentPrice)
	}

	stores, err := e.store.ListStores(ctx)
	if err != nil {
		t.Fatalf("list stores: %v", err)
	}
	if item.StoreID != stores[0].ID {
		t.Errorf("expected Amazon store %d, got %d", stores[0].ID, item.StoreID)
	}

	history, err := e.store.ListPriceHistory(ctx, item.ID)
	if err != nil {
		t.Fatalf("list history: %v", err)
	}
	if len(history) != 1 || history[0].Price != 249.99 {
		t.Fatalf("expected 1 seeded history row at 249.99, got %+v", history)
	}

	uti, err := e.store.GetUserTrackedItem(ctx, e.user.ID, item.ID)
	if err != nil {
		t.Fatalf("get association: %v", err)
	}
	if uti.TargetPrice == nil || *uti.TargetPrice != 200 {
		t.Errorf("target price %v, want 200", uti.TargetPrice)
	}
	if uti.Notes != "for the office" {
		t.Errorf("notes %q", uti.Notes)
	}
	if !uti.IsTracking || uti.Status != model.StatusTracking {
		t.Errorf("expected active tracking, got %+v", uti)
	}
}

func TestTrackItemReusesSharedItem(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, &mockHTTP{body: productPage})

	second := &model.User{Email: "second@example.com", EmailNotifications: true}
	if err := e.store.CreateUser(ctx, second); err != nil {
		t.Fatalf("create user: %v", err)
	}

	url := "https://www.amazon.it/dp/B0ESPRESSO"
	first, err := e.svc.TrackItem(ctx, e.user.ID, url, nil, "")
	if err != nil {
		t.Fatalf("first track: %v", err)
	}
	reused, err := e.svc.TrackItem(ctx, second.ID, url, nil, "")
	if err != nil {
		t.Fatalf("second track: %v", err)
	}
	if reused.ID != first.ID {
		t.Errorf("expected shared item %d, got %d", first.ID, reused.ID)
	}

	count, err := e.store.CountItemTrackers(ctx, first.ID)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 trackers, got %d", count)
	}
}

func TestTrackItemTwiceSameUser(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, &mockHTTP{body: productPage})

	url := "https://www.amazon.it/dp/B0ESPRESSO"
	if _, err := e.svc.TrackItem(ctx, e.user.ID, url, nil, ""); err != nil {
		t.Fatalf("track: %v", err)
	}
	if _, err := e.svc.TrackItem(ctx, e.user.ID, url, nil, ""); !errors.Is(err, ErrAlreadyTracked) {
		t.Fatalf("expected ErrAlreadyTracked, got %v", err)
	}
}

func TestTrackItemUnknownHostUsesFallbackStore(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, &mockHTTP{body: productPage})

	item, err := e.svc.TrackItem(ctx, e.user.ID, "https://shop.nowhere.example/p/1", nil, "")
	if err != nil {
		t.Fatalf("track: %v", err)
	}

	st, err := e.store.GetStore(ctx, item.StoreID)
	if err != nil {
		t.Fatalf("get store: %v", err)
	}
	if st.Domain != "*" {
		t.Errorf("expected fallback store, got %q", st.Domain)
	}
}

func TestTrackItemScrapeFailurePropagates(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, &mockHTTP{body: "gone", status: http.StatusNotFound})

	_, err := e.svc.TrackItem(ctx, e.user.ID, "https://www.amazon.it/dp/B0MISSING00", nil, "")
	var fetchErr *scraper.FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected *scraper.FetchError, got %v", err)
	}
}

func TestStopTrackingReferenceCountedDeletion(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, &mockHTTP{body: productPage})

	second := &model.User{Email: "second@example.com", EmailNotifications: true}
	if err := e.store.CreateUser(ctx, second); err != nil {
		t.Fatalf("create user: %v", err)
	}

	url := "https://www.amazon.it/dp/B0ESPRESSO"
	item, err := e.svc.TrackItem(ctx, e.user.ID, url, nil, "")
	if err != nil {
		t.Fatalf("track: %v", err)
	}
	if _, err := e.svc.TrackItem(ctx, second.ID, url, nil, ""); err != nil {
		t.Fatalf("track second: %v", err)
	}

	// First user leaves: the shared item and its history survive.
	if err := e.svc.StopTracking(ctx, e.user.ID, item.ID); err != nil {
		t.Fatalf("first stop: %v", err)
	}
	if _, err := e.store.GetTrackedItem(ctx, item.ID); err != nil {
		t.Fatalf("item should survive first stop: %v", err)
	}
	history, err := e.store.ListPriceHistory(ctx, item.ID)
	if err != nil {
		t.Fatalf("list history: %v", err)
	}
	if len(history) == 0 {
		t.Fatal("history should survive first stop")
	}

	// Last tracker leaves: item and history go away.
	if err := e.svc.StopTracking(ctx, second.ID, item.ID); err != nil {
		t.Fatalf("second stop: %v", err)
	}
	if _, err := e.store.GetTrackedItem(ctx, item.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected item gone, got %v", err)
	}
	history, err = e.store.ListPriceHistory(ctx, item.ID)
	if err != nil {
		t.Fatalf("list history after delete: %v", err)
	}
	if len(history) != 0 {
		t.Fatalf("expected history removed, got %d rows", len(history))
	}
}

func TestStopTrackingNotTracked(t *testing.T) {
	e := newEnv(t, &mockHTTP{body: productPage})
	err := e.svc.StopTracking(context.Background(), e.user.ID, 12345)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRefreshPrice(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, &mockHTTP{body: productPage})

	item, err := e.svc.TrackItem(ctx, e.user.ID, "https://www.amazon.it/dp/B0ESPRESSO", nil, "")
	if err != nil {
		t.Fatalf("track: %v", err)
	}

	if err := e.svc.RefreshPrice(ctx, e.user.ID, item.ID); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if len(e.checker.checked) != 1 || e.checker.checked[0] != item.ID {
		t.Errorf("expected check of item %d, got %v", item.ID, e.checker.checked)
	}

	// A user who does not track the item is rejected.
	stranger := &model.User{Email: "stranger@example.com"}
	if err := e.store.CreateUser(ctx, stranger); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if err := e.svc.RefreshPrice(ctx, stranger.ID, item.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	// A missing item is not found, not forbidden.
	if err := e.svc.RefreshPrice(ctx, e.user.ID, 99999); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	// Checker failures propagate unmodified.
	e.checker.err = errors.New("scrape exploded")
	if err := e.svc.RefreshPrice(ctx, e.user.ID, item.ID); !errors.Is(err, e.checker.err) {
		t.Fatalf("expected checker error, got %v", err)
	}
}

func TestPreviewItemPersistsNothing(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, &mockHTTP{body: productPage})

	snap, err := e.svc.PreviewItem(ctx, "https://www.amazon.it/dp/B0PREVIEW00")
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if snap.Price != 249.99 || snap.Title != "Espresso Machine" {
		t.Errorf("unexpected snapshot: %+v", snap)
	}

	if _, err := e.store.GetTrackedItemByURL(ctx, "https://www.amazon.it/dp/B0PREVIEW00"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("preview must not persist an item, got %v", err)
	}
}

func TestCreateAlertValidation(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, &mockHTTP{body: productPage})

	item, err := e.svc.TrackItem(ctx, e.user.ID, "https://www.amazon.it/dp/B0ESPRESSO", nil, "")
	if err != nil {
		t.Fatalf("track: %v", err)
	}

	tests := []struct {
		name    string
		kind    model.AlertKind
		trigger *float64
		pct     *float64
		wantErr bool
	}{
		{name: "valid target", kind: model.AlertTargetReached, trigger: ptr(200)},
		{name: "target without trigger", kind: model.AlertTargetReached, wantErr: true},
		{name: "target with zero trigger", kind: model.AlertTargetReached, trigger: ptr(0), wantErr: true},
		{name: "valid percentage", kind: model.AlertPercentageDrop, pct: ptr(15)},
		{name: "percentage over 100", kind: model.AlertPercentageDrop, pct: ptr(150), wantErr: true},
		{name: "percentage without threshold", kind: model.AlertPercentageDrop, wantErr: true},
		{name: "plain price drop", kind: model.AlertPriceDrop},
		{name: "back in stock", kind: model.AlertBackInStock},
		{name: "unknown kind", kind: model.AlertKind("bogus"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := e.svc.CreateAlert(ctx, e.user.ID, item.ID, tt.kind, tt.trigger, tt.pct)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidAlert) {
					t.Fatalf("expected ErrInvalidAlert, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("create: %v", err)
			}
			if !a.IsActive {
				t.Error("new alerts must start active")
			}
		})
	}
}

func TestCreateAlertRequiresTracking(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, &mockHTTP{body: productPage})

	item, err := e.svc.TrackItem(ctx, e.user.ID, "https://www.amazon.it/dp/B0ESPRESSO", nil, "")
	if err != nil {
		t.Fatalf("track: %v", err)
	}

	stranger := &model.User{Email: "stranger@example.com"}
	if err := e.store.CreateUser(ctx, stranger); err != nil {
		t.Fatalf("create user: %v", err)
	}

	if _, err := e.svc.CreateAlert(ctx, stranger.ID, item.ID, model.AlertPriceDrop, nil, nil); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestDeleteAlertOwnership(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, &mockHTTP{body: productPage})

	item, err := e.svc.TrackItem(ctx, e.user.ID, "https://www.amazon.it/dp/B0ESPRESSO", nil, "")
	if err != nil {
		t.Fatalf("track: %v", err)
	}
	a, err := e.svc.CreateAlert(ctx, e.user.ID, item.ID, model.AlertPriceDrop, nil, nil)
	if err != nil {
		t.Fatalf("create alert: %v", err)
	}

	stranger := &model.User{Email: "stranger@example.com"}
	if err := e.store.CreateUser(ctx, stranger); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if err := e.svc.DeleteAlert(ctx, stranger.ID, a.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	if err := e.svc.DeleteAlert(ctx, e.user.ID, a.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := e.store.GetAlert(ctx, a.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected alert gone, got %v", err)
	}
}

func TestSetStatusLifecycle(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, &mockHTTP{body: productPage})

	item, err := e.svc.TrackItem(ctx, e.user.ID, "https://www.amazon.it/dp/B0ESPRESSO", nil, "")
	if err != nil {
		t.Fatalf("track: %v", err)
	}

	if err := e.svc.SetStatus(ctx, e.user.ID, item.ID, model.StatusPaused); err != nil {
		t.Fatalf("pause: %v", err)
	}
	uti, err := e.store.GetUserTrackedItem(ctx, e.user.ID, item.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if uti.IsTracking || uti.Status != model.StatusPaused {
		t.Errorf("expected paused and not tracking, got %+v", uti)
	}

	if err := e.svc.SetStatus(ctx, e.user.ID, item.ID, model.StatusTracking); err != nil {
		t.Fatalf("resume: %v", err)
	}
	uti, err = e.store.GetUserTrackedItem(ctx, e.user.ID, item.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !uti.IsTracking {
		t.Error("expected tracking resumed")
	}

	if err := e.svc.SetStatus(ctx, e.user.ID, item.ID, model.TrackingStatus("bogus")); err == nil {
		t.Fatal("expected error for unknown status")
	}
}

func TestTrackingStats(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, &mockHTTP{body: productPage})

	item, err := e.svc.TrackItem(ctx, e.user.ID, "https://www.amazon.it/dp/B0ESPRESSO", ptr(260), "")
	if err != nil {
		t.Fatalf("track: %v", err)
	}

	// Simulate a later, cheaper check.
	item.UpdatePrice(199.99, "EUR", true, item.CreatedAt.Add(time.Hour))
	if err := e.store.UpdateTrackedItem(ctx, item); err != nil {
		t.Fatalf("update item: %v", err)
	}
	h := model.PriceHistory{ItemID: item.ID, Price: 199.99, Currency: "EUR", IsAvailable: true, CheckedAt: item.CreatedAt.Add(time.Hour)}
	if err := e.store.AddPriceHistory(ctx, &h); err != nil {
		t.Fatalf("add history: %v", err)
	}

	stats, err := e.svc.TrackingStats(ctx, e.user.ID)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalItems != 1 || stats.ActivelyTracking != 1 {
		t.Errorf("counts mismatch: %+v", stats)
	}
	if stats.TargetsReached != 1 {
		t.Errorf("expected 1 target reached (199.99 <= 260), got %d", stats.TargetsReached)
	}
	want := 249.99 - 199.99
	if diff := stats.PotentialSavings - want; diff > 0.001 || diff < -0.001 {
		t.Errorf("potential savings %v, want %v", stats.PotentialSavings, want)
	}
}
