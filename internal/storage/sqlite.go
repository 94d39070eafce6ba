package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver registration.

	"pricewatch/internal/model"
	"pricewatch/migrations"
)

const timeLayout = "2006-01-02T15:04:05Z"

// SQLite implements Storage backed by a SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at dsn and runs pending migrations.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=OFF"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("disable foreign keys: %w", err)
	}

	if err := migrations.Run(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// CreateUser inserts a user and populates its ID and CreatedAt.
func (s *SQLite) CreateUser(ctx context.Context, u *model.User) error {
	now := time.Now().UTC().Format(timeLayout)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (email, name, telegram_chat_id, email_notifications, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		u.Email, u.Name, u.TelegramChatID, boolToInt(u.EmailNotifications), now,
	)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	u.ID = id
	u.CreatedAt, _ = time.Parse(timeLayout, now)
	return nil
}

// GetUser returns a single user by ID.
func (s *SQLite) GetUser(ctx context.Context, id int64) (*model.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, email, name, telegram_chat_id, email_notifications, created_at
		 FROM users WHERE id = ?`, id,
	)
	var u model.User
	var emailNotif int
	var chatID sql.NullInt64
	var created string
	err := row.Scan(&u.ID, &u.Email, &u.Name, &chatID, &emailNotif, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	u.EmailNotifications = emailNotif == 1
	if chatID.Valid {
		u.TelegramChatID = &chatID.Int64
	}
	u.CreatedAt, _ = time.Parse(timeLayout, created)
	return &u, nil
}

// CreateStore inserts a store and populates its ID and CreatedAt.
func (s *SQLite) CreateStore(ctx context.Context, store *model.Store) error {
	now := time.Now().UTC().Format(timeLayout)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO stores (name, domain, logo_url, is_active, min_delay_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		store.Name, store.Domain, store.LogoURL, boolToInt(store.IsActive), store.MinDelayMs, now,
	)
	if err != nil {
		return fmt.Errorf("insert store: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	store.ID = id
	store.CreatedAt, _ = time.Parse(timeLayout, now)
	return nil
}

// GetStore returns a single store by ID.
func (s *SQLite) GetStore(ctx context.Context, id int64) (*model.Store, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, domain, logo_url, is_active, min_delay_ms, created_at
		 FROM stores WHERE id = ?`, id,
	)
	return scanStore(row)
}

// ListStores returns all stores ordered by ID.
func (s *SQLite) ListStores(ctx context.Context) ([]model.Store, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, domain, logo_url, is_active, min_delay_ms, created_at
		 FROM stores ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("query stores: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var stores []model.Store
	for rows.Next() {
		st, err := scanStore(rows)
		if err != nil {
			return nil, err
		}
		stores = append(stores, *st)
	}
	return stores, rows.Err()
}

const trackedItemColumns = `id, store_id, name, image_url, product_url, sku,
	current_price, currency, is_available, last_checked_at, created_at`

// CreateTrackedItem inserts an item and populates its ID and CreatedAt.
func (s *SQLite) CreateTrackedItem(ctx context.Context, item *model.TrackedItem) error {
	now := time.Now().UTC().Format(timeLayout)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO tracked_items (store_id, name, image_url, product_url, sku,
		   current_price, currency, is_available, last_checked_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.StoreID, item.Name, item.ImageURL, item.ProductURL, item.SKU,
		item.CurrentPrice, item.Currency, boolToInt(item.IsAvailable),
		formatNullTime(item.LastCheckedAt), now,
	)
	if err != nil {
		return fmt.Errorf("insert tracked item: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	item.ID = id
	item.CreatedAt, _ = time.Parse(timeLayout, now)
	return nil
}

// GetTrackedItem returns a single item by ID.
func (s *SQLite) GetTrackedItem(ctx context.Context, id int64) (*model.TrackedItem, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+trackedItemColumns+` FROM tracked_items WHERE id = ?`, id,
	)
	return scanTrackedItem(row)
}

// GetTrackedItemByURL returns the item with the given canonical URL.
func (s *SQLite) GetTrackedItemByURL(ctx context.Context, productURL string) (*model.TrackedItem, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+trackedItemColumns+` FROM tracked_items WHERE product_url = ?`, productURL,
	)
	return scanTrackedItem(row)
}

// UpdateTrackedItem persists changes to an existing item.
func (s *SQLite) UpdateTrackedItem(ctx context.Context, item *model.TrackedItem) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE tracked_items
		 SET store_id = ?, name = ?, image_url = ?, sku = ?, current_price = ?,
		     currency = ?, is_available = ?, last_checked_at = ?
		 WHERE id = ?`,
		item.StoreID, item.Name, item.ImageURL, item.SKU, item.CurrentPrice,
		item.Currency, boolToInt(item.IsAvailable), formatNullTime(item.LastCheckedAt), item.ID,
	)
	if err != nil {
		return fmt.Errorf("update tracked item: %w", err)
	}
	return nil
}

// ListActiveTrackedItems returns items that at least one user is
// actively tracking. Items nobody tracks are never scraped.
func (s *SQLite) ListActiveTrackedItems(ctx context.Context) ([]model.TrackedItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT i.id, i.store_id, i.name, i.image_url, i.product_url, i.sku,
		        i.current_price, i.currency, i.is_available, i.last_checked_at, i.created_at
		 FROM tracked_items i
		 JOIN user_tracked_items u ON u.item_id = i.id
		 WHERE u.is_tracking = 1 AND u.status = 'tracking'
		 ORDER BY i.id`,
	)
	if err != nil {
		return nil, fmt.Errorf("query active items: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var items []model.TrackedItem
	for rows.Next() {
		item, err := scanTrackedItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// DeleteTrackedItem removes an item together with its price history and
// alerts. Notifications survive with their alert link cleared.
func (s *SQLite) DeleteTrackedItem(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`UPDATE notifications SET alert_id = NULL
		 WHERE alert_id IN (SELECT id FROM price_alerts WHERE item_id = ?)`, id); err != nil {
		return fmt.Errorf("unlink notifications: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM price_alerts WHERE item_id = ?`, id); err != nil {
		return fmt.Errorf("delete alerts: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM price_history WHERE item_id = ?`, id); err != nil {
		return fmt.Errorf("delete price history: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM user_tracked_items WHERE item_id = ?`, id); err != nil {
		return fmt.Errorf("delete associations: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM tracked_items WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete tracked item: %w", err)
	}
	return tx.Commit()
}

const utiColumns = `id, user_id, item_id, target_price, is_tracking, status, notes, created_at`

// CreateUserTrackedItem inserts a tracking association.
func (s *SQLite) CreateUserTrackedItem(ctx context.Context, uti *model.UserTrackedItem) error {
	now := time.Now().UTC().Format(timeLayout)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO user_tracked_items (user_id, item_id, target_price, is_tracking, status, notes, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		uti.UserID, uti.ItemID, uti.TargetPrice, boolToInt(uti.IsTracking), string(uti.Status), uti.Notes, now,
	)
	if err != nil {
		return fmt.Errorf("insert user tracked item: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	uti.ID = id
	uti.CreatedAt, _ = time.Parse(timeLayout, now)
	return nil
}

// GetUserTrackedItem returns the association for (user, item).
func (s *SQLite) GetUserTrackedItem(ctx context.Context, userID, itemID int64) (*model.UserTrackedItem, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+utiColumns+` FROM user_tracked_items WHERE user_id = ? AND item_id = ?`,
		userID, itemID,
	)
	return scanUserTrackedItem(row)
}

// ListUserTrackedItems returns all associations for a user.
func (s *SQLite) ListUserTrackedItems(ctx context.Context, userID int64) ([]model.UserTrackedItem, error) {
	return s.queryUserTrackedItems(ctx,
		`SELECT `+utiColumns+` FROM user_tracked_items WHERE user_id = ? ORDER BY id`, userID)
}

// ListItemTrackers returns the actively tracking associations for an
// item, used for the per-user target price alerting path.
func (s *SQLite) ListItemTrackers(ctx context.Context, itemID int64) ([]model.UserTrackedItem, error) {
	return s.queryUserTrackedItems(ctx,
		`SELECT `+utiColumns+` FROM user_tracked_items
		 WHERE item_id = ? AND is_tracking = 1 ORDER BY id`, itemID)
}

func (s *SQLite) queryUserTrackedItems(ctx context.Context, query string, args ...any) ([]model.UserTrackedItem, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query user tracked items: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var list []model.UserTrackedItem
	for rows.Next() {
		uti, err := scanUserTrackedItem(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *uti)
	}
	return list, rows.Err()
}

// UpdateUserTrackedItem persists changes to an association.
func (s *SQLite) UpdateUserTrackedItem(ctx context.Context, uti *model.UserTrackedItem) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE user_tracked_items
		 SET target_price = ?, is_tracking = ?, status = ?, notes = ?
		 WHERE id = ?`,
		uti.TargetPrice, boolToInt(uti.IsTracking), string(uti.Status), uti.Notes, uti.ID,
	)
	if err != nil {
		return fmt.Errorf("update user tracked item: %w", err)
	}
	return nil
}

// DeleteUserTrackedItem removes the association for (user, item).
func (s *SQLite) DeleteUserTrackedItem(ctx context.Context, userID, itemID int64) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM user_tracked_items WHERE user_id = ? AND item_id = ?`, userID, itemID,
	)
	if err != nil {
		return fmt.Errorf("delete user tracked item: %w", err)
	}
	return nil
}

// CountItemTrackers counts remaining associations for an item.
func (s *SQLite) CountItemTrackers(ctx context.Context, itemID int64) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM user_tracked_items WHERE item_id = ?`, itemID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count trackers: %w", err)
	}
	return count, nil
}

// AddPriceHistory appends one snapshot row.
func (s *SQLite) AddPriceHistory(ctx context.Context, h *model.PriceHistory) error {
	at := h.CheckedAt
	if at.IsZero() {
		at = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO price_history (item_id, price, currency, is_available, checked_at)
		 VALUES (?, ?, ?, ?, ?)`,
		h.ItemID, h.Price, h.Currency, boolToInt(h.IsAvailable), at.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("insert price history: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	h.ID = id
	h.CheckedAt = at
	return nil
}

// ListPriceHistory returns an item's snapshots, newest first.
func (s *SQLite) ListPriceHistory(ctx context.Context, itemID int64) ([]model.PriceHistory, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, item_id, price, currency, is_available, checked_at
		 FROM price_history WHERE item_id = ? ORDER BY checked_at DESC, id DESC`, itemID,
	)
	if err != nil {
		return nil, fmt.Errorf("query price history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var history []model.PriceHistory
	for rows.Next() {
		var h model.PriceHistory
		var avail int
		var checked string
		if err := rows.Scan(&h.ID, &h.ItemID, &h.Price, &h.Currency, &avail, &checked); err != nil {
			return nil, fmt.Errorf("scan price history: %w", err)
		}
		h.IsAvailable = avail == 1
		h.CheckedAt, _ = time.Parse(timeLayout, checked)
		history = append(history, h)
	}
	return history, rows.Err()
}

const alertColumns = `id, user_id, item_id, kind, trigger_price, percentage_drop,
	is_active, last_triggered_at, created_at`

// CreateAlert inserts an alert rule.
func (s *SQLite) CreateAlert(ctx context.Context, a *model.PriceAlert) error {
	now := time.Now().UTC().Format(timeLayout)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO price_alerts (user_id, item_id, kind, trigger_price, percentage_drop, is_active, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.UserID, a.ItemID, string(a.Kind), a.TriggerPrice, a.PercentageDrop, boolToInt(a.IsActive), now,
	)
	if err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	a.ID = id
	a.CreatedAt, _ = time.Parse(timeLayout, now)
	return nil
}

// GetAlert returns a single alert by ID.
func (s *SQLite) GetAlert(ctx context.Context, id int64) (*model.PriceAlert, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+alertColumns+` FROM price_alerts WHERE id = ?`, id,
	)
	return scanAlert(row)
}

// ListAlerts returns all alerts for a user, newest first.
func (s *SQLite) ListAlerts(ctx context.Context, userID int64) ([]model.PriceAlert, error) {
	return s.queryAlerts(ctx,
		`SELECT `+alertColumns+` FROM price_alerts WHERE user_id = ? ORDER BY id DESC`, userID)
}

// ListActiveAlertsForItem returns the active alert rules for an item.
func (s *SQLite) ListActiveAlertsForItem(ctx context.Context, itemID int64) ([]model.PriceAlert, error) {
	return s.queryAlerts(ctx,
		`SELECT `+alertColumns+` FROM price_alerts
		 WHERE item_id = ? AND is_active = 1 ORDER BY id`, itemID)
}

func (s *SQLite) queryAlerts(ctx context.Context, query string, args ...any) ([]model.PriceAlert, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var alerts []model.PriceAlert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, *a)
	}
	return alerts, rows.Err()
}

// UpdateAlert persists changes to an alert rule.
func (s *SQLite) UpdateAlert(ctx context.Context, a *model.PriceAlert) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE price_alerts
		 SET kind = ?, trigger_price = ?, percentage_drop = ?, is_active = ?
		 WHERE id = ?`,
		string(a.Kind), a.TriggerPrice, a.PercentageDrop, boolToInt(a.IsActive), a.ID,
	)
	if err != nil {
		return fmt.Errorf("update alert: %w", err)
	}
	return nil
}

// MarkAlertTriggered records when the rule last fired.
func (s *SQLite) MarkAlertTriggered(ctx context.Context, id int64, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE price_alerts SET last_triggered_at = ? WHERE id = ?`,
		at.UTC().Format(timeLayout), id,
	)
	if err != nil {
		return fmt.Errorf("mark alert triggered: %w", err)
	}
	return nil
}

// DeleteAlert removes an alert rule.
func (s *SQLite) DeleteAlert(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM price_alerts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete alert: %w", err)
	}
	return nil
}

const notificationColumns = `id, user_id, alert_id, type, channel, status, title,
	message, data, sent_at, created_at`

// CreateNotification inserts a pending notification.
func (s *SQLite) CreateNotification(ctx context.Context, n *model.Notification) error {
	now := time.Now().UTC().Format(timeLayout)
	if n.Status == "" {
		n.Status = model.NotificationPending
	}
	if n.Channel == "" {
		n.Channel = model.ChannelEmail
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO notifications (user_id, alert_id, type, channel, status, title, message, data, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.UserID, n.AlertID, n.Type, string(n.Channel), string(n.Status), n.Title, n.Message, n.Data, now,
	)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	n.ID = id
	n.CreatedAt, _ = time.Parse(timeLayout, now)
	return nil
}

// ListPendingNotifications returns up to limit pending notifications
// for one delivery channel, oldest first.
func (s *SQLite) ListPendingNotifications(ctx context.Context, channel model.NotificationChannel, limit int) ([]model.Notification, error) {
	return s.queryNotifications(ctx,
		`SELECT `+notificationColumns+` FROM notifications
		 WHERE status = 'pending' AND channel = ? ORDER BY id LIMIT ?`,
		string(channel), limit)
}

// ListNotifications returns a user's notifications, newest first.
func (s *SQLite) ListNotifications(ctx context.Context, userID int64, limit int) ([]model.Notification, error) {
	return s.queryNotifications(ctx,
		`SELECT `+notificationColumns+` FROM notifications
		 WHERE user_id = ? ORDER BY id DESC LIMIT ?`, userID, limit)
}

func (s *SQLite) queryNotifications(ctx context.Context, query string, args ...any) ([]model.Notification, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var list []model.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *n)
	}
	return list, rows.Err()
}

// MarkNotificationSent records a successful delivery.
func (s *SQLite) MarkNotificationSent(ctx context.Context, id int64, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET status = 'sent', sent_at = ? WHERE id = ?`,
		at.UTC().Format(timeLayout), id,
	)
	if err != nil {
		return fmt.Errorf("mark notification sent: %w", err)
	}
	return nil
}

// MarkNotificationFailed records a delivery failure.
func (s *SQLite) MarkNotificationFailed(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET status = 'failed' WHERE id = ?`, id,
	)
	if err != nil {
		return fmt.Errorf("mark notification failed: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func formatNullTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	v := t.UTC().Format(timeLayout)
	return &v
}

type scannable interface {
	Scan(dest ...any) error
}

func scanStore(row scannable) (*model.Store, error) {
	var st model.Store
	var isActive int
	var created string
	err := row.Scan(&st.ID, &st.Name, &st.Domain, &st.LogoURL, &isActive, &st.MinDelayMs, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan store: %w", err)
	}
	st.IsActive = isActive == 1
	st.CreatedAt, _ = time.Parse(timeLayout, created)
	return &st, nil
}

func scanTrackedItem(row scannable) (*model.TrackedItem, error) {
	var item model.TrackedItem
	var price sql.NullFloat64
	var avail int
	var lastChecked sql.NullString
	var created string
	err := row.Scan(&item.ID, &item.StoreID, &item.Name, &item.ImageURL, &item.ProductURL,
		&item.SKU, &price, &item.Currency, &avail, &lastChecked, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan tracked item: %w", err)
	}
	if price.Valid {
		item.CurrentPrice = &price.Float64
	}
	item.IsAvailable = avail == 1
	if lastChecked.Valid {
		t, _ := time.Parse(timeLayout, lastChecked.String)
		item.LastCheckedAt = &t
	}
	item.CreatedAt, _ = time.Parse(timeLayout, created)
	return &item, nil
}

func scanUserTrackedItem(row scannable) (*model.UserTrackedItem, error) {
	var uti model.UserTrackedItem
	var target sql.NullFloat64
	var tracking int
	var status, created string
	err := row.Scan(&uti.ID, &uti.UserID, &uti.ItemID, &target, &tracking, &status, &uti.Notes, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user tracked item: %w", err)
	}
	if target.Valid {
		uti.TargetPrice = &target.Float64
	}
	uti.IsTracking = tracking == 1
	uti.Status = model.TrackingStatus(status)
	uti.CreatedAt, _ = time.Parse(timeLayout, created)
	return &uti, nil
}

func scanAlert(row scannable) (*model.PriceAlert, error) {
	var a model.PriceAlert
	var trigger, pct sql.NullFloat64
	var active int
	var kind, created string
	var triggered sql.NullString
	err := row.Scan(&a.ID, &a.UserID, &a.ItemID, &kind, &trigger, &pct, &active, &triggered, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan alert: %w", err)
	}
	a.Kind = model.AlertKind(kind)
	if trigger.Valid {
		a.TriggerPrice = &trigger.Float64
	}
	if pct.Valid {
		a.PercentageDrop = &pct.Float64
	}
	a.IsActive = active == 1
	if triggered.Valid {
		t, _ := time.Parse(timeLayout, triggered.String)
		a.LastTriggeredAt = &t
	}
	a.CreatedAt, _ = time.Parse(timeLayout, created)
	return &a, nil
}

func scanNotification(row scannable) (*model.Notification, error) {
	var n model.Notification
	var alertID sql.NullInt64
	var channel, status, created string
	var sentAt sql.NullString
	err := row.Scan(&n.ID, &n.UserID, &alertID, &n.Type, &channel, &status, &n.Title,
		&n.Message, &n.Data, &sentAt, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan notification: %w", err)
	}
	if alertID.Valid {
		n.AlertID = &alertID.Int64
	}
	n.Channel = model.NotificationChannel(channel)
	n.Status = model.NotificationStatus(status)
	if sentAt.Valid {
		t, _ := time.Parse(timeLayout, sentAt.String)
		n.SentAt = &t
	}
	n.CreatedAt, _ = time.Parse(timeLayout, created)
	return &n, nil
}
