// Package migrations embeds the goose SQL migrations for the pricewatch
// schema (users, stores, tracked items, price history, alerts,
// notifications) and applies them on startup.
package migrations

import (
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
)

// FS contains the embedded SQL migration files.
//
//go:embed *.sql
var FS embed.FS

// Run migrates db to the latest schema version. The sqlite3 goose
// dialect covers modernc.org/sqlite as well.
func Run(db *sql.DB) error {
	goose.SetBaseFS(FS)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.Up(db, "."); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}
