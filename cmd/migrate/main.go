package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"pricewatch/migrations"
)

func main() {
	dbPath := flag.String("db", envOrDefault("DATABASE_PATH", "./data/pricewatch.db"), "path to sqlite database")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: migrate [-db path] <command>")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Commands:")
		fmt.Fprintln(os.Stderr, "  up          Migrate to the latest version")
		fmt.Fprintln(os.Stderr, "  up-one      Migrate one version up")
		fmt.Fprintln(os.Stderr, "  down        Roll back one version")
		fmt.Fprintln(os.Stderr, "  status      Show migration status")
		fmt.Fprintln(os.Stderr, "  version     Show current version")
		fmt.Fprintln(os.Stderr, "  reset       Roll back all migrations")
		fmt.Fprintln(os.Stderr, "  seed        Insert the default store descriptors")
		os.Exit(1)
	}

	db, err := sql.Open("sqlite", *dbPath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer func() { _ = db.Close() }()

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("sqlite3"); err != nil {
		log.Fatalf("set dialect: %v", err)
	}

	cmd := args[0]
	switch cmd {
	case "up":
		err = goose.Up(db, ".")
	case "up-one":
		err = goose.UpByOne(db, ".")
	case "down":
		err = goose.Down(db, ".")
	case "status":
		err = goose.Status(db, ".")
	case "version":
		err = goose.Version(db, ".")
	case "reset":
		err = goose.Reset(db, ".")
	case "seed":
		err = seedStores(db)
	default:
		log.Fatalf("unknown command: %s", cmd)
	}

	if err != nil {
		log.Fatalf("%s: %v", cmd, err)
	}
}

// defaultStores are the retailers with dedicated extraction adapters,
// plus the catch-all entry for everything else. The wildcard in the
// domain pattern covers country TLDs (amazon.it, amazon.de, ...).
var defaultStores = []struct {
	name   string
	domain string
}{
	{"Amazon", "amazon.*"},
	{"eBay", "ebay.*"},
	{"Lookfantastic", "lookfantastic.*"},
	{"Zalando", "zalando.*"},
	{"Sephora", "sephora.*"},
	{"Veralab", "veralab.it"},
	{"Pinalli", "pinalli.it"},
	{"Other", "*"},
}

// seedStores inserts the default store set; existing names are left
// untouched so reseeding is safe.
func seedStores(db *sql.DB) error {
	now := time.Now().UTC().Format("2006-01-02T15:04:05Z")
	for _, s := range defaultStores {
		_, err := db.Exec(
			`INSERT INTO stores (name, domain, is_active, min_delay_ms, created_at)
			 VALUES (?, ?, 1, 5000, ?)
			 ON CONFLICT (name) DO NOTHING`,
			s.name, s.domain, now,
		)
		if err != nil {
			return fmt.Errorf("seed store %s: %w", s.name, err)
		}
		fmt.Printf("seeded store %s (%s)\n", s.name, s.domain)
	}
	return nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
