// Package scraper turns retail product pages into normalized price
// snapshots. Each supported store has its own adapter; a generic
// adapter covers everything else.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Snapshot is a single extraction result for a product page.
type Snapshot struct {
	Price       float64
	Currency    string
	IsAvailable bool
	Title       string
	ImageURL    string
	SKU         string
}

// Adapter extracts snapshots from one retailer's page markup.
type Adapter interface {
	// CanHandle reports whether this adapter's domain pattern matches
	// the URL's hostname.
	CanHandle(rawURL string) bool
	// Scrape fetches the page and extracts a snapshot.
	Scrape(ctx context.Context, rawURL string) (*Snapshot, error)
	// StoreName identifies the retailer this adapter handles.
	StoreName() string
}

// ErrPriceNotFound means the page was fetched but no selector yielded a
// parseable price. Not retriable without a markup fix.
var ErrPriceNotFound = errors.New("price not found on page")

// FetchError is a transient network or HTTP-level failure.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ScrapeError wraps any adapter failure with the offending URL.
type ScrapeError struct {
	URL string
	Err error
}

func (e *ScrapeError) Error() string {
	return fmt.Sprintf("scrape %s: %v", e.URL, e.Err)
}

func (e *ScrapeError) Unwrap() error { return e.Err }

// Supported currency codes; EUR is the fallback when a page gives no
// currency hint.
const (
	CurrencyEUR = "EUR"
	CurrencyUSD = "USD"
	CurrencyGBP = "GBP"
	CurrencyCHF = "CHF"
)

// detectCurrency guesses the currency from symbols or codes embedded in
// price text. Returns "" when nothing matches.
func detectCurrency(text string) string {
	switch {
	case strings.Contains(text, "€") || strings.Contains(text, "EUR"):
		return CurrencyEUR
	case strings.Contains(text, "£") || strings.Contains(text, "GBP"):
		return CurrencyGBP
	case strings.Contains(text, "CHF"):
		return CurrencyCHF
	case strings.Contains(text, "$") || strings.Contains(text, "USD"):
		return CurrencyUSD
	}
	return ""
}

var numberExpr = regexp.MustCompile(`\d[\d.,]*`)

// priceToken pulls the numeric portion out of mixed price text like
// "€ 1.234,56" or "Now: $19.99".
func priceToken(text string) string {
	return numberExpr.FindString(text)
}

// hostPattern compiles an anchored, case-insensitive hostname pattern
// for a store domain such as `amazon\.[a-z.]+`. An optional "www."
// prefix is always tolerated; anchoring prevents look-alike domains
// (famazon.it, amazon-fake.com) from matching.
func hostPattern(domain string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)^(www\.)?` + domain + `$`)
}

// matchesHost parses rawURL and tests its hostname against pattern.
func matchesHost(rawURL string, pattern *regexp.Regexp) bool {
	host, err := hostOf(rawURL)
	if err != nil {
		return false
	}
	return pattern.MatchString(host)
}

// firstText returns the trimmed text of the first selector that yields
// a non-empty match.
func firstText(doc *goquery.Document, selectors ...string) string {
	for _, sel := range selectors {
		if text := strings.TrimSpace(doc.Find(sel).First().Text()); text != "" {
			return text
		}
	}
	return ""
}

// firstAttr returns the named attribute of the first selector that
// carries it.
func firstAttr(doc *goquery.Document, attr string, selectors ...string) string {
	for _, sel := range selectors {
		if v, ok := doc.Find(sel).First().Attr(attr); ok && v != "" {
			return v
		}
	}
	return ""
}

func containsAny(text string, phrases []string) bool {
	for _, phrase := range phrases {
		if strings.Contains(text, phrase) {
			return true
		}
	}
	return false
}
