package scraper

import (
	"context"
	"strings"

	"pricewatch/internal/price"
)

// LookfantasticAdapter extracts snapshots from lookfantastic.* product
// pages, which expose schema.org Product JSON-LD.
type LookfantasticAdapter struct {
	fetcher *Fetcher
}

var _ Adapter = (*LookfantasticAdapter)(nil)

var lookfantasticHost = hostPattern(`lookfantastic\.[a-z.]+`)

var lookfantasticPriceSelectors = []string{
	"[data-price-value]",
	".productPrice_price",
	`[itemprop="price"]`,
	".price",
}

// NewLookfantasticAdapter wires the shared page fetcher.
func NewLookfantasticAdapter(fetcher *Fetcher) *LookfantasticAdapter {
	return &LookfantasticAdapter{fetcher: fetcher}
}

// StoreName identifies the retailer.
func (l *LookfantasticAdapter) StoreName() string { return "Lookfantastic" }

// CanHandle matches lookfantastic.* hostnames.
func (l *LookfantasticAdapter) CanHandle(rawURL string) bool {
	return matchesHost(rawURL, lookfantasticHost)
}

// Scrape prefers JSON-LD and falls back to selector heuristics.
func (l *LookfantasticAdapter) Scrape(ctx context.Context, rawURL string) (*Snapshot, error) {
	doc, err := l.fetcher.Document(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	if snap := productFromJSONLD(doc); snap != nil {
		if snap.Currency == "" {
			snap.Currency = CurrencyEUR
		}
		return snap, nil
	}

	snap := &Snapshot{Currency: CurrencyEUR}
	priceFound := false
	for _, selector := range lookfantasticPriceSelectors {
		el := doc.Find(selector).First()
		text := strings.TrimSpace(el.AttrOr("data-price-value", ""))
		if text == "" {
			text = strings.TrimSpace(el.AttrOr("content", ""))
		}
		if text == "" {
			text = strings.TrimSpace(el.Text())
		}
		if text == "" {
			continue
		}
		token := priceToken(text)
		if token == "" {
			continue
		}
		value, perr := price.Parse(token)
		if perr != nil {
			continue
		}
		snap.Price = value
		if c := detectCurrency(text); c != "" {
			snap.Currency = c
		}
		priceFound = true
		break
	}
	if !priceFound {
		return nil, ErrPriceNotFound
	}

	snap.Title = firstText(doc, `[itemprop="name"]`, "h1")
	snap.ImageURL = firstAttr(doc, "src", `[itemprop="image"]`, "img.athenaProductImageCarousel_image")
	snap.IsAvailable = true

	return snap, nil
}
