package scraper

import (
	"context"
	"strings"

	"pricewatch/internal/price"
)

// ZalandoAdapter extracts snapshots from zalando.* product pages.
// Zalando embeds schema.org Product JSON-LD, which is preferred over
// markup selectors.
type ZalandoAdapter struct {
	fetcher *Fetcher
}

var _ Adapter = (*ZalandoAdapter)(nil)

var zalandoHost = hostPattern(`zalando\.[a-z.]+`)

var zalandoPriceSelectors = []string{
	`[data-testid="product-price"]`,
	`span[class*="price"]`,
	`[itemprop="price"]`,
}

// NewZalandoAdapter wires the shared page fetcher.
func NewZalandoAdapter(fetcher *Fetcher) *ZalandoAdapter {
	return &ZalandoAdapter{fetcher: fetcher}
}

// StoreName identifies the retailer.
func (z *ZalandoAdapter) StoreName() string { return "Zalando" }

// CanHandle matches zalando.* hostnames.
func (z *ZalandoAdapter) CanHandle(rawURL string) bool {
	return matchesHost(rawURL, zalandoHost)
}

// Scrape prefers the JSON-LD product node and falls back to selector
// heuristics when the structured data is missing or incomplete.
func (z *ZalandoAdapter) Scrape(ctx context.Context, rawURL string) (*Snapshot, error) {
	doc, err := z.fetcher.Document(ctx, rawURL)
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
	for _, selector := range zalandoPriceSelectors {
		text := strings.TrimSpace(doc.Find(selector).First().Text())
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

	snap.Title = firstText(doc, "h1", `[itemprop="name"]`)
	snap.ImageURL = firstAttr(doc, "src", `img[class*="product"]`)
	// A price in the markup without an explicit stock-out marker counts
	// as available.
	snap.IsAvailable = true

	return snap, nil
}
