package scraper

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"pricewatch/internal/price"
)

// GenericAdapter is the last-resort strategy for stores without a
// dedicated adapter. It tries schema.org structured data first, then a
// set of markup-agnostic selectors built from common class and id name
// fragments.
type GenericAdapter struct {
	fetcher *Fetcher
}

var _ Adapter = (*GenericAdapter)(nil)

var genericPriceSelectors = []string{
	`[itemprop="price"]`,
	".price",
	".product-price",
	`[class*="price"]`,
	`[id*="price"]`,
	"[data-price]",
}

// NewGenericAdapter wires the shared page fetcher.
func NewGenericAdapter(fetcher *Fetcher) *GenericAdapter {
	return &GenericAdapter{fetcher: fetcher}
}

// StoreName identifies the fallback strategy.
func (g *GenericAdapter) StoreName() string { return "Generic" }

// CanHandle always reports true; the registry keeps this adapter last
// so it never shadows a store-specific one.
func (g *GenericAdapter) CanHandle(string) bool { return true }

// Scrape extracts a snapshot using JSON-LD when present, otherwise
// microdata/common-markup heuristics.
func (g *GenericAdapter) Scrape(ctx context.Context, rawURL string) (*Snapshot, error) {
	doc, err := g.fetcher.Document(ctx, rawURL)
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
	for _, selector := range genericPriceSelectors {
		doc.Find(selector).EachWithBreak(func(_ int, el *goquery.Selection) bool {
			text := strings.TrimSpace(el.AttrOr("content", ""))
			if text == "" {
				text = strings.TrimSpace(el.Text())
			}
			if text == "" {
				text = strings.TrimSpace(el.AttrOr("data-price", ""))
			}
			if text == "" {
				return true
			}
			token := priceToken(text)
			if token == "" {
				return true
			}
			value, perr := price.Parse(token)
			if perr != nil || value <= 0 {
				return true
			}
			snap.Price = value
			if c := detectCurrency(text); c != "" {
				snap.Currency = c
			}
			priceFound = true
			return false
		})
		if priceFound {
			break
		}
	}
	if !priceFound {
		return nil, ErrPriceNotFound
	}

	snap.Title = firstText(doc, `[itemprop="name"]`, "h1", "title")
	snap.ImageURL = firstAttr(doc, "src", `[itemprop="image"]`, "img.product-image", `img[class*="product"]`)
	// Without store-specific stock markup, a found price is the best
	// availability signal we have.
	snap.IsAvailable = true

	return snap, nil
}
