package scraper

import (
	"context"
	"regexp"
	"strings"

	"pricewatch/internal/price"
)

// VeralabAdapter extracts snapshots from veralab.it product pages. The
// shop runs on Shopify, so JSON-LD comes first and the fallbacks use
// Shopify theme selectors.
type VeralabAdapter struct {
	fetcher *Fetcher
}

var _ Adapter = (*VeralabAdapter)(nil)

var veralabHost = hostPattern(`veralab\.it`)

var veralabPriceSelectors = []string{
	".price-item--regular",
	".price__regular .price-item",
	"[data-product-price]",
	".product__price",
	".price",
	`[itemprop="price"]`,
	`span[class*="price"]`,
}

// Rendered pages sometimes carry the price only as loose text like
// "26,00 €"; last-resort scan over the body.
var veralabTextPriceExpr = regexp.MustCompile(`(\d+[.,]\d{2})\s*€`)

var veralabSKUExpr = regexp.MustCompile(`/prodotti/(\d+)`)

// NewVeralabAdapter wires the shared page fetcher.
func NewVeralabAdapter(fetcher *Fetcher) *VeralabAdapter {
	return &VeralabAdapter{fetcher: fetcher}
}

// StoreName identifies the retailer.
func (v *VeralabAdapter) StoreName() string { return "Veralab" }

// CanHandle matches the veralab.it hostname.
func (v *VeralabAdapter) CanHandle(rawURL string) bool {
	return matchesHost(rawURL, veralabHost)
}

// Scrape prefers JSON-LD, then theme selectors, then a body-text scan.
func (v *VeralabAdapter) Scrape(ctx context.Context, rawURL string) (*Snapshot, error) {
	doc, err := v.fetcher.Document(ctx, rawURL)
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
	for _, selector := range veralabPriceSelectors {
		el := doc.Find(selector).First()
		text := strings.TrimSpace(el.AttrOr("content", ""))
		if text == "" {
			text = strings.TrimSpace(el.AttrOr("data-product-price", ""))
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
		if m := veralabTextPriceExpr.FindStringSubmatch(doc.Find("body").Text()); m != nil {
			if value, perr := price.Parse(m[1]); perr == nil {
				snap.Price = value
				snap.Currency = CurrencyEUR
				priceFound = true
			}
		}
	}
	if !priceFound {
		return nil, ErrPriceNotFound
	}

	snap.Title = firstText(doc, ".product__title", "h1.product-title", "h1")
	snap.ImageURL = firstAttr(doc, "content", `meta[property="og:image"]`)
	if snap.ImageURL == "" {
		snap.ImageURL = firstAttr(doc, "src", ".product__media img", `[itemprop="image"]`, ".product-image img")
	}
	if m := veralabSKUExpr.FindStringSubmatch(rawURL); m != nil {
		snap.SKU = m[1]
	}

	soldOut := doc.Find(".sold-out, .product-form--sold-out").Length() > 0
	snap.IsAvailable = !soldOut

	return snap, nil
}
