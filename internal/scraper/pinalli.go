package scraper

import (
	"context"
	"regexp"
	"strings"

	"pricewatch/internal/price"
)

// PinalliAdapter extracts snapshots from pinalli.it product pages.
type PinalliAdapter struct {
	fetcher *Fetcher
}

var _ Adapter = (*PinalliAdapter)(nil)

var pinalliHost = hostPattern(`pinalli\.it`)

var pinalliPriceSelectors = []string{
	`[data-testid="price"]`,
	".product-price",
	".price",
	`[class*="price"]`,
	`[itemprop="price"]`,
	".product-info-price",
	".price-wrapper",
}

var pinalliStockOutPhrases = []string{
	"out of stock",
	"esaurito",
	"non disponibile",
	"sold out",
}

// Product URLs end in a numeric article reference.
var pinalliSKUExpr = regexp.MustCompile(`/(\d{4,})(?:[/.?#]|$)`)

// NewPinalliAdapter wires the shared page fetcher.
func NewPinalliAdapter(fetcher *Fetcher) *PinalliAdapter {
	return &PinalliAdapter{fetcher: fetcher}
}

// StoreName identifies the retailer.
func (p *PinalliAdapter) StoreName() string { return "Pinalli" }

// CanHandle matches the pinalli.it hostname.
func (p *PinalliAdapter) CanHandle(rawURL string) bool {
	return matchesHost(rawURL, pinalliHost)
}

// Scrape prefers JSON-LD and falls back to selector heuristics.
func (p *PinalliAdapter) Scrape(ctx context.Context, rawURL string) (*Snapshot, error) {
	doc, err := p.fetcher.Document(ctx, rawURL)
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
	for _, selector := range pinalliPriceSelectors {
		el := doc.Find(selector).First()
		text := strings.TrimSpace(el.AttrOr("content", ""))
		if text == "" {
			text = strings.TrimSpace(el.Text())
		}
		if text == "" {
			text = strings.TrimSpace(el.AttrOr("data-price", ""))
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

	snap.Title = firstText(doc, "h1.product-name", `h1[class*="product"]`, "h1")
	snap.ImageURL = firstAttr(doc, "content", `meta[property="og:image"]`)
	if snap.ImageURL == "" {
		snap.ImageURL = firstAttr(doc, "src", `[itemprop="image"]`, ".product-image img", `img[class*="product"]`)
	}
	if m := pinalliSKUExpr.FindStringSubmatch(rawURL); m != nil {
		snap.SKU = m[1]
	}

	page := strings.ToLower(doc.Text())
	snap.IsAvailable = !containsAny(page, pinalliStockOutPhrases)

	return snap, nil
}
