package scraper

import (
	"context"
	"regexp"
	"strings"

	"pricewatch/internal/price"
)

// SephoraAdapter extracts snapshots from sephora.* product pages, which
// expose schema.org Product JSON-LD.
type SephoraAdapter struct {
	fetcher *Fetcher
}

var _ Adapter = (*SephoraAdapter)(nil)

var sephoraHost = hostPattern(`sephora\.[a-z.]+`)

var sephoraPriceSelectors = []string{
	`[data-at="price"]`,
	`[class*="Price"]`,
	`[itemprop="price"]`,
	".product-price",
}

var sephoraStockOutPhrases = []string{
	"out of stock",
	"esaurito",
	"non disponibile",
}

// Product URLs carry a numeric reference, sometimes prefixed with P.
var sephoraSKUExpr = regexp.MustCompile(`(?i)P?(\d{6,})`)

// NewSephoraAdapter wires the shared page fetcher.
func NewSephoraAdapter(fetcher *Fetcher) *SephoraAdapter {
	return &SephoraAdapter{fetcher: fetcher}
}

// StoreName identifies the retailer.
func (s *SephoraAdapter) StoreName() string { return "Sephora" }

// CanHandle matches sephora.* hostnames.
func (s *SephoraAdapter) CanHandle(rawURL string) bool {
	return matchesHost(rawURL, sephoraHost)
}

// Scrape prefers JSON-LD and falls back to selector heuristics.
func (s *SephoraAdapter) Scrape(ctx context.Context, rawURL string) (*Snapshot, error) {
	doc, err := s.fetcher.Document(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	if snap := productFromJSONLD(doc); snap != nil {
		if snap.Currency == "" {
			snap.Currency = CurrencyEUR
		}
		if snap.SKU == "" {
			if m := sephoraSKUExpr.FindStringSubmatch(rawURL); m != nil {
				snap.SKU = m[0]
			}
		}
		return snap, nil
	}

	snap := &Snapshot{Currency: CurrencyEUR}
	priceFound := false
	for _, selector := range sephoraPriceSelectors {
		el := doc.Find(selector).First()
		text := strings.TrimSpace(el.AttrOr("content", ""))
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

	snap.Title = firstText(doc, `[data-at="product_name"]`, `h1[class*="product"]`, "h1")
	snap.ImageURL = firstAttr(doc, "content", `meta[property="og:image"]`)
	if snap.ImageURL == "" {
		snap.ImageURL = firstAttr(doc, "src", `[itemprop="image"]`, `img[class*="product"]`)
	}
	if m := sephoraSKUExpr.FindStringSubmatch(rawURL); m != nil {
		snap.SKU = m[0]
	}

	page := strings.ToLower(doc.Text())
	snap.IsAvailable = !containsAny(page, sephoraStockOutPhrases)

	return snap, nil
}
