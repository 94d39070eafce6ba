package scraper

import (
	"context"
	"strings"

	"pricewatch/internal/price"
)

// EbayAdapter extracts snapshots from ebay.* listing pages.
type EbayAdapter struct {
	fetcher *Fetcher
}

var _ Adapter = (*EbayAdapter)(nil)

var ebayHost = hostPattern(`ebay\.[a-z.]+`)

var ebayPriceSelectors = []string{
	".x-price-primary .ux-textspans",
	`[itemprop="price"]`,
	".mainPrice",
	".notranslate",
}

var ebayStockOutPhrases = []string{
	"sold",
	"out of stock",
	"non disponibile",
	"esaurito",
	"ausverkauft",
}

// NewEbayAdapter wires the shared page fetcher.
func NewEbayAdapter(fetcher *Fetcher) *EbayAdapter {
	return &EbayAdapter{fetcher: fetcher}
}

// StoreName identifies the retailer.
func (e *EbayAdapter) StoreName() string { return "eBay" }

// CanHandle matches ebay.* hostnames but not look-alikes like febay.it.
func (e *EbayAdapter) CanHandle(rawURL string) bool {
	return matchesHost(rawURL, ebayHost)
}

// Scrape fetches the listing page and extracts price, title, image,
// item number and availability.
func (e *EbayAdapter) Scrape(ctx context.Context, rawURL string) (*Snapshot, error) {
	doc, err := e.fetcher.Document(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{Currency: CurrencyEUR}
	priceFound := false
	for _, selector := range ebayPriceSelectors {
		text := strings.TrimSpace(doc.Find(selector).First().Text())
		if text == "" {
			// Some listings put the price in the content attribute.
			text, _ = doc.Find(selector).First().Attr("content")
			text = strings.TrimSpace(text)
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

	snap.Title = firstText(doc, "h1.x-item-title__mainTitle", ".it-ttl")
	snap.ImageURL = firstAttr(doc, "src", "img.ux-image-magnify__image--original", "#icImg")
	snap.SKU = firstText(doc, ".ux-labels-values__values-content")

	availability := strings.ToLower(doc.Find(".ux-action").Text())
	snap.IsAvailable = !containsAny(availability, ebayStockOutPhrases)

	return snap, nil
}
