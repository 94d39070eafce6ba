package scraper

import (
	"context"
	"regexp"
	"strings"

	"pricewatch/internal/price"
)

// AmazonAdapter extracts snapshots from amazon.* product pages.
type AmazonAdapter struct {
	fetcher *Fetcher
}

var _ Adapter = (*AmazonAdapter)(nil)

var amazonHost = hostPattern(`amazon\.[a-z.]+`)

// Amazon shows prices in several markups depending on the page variant;
// first selector with a parseable price wins.
var amazonPriceSelectors = []string{
	".a-price .a-offscreen",
	"#priceblock_ourprice",
	"#priceblock_dealprice",
	"#corePrice_feature_div .a-offscreen",
	".a-price-whole",
}

var amazonStockOutPhrases = []string{
	"currently unavailable",
	"non disponibile",
	"derzeit nicht verfügbar",
	"actuellement indisponible",
	"no disponible",
}

var asinExpr = regexp.MustCompile(`/dp/([A-Z0-9]{10})`)

// NewAmazonAdapter wires the shared page fetcher.
func NewAmazonAdapter(fetcher *Fetcher) *AmazonAdapter {
	return &AmazonAdapter{fetcher: fetcher}
}

// StoreName identifies the retailer.
func (a *AmazonAdapter) StoreName() string { return "Amazon" }

// CanHandle matches amazon.* hostnames (amazon.it, amazon.com,
// amazon.co.uk) but not look-alikes such as famazon.it.
func (a *AmazonAdapter) CanHandle(rawURL string) bool {
	return matchesHost(rawURL, amazonHost)
}

// Scrape fetches the product page and extracts price, title, image,
// ASIN and availability.
func (a *AmazonAdapter) Scrape(ctx context.Context, rawURL string) (*Snapshot, error) {
	doc, err := a.fetcher.Document(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{Currency: CurrencyEUR}
	priceFound := false
	for _, selector := range amazonPriceSelectors {
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

	snap.Title = firstText(doc, "#productTitle", "h1.a-size-large")
	snap.ImageURL = firstAttr(doc, "src", "#landingImage", "#imgBlkFront", ".a-dynamic-image")

	if m := asinExpr.FindStringSubmatch(rawURL); m != nil {
		snap.SKU = m[1]
	}

	availability := strings.ToLower(doc.Find("#availability").Text())
	snap.IsAvailable = !containsAny(availability, amazonStockOutPhrases)

	return snap, nil
}
