package scraper

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// jsonldProduct mirrors the subset of a schema.org Product node that
// shops embed in <script type="application/ld+json"> blocks.
type jsonldProduct struct {
	Type   string          `json:"@type"`
	Name   string          `json:"name"`
	SKU    string          `json:"sku"`
	Image  json.RawMessage `json:"image"`
	Offers json.RawMessage `json:"offers"`
}

type jsonldOffer struct {
	Price         json.Number `json:"price"`
	PriceCurrency string      `json:"priceCurrency"`
	Availability  string      `json:"availability"`
}

// productFromJSONLD walks every JSON-LD script block in the document
// and returns a snapshot from the first Product node carrying a price.
// Returns nil when the page exposes no usable structured data.
func productFromJSONLD(doc *goquery.Document) *Snapshot {
	var found *Snapshot
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		for _, node := range jsonldNodes(sel.Text()) {
			snap := snapshotFromProduct(node)
			if snap != nil {
				found = snap
				return false
			}
		}
		return true
	})
	return found
}

// jsonldNodes decodes a script body that may hold a single node or an
// array of nodes; malformed JSON is skipped.
func jsonldNodes(body string) []jsonldProduct {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil
	}
	if strings.HasPrefix(body, "[") {
		var nodes []jsonldProduct
		if err := json.Unmarshal([]byte(body), &nodes); err != nil {
			return nil
		}
		return nodes
	}
	var node jsonldProduct
	if err := json.Unmarshal([]byte(body), &node); err != nil {
		return nil
	}
	return []jsonldProduct{node}
}

func snapshotFromProduct(node jsonldProduct) *Snapshot {
	if !strings.EqualFold(node.Type, "Product") || len(node.Offers) == 0 {
		return nil
	}

	offer, ok := firstOffer(node.Offers)
	if !ok {
		return nil
	}
	priceValue, err := offer.Price.Float64()
	if err != nil || priceValue <= 0 {
		return nil
	}

	snap := &Snapshot{
		Price:       priceValue,
		Currency:    normalizeCurrency(offer.PriceCurrency),
		IsAvailable: strings.Contains(offer.Availability, "InStock"),
		Title:       node.Name,
		SKU:         node.SKU,
		ImageURL:    firstImage(node.Image),
	}
	return snap
}

// firstOffer handles both a single offers object and an offers array.
func firstOffer(raw json.RawMessage) (jsonldOffer, bool) {
	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "[") {
		var offers []jsonldOffer
		if err := json.Unmarshal(raw, &offers); err != nil || len(offers) == 0 {
			return jsonldOffer{}, false
		}
		return offers[0], true
	}
	var offer jsonldOffer
	if err := json.Unmarshal(raw, &offer); err != nil {
		return jsonldOffer{}, false
	}
	return offer, true
}

// firstImage handles image given as a string or an array of strings.
func firstImage(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return single
	}
	var many []string
	if err := json.Unmarshal(raw, &many); err == nil && len(many) > 0 {
		return many[0]
	}
	return ""
}

func normalizeCurrency(code string) string {
	switch strings.ToUpper(strings.TrimSpace(code)) {
	case CurrencyEUR:
		return CurrencyEUR
	case CurrencyUSD:
		return CurrencyUSD
	case CurrencyGBP:
		return CurrencyGBP
	case CurrencyCHF:
		return CurrencyCHF
	default:
		return ""
	}
}
