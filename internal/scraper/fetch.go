package scraper

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

const (
	requestTimeout = 15 * time.Second
	maxBodyBytes   = 5 * 1024 * 1024
)

// Browser User-Agents rotated across requests so repeated checks do not
// present an identical fingerprint.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
}

// Fetcher downloads product pages and parses them into goquery
// documents. All adapters share one Fetcher.
type Fetcher struct {
	client HTTPClient
}

// NewFetcher creates a Fetcher; a nil client gets a default one with
// the standard request timeout.
func NewFetcher(client HTTPClient) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: requestTimeout}
	}
	return &Fetcher{client: client}
}

// Document fetches rawURL with browser-like headers and parses the body.
// Network and HTTP-status failures come back as *FetchError.
func (f *Fetcher) Document(ctx context.Context, rawURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: err}
	}
	req.Header.Set("User-Agent", userAgents[rand.Intn(len(userAgents))])
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", acceptLanguage(req.URL.Hostname()))
	req.Header.Set("Upgrade-Insecure-Requests", "1")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{URL: rawURL, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: fmt.Errorf("parse document: %w", err)}
	}
	return doc, nil
}

// acceptLanguage picks a locale matching the shop's country domain so
// pages render prices in their native format.
func acceptLanguage(host string) string {
	switch {
	case strings.HasSuffix(host, ".it"):
		return "it-IT,it;q=0.9,en-US;q=0.8,en;q=0.7"
	case strings.HasSuffix(host, ".de"):
		return "de-DE,de;q=0.9,en-US;q=0.8,en;q=0.7"
	case strings.HasSuffix(host, ".fr"):
		return "fr-FR,fr;q=0.9,en-US;q=0.8,en;q=0.7"
	case strings.HasSuffix(host, ".es"):
		return "es-ES,es;q=0.9,en-US;q=0.8,en;q=0.7"
	case strings.HasSuffix(host, ".co.uk") || strings.HasSuffix(host, ".uk"):
		return "en-GB,en;q=0.9"
	case strings.HasSuffix(host, ".ch"):
		return "de-CH,de;q=0.9,fr-CH;q=0.8,en;q=0.7"
	default:
		return "en-US,en;q=0.9"
	}
}

// hostOf extracts the lowercase hostname from a product URL.
func hostOf(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url %s: %w", rawURL, err)
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return "", fmt.Errorf("url %s has no hostname", rawURL)
	}
	return host, nil
}
