package scraper

import (
	"context"
	"sync"
	"time"
)

// DomainLimiter enforces a minimum delay between requests to the same
// domain. One instance is shared by every code path that scrapes (the
// periodic scheduler, manual refresh, preview), so the map is guarded
// by a mutex.
type DomainLimiter struct {
	mu           sync.Mutex
	defaultDelay time.Duration
	delays       map[string]time.Duration
	lastGrant    map[string]time.Time
}

// NewDomainLimiter creates a limiter with the given default inter-request
// delay per domain.
func NewDomainLimiter(defaultDelay time.Duration) *DomainLimiter {
	return &DomainLimiter{
		defaultDelay: defaultDelay,
		delays:       map[string]time.Duration{},
		lastGrant:    map[string]time.Time{},
	}
}

// SetDelay overrides the delay for one domain (store-configured).
func (l *DomainLimiter) SetDelay(domain string, delay time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.delays[domain] = delay
}

// Acquire blocks until at least the domain's minimum delay has passed
// since the previous grant, then records the new grant time. Domains
// never wait on each other. Returns early with the context error on
// cancellation.
func (l *DomainLimiter) Acquire(ctx context.Context, domain string) error {
	for {
		l.mu.Lock()
		delay := l.defaultDelay
		if d, ok := l.delays[domain]; ok {
			delay = d
		}
		now := time.Now()
		wait := delay - now.Sub(l.lastGrant[domain])
		if wait <= 0 {
			l.lastGrant[domain] = now
			l.mu.Unlock()
			return nil
		}
		l.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}
