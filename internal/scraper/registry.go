package scraper

import "log/slog"

// Registry maps product URLs to adapters via an ordered table of
// domain-pattern matchers. Store-specific adapters come first; the
// generic fallback is always consulted last so specificity dominates.
type Registry struct {
	adapters []Adapter
	generic  Adapter
	log      *slog.Logger
}

// NewRegistry builds a registry from ordered store adapters and a
// generic fallback.
func NewRegistry(generic Adapter, log *slog.Logger, adapters ...Adapter) *Registry {
	return &Registry{adapters: adapters, generic: generic, log: log}
}

// NewDefaultRegistry wires every supported store adapter around one
// shared fetcher.
func NewDefaultRegistry(fetcher *Fetcher, log *slog.Logger) *Registry {
	return NewRegistry(
		NewGenericAdapter(fetcher),
		log,
		NewAmazonAdapter(fetcher),
		NewEbayAdapter(fetcher),
		NewLookfantasticAdapter(fetcher),
		NewZalandoAdapter(fetcher),
		NewSephoraAdapter(fetcher),
		NewVeralabAdapter(fetcher),
		NewPinalliAdapter(fetcher),
	)
}

// Resolve returns the first adapter whose domain pattern matches the
// URL's hostname, or the generic adapter on a malformed URL or when no
// pattern matches.
func (r *Registry) Resolve(rawURL string) Adapter {
	for _, adapter := range r.adapters {
		if adapter.CanHandle(rawURL) {
			r.log.Debug("resolved adapter", "store", adapter.StoreName(), "url", rawURL)
			return adapter
		}
	}
	r.log.Debug("resolved adapter", "store", r.generic.StoreName(), "url", rawURL)
	return r.generic
}

// SupportedStores lists the names of the store-specific adapters.
func (r *Registry) SupportedStores() []string {
	names := make([]string, 0, len(r.adapters))
	for _, adapter := range r.adapters {
		names = append(names, adapter.StoreName())
	}
	return names
}
