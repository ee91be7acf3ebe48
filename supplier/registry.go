package supplier

import (
	"log/slog"
	"net/http"
	"net/url"
	"sort"

	"github.com/partdesk/ingest/config"
)

// Registry resolves adapters by supplier name or by product URL host.
// Unknown or disabled suppliers resolve to nil and the caller skips.
type Registry struct {
	byName map[string]Adapter
	byHost map[string]Adapter
}

// NewRegistry constructs adapters for every enabled supplier.
func NewRegistry(runCfg *config.Config, suppliers []config.SupplierConfig) *Registry {
	r := &Registry{
		byName: map[string]Adapter{},
		byHost: map[string]Adapter{},
	}
	for _, cfg := range suppliers {
		if cfg.Disabled {
			slog.Info("supplier disabled, skipping", slog.String("supplier", cfg.Name))
			continue
		}
		adapter := New(cfg, runCfg)
		r.byName[cfg.Name] = adapter
		if parsed, err := url.Parse(cfg.BaseURL); err == nil {
			r.byHost[parsed.Host] = adapter
		}
	}
	return r
}

// Lookup returns the adapter for a supplier name, or nil.
func (r *Registry) Lookup(name string) Adapter {
	return r.byName[name]
}

// ForURL returns the adapter owning a product URL's host, or nil.
func (r *Registry) ForURL(rawURL string) Adapter {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil
	}
	return r.byHost[parsed.Host]
}

// Searchable returns every keyword-searchable adapter in stable name
// order, for resolving bare identifiers.
func (r *Registry) Searchable() []Adapter {
	var names []string
	for name, adapter := range r.byName {
		if adapter.Searchable() {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	adapters := make([]Adapter, 0, len(names))
	for _, name := range names {
		adapters = append(adapters, r.byName[name])
	}
	return adapters
}

// Len reports the number of enabled suppliers.
func (r *Registry) Len() int {
	return len(r.byName)
}

// Retries sums the retry attempts performed by every adapter's fetcher.
func (r *Registry) Retries() int {
	total := 0
	for _, adapter := range r.byName {
		if site, ok := adapter.(*siteAdapter); ok {
			total += site.fetcher.Retries()
		}
	}
	return total
}

// SetTransport swaps the HTTP transport on every adapter's fetcher. Used
// by tests.
func (r *Registry) SetTransport(rt http.RoundTripper) {
	for _, adapter := range r.byName {
		if site, ok := adapter.(*siteAdapter); ok {
			site.fetcher.SetTransport(rt)
		}
	}
}
