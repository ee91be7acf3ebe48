// Package supplier exposes one contract over every supplier site. Variants
// differ in data (selector tables, login descriptor), never in code paths:
// a single adapter implementation is parameterized by SupplierConfig.
package supplier

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/partdesk/ingest/config"
	"github.com/partdesk/ingest/extract"
	"github.com/partdesk/ingest/fetch"
	"github.com/partdesk/ingest/models"
	"github.com/partdesk/ingest/session"
)

// Adapter is the supplier contract: resolve an identifier to a product
// URL, fetch and parse the page, extract the canonical record.
type Adapter interface {
	Name() string
	Searchable() bool
	RequiresAuth() bool
	ResolveURL(ctx context.Context, identifier string) (string, error)
	FetchAndParse(ctx context.Context, pageURL string) (*fetch.RawPage, error)
	Extract(page *fetch.RawPage) *models.ProductRecord
}

type siteAdapter struct {
	cfg       config.SupplierConfig
	fetcher   *fetch.Fetcher
	session   *session.Manager
	extractor *extract.Extractor
	search    *searchResolver
}

// New builds the adapter for one supplier. The fetcher (and its cookie
// jar) is private to this adapter instance, so one supplier's session
// never leaks into another's.
func New(cfg config.SupplierConfig, runCfg *config.Config) Adapter {
	fetcher := fetch.New(runCfg, fetch.HeaderProfile{
		UserAgent: runCfg.UserAgent,
		Extra:     cfg.Headers,
	})
	a := &siteAdapter{
		cfg:       cfg,
		fetcher:   fetcher,
		session:   session.NewManager(cfg, fetcher),
		extractor: extract.New(cfg),
	}
	if cfg.Searchable() {
		a.search = newSearchResolver(cfg, runCfg, fetcher.Client().Jar)
	}
	return a
}

func (a *siteAdapter) Name() string {
	return a.cfg.Name
}

func (a *siteAdapter) Searchable() bool {
	return a.cfg.Searchable()
}

func (a *siteAdapter) RequiresAuth() bool {
	return a.cfg.RequiresAuth
}

// Fetcher exposes the adapter's fetcher for tests.
func (a *siteAdapter) Fetcher() *fetch.Fetcher {
	return a.fetcher
}

// ResolveURL maps a bare identifier onto a product URL via the site
// search. Direct-link-only suppliers cannot resolve identifiers.
func (a *siteAdapter) ResolveURL(ctx context.Context, identifier string) (string, error) {
	if a.search == nil {
		return "", fetch.ErrNotFound{URL: identifier}
	}
	resolved, err := a.search.Resolve(ctx, identifier)
	if err != nil {
		return "", err
	}
	if resolved == "" {
		return "", fetch.ErrNotFound{URL: identifier}
	}
	return resolved, nil
}

// FetchAndParse retrieves a product page through the authenticated session
// when the supplier has one. Auth failures degrade, never abort.
func (a *siteAdapter) FetchAndParse(ctx context.Context, pageURL string) (*fetch.RawPage, error) {
	if err := a.validateURL(pageURL); err != nil {
		return nil, err
	}
	if a.cfg.RequiresAuth {
		if state := a.session.EnsureAuthenticated(ctx); state != session.Authenticated {
			slog.Debug("fetching without session",
				slog.String("supplier", a.cfg.Name),
				slog.String("state", state.String()),
			)
		}
	}
	return a.fetcher.Page(ctx, pageURL)
}

// Extract runs the field extraction chains. Price and other
// authenticated-only fields fall back to the zero sentinel in degraded
// mode.
func (a *siteAdapter) Extract(page *fetch.RawPage) *models.ProductRecord {
	return a.extractor.Extract(page, a.session.Degraded())
}

func (a *siteAdapter) validateURL(pageURL string) error {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return fmt.Errorf("invalid product url %q: %w", pageURL, err)
	}
	base, err := url.Parse(a.cfg.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base url: %w", err)
	}
	if parsed.Host != base.Host {
		return fmt.Errorf("url %q does not belong to supplier %s", pageURL, a.cfg.Name)
	}
	return nil
}
