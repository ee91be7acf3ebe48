package supplier

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gocolly/colly/v2"

	"github.com/partdesk/ingest/config"
)

// defaultResultSelectors locate the first product link on a search results
// page when the supplier config does not name its own.
var defaultResultSelectors = config.SelectorChain{
	"a.product-link",
	".product-item a",
	".product-card a",
	"a[href*='/product']",
	"a[href*='/produkt']",
}

// searchResolver turns a bare identifier into a product URL through the
// supplier's site search.
type searchResolver struct {
	cfg       config.SupplierConfig
	selectors config.SelectorChain
	base      *colly.Collector
}

func newSearchResolver(cfg config.SupplierConfig, runCfg *config.Config, jar http.CookieJar) *searchResolver {
	parsed, _ := url.Parse(cfg.BaseURL)

	collector := colly.NewCollector(
		colly.AllowedDomains(parsed.Host),
		colly.UserAgent(runCfg.UserAgent),
		colly.MaxDepth(1),
	)
	collector.SetRequestTimeout(runCfg.Timeout)
	if jar != nil {
		collector.SetCookieJar(jar)
	}

	selectors := cfg.Selectors["search_result"]
	if len(selectors) == 0 {
		selectors = defaultResultSelectors
	}
	return &searchResolver{cfg: cfg, selectors: selectors, base: collector}
}

// Resolve visits the search results page and returns the first product
// link matched by the selector chain, or "" when nothing matched.
func (r *searchResolver) Resolve(ctx context.Context, identifier string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	searchURL := strings.TrimSuffix(r.cfg.BaseURL, "/") +
		fmt.Sprintf(r.cfg.SearchPath, url.QueryEscape(identifier))

	collector := r.base.Clone()
	var found string
	for _, selector := range r.selectors {
		collector.OnHTML(selector, func(e *colly.HTMLElement) {
			if found != "" {
				return
			}
			href := e.Attr("href")
			if href == "" {
				return
			}
			found = e.Request.AbsoluteURL(href)
		})
	}

	if err := collector.Visit(searchURL); err != nil {
		return "", fmt.Errorf("search %s on %s: %w", identifier, r.cfg.Name, err)
	}
	collector.Wait()
	return found, nil
}
