package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
)

// SelectorChain is an ordered list of CSS selectors tried first to last.
type SelectorChain []string

// SupplierConfig describes one supplier site. It is immutable after load and
// supplied to the adapter at construction time.
type SupplierConfig struct {
	Name          string                   `json:"name"`
	BaseURL       string                   `json:"base_url"`
	Locale        string                   `json:"locale"`
	Currency      string                   `json:"currency"`
	SearchPath    string                   `json:"search_path,omitempty"`
	RequiresAuth  bool                     `json:"requires_auth,omitempty"`
	LoginEndpoint string                   `json:"login_endpoint,omitempty"`
	Headers       map[string]string        `json:"headers,omitempty"`
	Selectors     map[string]SelectorChain `json:"selectors,omitempty"`
	Disabled      bool                     `json:"disabled,omitempty"`
}

// Validate checks that the supplier record is usable.
func (s *SupplierConfig) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("supplier name cannot be empty")
	}
	parsed, err := url.Parse(s.BaseURL)
	if err != nil {
		return fmt.Errorf("supplier %s: invalid base URL: %w", s.Name, err)
	}
	if parsed.Host == "" {
		return fmt.Errorf("supplier %s: base URL must include a host", s.Name)
	}
	if s.RequiresAuth && s.LoginEndpoint == "" {
		return fmt.Errorf("supplier %s: requires auth but has no login endpoint", s.Name)
	}
	return nil
}

// Searchable reports whether bare identifiers can be resolved via the site
// search. Suppliers without a search path are direct-link-only.
func (s *SupplierConfig) Searchable() bool {
	return s.SearchPath != ""
}

// LoadSuppliers reads supplier records from a JSON file.
func LoadSuppliers(path string) ([]SupplierConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read supplier file: %w", err)
	}
	var suppliers []SupplierConfig
	if err := json.Unmarshal(data, &suppliers); err != nil {
		return nil, fmt.Errorf("parse supplier file: %w", err)
	}
	for i := range suppliers {
		if err := suppliers[i].Validate(); err != nil {
			return nil, err
		}
	}
	return suppliers, nil
}

// BuiltinSuppliers returns the supplier records shipped with the binary.
// A supplier file loaded at startup extends or overrides these.
func BuiltinSuppliers() []SupplierConfig {
	return []SupplierConfig{
		{
			Name:       "partshub",
			BaseURL:    "https://www.partshub.example",
			Locale:     "en",
			Currency:   "EUR",
			SearchPath: "/search?q=%s",
			Selectors: map[string]SelectorChain{
				"name":         {"h1.product-title", "h1[itemprop=name]", "h1"},
				"price":        {"span.price-current", "span[itemprop=price]", ".product-price"},
				"description":  {"div.product-description", "div#description", "div[itemprop=description]"},
				"sku":          {"span.product-sku", "[itemprop=sku]"},
				"availability": {"span.stock-status", "[itemprop=availability]"},
				"tags":         {"ul.breadcrumb li a", "nav.breadcrumbs a"},
			},
		},
		{
			Name:          "gsmdepot",
			BaseURL:       "https://b2b.gsmdepot.example",
			Locale:        "pl",
			Currency:      "PLN",
			SearchPath:    "/szukaj?fraza=%s",
			RequiresAuth:  true,
			LoginEndpoint: "/login",
			Headers:       map[string]string{"Accept-Language": "pl-PL,pl;q=0.9"},
			Selectors: map[string]SelectorChain{
				"name":         {"h1.product__name", "h1"},
				"price":        {"div.price-net span.value", "span.product-price"},
				"description":  {"section#opis", "div.product__description"},
				"sku":          {"div.product__code span"},
				"availability": {"div.product__stock"},
				"tags":         {"ol.breadcrumbs li a"},
			},
		},
		{
			Name:     "unifix",
			BaseURL:  "https://shop.unifix.example",
			Locale:   "en",
			Currency: "USD",
			Selectors: map[string]SelectorChain{
				"name":        {"h1.entry-title", "h1"},
				"price":       {"p.price ins span.amount", "p.price span.amount"},
				"description": {"div.woocommerce-product-details__short-description", "div#tab-description"},
				"sku":         {"span.sku"},
				"tags":        {"span.tagged_as a", "span.posted_in a"},
			},
		},
	}
}
