package extract

import (
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/partdesk/ingest/config"
	"github.com/partdesk/ingest/fetch"
	"github.com/partdesk/ingest/models"
	"github.com/partdesk/ingest/parser"
)

// Extractor runs the per-field fallback chains for one supplier. Chains are
// assembled once at construction from the supplier's selector tables.
type Extractor struct {
	cfg config.SupplierConfig

	nameChain         []Strategy
	priceChain        []Strategy
	descriptionChain  []Strategy
	skuChain          []Strategy
	barcodeChain      []Strategy
	availabilityChain []Strategy
}

// New builds an extractor for one supplier configuration.
func New(cfg config.SupplierConfig) *Extractor {
	return &Extractor{
		cfg: cfg,
		nameChain: []Strategy{
			selectorStrategy{label: "name", selectors: cfg.Selectors["name"]},
			jsonLDStrategy{path: "name"},
			microdataStrategy{prop: "name"},
			selectorStrategy{label: "og-title", selectors: config.SelectorChain{`meta[property="og:title"]`}, attr: "content"},
			selectorStrategy{label: "title", selectors: config.SelectorChain{"title"}},
		},
		priceChain: []Strategy{
			selectorStrategy{label: "price", selectors: cfg.Selectors["price"]},
			jsonLDStrategy{path: "offers.price"},
			microdataStrategy{prop: "price"},
			newLabeledText("price", []string{"price", "cena"}, `[0-9][0-9 .,]*(?:€|zł|\$|£|PLN|EUR|USD)?`),
		},
		descriptionChain: []Strategy{
			selectorStrategy{label: "description", selectors: cfg.Selectors["description"]},
			descriptionBlockStrategy{},
			bulletListStrategy{},
			specReassemblyStrategy{},
		},
		// Identifier priority: linked data > microdata > supplier
		// selectors > on-page labels > script variables > generated
		// pseudo-id. The pseudo-id strategy always succeeds.
		skuChain: []Strategy{
			jsonLDStrategy{path: "sku"},
			jsonLDStrategy{path: "mpn"},
			microdataStrategy{prop: "sku"},
			selectorStrategy{label: "sku", selectors: cfg.Selectors["sku"]},
			newLabeledText("sku", []string{"sku", "kod produktu", "product code", "item code", "art\\. no\\.?"}, `[A-Za-z0-9][A-Za-z0-9/_.-]{2,30}`),
			newScriptVar("sku", "sku", "product_sku", "productCode", "product_id"),
			urlDigitsStrategy{},
		},
		barcodeChain: []Strategy{
			jsonLDStrategy{path: "gtin13"},
			jsonLDStrategy{path: "gtin"},
			microdataStrategy{prop: "gtin13"},
			newLabeledText("barcode", []string{"ean", "gtin", "barcode", "kod kreskowy"}, `[0-9]{8,14}`),
			newScriptVar("barcode", "ean", "gtin", "barcode"),
		},
		availabilityChain: []Strategy{
			selectorStrategy{label: "availability", selectors: cfg.Selectors["availability"]},
			jsonLDStrategy{path: "offers.availability"},
			microdataStrategy{prop: "availability"},
		},
	}
}

// Extract builds a ProductRecord from a fetched page. SourceURL is set from
// the resolved page URL here and never rewritten afterwards. When degraded
// is true, authenticated-only fields (price) use the zero sentinel. Missing
// strategies substitute placeholders instead of failing.
func (e *Extractor) Extract(page *fetch.RawPage, degraded bool) *models.ProductRecord {
	record := &models.ProductRecord{
		Currency:     e.cfg.Currency,
		SourceURL:    page.URL,
		Availability: models.AvailabilityInStock,
		ScrapedAt:    time.Now(),
	}

	name, strategy, ok := runChain(page, e.nameChain, minLength(3))
	if !ok {
		name = nameFromSlug(page.URL)
		e.fallback("name", "url-slug")
	} else {
		e.accepted("name", strategy)
	}
	record.Name = name

	if degraded {
		record.Price = 0
	} else if raw, strategy, ok := runChain(page, e.priceChain, minLength(1)); ok {
		price, parsed := parser.ParsePrice(raw)
		if parsed {
			record.Price = price
			e.accepted("price", strategy)
		} else {
			e.fallback("price", "unparseable:"+raw)
		}
	} else {
		e.fallback("price", "zero-sentinel")
	}

	if description, strategy, ok := runChain(page, e.descriptionChain, minLength(10)); ok {
		record.Description = description
		e.accepted("description", strategy)
	} else {
		e.fallback("description", "empty")
	}

	// skuChain terminates in the pseudo-id generator, so ok is always true.
	sku, strategy, _ := runChain(page, e.skuChain, minLength(3))
	record.SupplierSKU = sku
	e.accepted("sku", strategy)

	if barcode, strategy, ok := runChain(page, e.barcodeChain, minLength(8)); ok {
		record.Barcode = barcode
		e.accepted("barcode", strategy)
	}

	if availability, _, ok := runChain(page, e.availabilityChain, minLength(2)); ok {
		record.Availability = parser.NormalizeAvailability(availability)
	}

	record.Tags = harvestTags(page, e.cfg.Selectors["tags"])
	return record
}

func (e *Extractor) accepted(field, strategy string) {
	slog.Debug("field extracted",
		slog.String("supplier", e.cfg.Name),
		slog.String("field", field),
		slog.String("strategy", strategy),
	)
}

func (e *Extractor) fallback(field, substitute string) {
	slog.Info("extraction fallback used",
		slog.String("supplier", e.cfg.Name),
		slog.String("field", field),
		slog.String("substitute", substitute),
	)
}

// nameFromSlug derives a last-resort product name from the URL path.
func nameFromSlug(pageURL string) string {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return "Unknown product"
	}
	segments := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	slug := segments[len(segments)-1]
	slug = strings.TrimSuffix(slug, ".html")
	slug = strings.NewReplacer("-", " ", "_", " ").Replace(slug)
	words := strings.Fields(slug)
	if len(words) == 0 {
		return "Unknown product"
	}
	for i, word := range words {
		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}
	return strings.Join(words, " ")
}
