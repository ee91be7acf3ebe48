package extract

import (
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/partdesk/ingest/config"
	"github.com/partdesk/ingest/fetch"
)

// selectorStrategy walks an ordered CSS selector chain and returns the
// first non-empty text (or attribute) it finds.
type selectorStrategy struct {
	label     string
	selectors config.SelectorChain
	attr      string
}

func (s selectorStrategy) Name() string {
	return "selector:" + s.label
}

func (s selectorStrategy) Extract(page *fetch.RawPage) string {
	for _, selector := range s.selectors {
		sel := page.Doc.Find(selector).First()
		if sel.Length() == 0 {
			continue
		}
		var value string
		if s.attr != "" {
			value, _ = sel.Attr(s.attr)
		} else {
			value = sel.Text()
		}
		value = strings.Join(strings.Fields(value), " ")
		if value != "" {
			return value
		}
	}
	return ""
}

// jsonLDStrategy looks a field up in embedded JSON-LD product blocks.
// Dotted paths descend into nested objects ("offers.price").
type jsonLDStrategy struct {
	path string
}

func (s jsonLDStrategy) Name() string {
	return "jsonld:" + s.path
}

func (s jsonLDStrategy) Extract(page *fetch.RawPage) string {
	for _, product := range jsonLDProducts(page) {
		if value := lookupPath(product, strings.Split(s.path, ".")); value != "" {
			return value
		}
	}
	return ""
}

// jsonLDProducts collects every JSON-LD object of @type Product on the
// page, descending into @graph wrappers and top-level arrays.
func jsonLDProducts(page *fetch.RawPage) []map[string]any {
	var products []map[string]any
	page.Doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, sel *goquery.Selection) {
		var raw any
		if err := json.Unmarshal([]byte(sel.Text()), &raw); err != nil {
			return
		}
		collectProducts(raw, &products)
	})
	return products
}

func collectProducts(raw any, out *[]map[string]any) {
	switch v := raw.(type) {
	case []any:
		for _, item := range v {
			collectProducts(item, out)
		}
	case map[string]any:
		if t, _ := v["@type"].(string); strings.EqualFold(t, "Product") {
			*out = append(*out, v)
		}
		if graph, ok := v["@graph"]; ok {
			collectProducts(graph, out)
		}
	}
}

func lookupPath(node map[string]any, path []string) string {
	if len(path) == 0 {
		return ""
	}
	value, ok := node[path[0]]
	if !ok {
		return ""
	}
	if len(path) == 1 {
		return scalarString(value)
	}
	switch next := value.(type) {
	case map[string]any:
		return lookupPath(next, path[1:])
	case []any:
		for _, item := range next {
			if m, ok := item.(map[string]any); ok {
				if s := lookupPath(m, path[1:]); s != "" {
					return s
				}
			}
		}
	}
	return ""
}

func scalarString(value any) string {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%g", v)
	case []any:
		for _, item := range v {
			if s := scalarString(item); s != "" {
				return s
			}
		}
	}
	return ""
}

// microdataStrategy reads HTML microdata itemprop attributes.
type microdataStrategy struct {
	prop string
}

func (s microdataStrategy) Name() string {
	return "microdata:" + s.prop
}

func (s microdataStrategy) Extract(page *fetch.RawPage) string {
	sel := page.Doc.Find(fmt.Sprintf("[itemprop=%q]", s.prop)).First()
	if sel.Length() == 0 {
		return ""
	}
	if content, ok := sel.Attr("content"); ok && strings.TrimSpace(content) != "" {
		return strings.TrimSpace(content)
	}
	return strings.Join(strings.Fields(sel.Text()), " ")
}

// labeledTextStrategy scans visible page text for "Label: value" pairs
// such as "EAN: 5901234123457".
type labeledTextStrategy struct {
	field   string
	pattern *regexp.Regexp
}

func newLabeledText(field string, labels []string, valuePattern string) labeledTextStrategy {
	expr := fmt.Sprintf(`(?i)\b(?:%s)\s*[:：]?\s*(%s)`, strings.Join(labels, "|"), valuePattern)
	return labeledTextStrategy{field: field, pattern: regexp.MustCompile(expr)}
}

func (s labeledTextStrategy) Name() string {
	return "label:" + s.field
}

func (s labeledTextStrategy) Extract(page *fetch.RawPage) string {
	if m := s.pattern.FindStringSubmatch(page.Text); len(m) > 1 {
		return m[1]
	}
	return ""
}

// scriptVarStrategy fishes values out of inline script variables, a common
// place for SKUs on sites that render the rest client-side.
type scriptVarStrategy struct {
	field    string
	patterns []*regexp.Regexp
}

func newScriptVar(field string, names ...string) scriptVarStrategy {
	patterns := make([]*regexp.Regexp, 0, len(names))
	for _, name := range names {
		patterns = append(patterns, regexp.MustCompile(
			fmt.Sprintf(`(?i)[\"']?%s[\"']?\s*[:=]\s*[\"']([^\"']+)[\"']`, regexp.QuoteMeta(name)),
		))
	}
	return scriptVarStrategy{field: field, patterns: patterns}
}

func (s scriptVarStrategy) Name() string {
	return "script:" + s.field
}

func (s scriptVarStrategy) Extract(page *fetch.RawPage) string {
	var found string
	page.Doc.Find("script").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		text := sel.Text()
		for _, pattern := range s.patterns {
			if m := pattern.FindStringSubmatch(text); len(m) > 1 {
				found = strings.TrimSpace(m[1])
				return false
			}
		}
		return true
	})
	return found
}

// urlDigitsStrategy derives a pseudo-identifier from digit runs in the
// page URL, falling back to a timestamp when the URL carries none. Always
// succeeds, so it terminates every identifier chain.
type urlDigitsStrategy struct {
	now func() time.Time
}

var urlDigitsPattern = regexp.MustCompile(`\d{4,}`)

func (s urlDigitsStrategy) Name() string {
	return "url-digits"
}

func (s urlDigitsStrategy) Extract(page *fetch.RawPage) string {
	parsed, err := url.Parse(page.URL)
	if err == nil {
		if m := urlDigitsPattern.FindString(parsed.Path); m != "" {
			return "GEN-" + m
		}
	}
	now := time.Now
	if s.now != nil {
		now = s.now
	}
	return fmt.Sprintf("GEN-TS%d", now().Unix())
}
