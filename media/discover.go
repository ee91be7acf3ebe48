package media

import (
	"encoding/json"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/partdesk/ingest/fetch"
)

// skipFragments are URL fragments that mark non-product imagery.
var skipFragments = []string{"sprite", "logo", "icon", "placeholder", "avatar", "banner", "pixel.", "blank."}

// DiscoverImages collects candidate image URLs from every redundant source
// on the page, in a stable order: structured metadata first, then linked
// data, gallery anchors, thumbnail attributes, and finally raw image tags.
// Results are absolute, deduplicated, and capped at max.
func DiscoverImages(page *fetch.RawPage, max int) []string {
	seen := map[string]struct{}{}
	var found []string
	add := func(raw string) {
		abs := absoluteImageURL(page.URL, raw)
		if abs == "" {
			return
		}
		if _, ok := seen[abs]; ok {
			return
		}
		seen[abs] = struct{}{}
		found = append(found, abs)
	}

	page.Doc.Find(`meta[property="og:image"], meta[name="twitter:image"]`).Each(func(_ int, sel *goquery.Selection) {
		if content, ok := sel.Attr("content"); ok {
			add(content)
		}
	})

	for _, imageURL := range jsonLDImages(page) {
		add(imageURL)
	}

	page.Doc.Find(`a[href$=".jpg"], a[href$=".jpeg"], a[href$=".png"], a[href$=".webp"]`).Each(func(_ int, sel *goquery.Selection) {
		if href, ok := sel.Attr("href"); ok {
			add(href)
		}
	})

	page.Doc.Find("img").Each(func(_ int, sel *goquery.Selection) {
		for _, attr := range []string{"data-zoom-image", "data-large", "data-full", "data-src"} {
			if value, ok := sel.Attr(attr); ok && value != "" {
				add(value)
				return
			}
		}
	})

	page.Doc.Find("img[src]").Each(func(_ int, sel *goquery.Selection) {
		if src, ok := sel.Attr("src"); ok {
			add(src)
		}
	})

	if max > 0 && len(found) > max {
		found = found[:max]
	}
	return found
}

func jsonLDImages(page *fetch.RawPage) []string {
	var images []string
	page.Doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, sel *goquery.Selection) {
		var raw any
		if err := json.Unmarshal([]byte(sel.Text()), &raw); err != nil {
			return
		}
		collectImageValues(raw, &images)
	})
	return images
}

func collectImageValues(raw any, out *[]string) {
	switch v := raw.(type) {
	case []any:
		for _, item := range v {
			collectImageValues(item, out)
		}
	case map[string]any:
		if img, ok := v["image"]; ok {
			switch iv := img.(type) {
			case string:
				*out = append(*out, iv)
			case []any:
				for _, item := range iv {
					if s, ok := item.(string); ok {
						*out = append(*out, s)
					}
				}
			case map[string]any:
				if u, ok := iv["url"].(string); ok {
					*out = append(*out, u)
				}
			}
		}
		for key, child := range v {
			if key == "image" {
				continue
			}
			collectImageValues(child, out)
		}
	}
}

func absoluteImageURL(pageURL, raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.HasPrefix(raw, "data:") {
		return ""
	}
	lower := strings.ToLower(raw)
	if strings.HasSuffix(lower, ".svg") {
		return ""
	}
	for _, fragment := range skipFragments {
		if strings.Contains(lower, fragment) {
			return ""
		}
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	abs := base.ResolveReference(ref)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return ""
	}
	return abs.String()
}
