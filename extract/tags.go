package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/partdesk/ingest/config"
	"github.com/partdesk/ingest/fetch"
)

// harvestTags collects every tag candidate from the configured selector
// chain and drops navigation/footer noise. An empty result means every
// candidate was blocklisted (or none existed); the caller synthesizes tags
// from classified fields instead.
func harvestTags(page *fetch.RawPage, chain config.SelectorChain) []string {
	seen := map[string]struct{}{}
	var tags []string
	for _, selector := range chain {
		page.Doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
			tag := strings.Join(strings.Fields(sel.Text()), " ")
			if tag == "" || isBoilerplate(tag) {
				return
			}
			key := strings.ToLower(tag)
			if _, ok := seen[key]; ok {
				return
			}
			seen[key] = struct{}{}
			tags = append(tags, tag)
		})
	}
	return tags
}

// SynthesizeTags builds a tag list from the product name, category path,
// and classified attributes when the page yielded nothing usable.
func SynthesizeTags(name, categoryPath string, attributes []string) []string {
	seen := map[string]struct{}{}
	var tags []string
	add := func(tag string) {
		tag = strings.TrimSpace(tag)
		if tag == "" || len(tag) < 3 {
			return
		}
		key := strings.ToLower(tag)
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		tags = append(tags, tag)
	}

	for _, segment := range strings.Split(categoryPath, ">") {
		add(segment)
	}
	for _, attribute := range attributes {
		add(attribute)
	}
	words := strings.Fields(name)
	for i := 0; i+1 < len(words) && len(tags) < 10; i++ {
		add(words[i] + " " + words[i+1])
	}
	return tags
}
