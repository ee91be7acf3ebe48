package extract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/partdesk/ingest/fetch"
)

// descriptionBlockStrategy finds a block labeled as the product
// description, either via the configured selectors or by id/class naming.
type descriptionBlockStrategy struct{}

func (descriptionBlockStrategy) Name() string {
	return "description-block"
}

func (descriptionBlockStrategy) Extract(page *fetch.RawPage) string {
	var found string
	page.Doc.Find("div, section, article").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		id, _ := sel.Attr("id")
		class, _ := sel.Attr("class")
		marker := strings.ToLower(id + " " + class)
		if !strings.Contains(marker, "description") && !strings.Contains(marker, "opis") {
			return true
		}
		text := strings.Join(strings.Fields(sel.Text()), " ")
		if len(text) >= 40 {
			found = text
			return false
		}
		return true
	})
	return found
}

// headings that anchor a specification bullet list.
var specHeadings = []string{"description", "specification", "features", "details", "opis", "specyfikacja"}

// bulletListStrategy takes the bullet list following a specification-like
// heading and renders it as one line per item.
type bulletListStrategy struct{}

func (bulletListStrategy) Name() string {
	return "bullet-list"
}

func (bulletListStrategy) Extract(page *fetch.RawPage) string {
	var found string
	page.Doc.Find("h1, h2, h3, h4").EachWithBreak(func(_ int, heading *goquery.Selection) bool {
		title := strings.ToLower(strings.TrimSpace(heading.Text()))
		matched := false
		for _, candidate := range specHeadings {
			if strings.Contains(title, candidate) {
				matched = true
				break
			}
		}
		if !matched {
			return true
		}
		list := heading.NextAllFiltered("ul, ol").First()
		if list.Length() == 0 {
			list = heading.Parent().Find("ul, ol").First()
		}
		if list.Length() == 0 {
			return true
		}
		var items []string
		list.Find("li").Each(func(_ int, li *goquery.Selection) {
			item := strings.Join(strings.Fields(li.Text()), " ")
			if item != "" {
				items = append(items, "- "+item)
			}
		})
		if len(items) > 0 {
			found = strings.Join(items, "\n")
			return false
		}
		return true
	})
	return found
}

// specFields are the known specification fields reassembled from plain
// text when no block-level description exists.
var specFields = []struct {
	label   string
	pattern *regexp.Regexp
}{
	{"Weight", regexp.MustCompile(`(?i)\bweight\s*[:：]?\s*([0-9.,]+\s*(?:g|kg|oz|lb)s?)`)},
	{"Dimensions", regexp.MustCompile(`(?i)\bdimensions?\s*[:：]?\s*([0-9.,]+\s*(?:x|×)\s*[0-9.,]+(?:\s*(?:x|×)\s*[0-9.,]+)?\s*(?:mm|cm|in)?)`)},
	{"Compatibility", regexp.MustCompile(`(?i)\bcompatib(?:le with|ility)\s*[:：]?\s*([A-Za-z0-9 ,./+-]{4,80})`)},
	{"Speed", regexp.MustCompile(`(?i)\bspeed\s*[:：]?\s*([0-9.,]+\s*(?:W|A|mA|Gbps|Mbps|MHz|GHz))`)},
	{"Capacity", regexp.MustCompile(`(?i)\bcapacity\s*[:：]?\s*([0-9.,]+\s*(?:mAh|Wh|GB|TB))`)},
}

// specReassemblyStrategy rebuilds a minimal description from recognized
// specification fields scattered through the page text.
type specReassemblyStrategy struct{}

func (specReassemblyStrategy) Name() string {
	return "spec-reassembly"
}

func (specReassemblyStrategy) Extract(page *fetch.RawPage) string {
	var lines []string
	for _, field := range specFields {
		if m := field.pattern.FindStringSubmatch(page.Text); len(m) > 1 {
			lines = append(lines, fmt.Sprintf("%s: %s", field.label, strings.TrimSpace(m[1])))
		}
	}
	return strings.Join(lines, "\n")
}
