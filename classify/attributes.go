package classify

import (
	"regexp"
	"strings"
)

// Quality tiers in fixed precedence order: pull/used phrasing wins over
// service-pack/genuine phrasing, which wins over premium/OEM phrasing.
// Everything else is aftermarket.
const (
	TierPull        = "Pull"
	TierServicePack = "Service Pack"
	TierOEM         = "OEM"
	TierAftermarket = "Aftermarket"
)

var tierRules = []keywordRule{
	{[]string{"pulled", "pull", "used", "refurbished part", "demontaż", "demontaz"}, TierPull},
	{[]string{"service pack", "servicepack", "genuine", "original part", "oryginal"}, TierServicePack},
	{[]string{"oem", "premium quality", "premium"}, TierOEM},
}

// DetectQualityTier classifies the replacement-part grade of a product.
func DetectQualityTier(text string) string {
	lower := strings.ToLower(text)
	for _, rule := range tierRules {
		for _, keyword := range rule.keywords {
			if strings.Contains(lower, keyword) {
				return rule.value
			}
		}
	}
	return TierAftermarket
}

// partBrands are part manufacturers, not device brands.
var partBrands = []keywordRule{
	{[]string{"musttby"}, "MUSTTBY"},
	{[]string{"baseus"}, "Baseus"},
	{[]string{"hoco"}, "Hoco"},
	{[]string{"deji"}, "DEJI"},
	{[]string{"pisen"}, "Pisen"},
	{[]string{"relife"}, "Relife"},
	{[]string{"qianli"}, "Qianli"},
	{[]string{"sunshine"}, "Sunshine"},
	{[]string{"jcid", "jc-id"}, "JCID"},
	{[]string{"zy "}, "ZY"},
	{[]string{"gx "}, "GX"},
	{[]string{"jk "}, "JK"},
}

// DetectPartBrand finds the part manufacturer if one is named.
func DetectPartBrand(text string) string {
	lower := " " + strings.ToLower(text) + " "
	for _, rule := range partBrands {
		for _, keyword := range rule.keywords {
			if strings.Contains(lower, keyword) {
				return rule.value
			}
		}
	}
	return ""
}

// technologies ordered longest/most qualified first so "soft oled" never
// collapses into the bare "oled" rule.
var technologies = []keywordRule{
	{[]string{"soft oled"}, "Soft OLED"},
	{[]string{"hard oled"}, "Hard OLED"},
	{[]string{"incell", "in-cell", "in cell"}, "Incell"},
	{[]string{"super amoled"}, "Super AMOLED"},
	{[]string{"amoled"}, "AMOLED"},
	{[]string{"oled"}, "OLED"},
	{[]string{"retina"}, "Retina"},
	{[]string{"tft"}, "TFT"},
	{[]string{"ips lcd", "ips"}, "IPS"},
	{[]string{"lcd"}, "LCD"},
	{[]string{"li-poly", "li-po", "lipo"}, "Li-Po"},
	{[]string{"li-ion", "lithium-ion", "lithium ion"}, "Li-Ion"},
}

// DetectTechnology finds the display or cell technology if one is named.
func DetectTechnology(text string) string {
	lower := strings.ToLower(text)
	for _, rule := range technologies {
		for _, keyword := range rule.keywords {
			if strings.Contains(lower, keyword) {
				return rule.value
			}
		}
	}
	return ""
}

type modelRule struct {
	pattern *regexp.Regexp
	family  string
}

// Model patterns keep qualified suffixes ahead of bare numbers inside the
// alternations ("pro max" before "pro" before nothing) so the most
// specific match always wins.
var modelRules = []modelRule{
	{regexp.MustCompile(`(?i)\biphone\s*(\d{1,2}|xs|xr|x|se)\s*(pro\s+max|pro|plus|max|mini)?`), "iPhone"},
	{regexp.MustCompile(`(?i)\bipad\s*(pro|air|mini)?\s*(\d{1,2})?`), "iPad"},
	{regexp.MustCompile(`(?i)\bgalaxy\s*(tab\s*)?(s|a|m|note|z\s*fold|z\s*flip|xcover)\s*-?\s*(\d{1,3})\s*(ultra|plus|fe|lite|\+)?`), "Galaxy"},
	{regexp.MustCompile(`(?i)\bredmi\s*(note\s*)?(\d{1,2})\s*(pro\s+max|pro\s*\+|pro|s)?`), "Redmi"},
	{regexp.MustCompile(`(?i)\bmi\s*(\d{1,2})\s*(ultra|pro|lite|t)?`), "Mi"},
	{regexp.MustCompile(`(?i)\bpixel\s*(\d)\s*(pro\s+xl|pro|xl|a)?`), "Pixel"},
	{regexp.MustCompile(`(?i)\bp(\d{2})\s*(pro\s+max|pro|lite)?`), "P"},
	{regexp.MustCompile(`(?i)\boneplus\s*(\d{1,2})\s*(pro|t|r|n)?`), "OnePlus"},
}

// DetectModel extracts and normalizes the device model, e.g.
// "battery iphone 13 pro max" -> "iPhone 13 Pro Max".
func DetectModel(text string) string {
	for _, rule := range modelRules {
		m := rule.pattern.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		segments := []string{rule.family}
		for _, group := range m[1:] {
			group = strings.TrimSpace(group)
			if group == "" {
				continue
			}
			segments = append(segments, canonicalSegment(group))
		}
		if len(segments) == 1 {
			continue
		}
		return strings.Join(mergeSeries(segments), " ")
	}
	return ""
}

// mergeSeries glues a bare series letter onto the following number so
// "Galaxy S 22 Ultra" renders as "Galaxy S22 Ultra".
func mergeSeries(segments []string) []string {
	merged := segments[:1]
	for i := 1; i < len(segments); i++ {
		prev := merged[len(merged)-1]
		cur := segments[i]
		if len(prev) == 1 && prev >= "A" && prev <= "Z" && isDigits(cur) {
			merged[len(merged)-1] = prev + cur
			continue
		}
		merged = append(merged, cur)
	}
	return merged
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// canonicalSegment normalizes one model fragment: bare letters like "xs"
// or "se" upper-case, words like "pro max" title-case.
func canonicalSegment(segment string) string {
	segment = strings.Join(strings.Fields(strings.ToLower(segment)), " ")
	switch segment {
	case "x", "xs", "xr", "se", "fe", "xl", "t", "s", "a", "m":
		return strings.ToUpper(segment)
	}
	words := strings.Fields(segment)
	for i, word := range words {
		if word[0] >= 'a' && word[0] <= 'z' {
			words[i] = strings.ToUpper(word[:1]) + word[1:]
		}
	}
	return strings.Join(words, " ")
}
