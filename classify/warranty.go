package classify

import "strings"

// Warranty durations in months. Screens carry the longest cover, then
// batteries, then cables, then cases.
const (
	warrantyScreens   = 24
	warrantyBatteries = 12
	warrantyCables    = 6
	warrantyCases     = 3
	warrantyDefault   = 6
)

// Warranty derives the warranty period from the category path plus name
// keywords.
func Warranty(categoryPath, name string) int {
	haystack := strings.ToLower(categoryPath + " " + name)
	switch {
	case strings.Contains(haystack, "screen"), strings.Contains(haystack, "display"):
		return warrantyScreens
	case strings.Contains(haystack, "batter"):
		return warrantyBatteries
	case strings.Contains(haystack, "cable"), strings.Contains(haystack, "charger"), strings.Contains(haystack, "charging"):
		return warrantyCables
	case strings.Contains(haystack, "case"), strings.Contains(haystack, "cover"), strings.Contains(haystack, "protector"):
		return warrantyCases
	default:
		return warrantyDefault
	}
}
