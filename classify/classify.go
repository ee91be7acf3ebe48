// Package classify maps extracted product text onto the category taxonomy
// and attribute set. Everything here is a pure function over its inputs:
// identical inputs always produce identical results.
package classify

import (
	"log/slog"
	"strings"
)

// Uncategorized is the sentinel category used when no rule matches. It is
// never fabricated into a real path and always accompanied by a review log
// entry.
const Uncategorized = "Uncategorized"

// Input is the classification input tuple.
type Input struct {
	Name         string
	Description  string
	URL          string
	Tags         []string
	OverrideCode string
}

// Result is the classification outcome.
type Result struct {
	Category       string
	Model          string
	QualityTier    string
	PartBrand      string
	Technology     string
	WarrantyMonths int
	Miss           bool
}

// overrideCodes is the fixed manual-override table selected by the |CODE
// suffix on an input line. An override short-circuits every other rule.
var overrideCodes = map[string]string{
	"BAT-IP":  "Parts > Parts iPhone > Batteries",
	"BAT-SM":  "Parts > Parts Samsung > Batteries",
	"LCD-IP":  "Parts > Parts iPhone > Screens",
	"LCD-SM":  "Parts > Parts Samsung > Screens",
	"LCD-XI":  "Parts > Parts Xiaomi > Screens",
	"FLX-IP":  "Parts > Parts iPhone > Flex Cables",
	"CAM-IP":  "Parts > Parts iPhone > Cameras",
	"TLS-SD":  "Tools > Screwdrivers",
	"TLS-KIT": "Tools > Kits",
	"ACC-CBL": "Accessories > Cables",
	"ACC-CHG": "Accessories > Chargers",
	"ACC-TG":  "Accessories > Screen Protectors",
}

type keywordRule struct {
	keywords []string
	value    string
}

// deviceBrands is ordered most specific first: "apple watch" must win over
// a bare "watch", "galaxy tab" over "galaxy".
var deviceBrands = []keywordRule{
	{[]string{"apple watch"}, "Apple Watch"},
	{[]string{"galaxy tab"}, "Galaxy Tab"},
	{[]string{"iphone"}, "iPhone"},
	{[]string{"ipad"}, "iPad"},
	{[]string{"macbook"}, "MacBook"},
	{[]string{"galaxy", "samsung"}, "Samsung"},
	{[]string{"redmi", "poco", "xiaomi", "mi band"}, "Xiaomi"},
	{[]string{"huawei", "honor"}, "Huawei"},
	{[]string{"oneplus"}, "OnePlus"},
	{[]string{"oppo", "realme"}, "Oppo"},
	{[]string{"motorola", "moto g", "moto e"}, "Motorola"},
	{[]string{"pixel"}, "Google"},
}

// partTypes is ordered so compound phrases match before their generic
// tails ("charging port" before "port", "battery cover" handled by the
// back-cover rule before "battery").
var partTypes = []keywordRule{
	{[]string{"battery cover", "back cover", "rear cover", "back glass"}, "Back Covers"},
	{[]string{"charging port", "charging connector", "charging flex", "dock connector"}, "Charging Ports"},
	{[]string{"screen", "display", "touch panel", "digitizer", "lcd", "oled module"}, "Screens"},
	{[]string{"battery"}, "Batteries"},
	{[]string{"front camera", "rear camera", "main camera", "camera"}, "Cameras"},
	{[]string{"loudspeaker", "speaker", "buzzer", "earpiece"}, "Speakers"},
	{[]string{"proximity sensor", "sensor flex", "power flex", "volume flex", "flex cable", "flex"}, "Flex Cables"},
	{[]string{"sim tray", "sim holder"}, "SIM Trays"},
	{[]string{"middle frame", "housing", "chassis", "frame"}, "Frames"},
	{[]string{"vibration motor", "taptic"}, "Vibration Motors"},
}

// tools and accessories are two-level fallbacks consulted when no device
// brand is present (or a brand is present without a recognizable part).
var tools = []keywordRule{
	{[]string{"screwdriver", "torx", "pentalobe", "phillips bit"}, "Tools > Screwdrivers"},
	{[]string{"spudger", "opening tool", "pry tool", "opening pick"}, "Tools > Opening Tools"},
	{[]string{"tweezer"}, "Tools > Tweezers"},
	{[]string{"heat gun", "hot air", "heating pad", "preheater"}, "Tools > Heat Stations"},
	{[]string{"soldering", "solder", "flux", "rework station"}, "Tools > Soldering"},
	{[]string{"separator", "laminating", "lamination", "freezer machine"}, "Tools > Machines"},
	{[]string{"microscope"}, "Tools > Microscopes"},
	{[]string{"tool kit", "toolkit", "repair kit", "tool set"}, "Tools > Kits"},
}

var accessories = []keywordRule{
	{[]string{"tempered glass", "screen protector", "protective film"}, "Accessories > Screen Protectors"},
	{[]string{"case", "cover", "etui", "bumper"}, "Accessories > Cases"},
	{[]string{"charger", "power adapter", "wall plug", "wireless charging pad"}, "Accessories > Chargers"},
	{[]string{"usb cable", "lightning cable", "usb-c cable", "data cable", "cable"}, "Accessories > Cables"},
	{[]string{"earphone", "headphone", "headset", "earbud"}, "Accessories > Audio"},
	{[]string{"car holder", "holder", "mount", "stand"}, "Accessories > Holders"},
	{[]string{"adhesive", "glue", "sticker set", "b7000", "t7000"}, "Accessories > Adhesives"},
	{[]string{"memory card", "adapter", "card reader"}, "Accessories > Adapters"},
}

// Classify resolves the category path and attributes for one product.
// Category resolution order: manual override, brand+part composition,
// tools, accessories, sentinel.
func Classify(in Input) Result {
	result := Result{
		Model:       DetectModel(in.Name + " " + in.Description),
		QualityTier: DetectQualityTier(in.Name + " " + in.Description),
		PartBrand:   DetectPartBrand(in.Name + " " + in.Description),
		Technology:  DetectTechnology(in.Name + " " + in.Description),
	}

	result.Category, result.Miss = resolveCategory(in)
	result.WarrantyMonths = Warranty(result.Category, in.Name)

	if result.Miss {
		slog.Warn("classification miss, flagged for review",
			slog.String("category", Uncategorized),
			slog.String("name", in.Name),
			slog.String("url", in.URL),
		)
	}
	return result
}

func resolveCategory(in Input) (string, bool) {
	if in.OverrideCode != "" {
		if path, ok := overrideCodes[strings.ToUpper(strings.TrimSpace(in.OverrideCode))]; ok {
			return path, false
		}
	}

	haystack := classifyText(in)

	brand := matchRule(deviceBrands, haystack)
	partType := matchRule(partTypes, haystack)
	if brand != "" && partType != "" {
		return "Parts > Parts " + brand + " > " + partType, false
	}

	if path := matchRule(tools, haystack); path != "" {
		return path, false
	}
	if path := matchRule(accessories, haystack); path != "" {
		return path, false
	}
	return Uncategorized, true
}

// classifyText folds every classification input field into one lowercase
// haystack: name, description, the URL slug, and the harvested tags.
func classifyText(in Input) string {
	slug := in.URL
	if idx := strings.LastIndexByte(slug, '/'); idx >= 0 {
		slug = slug[idx+1:]
	}
	slug = strings.NewReplacer("-", " ", "_", " ", ".html", "").Replace(slug)

	parts := []string{in.Name, in.Description, slug}
	parts = append(parts, in.Tags...)
	return strings.ToLower(strings.Join(parts, " "))
}

func matchRule(rules []keywordRule, haystack string) string {
	for _, rule := range rules {
		for _, keyword := range rule.keywords {
			if strings.Contains(haystack, keyword) {
				return rule.value
			}
		}
	}
	return ""
}

// OverridePath exposes the override table for input validation.
func OverridePath(code string) (string, bool) {
	path, ok := overrideCodes[strings.ToUpper(strings.TrimSpace(code))]
	return path, ok
}
