// Package sku builds deterministic internal product codes. The segment
// coders here are tuned for compact codes and deliberately separate from
// the taxonomy tables in package classify. No global uniqueness is
// guaranteed; identifier collisions are reconciled by the sync engine.
package sku

import (
	"fmt"
	"strings"
	"sync/atomic"
)

// Sequence is the run-scoped monotonic counter appended to every code.
type Sequence struct {
	n atomic.Int64
}

// Next returns the next sequence number, starting at 1.
func (s *Sequence) Next() int {
	return int(s.n.Add(1))
}

// Build assembles the final code from its segments:
// BAT-IP13PM-GEN-0001.
func Build(typeCode, modelCode, brandCode string, sequence int) string {
	return fmt.Sprintf("%s-%s-%s-%04d", typeCode, modelCode, brandCode, sequence)
}

// typeCodes maps category keywords onto three-letter part type codes.
// Ordered, first match wins.
var typeCodes = []struct {
	keyword string
	code    string
}{
	{"back cover", "BCK"},
	{"charging port", "CHP"},
	{"screen", "LCD"},
	{"batter", "BAT"},
	{"camera", "CAM"},
	{"speaker", "SPK"},
	{"flex", "FLX"},
	{"sim tray", "SIM"},
	{"frame", "FRM"},
	{"vibration", "VIB"},
	{"tools", "TLS"},
	{"screwdriver", "TLS"},
	{"protector", "PRO"},
	{"case", "CSE"},
	{"charger", "CHG"},
	{"cable", "CBL"},
	{"accessor", "ACC"},
}

// TypeCode derives the part type segment from category path and name.
func TypeCode(categoryPath, name string) string {
	haystack := strings.ToLower(categoryPath + " " + name)
	for _, entry := range typeCodes {
		if strings.Contains(haystack, entry.keyword) {
			return entry.code
		}
	}
	return "PRT"
}

var familyCodes = []struct {
	family string
	code   string
}{
	{"iphone", "IP"},
	{"ipad", "PD"},
	{"macbook", "MB"},
	{"apple watch", "AW"},
	{"galaxy tab", "GT"},
	{"galaxy", "SM"},
	{"redmi", "RM"},
	{"pixel", "PX"},
	{"oneplus", "OP"},
	{"mi", "MI"},
}

var suffixCodes = []struct {
	suffix string
	code   string
}{
	{"pro max", "PM"},
	{"pro xl", "PX"},
	{"pro", "PR"},
	{"plus", "PL"},
	{"ultra", "U"},
	{"max", "MX"},
	{"mini", "MN"},
	{"lite", "LT"},
	{"fe", "FE"},
	{"xl", "XL"},
	{"xs", "XS"},
	{"xr", "XR"},
	{"se", "SE"},
}

// ModelCode compacts a normalized model name: "iPhone 13 Pro Max" becomes
// "IP13PM". Unknown families keep their first three letters; a missing
// model yields the universal segment "UNI".
func ModelCode(model string) string {
	model = strings.TrimSpace(strings.ToLower(model))
	if model == "" {
		return "UNI"
	}

	var code strings.Builder
	rest := model
	for _, entry := range familyCodes {
		if strings.HasPrefix(rest, entry.family) {
			code.WriteString(entry.code)
			rest = strings.TrimSpace(rest[len(entry.family):])
			break
		}
	}
	if code.Len() == 0 {
		fields := strings.Fields(rest)
		head := fields[0]
		if len(head) > 3 {
			head = head[:3]
		}
		code.WriteString(strings.ToUpper(head))
		rest = strings.TrimSpace(rest[len(fields[0]):])
	}

	for _, r := range rest {
		if r >= '0' && r <= '9' {
			code.WriteRune(r)
		}
	}
	for _, entry := range suffixCodes {
		if strings.Contains(rest, entry.suffix) {
			code.WriteString(entry.code)
			break
		}
	}
	return code.String()
}

// BrandCode compacts a part brand to at most three letters; products with
// no named part brand share the generic segment.
func BrandCode(brand string) string {
	brand = strings.TrimSpace(brand)
	if brand == "" {
		return "GEN"
	}
	var letters []rune
	for _, r := range strings.ToUpper(brand) {
		if r >= 'A' && r <= 'Z' {
			letters = append(letters, r)
			if len(letters) == 3 {
				break
			}
		}
	}
	if len(letters) == 0 {
		return "GEN"
	}
	return string(letters)
}
