// Package parser holds normalization and validation helpers for product
// records on their way to the export stage.
package parser

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/partdesk/ingest/models"
)

// ValidateRecord ensures the extractor captured the required fields.
func ValidateRecord(r *models.ProductRecord) error {
	if r == nil {
		return fmt.Errorf("record is nil")
	}
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("record missing name")
	}
	if strings.TrimSpace(r.SourceURL) == "" {
		return fmt.Errorf("record missing source URL for %s", r.Name)
	}
	if strings.TrimSpace(r.SupplierSKU) == "" {
		return fmt.Errorf("record missing supplier sku for %s", r.Name)
	}
	if r.Price < 0 {
		return fmt.Errorf("record has negative price for %s", r.Name)
	}
	return nil
}

var priceDigits = regexp.MustCompile(`[0-9][0-9 .,\x{00a0}]*`)

// ParsePrice extracts a numeric amount from supplier price text. It copes
// with both decimal-comma ("1 234,56 zł") and decimal-point ("$1,234.56")
// conventions and returns the amount rounded to two decimals.
func ParsePrice(text string) (float64, bool) {
	match := priceDigits.FindString(text)
	if match == "" {
		return 0, false
	}
	cleaned := strings.Map(func(r rune) rune {
		if r == ' ' || r == '\u00a0' {
			return -1
		}
		return r
	}, strings.TrimSpace(match))
	cleaned = strings.Trim(cleaned, ".,")

	lastComma := strings.LastIndexByte(cleaned, ',')
	lastDot := strings.LastIndexByte(cleaned, '.')
	switch {
	case lastComma > lastDot:
		// comma is the decimal separator, dots group thousands
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		cleaned = strings.Replace(cleaned, ",", ".", -1)
		if n := strings.Count(cleaned, "."); n > 1 {
			cleaned = strings.Replace(cleaned, ".", "", n-1)
		}
	default:
		// dot is the decimal separator, commas group thousands
		cleaned = strings.ReplaceAll(cleaned, ",", "")
	}

	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return RoundPrice(value), true
}

// RoundPrice rounds to the two-decimal contract of the export format.
func RoundPrice(value float64) float64 {
	return math.Round(value*100) / 100
}

// NormalizeAvailability maps supplier availability text onto the canonical
// states. Unrecognized text defaults to in_stock.
func NormalizeAvailability(text string) string {
	lower := strings.ToLower(strings.TrimSpace(text))
	switch {
	case lower == "":
		return models.AvailabilityInStock
	case strings.Contains(lower, "preorder"),
		strings.Contains(lower, "pre-order"),
		strings.Contains(lower, "przedsprzeda"),
		strings.Contains(lower, "backorder"):
		return models.AvailabilityPreorder
	case strings.Contains(lower, "outofstock"),
		strings.Contains(lower, "out of stock"),
		strings.Contains(lower, "unavailable"),
		strings.Contains(lower, "sold out"),
		strings.Contains(lower, "niedost"),
		strings.Contains(lower, "brak"):
		return models.AvailabilityOutOfStock
	default:
		return models.AvailabilityInStock
	}
}
