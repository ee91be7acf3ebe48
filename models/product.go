// Package models defines data structures shared across the ingestion pipeline.
package models

import "time"

// Availability states for a product record.
const (
	AvailabilityInStock    = "in_stock"
	AvailabilityPreorder   = "preorder"
	AvailabilityOutOfStock = "out_of_stock"
)

// Attributes holds the classified product attributes.
type Attributes struct {
	Model       string `csv:"model" json:"model"`
	QualityTier string `csv:"quality_tier" json:"quality_tier"`
	PartBrand   string `csv:"part_brand" json:"part_brand"`
	Technology  string `csv:"technology" json:"technology"`
}

// ProductRecord is the canonical normalized representation of a scraped
// product. SourceURL is set once from the resolved page URL and never
// rewritten afterwards.
type ProductRecord struct {
	Name           string     `csv:"name" json:"name"`
	Price          float64    `csv:"price" json:"price"`
	Currency       string     `csv:"currency" json:"currency"`
	Description    string     `csv:"description" json:"description"`
	SupplierSKU    string     `csv:"supplier_sku" json:"supplier_sku"`
	Barcode        string     `csv:"barcode" json:"barcode"`
	InternalSKU    string     `csv:"internal_sku" json:"internal_sku"`
	Images         []string   `csv:"images" json:"images"`
	Category       string     `csv:"category" json:"category"`
	Attributes     Attributes `csv:"attributes" json:"attributes"`
	Tags           []string   `csv:"tags" json:"tags"`
	Availability   string     `csv:"availability" json:"availability"`
	WarrantyMonths int        `csv:"warranty_months" json:"warranty_months"`
	SourceURL      string     `csv:"source_url" json:"source_url"`
	ScrapedAt      time.Time  `csv:"scraped_at" json:"scraped_at"`
}

// ImageAsset is one discovered product image moving through the media
// pipeline. Index is the discovery position and fixes the final ordering.
type ImageAsset struct {
	Index     int
	SourceURL string
	LocalPath string
	Width     int
	Height    int
	ByteSize  int
	RemoteRef string
}
