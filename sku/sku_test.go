package sku

import (
	"sync"
	"testing"
)

func TestBuild(t *testing.T) {
	got := Build("BAT", "IP13PM", "GEN", 1)
	if got != "BAT-IP13PM-GEN-0001" {
		t.Errorf("Build() = %q, want %q", got, "BAT-IP13PM-GEN-0001")
	}
	if got := Build("LCD", "SM22U", "MUS", 412); got != "LCD-SM22U-MUS-0412" {
		t.Errorf("Build() = %q, want %q", got, "LCD-SM22U-MUS-0412")
	}
}

func TestBuildDeterministic(t *testing.T) {
	first := Build("BAT", "IP13PM", "GEN", 7)
	for i := 0; i < 5; i++ {
		if got := Build("BAT", "IP13PM", "GEN", 7); got != first {
			t.Fatalf("Build not deterministic: %q vs %q", got, first)
		}
	}
}

func TestSequence(t *testing.T) {
	var seq Sequence
	if got := seq.Next(); got != 1 {
		t.Fatalf("first Next() = %d, want 1", got)
	}
	if got := seq.Next(); got != 2 {
		t.Fatalf("second Next() = %d, want 2", got)
	}
}

func TestSequenceConcurrent(t *testing.T) {
	var seq Sequence
	const n = 100

	var wg sync.WaitGroup
	seen := make([]bool, n+1)
	var mu sync.Mutex
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v := seq.Next()
			mu.Lock()
			if v >= 1 && v <= n {
				seen[v] = true
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	for i := 1; i <= n; i++ {
		if !seen[i] {
			t.Fatalf("sequence value %d never issued", i)
		}
	}
}

func TestTypeCode(t *testing.T) {
	tests := []struct {
		category string
		name     string
		want     string
	}{
		{"Parts > Parts iPhone > Batteries", "Battery iPhone 13", "BAT"},
		{"Parts > Parts iPhone > Screens", "Display iPhone 12", "LCD"},
		{"Parts > Parts Samsung > Back Covers", "Battery Cover Galaxy S21", "BCK"},
		{"Parts > Parts iPhone > Charging Ports", "Charging port flex", "CHP"},
		{"Tools > Screwdrivers", "Pentalobe screwdriver", "TLS"},
		{"Accessories > Cables", "USB-C cable", "CBL"},
		{"Uncategorized", "Mystery bundle", "PRT"},
	}
	for _, tt := range tests {
		if got := TypeCode(tt.category, tt.name); got != tt.want {
			t.Errorf("TypeCode(%q, %q) = %q, want %q", tt.category, tt.name, got, tt.want)
		}
	}
}

func TestModelCode(t *testing.T) {
	tests := []struct {
		model string
		want  string
	}{
		{"iPhone 13 Pro Max", "IP13PM"},
		{"iPhone 13 Pro", "IP13PR"},
		{"iPhone XS", "IPXS"},
		{"iPhone SE", "IPSE"},
		{"iPad Pro 12", "PD12PR"},
		{"Galaxy S22 Ultra", "SM22U"},
		{"Redmi Note 11 Pro", "RM11PR"},
		{"Pixel 7 Pro", "PX7PR"},
		{"OnePlus 9", "OP9"},
		{"", "UNI"},
	}
	for _, tt := range tests {
		if got := ModelCode(tt.model); got != tt.want {
			t.Errorf("ModelCode(%q) = %q, want %q", tt.model, got, tt.want)
		}
	}
}

func TestBrandCode(t *testing.T) {
	tests := []struct {
		brand string
		want  string
	}{
		{"MUSTTBY", "MUS"},
		{"Baseus", "BAS"},
		{"ZY", "ZY"},
		{"", "GEN"},
		{"123", "GEN"},
	}
	for _, tt := range tests {
		if got := BrandCode(tt.brand); got != tt.want {
			t.Errorf("BrandCode(%q) = %q, want %q", tt.brand, got, tt.want)
		}
	}
}
