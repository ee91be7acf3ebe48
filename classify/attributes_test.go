package classify

import "testing"

func TestDetectQualityTier(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Battery iPhone 13 pulled from device", TierPull},
		{"Display used, grade A", TierPull},
		{"Battery Service Pack iPhone 12", TierServicePack},
		{"Genuine OEM battery", TierServicePack},
		{"OEM quality display", TierOEM},
		{"Premium incell screen", TierOEM},
		{"Replacement battery", TierAftermarket},
		{"", TierAftermarket},
	}
	for _, tt := range tests {
		if got := DetectQualityTier(tt.input); got != tt.want {
			t.Errorf("DetectQualityTier(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestDetectPartBrand(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"MUSTTBY battery iPhone 11", "MUSTTBY"},
		{"Screwdriver Qianli iThor", "Qianli"},
		{"ZY display iPhone XS", "ZY"},
		{"Relife RL-936 soldering", "Relife"},
		{"Plain replacement battery", ""},
	}
	for _, tt := range tests {
		if got := DetectPartBrand(tt.input); got != tt.want {
			t.Errorf("DetectPartBrand(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestDetectTechnology(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Soft OLED display iPhone 12", "Soft OLED"},
		{"Hard OLED iPhone 11", "Hard OLED"},
		{"OLED module Galaxy S21", "OLED"},
		{"Incell screen", "Incell"},
		{"In-Cell display", "Incell"},
		{"Super AMOLED Galaxy A52", "Super AMOLED"},
		{"IPS LCD Redmi 9", "IPS"},
		{"TFT display", "TFT"},
		{"Li-Po cell 3227mAh", "Li-Po"},
		{"Li-Ion battery", "Li-Ion"},
		{"Back cover", ""},
	}
	for _, tt := range tests {
		if got := DetectTechnology(tt.input); got != tt.want {
			t.Errorf("DetectTechnology(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestDetectModel(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Battery iPhone 13 Pro Max Genuine", "iPhone 13 Pro Max"},
		{"battery iphone 13 pro", "iPhone 13 Pro"},
		{"Display iPhone XS", "iPhone XS"},
		{"iPhone SE battery", "iPhone SE"},
		{"LCD Galaxy S22 Ultra", "Galaxy S22 Ultra"},
		{"Back cover galaxy note 20", "Galaxy Note 20"},
		{"Display Redmi Note 11 Pro", "Redmi Note 11 Pro"},
		{"Pixel 7 Pro camera", "Pixel 7 Pro"},
		{"OnePlus 9 Pro frame", "OnePlus 9 Pro"},
		{"Pentalobe screwdriver", ""},
	}
	for _, tt := range tests {
		if got := DetectModel(tt.input); got != tt.want {
			t.Errorf("DetectModel(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestWarranty(t *testing.T) {
	tests := []struct {
		category string
		name     string
		want     int
	}{
		{"Parts > Parts iPhone > Screens", "Display iPhone 12", 24},
		{"Parts > Parts iPhone > Batteries", "Battery iPhone 12", 12},
		{"Accessories > Cables", "USB-C cable", 6},
		{"Accessories > Chargers", "Wall charger 20W", 6},
		{"Accessories > Cases", "Silicone case", 3},
		{"Accessories > Screen Protectors", "Tempered glass protector", 3},
		{"Tools > Screwdrivers", "Pentalobe screwdriver", 6},
	}
	for _, tt := range tests {
		if got := Warranty(tt.category, tt.name); got != tt.want {
			t.Errorf("Warranty(%q, %q) = %d, want %d", tt.category, tt.name, got, tt.want)
		}
	}
}
