package models

import "testing"

func TestParseTask(t *testing.T) {
	tests := []struct {
		name string
		line string
		want ScrapeTask
		ok   bool
	}{
		{
			name: "direct url",
			line: "https://partshub.example.com/iphone-13-battery",
			want: ScrapeTask{
				Raw: "https://partshub.example.com/iphone-13-battery",
				URL: "https://partshub.example.com/iphone-13-battery",
			},
			ok: true,
		},
		{
			name: "bare identifier",
			line: "PH-1193",
			want: ScrapeTask{Raw: "PH-1193", Identifier: "PH-1193"},
			ok:   true,
		},
		{
			name: "url with override code",
			line: "https://partshub.example.com/mystery-bundle | BAT-IP",
			want: ScrapeTask{
				Raw:          "https://partshub.example.com/mystery-bundle | BAT-IP",
				URL:          "https://partshub.example.com/mystery-bundle",
				OverrideCode: "BAT-IP",
			},
			ok: true,
		},
		{
			name: "identifier with override code",
			line: "GD-5521|TLS-SD",
			want: ScrapeTask{
				Raw:          "GD-5521|TLS-SD",
				Identifier:   "GD-5521",
				OverrideCode: "TLS-SD",
			},
			ok: true,
		},
		{
			name: "surrounding whitespace",
			line: "   PH-1193   ",
			want: ScrapeTask{Raw: "PH-1193", Identifier: "PH-1193"},
			ok:   true,
		},
		{
			name: "empty line",
			line: "",
			ok:   false,
		},
		{
			name: "comment line",
			line: "# batch from 2026-08-12",
			ok:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseTask(tt.line)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if !ok {
				return
			}
			if got != tt.want {
				t.Errorf("ParseTask(%q) = %+v, want %+v", tt.line, got, tt.want)
			}
		})
	}
}
