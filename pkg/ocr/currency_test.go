package ocr

import "testing"

func TestExtractCurrency(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		want  string
		found bool
	}{
		{"empty", "", "", false},
		{"no marker", "plain text 123", "", false},
		{"dollar", "TOTAL $25.00", "$", true},
		{"last marker wins", "Rs. 100\nsomething\n$ 5", "$", true},
		{"lkr with dot", "$5 then LKR. 20", "LKR.", true},
		{"case preserved", "total rs 50", "rs", true},
		{"lkr glued to digits", "LKR200", "LKR", true},
		{"rs with dot", "Amount Rs.450", "Rs.", true},
		// markers are not word-bounded, so letters inside words count
		{"inside a word", "LKR 10\nopen 24 hours", "rs", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractCurrency(tt.text)
			if ok != tt.found || got != tt.want {
				t.Fatalf("ExtractCurrency(%q) = %q,%v want %q,%v", tt.text, got, ok, tt.want, tt.found)
			}
		})
	}
}
