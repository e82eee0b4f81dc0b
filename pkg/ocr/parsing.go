package ocr

import (
	"strconv"
	"strings"
)

// parseAmount converts a matched amount token into a float64. Tokens that do
// not fit a float64 (absurdly long digit runs from OCR noise) are rejected.
func parseAmount(found string) (float64, bool) {
	found = strings.TrimSpace(found)
	if found == "" {
		return 0, false
	}
	amt, err := strconv.ParseFloat(found, 64)
	if err != nil {
		return 0, false
	}
	return amt, true
}
