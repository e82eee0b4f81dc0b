package ocr

import "regexp"

// currencyMarker matches the currency tokens receipts print next to amounts:
// "$", "Rs", "Rs.", "LKR" and "LKR.".
const currencyMarker = `(?:\$|Rs\.?|LKR\.?)`

var currencyRE = regexp.MustCompile(`(?i)` + currencyMarker)

// ExtractCurrency returns the last currency marker found in text, exactly as
// it was written (so "rs." stays "rs."). Receipts tend to repeat the currency
// on the total line, which OCR linearizes near the end.
func ExtractCurrency(text string) (string, bool) {
	ms := currencyRE.FindAllString(text, -1)
	if len(ms) == 0 {
		return "", false
	}
	return ms[len(ms)-1], true
}
