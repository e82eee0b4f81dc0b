package ocr

import "regexp"

// amountPattern is a plain decimal amount with at most two fractional digits.
const amountPattern = `\d+(?:\.\d{1,2})?`

// spaceClass is whitespace including Unicode spaces. OCR output often carries
// U+00A0 between a label and its amount, which RE2's \s does not match.
const spaceClass = `\s\p{Z}\v\x{85}\x1c-\x1f`

var (
	noiseLineRE      = regexp.MustCompile(`(?i)(?:subtotal|cash)[` + spaceClass + `:]*` + amountPattern)
	currencyAmountRE = regexp.MustCompile(`(?i)` + currencyMarker + `[` + spaceClass + `]*(` + amountPattern + `)`)
	labeledAmountRE  = regexp.MustCompile(`(?i)(?:total|grand total|amount due|balance|amount)[` + spaceClass + `]*[:\-]?[` + spaceClass + `]*(` + amountPattern + `)`)
	numberRE         = regexp.MustCompile(amountPattern)
)

// minFallbackAmount filters quantities and line numbers out of the untagged scan.
const minFallbackAmount = 1.0

// totalStrategy inspects noise-stripped text and reports an amount if it found one.
type totalStrategy func(text string) (float64, bool)

// totalStrategies run in order; the first one that reports an amount wins.
var totalStrategies = []totalStrategy{
	currencyAmount,
	labeledAmount,
	trailingAmount,
}

// ExtractTotal guesses the grand total printed on a receipt. It reports false
// when no plausible amount exists; it never fails on malformed text.
func ExtractTotal(text string) (float64, bool) {
	cleaned := stripNoise(text)
	for _, strategy := range totalStrategies {
		if amt, ok := strategy(cleaned); ok {
			return amt, true
		}
	}
	return 0, false
}

// stripNoise removes subtotal and cash-tendered amounts so they are never
// mistaken for the total.
func stripNoise(text string) string {
	return noiseLineRE.ReplaceAllString(text, "")
}

// currencyAmount returns the largest amount tagged with a currency marker.
func currencyAmount(text string) (float64, bool) {
	var (
		best  float64
		found bool
	)
	for _, m := range currencyAmountRE.FindAllStringSubmatch(text, -1) {
		amt, ok := parseAmount(m[1])
		if !ok {
			continue
		}
		if !found || amt > best {
			best = amt
			found = true
		}
	}
	return best, found
}

// labeledAmount returns the last amount that follows a total-like label.
func labeledAmount(text string) (float64, bool) {
	ms := labeledAmountRE.FindAllStringSubmatch(text, -1)
	for i := len(ms) - 1; i >= 0; i-- {
		if amt, ok := parseAmount(ms[i][1]); ok {
			return amt, true
		}
	}
	return 0, false
}

// trailingAmount returns the last bare number greater than minFallbackAmount.
func trailingAmount(text string) (float64, bool) {
	ms := numberRE.FindAllString(text, -1)
	for i := len(ms) - 1; i >= 0; i-- {
		amt, ok := parseAmount(ms[i])
		if ok && amt > minFallbackAmount {
			return amt, true
		}
	}
	return 0, false
}
