package ocr

// Result is the best guess for a receipt. A nil field means nothing was found;
// it serializes as JSON null so a missing total is never confused with 0.
type Result struct {
	Total    *float64 `json:"total"`
	Currency *string  `json:"currency"`
}

// HasTotal reports whether a total amount was found.
func (r Result) HasTotal() bool { return r.Total != nil }

// Analyze runs both extractors over raw OCR text.
func Analyze(text string) Result {
	var res Result
	if amt, ok := ExtractTotal(text); ok {
		res.Total = &amt
	}
	if cur, ok := ExtractCurrency(text); ok {
		res.Currency = &cur
	}
	return res
}
