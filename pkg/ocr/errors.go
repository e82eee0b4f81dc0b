package ocr

import "errors"

// ErrNoAmount marks a scan whose text yielded no plausible total.
var ErrNoAmount = errors.New("no amount detected")

// ErrEmptyImage is returned when the engine is handed no image data.
var ErrEmptyImage = errors.New("empty image")
