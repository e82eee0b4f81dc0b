package ocr

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/otiai10/gosseract/v2"
)

// Engine turns an encoded image into plain text.
type Engine interface {
	ExtractText(ctx context.Context, image []byte) (string, error)
}

// Tesseract runs OCR through libtesseract. A fresh client is created per call
// since gosseract clients are not safe for concurrent use.
type Tesseract struct {
	Languages []string
	// PageSegMode 0 (OSD only) never yields text, so it is treated as PSM_AUTO.
	PageSegMode gosseract.PageSegMode
	Preprocess  PreprocessMode
	Whitelist   string
	Timeout     time.Duration
}

// NewTesseract returns an engine for lang, written the way the tesseract CLI
// takes it ("eng" or "eng+sin").
func NewTesseract(lang string) *Tesseract {
	return &Tesseract{
		Languages:   ParseLanguages(lang),
		PageSegMode: gosseract.PSM_AUTO,
		Preprocess:  PreprocessGray,
		Timeout:     time.Minute,
	}
}

// ParseLanguages splits a "+" separated language list, defaulting to eng.
func ParseLanguages(lang string) []string {
	var out []string
	for _, l := range strings.Split(lang, "+") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	if len(out) == 0 {
		return []string{"eng"}
	}
	return out
}

// Version reports the linked libtesseract version.
func (t *Tesseract) Version() string {
	return gosseract.Version()
}

type ocrOutcome struct {
	text string
	err  error
}

// ExtractText preprocesses img and runs Tesseract over it. The underlying call
// cannot be interrupted; on cancellation the caller is released and the
// result is discarded when it arrives.
func (t *Tesseract) ExtractText(ctx context.Context, img []byte) (string, error) {
	if len(img) == 0 {
		return "", ErrEmptyImage
	}
	timeout := t.Timeout
	if timeout <= 0 {
		timeout = time.Minute
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := ctx.Err(); err != nil {
		return "", err
	}

	data := img
	// HEIC always goes through the decoder since leptonica cannot read it.
	if (t.Preprocess != "" && t.Preprocess != PreprocessNone) || IsHEIC(img) {
		prepared, err := preprocessBytes(img, t.Preprocess)
		if err != nil {
			// leptonica decodes a few formats imaging does not; hand it the original
			log.Printf("OCR preprocess skipped: %v", err)
		} else {
			data = prepared
		}
	}

	done := make(chan ocrOutcome, 1)
	go func() {
		text, err := t.run(data)
		done <- ocrOutcome{text: text, err: err}
	}()
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("tesseract: %w", ctx.Err())
	case out := <-done:
		if out.err != nil {
			return "", out.err
		}
		return normalizeNewlines(out.text), nil
	}
}

func (t *Tesseract) run(data []byte) (string, error) {
	client := gosseract.NewClient()
	defer client.Close()

	langs := t.Languages
	if len(langs) == 0 {
		langs = []string{"eng"}
	}
	if err := client.SetLanguage(langs...); err != nil {
		return "", fmt.Errorf("tesseract language: %w", err)
	}
	psm := t.PageSegMode
	if psm == gosseract.PSM_OSD_ONLY {
		psm = gosseract.PSM_AUTO
	}
	if err := client.SetPageSegMode(psm); err != nil {
		return "", fmt.Errorf("tesseract page seg mode: %w", err)
	}
	if t.Whitelist != "" {
		if err := client.SetWhitelist(t.Whitelist); err != nil {
			return "", fmt.Errorf("tesseract whitelist: %w", err)
		}
	}
	if err := client.SetImageFromBytes(data); err != nil {
		return "", fmt.Errorf("tesseract image: %w", err)
	}
	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("tesseract: %w", err)
	}
	return text, nil
}
