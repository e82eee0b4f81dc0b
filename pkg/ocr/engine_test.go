package ocr

import (
	"bytes"
	"context"
	"image/color"
	"os/exec"
	"testing"

	"github.com/disintegration/imaging"
)

func TestTesseractRejectsEmptyImage(t *testing.T) {
	if _, err := NewTesseract("eng").ExtractText(context.Background(), nil); err != ErrEmptyImage {
		t.Fatalf("expected ErrEmptyImage got %v", err)
	}
}

func TestTesseractBlankReceiptHasNoAmount(t *testing.T) {
	if _, err := exec.LookPath("tesseract"); err != nil {
		t.Skip("tesseract not installed")
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, imaging.New(400, 200, color.NRGBA{255, 255, 255, 255}), imaging.PNG); err != nil {
		t.Fatalf("encode: %v", err)
	}
	text, err := NewTesseract("eng").ExtractText(context.Background(), buf.Bytes())
	if err != nil {
		t.Fatalf("ocr: %v", err)
	}
	if res := Analyze(text); res.HasTotal() {
		t.Fatalf("expected no amount on blank image, got %v (text %q)", *res.Total, text)
	}
}

func TestParseLanguages(t *testing.T) {
	got := ParseLanguages(" eng + sin ")
	if len(got) != 2 || got[0] != "eng" || got[1] != "sin" {
		t.Fatalf("unexpected languages %v", got)
	}
	if got := ParseLanguages(""); len(got) != 1 || got[0] != "eng" {
		t.Fatalf("expected eng default got %v", got)
	}
}
