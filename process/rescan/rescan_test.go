package rescan

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"receiptscan/models"
)

type fakeEngine struct {
	text string
	err  error
}

func (f fakeEngine) ExtractText(context.Context, []byte) (string, error) { return f.text, f.err }

func TestImagePath(t *testing.T) {
	r := &Rescanner{UploadBase: "uploads"}
	tests := []struct {
		scan models.Scan
		want string
	}{
		{models.Scan{Source: models.SourceAPI, StorePath: "3/abc.png"}, filepath.Join("uploads", "3", "abc.png")},
		{models.Scan{Source: models.SourceWatch, StorePath: "public/processed/r.jpg"}, filepath.Join("public", "processed", "r.jpg")},
		{models.Scan{Source: models.SourceAPI, StorePath: "/srv/r.jpg"}, filepath.FromSlash("/srv/r.jpg")},
	}
	for _, tc := range tests {
		if got := r.ImagePath(tc.scan); got != tc.want {
			t.Fatalf("ImagePath(%+v) = %q, want %q", tc.scan, got, tc.want)
		}
	}
}

func TestRetry(t *testing.T) {
	base := t.TempDir()
	if err := os.MkdirAll(filepath.Join(base, "1"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(base, "1", "r.png"), []byte("img"), 0o644); err != nil {
		t.Fatal(err)
	}
	newScan := func() *models.Scan {
		sc := &models.Scan{Source: models.SourceAPI, StorePath: "1/r.png", RawText: "blurry"}
		sc.Fail(errors.New("no amount"))
		return sc
	}

	sc := newScan()
	r := &Rescanner{UploadBase: base, Engine: fakeEngine{text: "Grand Total: LKR 1,500 LKR 1500.00"}}
	ok, err := r.Retry(context.Background(), sc)
	if err != nil || !ok {
		t.Fatalf("Retry = %v, %v", ok, err)
	}
	if sc.Total == nil || *sc.Total != 1500 || sc.Failed || *sc.Currency != "LKR" {
		t.Fatalf("scan not updated: %+v", sc)
	}

	sc = newScan()
	r.Engine = fakeEngine{text: "still unreadable"}
	if ok, err := r.Retry(context.Background(), sc); ok || err != nil {
		t.Fatalf("Retry = %v, %v", ok, err)
	}
	if sc.RawText != "blurry" || !sc.Failed {
		t.Fatalf("scan changed without a total: %+v", sc)
	}

	r.Engine = fakeEngine{err: errors.New("tesseract gone")}
	if _, err := r.Retry(context.Background(), newScan()); err == nil {
		t.Fatalf("expected OCR error")
	}

	r.UploadBase = filepath.Join(base, "missing")
	if _, err := r.Retry(context.Background(), newScan()); err == nil {
		t.Fatalf("expected read error")
	}
}
