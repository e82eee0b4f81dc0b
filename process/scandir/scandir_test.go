package scandir

import (
	"context"
	"errors"
	"image"
	"image/color"
	"math/rand"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"sync"
	"testing"
	"time"

	"receiptscan/models"

	"github.com/disintegration/imaging"
)

type fakeEngine struct {
	mu    sync.Mutex
	calls int
	text  string
	err   error
}

func (f *fakeEngine) ExtractText(_ context.Context, _ []byte) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.text, f.err
}

type fakeStore struct {
	mu        sync.Mutex
	createErr error
	rows      []models.Scan
	updated   map[string]string
}

func (f *fakeStore) Create(scan *models.Scan) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	scan.ID = uint(len(f.rows) + 1)
	f.rows = append(f.rows, *scan)
	return nil
}

func (f *fakeStore) UpdateStorePath(scan *models.Scan, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updated == nil {
		f.updated = map[string]string{}
	}
	f.updated[scan.FileName] = path
	return nil
}

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, n := range names {
		if err := os.WriteFile(filepath.Join(dir, n), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestIsSupportedExt(t *testing.T) {
	tests := map[string]bool{
		"receipt.jpg":     true,
		"RECEIPT.JPEG":    true,
		"scan.png":        true,
		"fax.tiff":        true,
		"notes.txt":       false,
		"receipt.ocr.png": false,
		".receipt.jpg":    false,
		"noext":           false,
	}
	for name, want := range tests {
		if got := IsSupportedExt(name); got != want {
			t.Fatalf("IsSupportedExt(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestListImageFiles(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "b.png", "a.jpg", "readme.txt", "c.ocr.png")
	if err := os.Mkdir(filepath.Join(dir, "sub.png"), 0o755); err != nil {
		t.Fatal(err)
	}
	got, err := ListImageFiles(dir)
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"a.jpg", "b.png"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
	if _, err := ListImageFiles(filepath.Join(dir, "missing")); err == nil {
		t.Fatalf("expected error for missing dir")
	}
}

func TestDebouncer(t *testing.T) {
	d := newDebouncer(300 * time.Millisecond)
	t0 := time.Now()
	d.touch("a.png", t0)
	d.touch("b.png", t0.Add(200*time.Millisecond))

	if got := d.ready(t0.Add(250 * time.Millisecond)); len(got) != 0 {
		t.Fatalf("nothing should be ready yet, got %v", got)
	}
	if got := d.ready(t0.Add(350 * time.Millisecond)); !reflect.DeepEqual(got, []string{"a.png"}) {
		t.Fatalf("got %v", got)
	}
	// a write restarts the quiet period
	d.touch("b.png", t0.Add(400*time.Millisecond))
	if got := d.ready(t0.Add(600 * time.Millisecond)); len(got) != 0 {
		t.Fatalf("b.png still changing, got %v", got)
	}
	got := d.ready(t0.Add(time.Second))
	sort.Strings(got)
	if !reflect.DeepEqual(got, []string{"b.png"}) {
		t.Fatalf("got %v", got)
	}
	if got := d.ready(t0.Add(2 * time.Second)); len(got) != 0 {
		t.Fatalf("ready files must be forgotten, got %v", got)
	}
}

func TestRunDryRun(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "a.png", "b.png", "c.png")
	eng := &fakeEngine{text: "TOTAL $12.50"}
	s := &Scanner{Engine: eng, Dir: dir, Workers: 2}
	if err := s.Preload(); err != nil {
		t.Fatal(err)
	}
	files, _ := ListImageFiles(dir)

	st := s.Run(context.Background(), files)
	if st.Processed != 3 || eng.calls != 0 {
		t.Fatalf("plain dry run: stats=%v ocr calls=%d", st, eng.calls)
	}

	s.SimulateOCR = true
	st = s.Run(context.Background(), files)
	if st.Processed != 3 || st.NoTotal != 0 || eng.calls != 3 {
		t.Fatalf("simulated OCR: stats=%v ocr calls=%d", st, eng.calls)
	}
	// files stay in place during a dry run
	if left, _ := ListImageFiles(dir); len(left) != 3 {
		t.Fatalf("dry run moved files: %v", left)
	}
	// already seen in this process
	st = s.Run(context.Background(), files)
	if st.Skipped != 3 {
		t.Fatalf("rerun stats=%v", st)
	}
}

func TestRunCountsFailures(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "a.png", "b.png")
	s := &Scanner{Engine: &fakeEngine{err: errors.New("boom")}, Dir: dir, SimulateOCR: true}
	st := s.Run(context.Background(), []string{"a.png", "b.png", "gone.png"})
	if st.NoTotal != 2 || st.Errors != 1 {
		t.Fatalf("stats=%v", st)
	}
}

func TestRunKeepsFileWhenInsertFails(t *testing.T) {
	dir, archive := t.TempDir(), t.TempDir()
	writeFiles(t, dir, "a.png")
	store := &fakeStore{createErr: errors.New("connection refused")}
	s := &Scanner{Engine: &fakeEngine{text: "TOTAL $12.50"}, Dir: dir, ArchiveDir: archive, store: store}

	st := s.Run(context.Background(), []string{"a.png"})
	if st.Errors != 1 || st.Processed != 0 {
		t.Fatalf("stats=%v", st)
	}
	if _, err := os.Stat(filepath.Join(dir, "a.png")); err != nil {
		t.Fatalf("source file lost after failed insert: %v", err)
	}
	if left, _ := ListImageFiles(archive); len(left) != 0 {
		t.Fatalf("file archived without a row: %v", left)
	}
	if s.isKnown("a.png") {
		t.Fatalf("claim not released after failed insert")
	}

	// the next run picks the file up again
	store.createErr = nil
	st = s.Run(context.Background(), []string{"a.png"})
	if st.Processed != 1 || st.Errors != 0 {
		t.Fatalf("retry stats=%v", st)
	}
	want := filepath.ToSlash(filepath.Join(archive, "a.png"))
	if len(store.rows) != 1 || store.rows[0].StorePath != want {
		t.Fatalf("rows=%+v, want store path %s", store.rows, want)
	}
	if _, err := os.Stat(filepath.Join(archive, "a.png")); err != nil {
		t.Fatalf("file not archived: %v", err)
	}
}

func TestRunDuplicateRowStillArchives(t *testing.T) {
	dir, archive := t.TempDir(), t.TempDir()
	writeFiles(t, dir, "a.png")
	store := &fakeStore{createErr: errors.New(`duplicate key value violates unique constraint "idx_scans_user_file"`)}
	s := &Scanner{Engine: &fakeEngine{text: "TOTAL $3"}, Dir: dir, ArchiveDir: archive, store: store}

	st := s.Run(context.Background(), []string{"a.png"})
	if st.Processed != 1 || st.Errors != 0 {
		t.Fatalf("stats=%v", st)
	}
	if _, err := os.Stat(filepath.Join(archive, "a.png")); err != nil {
		t.Fatalf("file not archived: %v", err)
	}
}

func TestRunPointsRowAtSourceWhenArchiveFails(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "a.png")
	// a regular file where the archive directory should be
	archive := filepath.Join(t.TempDir(), "archive")
	if err := os.WriteFile(archive, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	store := &fakeStore{}
	s := &Scanner{Engine: &fakeEngine{text: "TOTAL $3"}, Dir: dir, ArchiveDir: archive, store: store}

	st := s.Run(context.Background(), []string{"a.png"})
	if st.Processed != 1 {
		t.Fatalf("stats=%v", st)
	}
	src := filepath.ToSlash(filepath.Join(dir, "a.png"))
	if got := store.updated["a.png"]; got != src {
		t.Fatalf("store path updated to %q, want %q", got, src)
	}
	if _, err := os.Stat(filepath.Join(dir, "a.png")); err != nil {
		t.Fatalf("source file missing: %v", err)
	}
}

func noiseImage(w, h int) image.Image {
	img := imaging.New(w, h, color.White)
	r := rand.New(rand.NewSource(1))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{uint8(r.Intn(256)), uint8(r.Intn(256)), uint8(r.Intn(256)), 255})
		}
	}
	return img
}

func TestArchiveFileMovesSmallFiles(t *testing.T) {
	src := t.TempDir()
	dst := filepath.Join(t.TempDir(), "archive")
	writeFiles(t, src, "a.png")

	got, err := archiveFile(filepath.Join(src, "a.png"), dst, DefaultMaxArchiveBytes)
	if err != nil {
		t.Fatal(err)
	}
	if got != filepath.Join(dst, "a.png") {
		t.Fatalf("archived to %s", got)
	}
	if _, err := os.Stat(filepath.Join(src, "a.png")); !os.IsNotExist(err) {
		t.Fatalf("source should be gone, stat err=%v", err)
	}
}

func TestArchiveFileDownscalesLargeImages(t *testing.T) {
	src := filepath.Join(t.TempDir(), "big.png")
	if err := imaging.Save(noiseImage(200, 200), src); err != nil {
		t.Fatal(err)
	}
	fi, _ := os.Stat(src)
	limit := fi.Size() / 4

	got, err := archiveFile(src, t.TempDir(), limit)
	if err != nil {
		t.Fatal(err)
	}
	img, err := imaging.Open(got)
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds().Dx() >= 200 {
		t.Fatalf("image not downscaled: %v", img.Bounds())
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Fatalf("source should be removed")
	}
}
