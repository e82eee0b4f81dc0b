// Package scandir ingests receipt images dropped into a directory: each file
// is OCRed, analyzed, recorded as a Scan and moved to an archive directory.
package scandir

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"receiptscan/models"
	"receiptscan/pkg/database"
	"receiptscan/pkg/ocr"

	"gorm.io/gorm"
)

// MIME mapping to avoid opening files repeatedly
var extMime = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".bmp":  "image/bmp",
	".tif":  "image/tiff",
	".tiff": "image/tiff",
	".heic": "image/heic",
	".heif": "image/heif",
}

// Scanner processes the images in Dir for one user. With a nil DB it runs
// dry: files are listed and, if SimulateOCR is set, analyzed, but nothing is
// written or moved.
type Scanner struct {
	DB          *gorm.DB
	Engine      ocr.Engine
	Dir         string
	ArchiveDir  string
	UserID      uint
	Workers     int
	SimulateOCR bool
	Verbose     bool
	// MaxArchiveBytes is the size above which archived images are downscaled.
	MaxArchiveBytes int64

	mu    sync.RWMutex
	known map[string]bool // file names already recorded for UserID
	store scanStore       // overrides DB for writes when set
}

// Stats counts what a run did.
type Stats struct {
	Processed int64
	NoTotal   int64
	Skipped   int64
	Errors    int64
}

func (s Stats) String() string {
	return fmt.Sprintf("processed=%d no_total=%d skipped=%d errors=%d", s.Processed, s.NoTotal, s.Skipped, s.Errors)
}

type counters struct{ processed, noTotal, skipped, errors atomic.Int64 }

func (c *counters) stats() Stats {
	return Stats{c.processed.Load(), c.noTotal.Load(), c.skipped.Load(), c.errors.Load()}
}

func (s *Scanner) dryRun() bool { return s.DB == nil && s.store == nil }

func (s *Scanner) scans() scanStore {
	if s.store != nil {
		return s.store
	}
	return gormStore{db: s.DB}
}

func (s *Scanner) workers() int {
	if s.Workers <= 0 {
		return runtime.NumCPU()
	}
	return s.Workers
}

func (s *Scanner) logV(format string, args ...any) {
	if s.Verbose {
		log.Printf(format, args...)
	}
}

// Preload loads the names of files already recorded for the user so reruns
// skip them without a query per file.
func (s *Scanner) Preload() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.known = make(map[string]bool, 1024)
	if s.DB == nil {
		return nil
	}
	var names []string
	err := s.DB.Model(&models.Scan{}).
		Where("user_id = ? AND source = ?", s.UserID, models.SourceWatch).
		Pluck("file_name", &names).Error
	if err != nil {
		return fmt.Errorf("preload scans: %w", err)
	}
	for _, n := range names {
		s.known[n] = true
	}
	return nil
}

func (s *Scanner) isKnown(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.known[name]
}

// claim marks name as known, returning false if it already was.
func (s *Scanner) claim(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.known == nil {
		s.known = map[string]bool{}
	}
	if s.known[name] {
		return false
	}
	s.known[name] = true
	return true
}

func (s *Scanner) release(name string) {
	s.mu.Lock()
	delete(s.known, name)
	s.mu.Unlock()
}

// Run processes files with a worker pool and waits for them to finish.
func (s *Scanner) Run(ctx context.Context, files []string) Stats {
	ch := make(chan string)
	go func() {
		defer close(ch)
		for _, f := range files {
			select {
			case ch <- f:
			case <-ctx.Done():
				return
			}
		}
	}()
	return s.consume(ctx, ch)
}

// consume runs the worker pool until ch is closed.
func (s *Scanner) consume(ctx context.Context, ch <-chan string) Stats {
	var c counters
	var wg sync.WaitGroup
	for i := 0; i < s.workers(); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for name := range ch {
				s.processFile(ctx, name, &c)
			}
		}()
	}
	wg.Wait()
	return c.stats()
}

func (s *Scanner) processFile(ctx context.Context, name string, c *counters) {
	if s.isKnown(name) {
		s.logV("SKIP already recorded %s", name)
		c.skipped.Add(1)
		return
	}
	if s.dryRun() && !s.SimulateOCR {
		log.Printf("DRY %s", name)
		c.processed.Add(1)
		return
	}
	if !s.claim(name) { // another worker has it
		c.skipped.Add(1)
		return
	}

	path := filepath.Join(s.Dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("ERROR read %s: %v", name, err)
		s.release(name)
		c.errors.Add(1)
		return
	}
	scan := models.Scan{
		UserID:      s.UserID,
		FileName:    name,
		ContentType: extMime[strings.ToLower(filepath.Ext(name))],
		Source:      models.SourceWatch,
	}
	text, err := s.Engine.ExtractText(ctx, data)
	if err != nil {
		s.logV("OCR fail %s: %v", name, err)
		scan.Fail(err)
	} else {
		scan.Apply(text, ocr.Analyze(text))
	}
	if scan.Failed {
		c.noTotal.Add(1)
	}

	if s.dryRun() {
		log.Printf("DRY %s total=%s currency=%s", name, fmtTotal(scan.Total), fmtCurrency(scan.Currency))
		c.processed.Add(1)
		return
	}

	if !s.record(&scan, path, c) {
		return
	}
	log.Printf("SCAN id=%d file=%s total=%s currency=%s", scan.ID, name, fmtTotal(scan.Total), fmtCurrency(scan.Currency))
	c.processed.Add(1)
}

// record inserts the row with its archive path and then moves the file.
// A failed insert leaves the file in Dir and releases the claim so a later
// run retries it. A failed move keeps the file in Dir and points the row there.
func (s *Scanner) record(scan *models.Scan, path string, c *counters) bool {
	name := scan.FileName
	scan.StorePath = filepath.ToSlash(filepath.Join(s.ArchiveDir, name))
	store := s.scans()
	inserted := true
	if err := store.Create(scan); err != nil {
		if !database.IsUniqueConstraintError(err) {
			log.Printf("ERROR create scan %s: %v", name, err)
			s.release(name)
			c.errors.Add(1)
			return false
		}
		inserted = false
	}

	stored, err := archiveFile(path, s.ArchiveDir, s.MaxArchiveBytes)
	if err != nil {
		log.Printf("WARN failed to archive %s: %v", name, err)
		stored = path
	}
	if p := filepath.ToSlash(stored); p != scan.StorePath {
		scan.StorePath = p
		if inserted {
			if err := store.UpdateStorePath(scan, p); err != nil {
				log.Printf("WARN update store path %s: %v", name, err)
			}
		}
	}
	return true
}

func fmtTotal(v *float64) string {
	if v == nil {
		return "null"
	}
	return fmt.Sprintf("%.2f", *v)
}

func fmtCurrency(v *string) string {
	if v == nil {
		return "null"
	}
	return *v
}

// ListImageFiles returns the supported image files directly inside dir, sorted.
func ListImageFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !IsSupportedExt(e.Name()) {
			continue
		}
		out = append(out, e.Name())
	}
	sort.Strings(out)
	return out, nil
}

// IsSupportedExt reports whether name looks like an image tesseract can read.
func IsSupportedExt(name string) bool {
	// ignore OCR-generated temp files and hidden partial downloads
	if strings.Contains(name, ".ocr.") || strings.HasPrefix(name, ".") {
		return false
	}
	_, ok := extMime[strings.ToLower(filepath.Ext(name))]
	return ok
}
