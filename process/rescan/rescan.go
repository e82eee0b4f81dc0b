// Package rescan retries OCR for stored scans that have no total, typically
// with a more aggressive preprocessing mode than the one used at upload time.
package rescan

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"receiptscan/models"
	"receiptscan/pkg/ocr"

	"gorm.io/gorm"
)

// Rescanner re-reads failed scans. Scans uploaded through the API are stored
// relative to UploadBase; watch-folder scans carry their archive path.
type Rescanner struct {
	DB         *gorm.DB
	Engine     ocr.Engine
	UploadBase string
	Dry        bool
}

// Filter selects the scans to retry.
type Filter struct {
	UserID uint // 0 means every user
	Limit  int
}

// Run retries every matching scan and returns how many now have a total.
func (r *Rescanner) Run(ctx context.Context, f Filter) (int, error) {
	q := r.DB.Where("total IS NULL")
	if f.UserID != 0 {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	var scans []models.Scan
	if err := q.Order("id").Find(&scans).Error; err != nil {
		return 0, fmt.Errorf("load scans: %w", err)
	}
	log.Printf("retrying %d scans without a total", len(scans))

	fixed := 0
	for i := range scans {
		if err := ctx.Err(); err != nil {
			return fixed, err
		}
		sc := &scans[i]
		ok, err := r.Retry(ctx, sc)
		if err != nil {
			log.Printf("WARN scan id=%d file=%s: %v", sc.ID, sc.FileName, err)
			continue
		}
		if !ok {
			log.Printf("no total found for id=%d file=%s", sc.ID, sc.FileName)
			continue
		}
		if r.Dry {
			fmt.Printf("DRY: would update scan id=%d file=%s total=%.2f\n", sc.ID, sc.FileName, *sc.Total)
			fixed++
			continue
		}
		if err := r.DB.Save(sc).Error; err != nil {
			log.Printf("update id=%d: %v", sc.ID, err)
			continue
		}
		fmt.Printf("updated scan id=%d file=%s total=%.2f\n", sc.ID, sc.FileName, *sc.Total)
		fixed++
	}
	return fixed, nil
}

// Retry OCRs the stored image of sc again. When a total is found the scan is
// updated in memory and true is returned; otherwise sc is left untouched.
func (r *Rescanner) Retry(ctx context.Context, sc *models.Scan) (bool, error) {
	data, err := os.ReadFile(r.ImagePath(*sc))
	if err != nil {
		return false, err
	}
	text, err := r.Engine.ExtractText(ctx, data)
	if err != nil {
		return false, fmt.Errorf("ocr: %w", err)
	}
	res := ocr.Analyze(text)
	if !res.HasTotal() {
		return false, nil
	}
	sc.Apply(text, res)
	return true, nil
}

// ImagePath resolves where the image of sc lives on disk.
func (r *Rescanner) ImagePath(sc models.Scan) string {
	p := filepath.FromSlash(sc.StorePath)
	if sc.Source == models.SourceWatch || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(r.UploadBase, p)
}
