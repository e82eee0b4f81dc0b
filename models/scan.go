package models

import (
	"time"
	"unicode/utf8"

	"receiptscan/pkg/ocr"
)

// Scan sources.
const (
	SourceAPI   = "api"
	SourceWatch = "watch"
)

// Scan is one receipt image run through OCR and the total/currency analyzer.
// Total and Currency stay NULL when nothing was found, so a zero total is
// distinguishable from a failed read.
type Scan struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	UserID      uint      `gorm:"index;not null" json:"user_id"`
	User        User      `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	FileName    string    `gorm:"size:255;not null;index" json:"file_name"`
	StorePath   string    `gorm:"column:store_path;size:512" json:"store_path"`
	ContentType string    `gorm:"size:128" json:"content_type"`
	Source      string    `gorm:"size:16;default:api" json:"source"`
	RawText     string    `gorm:"type:text" json:"raw_text"`
	Total       *float64  `gorm:"type:double precision" json:"total"`
	Currency    *string   `gorm:"size:8" json:"currency"`
	// Failed marks scans where OCR errored or no total was found; the row is
	// kept so they can be retried.
	Failed       bool   `gorm:"default:false;index" json:"failed"`
	FailedReason string `gorm:"size:255" json:"failed_reason,omitempty"`
}

// Apply records the OCR text and its analysis on the scan.
func (s *Scan) Apply(text string, res ocr.Result) {
	s.RawText = text
	s.Total = res.Total
	s.Currency = res.Currency
	s.Failed = !res.HasTotal()
	s.FailedReason = ""
	if s.Failed {
		s.FailedReason = ocr.ErrNoAmount.Error()
	}
}

// Fail marks the scan as failed because OCR itself errored.
func (s *Scan) Fail(err error) {
	s.Failed = true
	s.FailedReason = truncate(err.Error(), 255)
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
