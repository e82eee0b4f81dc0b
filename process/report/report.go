// Package report prints monthly scan totals for a user.
package report

import (
	"fmt"
	"io"
	"sort"
	"time"

	"receiptscan/models"
	"receiptscan/pkg/database"

	"gorm.io/gorm"
)

// Line is the total for one currency within the month. Currency is "" for
// scans whose receipt showed no currency marker.
type Line struct {
	Currency string
	Count    int
	Total    float64
}

// Report is a month-bounded summary of one user's scans.
type Report struct {
	Username string
	Month    string
	Scans    int
	NoTotal  int
	Lines    []Line
}

// MonthRange parses YYYY-MM into a [start, end) range in UTC.
func MonthRange(month string) (time.Time, time.Time, error) {
	t, err := time.Parse("2006-01", month)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid month %q, expected YYYY-MM: %w", month, err)
	}
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0), nil
}

// Summarize groups scans by currency. Scans without a total are only counted.
func Summarize(scans []models.Scan) ([]Line, int) {
	byCur := map[string]*Line{}
	noTotal := 0
	for _, s := range scans {
		if s.Total == nil {
			noTotal++
			continue
		}
		cur := ""
		if s.Currency != nil {
			cur = *s.Currency
		}
		l, ok := byCur[cur]
		if !ok {
			l = &Line{Currency: cur}
			byCur[cur] = l
		}
		l.Count++
		l.Total += *s.Total
	}
	lines := make([]Line, 0, len(byCur))
	for _, l := range byCur {
		lines = append(lines, *l)
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].Currency < lines[j].Currency })
	return lines, noTotal
}

// Load builds the report for username and month, also returning the scans.
func Load(db *gorm.DB, username, month string) (Report, []models.Scan, error) {
	start, end, err := MonthRange(month)
	if err != nil {
		return Report{}, nil, err
	}
	user, err := database.FindUser(db, username)
	if err != nil {
		return Report{}, nil, err
	}
	var scans []models.Scan
	if err := db.Where("user_id = ? AND created_at >= ? AND created_at < ?", user.ID, start, end).Order("id").Find(&scans).Error; err != nil {
		return Report{}, nil, fmt.Errorf("query scans: %w", err)
	}
	lines, noTotal := Summarize(scans)
	return Report{Username: user.Username, Month: month, Scans: len(scans), NoTotal: noTotal, Lines: lines}, scans, nil
}

// Write prints r and, when scans is non-nil, one row per scan.
func Write(w io.Writer, r Report, scans []models.Scan) {
	fmt.Fprintf(w, "Report for user=%s month=%s (UTC):\n", r.Username, r.Month)
	fmt.Fprintf(w, "  scans=%d without_total=%d\n", r.Scans, r.NoTotal)
	for _, l := range r.Lines {
		cur := l.Currency
		if cur == "" {
			cur = "(none)"
		}
		fmt.Fprintf(w, "  currency=%s count=%d total=%.2f\n", cur, l.Count, l.Total)
	}
	for _, s := range scans {
		total, cur := "", ""
		if s.Total != nil {
			total = fmt.Sprintf("%.2f", *s.Total)
		}
		if s.Currency != nil {
			cur = *s.Currency
		}
		fmt.Fprintf(w, "%d|%s|%s|%s|%s\n", s.ID, s.FileName, total, cur, s.CreatedAt.Format(time.RFC3339))
	}
}
