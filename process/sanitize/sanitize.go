// Package sanitize truncates application tables, for resetting a development
// or staging database.
package sanitize

import (
	"context"
	"fmt"
	"io"
	"log"
	"regexp"
	"strings"
	"time"

	"receiptscan/pkg/database"

	"gorm.io/gorm"
)

// DefaultTables are the tables the service owns.
const DefaultTables = "roles,users,scans"

var tableNameRE = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Options controls a run. Nothing is truncated unless DryRun is false and Yes
// is set.
type Options struct {
	Tables        string
	DryRun        bool
	Yes           bool
	Reseed        bool
	AdminPassword string
}

// ParseTables splits a comma separated table list, dropping names that are
// not plain identifiers.
func ParseTables(csv string) (valid, invalid []string) {
	for _, p := range strings.Split(csv, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !tableNameRE.MatchString(p) {
			invalid = append(invalid, p)
			continue
		}
		valid = append(valid, p)
	}
	return valid, invalid
}

// TruncateStatement quotes the (already validated) identifiers.
func TruncateStatement(tables []string) string {
	quoted := make([]string, 0, len(tables))
	for _, t := range tables {
		quoted = append(quoted, fmt.Sprintf("%q", t))
	}
	return fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", strings.Join(quoted, ", "))
}

// Run truncates the requested tables that exist, reporting progress to w.
func Run(ctx context.Context, db *gorm.DB, opts Options, w io.Writer) error {
	wanted, invalid := ParseTables(opts.Tables)
	for _, t := range invalid {
		log.Printf("warning: skipping invalid table name '%s'", t)
	}

	var existing []string
	// check presence individually to avoid any injection risk
	for _, t := range wanted {
		var cnt int64
		if err := db.Raw("SELECT count(*) FROM pg_tables WHERE schemaname = 'public' AND tablename = ?", t).Scan(&cnt).Error; err != nil {
			return fmt.Errorf("query pg_tables for %s: %w", t, err)
		}
		if cnt > 0 {
			existing = append(existing, t)
		} else {
			log.Printf("info: table %s not found, skipping", t)
		}
	}
	if len(existing) == 0 {
		fmt.Fprintln(w, "no requested tables present in the database; nothing to do")
		return nil
	}

	fmt.Fprintln(w, "Tables considered for truncation:")
	for _, t := range existing {
		fmt.Fprintf(w, " - %s\n", t)
	}
	if opts.DryRun {
		fmt.Fprintln(w, "dry-run enabled; no changes will be made. Use --execute --yes to run it.")
		return nil
	}
	if !opts.Yes {
		fmt.Fprintln(w, "Destructive operation. Pass --yes to confirm execution. Aborting.")
		return nil
	}

	stmt := TruncateStatement(existing)
	log.Printf("Executing: %s", stmt)
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := db.WithContext(ctx).Exec(stmt).Error; err != nil {
		return fmt.Errorf("truncate: %w", err)
	}
	log.Println("Truncate completed.")

	if opts.Reseed {
		if err := database.Seed(db, opts.AdminPassword); err != nil {
			return fmt.Errorf("reseed: %w", err)
		}
	}
	return nil
}
