package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"

	"receiptscan/pkg/database"
	"receiptscan/pkg/ocr"
	"receiptscan/process/rescan"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
)

// Re-runs OCR for scans stored without a total.
func main() {
	_ = godotenv.Load()

	fs := ff.NewFlagSet("cmd_rescan")
	var (
		username   = fs.StringLong("username", "", "only retry scans of this user")
		dsn        = fs.StringLong("db-dsn", "", "Postgres DSN")
		uploadBase = fs.StringLong("upload-base", "uploads", "directory API uploads are stored in")
		lang       = fs.StringLong("ocr-lang", "eng", "tesseract languages, e.g. eng+sin")
		preprocess = fs.StringLong("ocr-preprocess", "adaptive", "image preprocessing for the retry")
		limit      = fs.IntLong("limit", 0, "maximum scans to retry (0 = all)")
		dry        = fs.BoolLong("dry-run", "print proposed updates without saving")
	)
	if err := ff.Parse(fs, os.Args[1:], ff.WithEnvVars()); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		if errors.Is(err, ff.ErrHelp) {
			return
		}
		log.Fatalf("flags: %v", err)
	}

	mode, err := ocr.ParsePreprocessMode(*preprocess)
	if err != nil {
		log.Fatal(err)
	}
	engine := ocr.NewTesseract(*lang)
	engine.Preprocess = mode

	db := database.MustOpen(*dsn)
	var filter rescan.Filter
	filter.Limit = *limit
	if *username != "" {
		user, err := database.FindUser(db, *username)
		if err != nil {
			log.Fatal(err)
		}
		filter.UserID = user.ID
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	r := &rescan.Rescanner{DB: db, Engine: engine, UploadBase: *uploadBase, Dry: *dry}
	fixed, err := r.Run(ctx, filter)
	if err != nil {
		log.Fatalf("rescan: %v", err)
	}
	log.Printf("scans with a total after retry: %d", fixed)
}
