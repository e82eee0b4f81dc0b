package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"receiptscan/pkg/database"
	"receiptscan/pkg/ocr"
	"receiptscan/process/scandir"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
)

// Scans a directory of receipt images, records a Scan per file for a user and
// archives processed files. Optional watch mode picks up new files as they land.
func main() {
	_ = godotenv.Load()

	fs := ff.NewFlagSet("cmd_scandir")
	var (
		dir         = fs.StringLong("dir", "public/receipts", "directory to scan for receipt images")
		archive     = fs.StringLong("archive-dir", "public/processed", "directory processed images are moved to")
		username    = fs.StringLong("username", "admin", "user the scans are recorded for")
		dsn         = fs.StringLong("db-dsn", "", "Postgres DSN")
		lang        = fs.StringLong("ocr-lang", "eng", "tesseract languages, e.g. eng+sin")
		preprocess  = fs.StringLong("ocr-preprocess", "gray", "image preprocessing: none, gray, binary or adaptive")
		workers     = fs.IntLong("workers", 0, "worker pool size (default NumCPU)")
		dryRun      = fs.BoolLong("dry-run", "skip all DB queries and writes; just list files")
		simulateOCR = fs.BoolLong("simulate-ocr", "in dry-run: actually run OCR to show detected totals")
		watch       = fs.BoolLong("watch", "keep watching the directory for new files")
		verbose     = fs.BoolLong("verbose", "verbose per-file logging")
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

	s := &scandir.Scanner{
		Engine:          engine,
		Dir:             *dir,
		ArchiveDir:      *archive,
		Workers:         *workers,
		SimulateOCR:     *simulateOCR,
		Verbose:         *verbose,
		MaxArchiveBytes: scandir.DefaultMaxArchiveBytes,
	}
	if *dryRun {
		log.Printf("Dry-run: scanning %s (no DB interaction)", *dir)
	} else {
		s.DB = database.MustOpen(*dsn)
		user, err := database.FindUser(s.DB, *username)
		if err != nil {
			log.Fatal(err)
		}
		s.UserID = user.ID
	}
	if err := s.Preload(); err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	files, err := scandir.ListImageFiles(*dir)
	if err != nil {
		log.Fatalf("list %s: %v", *dir, err)
	}
	log.Printf("Scanning %d files", len(files))
	log.Printf("Done: %s", s.Run(ctx, files))

	if *watch && !*dryRun {
		st, err := s.Watch(ctx)
		if err != nil {
			log.Fatalf("watch failed: %v", err)
		}
		log.Printf("Watch stopped: %s", st)
	}
}
