package main

import (
	"errors"
	"fmt"
	"log"
	"os"

	"receiptscan/pkg/database"
	"receiptscan/pkg/ocr"

	"github.com/gin-gonic/gin"
	"github.com/otiai10/gosseract/v2"
	"github.com/peterbourgon/ff/v4"
)

func main() {
	loadDotEnv()

	// `receiptscan migrate` runs migrations and seeding then exits.
	args := os.Args[1:]
	migrateOnly := len(args) > 0 && args[0] == "migrate"
	if migrateOnly {
		args = args[1:]
	}

	cfg, err := parseConfig(args)
	if errors.Is(err, ff.ErrHelp) {
		fmt.Fprintln(os.Stderr, err)
		return
	}
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	if migrateOnly {
		db := database.MustOpen(cfg.DBDSN)
		database.Migrate(db)
		if err := database.Seed(db, cfg.AdminPassword); err != nil {
			log.Fatalf("seed: %v", err)
		}
		fmt.Println("migration and seeding completed")
		return
	}

	a := &app{cfg: cfg, engine: newEngine(cfg)}
	if cfg.Stateless() {
		log.Println("DB_DSN not set: serving /ocr and /analyze only")
	} else {
		a.db = initDB(cfg)
	}

	gin.SetMode(cfg.Mode)
	r := gin.Default()
	setupRoutes(r, a)

	log.Printf("listening on %s", cfg.Addr)
	if err := r.Run(cfg.Addr); err != nil {
		log.Fatal(err)
	}
}

func newEngine(cfg Config) *ocr.Tesseract {
	t := ocr.NewTesseract(cfg.OCRLang)
	t.PageSegMode = gosseract.PageSegMode(cfg.OCRPSM)
	t.Preprocess = cfg.OCRPreprocess
	t.Timeout = cfg.OCRTimeout
	log.Printf("OCR engine: tesseract %s lang=%v psm=%d preprocess=%s", t.Version(), t.Languages, cfg.OCRPSM, t.Preprocess)
	return t
}
