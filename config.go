package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"strings"
	"time"

	"receiptscan/pkg/ocr"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
)

const devJWTSecret = "dev-insecure-secret-change"

// Config holds server settings. Every flag can also come from the environment
// (flag name upper-cased, dashes as underscores: --db-dsn is DB_DSN).
type Config struct {
	Addr           string
	DBDSN          string
	DBAutoMigrate  bool
	AdminPassword  string
	JWTSecret      []byte
	UploadBase     string
	OCRLang        string
	OCRPreprocess  ocr.PreprocessMode
	OCRPSM         int
	OCRTimeout     time.Duration
	MaxUploadBytes int64
	CORSOrigins    []string
	Mode           string
}

// Stateless reports whether the server runs without a database, serving only
// the public OCR endpoints.
func (c Config) Stateless() bool { return c.DBDSN == "" }

// loadDotEnv loads ./.env without overwriting variables that are already set.
func loadDotEnv() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("WARN reading .env: %v", err)
	}
}

func parseConfig(args []string) (Config, error) {
	flags := ff.NewFlagSet("receiptscan")
	var (
		addr        = flags.StringLong("addr", ":8081", "HTTP listen address")
		dsn         = flags.StringLong("db-dsn", "", "Postgres DSN; empty serves /ocr and /analyze only")
		autoMigrate = flags.StringLong("db-auto-migrate", "true", "run schema migrations at startup")
		adminPass   = flags.StringLong("admin-password", "admin123", "password for the seeded admin account")
		secret      = flags.StringLong("jwt-secret", "", "HMAC secret for access tokens")
		uploadBase  = flags.StringLong("upload-base", "uploads", "directory for stored receipt images")
		lang        = flags.StringLong("ocr-lang", "eng", "tesseract languages, e.g. eng+sin")
		preprocess  = flags.StringLong("ocr-preprocess", "gray", "image preprocessing: none, gray, binary or adaptive")
		psm         = flags.IntLong("ocr-psm", 3, "tesseract page segmentation mode")
		timeout     = flags.IntLong("ocr-timeout", 60, "OCR timeout in seconds")
		maxMB       = flags.IntLong("max-upload-mb", 10, "maximum upload size in MB")
		origins     = flags.StringLong("cors-origins", "*", "comma separated allowed origins")
		mode        = flags.StringLong("mode", gin.DebugMode, "gin mode: debug, release or test")
	)
	if err := ff.Parse(flags, args, ff.WithEnvVars()); err != nil {
		return Config{}, fmt.Errorf("%w\n%s", err, ffhelp.Flags(flags))
	}

	pre, err := ocr.ParsePreprocessMode(*preprocess)
	if err != nil {
		return Config{}, err
	}
	if *maxMB <= 0 {
		return Config{}, fmt.Errorf("max-upload-mb must be positive, got %d", *maxMB)
	}
	if *timeout <= 0 {
		return Config{}, fmt.Errorf("ocr-timeout must be positive, got %d", *timeout)
	}
	switch *mode {
	case gin.DebugMode, gin.ReleaseMode, gin.TestMode:
	case "prod":
		*mode = gin.ReleaseMode
	default:
		return Config{}, fmt.Errorf("unknown mode %q", *mode)
	}

	cfg := Config{
		Addr:           *addr,
		DBDSN:          strings.TrimSpace(*dsn),
		DBAutoMigrate:  enabled(*autoMigrate),
		AdminPassword:  *adminPass,
		JWTSecret:      []byte(*secret),
		UploadBase:     *uploadBase,
		OCRLang:        *lang,
		OCRPreprocess:  pre,
		OCRPSM:         *psm,
		OCRTimeout:     time.Duration(*timeout) * time.Second,
		MaxUploadBytes: int64(*maxMB) << 20,
		CORSOrigins:    splitList(*origins),
		Mode:           *mode,
	}
	if len(cfg.JWTSecret) == 0 {
		cfg.JWTSecret = []byte(devJWTSecret) // development fallback
	}
	return cfg, nil
}

// enabled treats false/0/no/off as off and everything else as on.
func enabled(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "false", "0", "no", "off":
		return false
	}
	return true
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
