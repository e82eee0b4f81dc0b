package main

import (
	"errors"
	"os"
	"testing"
	"time"

	"receiptscan/pkg/ocr"

	"github.com/peterbourgon/ff/v4"
)

var configEnv = []string{
	"ADDR", "DB_DSN", "DB_AUTO_MIGRATE", "ADMIN_PASSWORD", "JWT_SECRET", "UPLOAD_BASE",
	"OCR_LANG", "OCR_PREPROCESS", "OCR_PSM", "OCR_TIMEOUT", "MAX_UPLOAD_MB", "CORS_ORIGINS", "MODE",
}

// clearConfigEnv unsets the config variables for the duration of the test.
func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, k := range configEnv {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestParseConfigDefaults(t *testing.T) {
	clearConfigEnv(t)
	cfg, err := parseConfig(nil)
	if err != nil {
		t.Fatalf("parseConfig: %v", err)
	}
	if cfg.Addr != ":8081" || !cfg.Stateless() || !cfg.DBAutoMigrate {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if string(cfg.JWTSecret) != devJWTSecret {
		t.Fatalf("jwt secret fallback not applied")
	}
	if cfg.OCRPreprocess != ocr.PreprocessGray || cfg.OCRPSM != 3 || cfg.OCRTimeout != time.Minute {
		t.Fatalf("unexpected OCR defaults: %+v", cfg)
	}
	if cfg.MaxUploadBytes != 10<<20 {
		t.Fatalf("max upload = %d", cfg.MaxUploadBytes)
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "*" {
		t.Fatalf("cors origins = %v", cfg.CORSOrigins)
	}
}

func TestParseConfigEnvAndFlags(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("DB_DSN", "host=localhost dbname=receipts")
	t.Setenv("DB_AUTO_MIGRATE", "no")
	t.Setenv("OCR_LANG", "eng+sin")
	t.Setenv("CORS_ORIGINS", "http://localhost:19006, https://app.example.com")
	t.Setenv("MODE", "prod")

	cfg, err := parseConfig([]string{"--addr", ":9000", "--ocr-preprocess", "adaptive", "--max-upload-mb", "2"})
	if err != nil {
		t.Fatalf("parseConfig: %v", err)
	}
	if cfg.Addr != ":9000" || cfg.Stateless() || cfg.DBAutoMigrate {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.OCRLang != "eng+sin" || cfg.OCRPreprocess != ocr.PreprocessAdaptive {
		t.Fatalf("unexpected OCR config: %+v", cfg)
	}
	if cfg.MaxUploadBytes != 2<<20 {
		t.Fatalf("max upload = %d", cfg.MaxUploadBytes)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://app.example.com" {
		t.Fatalf("cors origins = %v", cfg.CORSOrigins)
	}
	if cfg.Mode != "release" {
		t.Fatalf("mode = %q", cfg.Mode)
	}
}

func TestParseConfigErrors(t *testing.T) {
	clearConfigEnv(t)
	for _, args := range [][]string{
		{"--ocr-preprocess", "sepia"},
		{"--max-upload-mb", "0"},
		{"--ocr-timeout=-1"},
		{"--mode", "staging"},
		{"--no-such-flag"},
	} {
		if _, err := parseConfig(args); err == nil {
			t.Fatalf("parseConfig(%v) should fail", args)
		}
	}
	if _, err := parseConfig([]string{"--help"}); !errors.Is(err, ff.ErrHelp) {
		t.Fatalf("--help err = %v", err)
	}
}

func TestEnabled(t *testing.T) {
	for v, want := range map[string]bool{"": true, "true": true, "1": true, "FALSE": false, "0": false, "no": false, " off ": false} {
		if got := enabled(v); got != want {
			t.Fatalf("enabled(%q) = %v", v, got)
		}
	}
}
