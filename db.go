package main

import (
	"log"
	"os"

	"receiptscan/pkg/database"

	"gorm.io/gorm"
)

// initDB connects, migrates when enabled and seeds. Any failure is fatal since
// a configured DSN means the account endpoints are expected to work.
func initDB(cfg Config) *gorm.DB {
	db, err := database.Open(cfg.DBDSN)
	if err != nil {
		log.Fatal("failed to connect postgres database: ", err)
	}
	if cfg.DBAutoMigrate {
		database.Migrate(db)
	}
	if err := database.Seed(db, cfg.AdminPassword); err != nil {
		log.Fatalf("seed: %v", err)
	}
	ensureUploadBase(cfg.UploadBase)
	return db
}

// ensureUploadBase creates the base uploads directory.
func ensureUploadBase(base string) {
	if err := os.MkdirAll(base, 0755); err != nil {
		log.Printf("failed to create upload base dir %s: %v", base, err)
	}
}
