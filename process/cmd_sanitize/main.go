package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"receiptscan/pkg/database"
	"receiptscan/process/sanitize"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
)

func main() {
	_ = godotenv.Load()

	fs := ff.NewFlagSet("cmd_sanitize")
	var (
		dsn       = fs.StringLong("db-dsn", "", "Postgres DSN")
		tables    = fs.StringLong("tables", sanitize.DefaultTables, "comma-separated list of tables to truncate")
		execute   = fs.BoolLong("execute", "actually truncate; without it only the plan is shown")
		yes       = fs.BoolLong("yes", "confirm the destructive action")
		reseed    = fs.BoolLong("reseed", "after truncation, reseed roles and the admin user")
		adminPass = fs.StringLong("admin-password", "admin123", "password for the reseeded admin user")
	)
	if err := ff.Parse(fs, os.Args[1:], ff.WithEnvVars()); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		if errors.Is(err, ff.ErrHelp) {
			return
		}
		log.Fatal(err)
	}

	db := database.MustOpen(*dsn)
	opts := sanitize.Options{
		Tables:        *tables,
		DryRun:        !*execute,
		Yes:           *yes,
		Reseed:        *reseed,
		AdminPassword: *adminPass,
	}
	if err := sanitize.Run(context.Background(), db, opts, os.Stdout); err != nil {
		log.Fatal(err)
	}
}
