package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"receiptscan/pkg/database"
	"receiptscan/process/report"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
)

func main() {
	_ = godotenv.Load()

	fs := ff.NewFlagSet("cmd_report")
	var (
		username = fs.StringLong("username", "admin", "username to report for")
		month    = fs.StringLong("month", time.Now().UTC().Format("2006-01"), "month to report (YYYY-MM)")
		dsn      = fs.StringLong("db-dsn", "", "Postgres DSN")
		list     = fs.BoolLong("list", "list matching scans")
	)
	if err := ff.Parse(fs, os.Args[1:], ff.WithEnvVars()); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		if errors.Is(err, ff.ErrHelp) {
			return
		}
		os.Exit(2)
	}
	if *dsn == "" {
		fmt.Fprintln(os.Stderr, "DB_DSN not set; export DB_DSN and retry")
		os.Exit(2)
	}

	db := database.MustOpen(*dsn)
	r, scans, err := report.Load(db, *username, *month)
	if err != nil {
		log.Fatal(err)
	}
	if !*list {
		scans = nil
	}
	report.Write(os.Stdout, r, scans)
}
