package main

import (
	"errors"
	"fmt"
	"log"
	"os"

	"receiptscan/pkg/database"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
)

func main() {
	_ = godotenv.Load()

	fs := ff.NewFlagSet("reset_password")
	var (
		username = fs.StringLong("username", "", "username to reset")
		password = fs.StringLong("password", "", "new plaintext password (min 6 chars)")
		dsn      = fs.StringLong("db-dsn", "", "Postgres DSN")
	)
	if err := ff.Parse(fs, os.Args[1:], ff.WithEnvVars()); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		if errors.Is(err, ff.ErrHelp) {
			return
		}
		log.Fatal(err)
	}
	if *username == "" || *password == "" {
		log.Fatal("--username and --password are required")
	}

	db := database.MustOpen(*dsn)
	if err := database.SetPassword(db, *username, *password); err != nil {
		log.Fatalf("reset failed: %v", err)
	}
	fmt.Printf("Password reset for user %s\n", *username)
}
