package main

import (
	"errors"
	"fmt"
	"log"
	"os"

	"receiptscan/models"
	"receiptscan/pkg/database"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
)

func main() {
	_ = godotenv.Load()

	fs := ff.NewFlagSet("create_user")
	var (
		dsn   = fs.StringLong("db-dsn", "", "Postgres DSN")
		admin = fs.BoolLong("admin", "give the user the administrator role")
	)
	if err := ff.Parse(fs, os.Args[1:], ff.WithEnvVars()); err != nil || len(fs.GetArgs()) != 2 {
		fmt.Println("usage: go run ./cmd/create_user [--admin] <username> <password>")
		fmt.Printf("%s\n", ffhelp.Flags(fs))
		if err != nil && !errors.Is(err, ff.ErrHelp) {
			log.Fatal(err)
		}
		os.Exit(2)
	}
	username, password := fs.GetArgs()[0], fs.GetArgs()[1]

	role := models.RoleUser
	if *admin {
		role = models.RoleAdministrator
	}
	db := database.MustOpen(*dsn)
	user, err := database.CreateUser(db, username, password, role)
	if errors.Is(err, database.ErrUserExists) {
		fmt.Printf("user %s already exists\n", username)
		return
	}
	if err != nil {
		log.Fatalf("failed to create user: %v", err)
	}
	fmt.Printf("created user %s id=%d role=%s\n", username, user.ID, role)
}
