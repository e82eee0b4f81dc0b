package database

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"receiptscan/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Open connects to Postgres using dsn.
func Open(dsn string) (*gorm.DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("DB_DSN is not set")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return db, nil
}

// MustOpen is Open for command line tools.
func MustOpen(dsn string) *gorm.DB {
	db, err := Open(dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	return db
}

// Migrate creates or updates the schema. Models are migrated one by one so a
// permission problem on one table does not block the others.
func Migrate(db *gorm.DB) {
	for _, m := range []struct {
		table string
		model any
	}{
		{"roles", &models.Role{}},
		{"users", &models.User{}},
		{"scans", &models.Scan{}},
	} {
		if err := db.AutoMigrate(m.model); err != nil {
			log.Printf("migration warning (%s): %v", m.table, err)
		}
	}
}

// Seed ensures the master roles and an admin account exist.
func Seed(db *gorm.DB, adminPassword string) error {
	roles := []models.Role{
		{Name: models.RoleAdministrator, Description: "full access"},
		{Name: models.RoleUser, Description: "regular user"},
	}
	for _, r := range roles {
		if err := db.Where("name = ?", r.Name).FirstOrCreate(&r).Error; err != nil {
			return fmt.Errorf("seed role %s: %w", r.Name, err)
		}
	}

	var count int64
	db.Model(&models.User{}).Where("username = ?", "admin").Count(&count)
	if count > 0 {
		return nil
	}
	role, err := FindRole(db, models.RoleAdministrator)
	if err != nil {
		return err
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	admin := models.User{Username: "admin", HashedPassword: hashed, RoleID: &role.ID}
	if err := db.Create(&admin).Error; err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	log.Println("Seeded admin user: username=admin")
	return nil
}

// FindRole loads a role by name.
func FindRole(db *gorm.DB, name string) (models.Role, error) {
	var role models.Role
	if err := db.Where("name = ?", name).First(&role).Error; err != nil {
		return role, fmt.Errorf("find role %s: %w", name, err)
	}
	return role, nil
}

// RoleName resolves the role of u, or "" when it has none.
func RoleName(db *gorm.DB, u models.User) string {
	if u.RoleID == nil {
		return ""
	}
	var r models.Role
	if err := db.First(&r, *u.RoleID).Error; err != nil {
		return ""
	}
	return r.Name
}

// FindUser loads a user by username.
func FindUser(db *gorm.DB, username string) (models.User, error) {
	var u models.User
	if err := db.Where("username = ?", strings.TrimSpace(username)).First(&u).Error; err != nil {
		return u, fmt.Errorf("find user %s: %w", username, err)
	}
	return u, nil
}

// IsUniqueConstraintError reports whether err is a Postgres duplicate-key error.
func IsUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	s := err.Error()
	return strings.Contains(s, "duplicate key") || strings.Contains(s, "unique constraint") || strings.Contains(s, "already exists")
}

// MinPasswordLen is the basic password policy shared by the API and CLIs.
const MinPasswordLen = 6

// ErrUserExists is returned by CreateUser for a taken username.
var ErrUserExists = errors.New("user already exists")

// CreateUser hashes password and creates username with the given role,
// creating the role if it is missing.
func CreateUser(db *gorm.DB, username, password, roleName string) (models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return models.User{}, errors.New("username required")
	}
	if len(password) < MinPasswordLen {
		return models.User{}, fmt.Errorf("password too short (min %d)", MinPasswordLen)
	}
	if _, err := FindUser(db, username); err == nil {
		return models.User{}, ErrUserExists
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, err
	}
	role := models.Role{Name: roleName}
	if err := db.Where("name = ?", roleName).FirstOrCreate(&role).Error; err != nil {
		return models.User{}, fmt.Errorf("ensure role %s: %w", roleName, err)
	}
	user := models.User{Username: username, HashedPassword: hashed, RoleID: &role.ID}
	if err := db.Create(&user).Error; err != nil {
		if IsUniqueConstraintError(err) { // lost a race with another insert
			return models.User{}, ErrUserExists
		}
		return models.User{}, err
	}
	return user, nil
}

// SetPassword replaces the password hash of username.
func SetPassword(db *gorm.DB, username, password string) error {
	if len(password) < MinPasswordLen {
		return fmt.Errorf("password too short (min %d)", MinPasswordLen)
	}
	user, err := FindUser(db, username)
	if err != nil {
		return err
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return db.Model(&user).Update("hashed_password", hashed).Error
}
