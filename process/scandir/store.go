package scandir

import (
	"receiptscan/models"

	"gorm.io/gorm"
)

// scanStore persists the rows written by a scan run.
type scanStore interface {
	Create(scan *models.Scan) error
	UpdateStorePath(scan *models.Scan, path string) error
}

type gormStore struct{ db *gorm.DB }

func (g gormStore) Create(scan *models.Scan) error { return g.db.Create(scan).Error }

func (g gormStore) UpdateStorePath(scan *models.Scan, path string) error {
	return g.db.Model(scan).Update("store_path", path).Error
}
