package repository

import (
	"gorm.io/gorm"

	"github.com/07Akashh/DriveBackend/internal/domain"
)

// AutoMigrate creates or updates the schema for every table the service
// owns. Called once at startup and by test fixtures.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&userModel{},
		&domain.Media{},
		&domain.ShareGrant{},
		&domain.AuditEntry{},
	)
}
