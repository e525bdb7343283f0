package models

import (
	"log"

	"gorm.io/gorm"
)

// AutoMigrate creates or updates all tables used by the API.
func AutoMigrate(db *gorm.DB) error {
	log.Println("Running database migrations...")

	if err := db.AutoMigrate(
		&User{},
		&Dream{},
		&DreamVersion{},
		&PolishQuota{},
		&Achievement{},
		&UserAchievement{},
	); err != nil {
		return err
	}

	log.Println("Database migrations completed successfully")
	return nil
}
