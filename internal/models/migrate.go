package models

import (
	"log"

	"gorm.io/gorm"
)

// AutoMigrate creates or updates the engine's tables. The task queue and
// notification log are owned by this service; the interest relations and
// profiles are created here too so a fresh install is self-contained, but
// their rows are written by the library and account subsystems.
func AutoMigrate(db *gorm.DB) error {
	log.Println("Running database migrations...")

	if err := db.AutoMigrate(
		&NotificationTask{},
		&Notification{},
		&NotificationPreferences{},
		&GameFollow{},
		&BacklogEntry{},
		&UserProfile{},
		&AlertRule{},
	); err != nil {
		return err
	}

	log.Println("Database migrations completed successfully")
	return nil
}
