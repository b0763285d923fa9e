package services

import (
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/patchwatch/backend/internal/config"
	"github.com/patchwatch/backend/internal/database"
	"github.com/patchwatch/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB points the package's global DB at a throwaway sqlite file
// for the duration of one test. Redis stays nil, so the cache helpers
// degrade to misses.
func setupTestDB(t *testing.T) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	prev := database.DB
	database.DB = db
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
		database.DB = prev
	})
}

func testPolicy() config.EnginePolicy {
	return config.DefaultPolicy()
}

func follow(t *testing.T, userID, gameID uint) {
	t.Helper()
	if err := database.DB.Create(&models.GameFollow{UserID: userID, GameID: gameID}).Error; err != nil {
		t.Fatalf("failed to seed follow: %v", err)
	}
}

func backlog(t *testing.T, userID, gameID uint) {
	t.Helper()
	if err := database.DB.Create(&models.BacklogEntry{UserID: userID, GameID: gameID}).Error; err != nil {
		t.Fatalf("failed to seed backlog entry: %v", err)
	}
}

func savePrefs(t *testing.T, prefs *models.NotificationPreferences) {
	t.Helper()
	if err := database.DB.Create(prefs).Error; err != nil {
		t.Fatalf("failed to seed preferences: %v", err)
	}
}
