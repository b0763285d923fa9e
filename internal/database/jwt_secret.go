package database

import (
	"crypto/rand"
	"encoding/hex"
	"log"

	"github.com/patchwatch/backend/internal/config"
)

const jwtSecretKey = "jwt_secret"

// SystemPreference is a persisted key/value setting
type SystemPreference struct {
	ID        uint   `gorm:"column:id;primaryKey"`
	Key       string `gorm:"column:key;size:100;uniqueIndex;not null"`
	Value     string `gorm:"column:value;type:text"`
	ValueType string `gorm:"column:value_type;size:20;default:string"`
}

func (SystemPreference) TableName() string {
	return "system_preferences"
}

// EnsureJWTSecret ensures the service-token secret is persisted in the
// database so tokens survive restarts. If no secret is stored yet, the
// configured (or generated) one is saved. Returns the secret to use.
func EnsureJWTSecret(cfg *config.Config) string {
	if DB == nil {
		log.Println("Warning: Database not connected, cannot persist JWT secret")
		return cfg.JWTSecret
	}

	if err := DB.AutoMigrate(&SystemPreference{}); err != nil {
		log.Printf("Warning: Failed to migrate system preferences: %v", err)
		return cfg.JWTSecret
	}

	var pref SystemPreference
	result := DB.Where("key = ?", jwtSecretKey).First(&pref)

	if result.Error == nil && pref.Value != "" {
		log.Println("JWT secret loaded from database - service tokens persist across restarts")
		return pref.Value
	}

	secret := cfg.JWTSecret
	if secret == "" {
		secret = generateSecureSecret(32)
	}

	pref = SystemPreference{
		Key:       jwtSecretKey,
		Value:     secret,
		ValueType: "string",
	}

	if err := DB.Create(&pref).Error; err != nil {
		// Try update if create fails (race condition)
		DB.Model(&SystemPreference{}).Where("key = ?", jwtSecretKey).Update("value", secret)
	}

	log.Println("JWT secret generated and persisted to database")
	return secret
}

// generateSecureSecret generates a cryptographically secure random secret
func generateSecureSecret(length int) string {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback
		return hex.EncodeToString([]byte("fallback-secret-change-me"))
	}
	return hex.EncodeToString(bytes)
}
