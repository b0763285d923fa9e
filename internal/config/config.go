package config

import (
	"crypto/rand"
	"encoding/hex"
	"log"
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Database
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string

	// Redis
	RedisHost     string
	RedisPort     int
	RedisPassword string

	// JWT (service-to-service tokens for the ops API)
	JWTSecret      string
	JWTExpireHours int

	// API
	APIPort int

	// Worker
	SweepSchedule   string // cron spec for queue sweeps
	ReclaimSchedule string // cron spec for stale-task reclaim

	Policy EnginePolicy
}

// EnginePolicy holds the fan-out engine's tunable limits. It is injected
// into the queue, limiter and processor rather than read from globals so
// tests can shrink the windows and caps.
type EnginePolicy struct {
	DailyCap       int           // max non-reminder notifications per user per day
	ContentWindow  time.Duration // dedup window for patch/news/release/deal types
	ReminderWindow time.Duration // dedup window for saved_reminder
	MaxAttempts    int           // task retry cap
	BatchSize      int           // tasks claimed per sweep
	StaleAfter     time.Duration // processing tasks older than this are reclaimed
}

// DefaultPolicy returns the production limits
func DefaultPolicy() EnginePolicy {
	return EnginePolicy{
		DailyCap:       5,
		ContentWindow:  24 * time.Hour,
		ReminderWindow: 14 * 24 * time.Hour,
		MaxAttempts:    3,
		BatchSize:      10,
		StaleAfter:     15 * time.Minute,
	}
}

// generateSecureSecret generates a cryptographically secure random secret
func generateSecureSecret(length int) string {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to a hostname-based value if crypto/rand fails
		return hex.EncodeToString([]byte(os.Getenv("HOSTNAME") + string(rune(length))))
	}
	return hex.EncodeToString(bytes)
}

func Load() *Config {
	// JWT Secret - generate random if not provided
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		jwtSecret = generateSecureSecret(32) // 64 character hex string
		log.Println("WARNING: JWT_SECRET not set - generated random secret. Service tokens will not survive restarts.")
	}

	// Database password - warn if using default
	dbPassword := getEnv("DB_PASSWORD", "")
	if dbPassword == "" {
		log.Println("WARNING: DB_PASSWORD not set - this is insecure for production!")
		dbPassword = "changeme"
	}

	// Redis password - warn if using default
	redisPassword := getEnv("REDIS_PASSWORD", "")
	if redisPassword == "" {
		log.Println("WARNING: REDIS_PASSWORD not set - Redis is not secured!")
	}

	policy := DefaultPolicy()
	policy.DailyCap = getEnvInt("NOTIFY_DAILY_CAP", policy.DailyCap)
	policy.MaxAttempts = getEnvInt("TASK_MAX_ATTEMPTS", policy.MaxAttempts)
	policy.BatchSize = getEnvInt("SWEEP_BATCH_SIZE", policy.BatchSize)
	policy.ContentWindow = getEnvDuration("DEDUP_CONTENT_WINDOW", policy.ContentWindow)
	policy.ReminderWindow = getEnvDuration("DEDUP_REMINDER_WINDOW", policy.ReminderWindow)
	policy.StaleAfter = getEnvDuration("TASK_STALE_AFTER", policy.StaleAfter)

	return &Config{
		// Database
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnvInt("DB_PORT", 5432),
		DBUser:     getEnv("DB_USER", "patchwatch"),
		DBPassword: dbPassword,
		DBName:     getEnv("DB_NAME", "patchwatch"),

		// Redis
		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnvInt("REDIS_PORT", 6379),
		RedisPassword: redisPassword,

		// JWT
		JWTSecret:      jwtSecret,
		JWTExpireHours: getEnvInt("JWT_EXPIRE_HOURS", 168), // 7 days default

		// API
		APIPort: getEnvInt("API_PORT", 8080),

		// Worker
		SweepSchedule:   getEnv("SWEEP_SCHEDULE", "* * * * *"),
		ReclaimSchedule: getEnv("RECLAIM_SCHEDULE", "*/5 * * * *"),

		Policy: policy,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
