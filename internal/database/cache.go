package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

const (
	// Cache key prefixes
	CacheKeyPreferences = "patchwatch:prefs:"
	CacheKeyQueueStats  = "patchwatch:queue:stats"

	// Cache TTLs
	CacheTTLPreferences = 5 * time.Minute
	CacheTTLQueueStats  = 30 * time.Second
)

// PreferencesCacheKey builds the cache key for one user's preferences
func PreferencesCacheKey(userID uint) string {
	return fmt.Sprintf("%s%d", CacheKeyPreferences, userID)
}

// CacheGet retrieves a value from Redis cache and unmarshals it into dest.
// Nil-safe: without a Redis connection every lookup is a miss.
func CacheGet(key string, dest interface{}) error {
	if Redis == nil {
		return fmt.Errorf("cache unavailable")
	}
	ctx := context.Background()
	data, err := Redis.Get(ctx, key).Bytes()
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

// CacheSet stores a value in Redis cache with TTL
func CacheSet(key string, value interface{}, ttl time.Duration) error {
	if Redis == nil {
		return nil
	}
	ctx := context.Background()
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return Redis.Set(ctx, key, data, ttl).Err()
}

// CacheDelete removes keys from Redis cache
func CacheDelete(keys ...string) error {
	if Redis == nil || len(keys) == 0 {
		return nil
	}
	ctx := context.Background()
	return Redis.Del(ctx, keys...).Err()
}

// InvalidatePreferencesCache clears one user's cached preferences
func InvalidatePreferencesCache(userID uint) {
	CacheDelete(PreferencesCacheKey(userID))
}

// InvalidateQueueStatsCache clears the cached queue stats
func InvalidateQueueStatsCache() {
	CacheDelete(CacheKeyQueueStats)
}
