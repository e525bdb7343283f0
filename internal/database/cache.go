package database

import (
	"context"
	"encoding/json"
	"time"
)

const (
	// Cache key prefixes
	CacheKeyDream          = "dreamlog:dream:"
	CacheKeyDreamList      = "dreamlog:dreams:user:"
	CacheKeyTokenBlacklist = "dreamlog:token:blacklist:"

	// Cache TTLs
	CacheTTLDream     = 5 * time.Minute
	CacheTTLDreamList = 1 * time.Minute
)

// CacheGet retrieves a value from Redis cache and unmarshals it into dest
func CacheGet(key string, dest interface{}) error {
	ctx := context.Background()
	data, err := Redis.Get(ctx, key).Bytes()
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

// CacheSet stores a value in Redis cache with TTL
func CacheSet(key string, value interface{}, ttl time.Duration) error {
	ctx := context.Background()
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return Redis.Set(ctx, key, data, ttl).Err()
}

// CacheDelete removes a key from Redis cache
func CacheDelete(keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	ctx := context.Background()
	return Redis.Del(ctx, keys...).Err()
}

// CacheDeletePattern deletes all keys matching a pattern (use with caution)
func CacheDeletePattern(pattern string) error {
	ctx := context.Background()
	iter := Redis.Scan(ctx, 0, pattern, 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) > 0 {
		return Redis.Del(ctx, keys...).Err()
	}
	return nil
}

// InvalidateDreamCache clears cached display data for a dream and its
// owner's list pages. The cache is display-only; quota and version
// state are always read from the database.
func InvalidateDreamCache(dreamID, userID string) {
	if Redis == nil {
		return
	}
	CacheDelete(CacheKeyDream + dreamID)
	CacheDeletePattern(CacheKeyDreamList + userID + ":*")
}

// BlacklistToken marks a JWT as revoked until its natural expiry.
func BlacklistToken(token string, ttl time.Duration) error {
	if Redis == nil {
		return nil
	}
	ctx := context.Background()
	return Redis.Set(ctx, CacheKeyTokenBlacklist+token, "1", ttl).Err()
}

// IsTokenBlacklisted reports whether a JWT has been revoked via logout.
func IsTokenBlacklisted(token string) bool {
	if Redis == nil {
		return false
	}
	ctx := context.Background()
	n, err := Redis.Exists(ctx, CacheKeyTokenBlacklist+token).Result()
	return err == nil && n > 0
}
