package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"review-portal-backend/internal/domain"
	"review-portal-backend/internal/logger"
)

const profileKeyPrefix = "portal:profile:user:"

// ErrMiss is returned by Get when no entry exists for the user.
var ErrMiss = errors.New("cache miss")

// ProfileCache keeps profiles keyed by auth user id.
type ProfileCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient builds the client used by ProfileCache.
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
}

func NewProfileCache(client *redis.Client, ttl time.Duration) *ProfileCache {
	return &ProfileCache{client: client, ttl: ttl}
}

func profileKey(userID string) string {
	return profileKeyPrefix + userID
}

// Ping verifies the connection.
func (c *ProfileCache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (c *ProfileCache) Get(ctx context.Context, userID string) (*domain.Profile, error) {
	val, err := c.client.Get(ctx, profileKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		logger.ExternalServiceResult("redis", "GET", err, "user_id", userID)
		return nil, err
	}

	var p domain.Profile
	if err := json.Unmarshal(val, &p); err != nil {
		return nil, fmt.Errorf("failed to decode cached profile: %w", err)
	}
	return &p, nil
}

func (c *ProfileCache) Set(ctx context.Context, p *domain.Profile) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode profile: %w", err)
	}
	if err := c.client.Set(ctx, profileKey(p.UserID), data, c.ttl).Err(); err != nil {
		logger.ExternalServiceResult("redis", "SET", err, "user_id", p.UserID)
		return err
	}
	return nil
}

func (c *ProfileCache) Invalidate(ctx context.Context, userID string) error {
	return c.client.Del(ctx, profileKey(userID)).Err()
}

// InvalidateAll drops every cached profile. Change events carry only the
// profile row id, not the user id, so a profile change clears the lot.
func (c *ProfileCache) InvalidateAll(ctx context.Context) error {
	logger.ExternalServiceCall("redis", "SCAN+DEL", "prefix", profileKeyPrefix)
	iter := c.client.Scan(ctx, 0, profileKeyPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		logger.ExternalServiceResult("redis", "SCAN", err)
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	err := c.client.Del(ctx, keys...).Err()
	logger.ExternalServiceResult("redis", "DEL", err, "count", len(keys))
	return err
}

func (c *ProfileCache) Close() error {
	return c.client.Close()
}
