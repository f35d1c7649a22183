package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/kaizenflow/kaizen-approvals/internal/application/port"
	"github.com/kaizenflow/kaizen-approvals/internal/domain/entity"
)

// SettingsKey is the Redis key holding the cached settings document
const SettingsKey = "kaizen:settings"

// Client is the subset of *redis.Client the cache uses
type Client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// SettingsCache is a read-through Redis cache in front of a SettingsProvider.
// Redis failures degrade to direct reads; they never fail a workflow transition.
type SettingsCache struct {
	client Client
	next   port.SettingsProvider
	ttl    time.Duration
	logger *zap.Logger
}

// NewSettingsCache creates a new SettingsCache
func NewSettingsCache(client Client, next port.SettingsProvider, ttl time.Duration, logger *zap.Logger) *SettingsCache {
	return &SettingsCache{
		client: client,
		next:   next,
		ttl:    ttl,
		logger: logger,
	}
}

// CostThresholds implements port.SettingsProvider
func (c *SettingsCache) CostThresholds(ctx context.Context) (entity.CostThresholds, error) {
	settings, err := c.Settings(ctx)
	if err != nil {
		return entity.CostThresholds{}, err
	}
	return settings.CostThresholds, nil
}

// Settings implements port.SettingsProvider
func (c *SettingsCache) Settings(ctx context.Context) (*entity.Settings, error) {
	cached, err := c.client.Get(ctx, SettingsKey).Result()
	switch {
	case err == nil:
		var settings entity.Settings
		if err := json.Unmarshal([]byte(cached), &settings); err == nil {
			return &settings, nil
		}
		c.logger.Warn("Discarding unreadable cached settings", zap.String("key", SettingsKey))
	case errors.Is(err, redis.Nil):
	default:
		c.logger.Warn("Settings cache read failed", zap.Error(err))
	}

	settings, err := c.next.Settings(ctx)
	if err != nil {
		return nil, err
	}

	serialized, err := json.Marshal(settings)
	if err != nil {
		return nil, fmt.Errorf("encode settings: %w", err)
	}
	if err := c.client.Set(ctx, SettingsKey, serialized, c.ttl).Err(); err != nil {
		c.logger.Warn("Settings cache write failed", zap.Error(err))
	}
	return settings, nil
}

// Invalidate implements port.SettingsInvalidator
func (c *SettingsCache) Invalidate(ctx context.Context) error {
	if err := c.client.Del(ctx, SettingsKey).Err(); err != nil {
		return fmt.Errorf("invalidate settings cache: %w", err)
	}
	return nil
}

var (
	_ port.SettingsProvider    = (*SettingsCache)(nil)
	_ port.SettingsInvalidator = (*SettingsCache)(nil)
)
