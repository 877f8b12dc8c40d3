package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ba6-ai-server/internal/domain"

	"github.com/redis/go-redis/v9"
)

const catalogSnapshotKey = "model_catalog:snapshot"

// RedisCatalogCache shares the fetched model catalog between instances. It
// implements domain.CatalogSnapshotCache.
type RedisCatalogCache struct {
	client *redis.Client
	ttl    time.Duration
	logger domain.Logger
}

// NewRedisCatalogCache connects to the Redis instance at redisURL
func NewRedisCatalogCache(redisURL string, ttl time.Duration, logger domain.Logger) (*RedisCatalogCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid Redis URL: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Error("Failed to connect to Redis", err)
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Connected to Redis successfully", "addr", opts.Addr)
	return NewRedisCatalogCacheWithClient(client, ttl, logger), nil
}

func NewRedisCatalogCacheWithClient(client *redis.Client, ttl time.Duration, logger domain.Logger) *RedisCatalogCache {
	return &RedisCatalogCache{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

// Close closes the Redis connection
func (c *RedisCatalogCache) Close() error {
	return c.client.Close()
}

// LoadCatalog returns nil, nil on a cache miss
func (c *RedisCatalogCache) LoadCatalog(ctx context.Context) (*domain.CatalogSnapshot, error) {
	data, err := c.client.Get(ctx, catalogSnapshotKey).Bytes()
	if err != nil {
		if err == redis.Nil {
			c.logger.Debug("Model catalog not found in cache")
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get model catalog from cache: %w", err)
	}

	var snapshot domain.CatalogSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached model catalog: %w", err)
	}

	c.logger.Debug("Model catalog retrieved from cache", "count", len(snapshot.Models), "fetched_at", snapshot.FetchedAt)
	return &snapshot, nil
}

// StoreCatalog caches the snapshot. Entries may outlive the freshness window;
// readers judge freshness from FetchedAt.
func (c *RedisCatalogCache) StoreCatalog(ctx context.Context, snapshot domain.CatalogSnapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal model catalog: %w", err)
	}

	if err := c.client.Set(ctx, catalogSnapshotKey, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache model catalog: %w", err)
	}

	c.logger.Debug("Model catalog cached", "count", len(snapshot.Models))
	return nil
}
