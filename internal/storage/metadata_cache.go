package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/swap-notifier/internal/models"
)

// metadataSource is the backing read the cache falls through to.
type metadataSource interface {
	Get(ctx context.Context, tokenAddress, chain string) (*models.TokenMetadata, error)
}

// MetadataCache is a Redis read-through cache in front of the token metadata
// table. Cache failures degrade to database reads, never to errors.
type MetadataCache struct {
	cache *RedisCache
	repo  metadataSource
	ttl   time.Duration
}

// NewMetadataCache creates a new metadata cache
func NewMetadataCache(cache *RedisCache, repo metadataSource, ttl time.Duration) *MetadataCache {
	return &MetadataCache{
		cache: cache,
		repo:  repo,
		ttl:   ttl,
	}
}

func metadataKey(tokenAddress, chain string) string {
	return fmt.Sprintf("token_metadata:%s:%s", chain, NormalizeAddress(tokenAddress))
}

// Get returns token metadata, serving from Redis when possible.
func (c *MetadataCache) Get(ctx context.Context, tokenAddress, chain string) (*models.TokenMetadata, error) {
	key := metadataKey(tokenAddress, chain)

	cached, err := c.cache.Client().Get(ctx, key).Bytes()
	if err == nil {
		var meta models.TokenMetadata
		if jsonErr := json.Unmarshal(cached, &meta); jsonErr == nil {
			return &meta, nil
		}
		// Corrupt cache entry: drop it and fall through to the database
		c.cache.Client().Del(ctx, key)
	} else if !errors.Is(err, redis.Nil) {
		// Redis unavailable is not fatal; read from the database
	}

	meta, err := c.repo.Get(ctx, tokenAddress, chain)
	if err != nil {
		return nil, err
	}

	if data, jsonErr := json.Marshal(meta); jsonErr == nil {
		c.cache.Client().Set(ctx, key, data, c.ttl)
	}

	return meta, nil
}

// Invalidate drops the cached entry for a token/chain pair. Called by the
// metadata refresher after an upsert.
func (c *MetadataCache) Invalidate(ctx context.Context, tokenAddress, chain string) {
	c.cache.Client().Del(ctx, metadataKey(tokenAddress, chain))
}
