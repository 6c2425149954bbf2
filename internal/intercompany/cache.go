package intercompany

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const cacheVersionKey = "intercompany:version"

// Cache keeps each company's transaction list in Redis so the matching
// cascade's local tier avoids a full table scan per lookup. A global version
// suffix invalidates every key at once when pairings change.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache instantiates the cache helper. A nil client degrades to
// pass-through loads.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// Version returns the current cache version, initialising when missing.
func (c *Cache) Version(ctx context.Context) (int64, error) {
	if c == nil || c.client == nil {
		return 0, nil
	}
	ver, err := c.client.Get(ctx, cacheVersionKey).Int64()
	if errors.Is(err, redis.Nil) {
		if err := c.client.Set(ctx, cacheVersionKey, 1, 0).Err(); err != nil {
			return 0, err
		}
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	return ver, nil
}

func (c *Cache) key(ctx context.Context, companyID int64) (string, error) {
	ver, err := c.Version(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("intercompany:txns:%d:%d", companyID, ver), nil
}

// Transactions loads a company's transaction list, serving from Redis when
// the current version holds a copy and falling back to the loader otherwise.
func (c *Cache) Transactions(ctx context.Context, companyID int64, loader func(context.Context) ([]Transaction, error)) ([]Transaction, error) {
	if loader == nil {
		return nil, errors.New("intercompany: cache loader required")
	}
	if c == nil || c.client == nil {
		return loader(ctx)
	}
	key, err := c.key(ctx, companyID)
	if err != nil {
		return nil, err
	}
	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var txns []Transaction
		if jsonErr := json.Unmarshal(payload, &txns); jsonErr == nil {
			return txns, nil
		}
		// Corrupt payload: fall through and reload.
	} else if !errors.Is(err, redis.Nil) {
		return nil, err
	}
	txns, err := loader(ctx)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(txns)
	if err != nil {
		return nil, err
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		return nil, err
	}
	return txns, nil
}

// Bump invalidates all cached lists by incrementing the global version.
func (c *Cache) Bump(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Incr(ctx, cacheVersionKey).Err()
}
