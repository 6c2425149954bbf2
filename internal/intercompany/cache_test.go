package intercompany

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, time.Minute)
}

func TestCacheLoadsOnceUntilBump(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	loads := 0
	loader := func(context.Context) ([]Transaction, error) {
		loads++
		return []Transaction{{ID: 7, ReferenceNumber: "IC-AAA", Amount: decimal.NewFromInt(10)}}, nil
	}

	first, err := cache.Transactions(ctx, 1, loader)
	require.NoError(t, err)
	require.Len(t, first, 1)
	require.Equal(t, 1, loads)

	second, err := cache.Transactions(ctx, 1, loader)
	require.NoError(t, err)
	require.Equal(t, first[0].ID, second[0].ID)
	require.Equal(t, 1, loads, "second read must come from the cache")

	require.NoError(t, cache.Bump(ctx))

	_, err = cache.Transactions(ctx, 1, loader)
	require.NoError(t, err)
	require.Equal(t, 2, loads, "bump must invalidate the cached list")
}

func TestCacheKeysPerCompany(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	loads := map[int64]int{}
	loaderFor := func(companyID int64) func(context.Context) ([]Transaction, error) {
		return func(context.Context) ([]Transaction, error) {
			loads[companyID]++
			return []Transaction{{ID: companyID}}, nil
		}
	}

	one, err := cache.Transactions(ctx, 1, loaderFor(1))
	require.NoError(t, err)
	require.Equal(t, int64(1), one[0].ID)

	two, err := cache.Transactions(ctx, 2, loaderFor(2))
	require.NoError(t, err)
	require.Equal(t, int64(2), two[0].ID)

	require.Equal(t, 1, loads[1])
	require.Equal(t, 1, loads[2])
}

func TestCacheNilClientDegradesToLoader(t *testing.T) {
	var cache *Cache
	ctx := context.Background()

	loads := 0
	out, err := cache.Transactions(ctx, 1, func(context.Context) ([]Transaction, error) {
		loads++
		return []Transaction{{ID: 3}}, nil
	})
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, 1, loads)
	require.NoError(t, cache.Bump(ctx))
}

func TestCacheCorruptPayloadReloads(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	cache := NewCache(client, time.Minute)
	ctx := context.Background()

	// Warm the version so the key is predictable, then poison the payload.
	_, err := cache.Version(ctx)
	require.NoError(t, err)
	key, err := cache.key(ctx, 9)
	require.NoError(t, err)
	require.NoError(t, client.Set(ctx, key, "not-json", time.Minute).Err())

	out, err := cache.Transactions(ctx, 9, func(context.Context) ([]Transaction, error) {
		return []Transaction{{ID: 9}}, nil
	})
	require.NoError(t, err)
	require.Equal(t, int64(9), out[0].ID)
}
