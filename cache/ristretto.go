package cache

import (
	"chatroom/errors"
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// RistrettoCache is the in-process cache backend.
type RistrettoCache struct {
	cache *ristretto.Cache[string, string]
}

func NewRistrettoCache(maxEntries int64) (*RistrettoCache, error) {
	c, err := ristretto.NewCache(&ristretto.Config[string, string]{
		NumCounters: maxEntries * 10,
		MaxCost:     maxEntries,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("ristretto: %w", err)
	}
	return &RistrettoCache{cache: c}, nil
}

func (r *RistrettoCache) Get(_ context.Context, key string) (string, error) {
	value, ok := r.cache.Get(key)
	if !ok {
		return "", errors.ErrCacheMiss
	}
	return value, nil
}

// Set stores value with an absolute ttl. Writes are buffered by ristretto,
// Wait makes them visible to the next Get.
func (r *RistrettoCache) Set(_ context.Context, key, value string, ttl time.Duration) error {
	if !r.cache.SetWithTTL(key, value, 1, ttl) {
		return fmt.Errorf("ristretto: set %q dropped", key)
	}
	r.cache.Wait()
	return nil
}

func (r *RistrettoCache) Remove(_ context.Context, key string) error {
	r.cache.Del(key)
	return nil
}

func (r *RistrettoCache) Close() {
	r.cache.Close()
}
