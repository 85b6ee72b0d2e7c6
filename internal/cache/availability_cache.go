package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/slotmarket/quota-api/internal/domain"
)

// AvailabilitySource is the uncached lookup, typically
// app.AvailabilityService.VariantAvailability with a zero timestamp.
type AvailabilitySource interface {
	VariantAvailability(ctx context.Context, variantID string, at time.Time) (domain.Availability, error)
}

// Store is the subset of the redis client the cache needs.
type Store interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// AvailabilityCache is a cache-aside layer for display reads ("3 left"). The
// TTL is short and answers may be stale; binding reservation decisions never
// go through here. Concurrent misses for the same variant collapse into a
// single store lookup.
type AvailabilityCache struct {
	source AvailabilitySource
	store  Store
	ttl    time.Duration
	group  singleflight.Group
}

const defaultCacheTTL = 2 * time.Second

func NewAvailabilityCache(source AvailabilitySource, store Store, opts ...CacheOption) *AvailabilityCache {
	c := &AvailabilityCache{
		source: source,
		store:  store,
		ttl:    defaultCacheTTL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type CacheOption func(*AvailabilityCache)

func WithTTL(d time.Duration) CacheOption {
	return func(c *AvailabilityCache) {
		if d > 0 {
			c.ttl = d
		}
	}
}

type cachedAvailability struct {
	Free        int  `json:"free"`
	Unlimited   bool `json:"unlimited"`
	Reclaimable int  `json:"reclaimable"`
}

func cacheKey(variantID string) string {
	return "availability:variant:" + variantID
}

// VariantAvailability serves from redis when possible and falls through to
// the source otherwise. Redis being down degrades to uncached reads; only
// source errors are returned.
func (c *AvailabilityCache) VariantAvailability(ctx context.Context, variantID string, at time.Time) (domain.Availability, error) {
	if !at.IsZero() || c.store == nil {
		// Historical lookups are not worth caching.
		return c.source.VariantAvailability(ctx, variantID, at)
	}

	key := cacheKey(variantID)
	if payload, err := c.store.Get(ctx, key).Result(); err == nil {
		var cached cachedAvailability
		if err := json.Unmarshal([]byte(payload), &cached); err == nil {
			return domain.Availability{
				Free:        cached.Free,
				Unlimited:   cached.Unlimited,
				Reclaimable: cached.Reclaimable,
			}, nil
		}
	}

	value, err, _ := c.group.Do(key, func() (any, error) {
		avail, err := c.source.VariantAvailability(ctx, variantID, time.Time{})
		if err != nil {
			return domain.Availability{}, err
		}

		payload, err := json.Marshal(cachedAvailability{
			Free:        avail.Free,
			Unlimited:   avail.Unlimited,
			Reclaimable: avail.Reclaimable,
		})
		if err == nil {
			_ = c.store.Set(ctx, key, payload, c.ttl).Err()
		}
		return avail, nil
	})
	if err != nil {
		return domain.Availability{}, err
	}
	return value.(domain.Availability), nil
}

// Invalidate drops the cached entry for a variant, used after admin changes
// to quota coverage.
func (c *AvailabilityCache) Invalidate(ctx context.Context, variantID string) {
	if c.store == nil {
		return
	}
	_ = c.store.Del(ctx, cacheKey(variantID)).Err()
}
