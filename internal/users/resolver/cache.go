package resolver

import (
	"context"
	"errors"
	"slotswap/pkg/logger"
	"slotswap/pkg/model"
	"time"

	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "slotswap:display_name:"

// Cache is the subset of the redis client used for display names.
type Cache interface {
	MGet(ctx context.Context, keys ...string) *redis.SliceCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

type cachedResolver struct {
	next  DisplayNameResolver
	cache Cache
	ttl   time.Duration
	log   *logger.Logger
}

// NewCachedResolver serves display names from redis and falls back to next on
// a miss. Fallback names are not cached so a user registered later shows up
// without waiting for the TTL. Cache errors only degrade to next.
func NewCachedResolver(next DisplayNameResolver, cache Cache, ttl time.Duration, log *logger.Logger) DisplayNameResolver {
	return &cachedResolver{next: next, cache: cache, ttl: ttl, log: log}
}

func cacheKey(userID string) string {
	return cacheKeyPrefix + userID
}

func (r *cachedResolver) ResolveDisplayName(ctx context.Context, userID string) string {
	return r.ResolveDisplayNames(ctx, []string{userID})[userID]
}

func (r *cachedResolver) ResolveDisplayNames(ctx context.Context, userIDs []string) map[string]string {
	ids := unique(userIDs)
	names := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return names
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = cacheKey(id)
	}

	var missing []string
	values, err := r.cache.MGet(ctx, keys...).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		r.log.WithContext(ctx).Warn("Display name cache read failed", "error", err)
		values = nil
	}
	for i, id := range ids {
		if i < len(values) {
			if name, ok := values[i].(string); ok && name != "" {
				names[id] = name
				continue
			}
		}
		missing = append(missing, id)
	}

	if len(missing) == 0 {
		return names
	}

	for id, name := range r.next.ResolveDisplayNames(ctx, missing) {
		names[id] = name
		if name == model.UnknownUserName {
			continue
		}
		if err := r.cache.Set(ctx, cacheKey(id), name, r.ttl).Err(); err != nil {
			r.log.WithContext(ctx).Warn("Display name cache write failed", "user_id", id, "error", err)
		}
	}
	return names
}
