package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisSlot implements Slot on a Redis string key. With no primary behind
// it the blob never expires.
type RedisSlot struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisSlot creates a Redis-backed slot. Keys are namespaced by prefix.
func NewRedisSlot(rdb *redis.Client, prefix string) *RedisSlot {
	return &RedisSlot{rdb: rdb, prefix: prefix}
}

func (s *RedisSlot) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.rdb.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return data, nil
}

func (s *RedisSlot) Put(ctx context.Context, key string, data []byte) error {
	if err := s.rdb.Set(ctx, s.key(key), data, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (s *RedisSlot) key(k string) string { return fmt.Sprintf("%sslot:%s", s.prefix, k) }

// CachedSlot wraps a primary Slot (PostgreSQL) with a Redis read-through
// cache. Writes go to the primary store and refresh the cache; reads
// check Redis first then fall back to the primary.
type CachedSlot struct {
	primary Slot
	rdb     *redis.Client
	ttl     time.Duration
}

// NewCachedSlot creates a cached wrapper around a primary slot.
func NewCachedSlot(primary Slot, rdb *redis.Client, ttl time.Duration) *CachedSlot {
	return &CachedSlot{
		primary: primary,
		rdb:     rdb,
		ttl:     ttl,
	}
}

func (s *CachedSlot) Get(ctx context.Context, key string) ([]byte, error) {
	// Try cache.
	data, err := s.rdb.Get(ctx, cacheKey(key)).Bytes()
	if err == nil {
		return data, nil
	}

	// Cache miss: read from primary.
	data, err = s.primary.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	s.cache(ctx, key, data)
	return data, nil
}

func (s *CachedSlot) Put(ctx context.Context, key string, data []byte) error {
	if err := s.primary.Put(ctx, key, data); err != nil {
		// Drop the cached copy so a later read sees whatever the primary holds.
		s.rdb.Del(ctx, cacheKey(key))
		return err
	}
	s.cache(ctx, key, data)
	return nil
}

func (s *CachedSlot) cache(ctx context.Context, key string, data []byte) {
	if err := s.rdb.Set(ctx, cacheKey(key), data, s.ttl).Err(); err != nil {
		slog.Warn("slot cache write failed", "key", key, "err", err)
	}
}

func cacheKey(k string) string { return fmt.Sprintf("cache:%s", k) }
