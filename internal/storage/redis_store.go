package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"tweet-digest/internal/config"
	"tweet-digest/internal/model"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient creates a Redis client from configuration.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// RedisStore caches enrichment results and guards pipeline runs.
type RedisStore struct {
	rdb      *redis.Client
	cacheTTL time.Duration
}

func NewRedisStore(rdb *redis.Client, cacheTTL time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, cacheTTL: cacheTTL}
}

func enrichmentKey(key string) string {
	return fmt.Sprintf("digest:enrichment:%s", key)
}

func runLockKey(partition string) string {
	return fmt.Sprintf("digest:run:%s:lock", partition)
}

func mergedKey(partition string) string {
	return fmt.Sprintf("digest:run:%s:merged", partition)
}

// GetEnrichment returns the enrichment cached under key.
func (s *RedisStore) GetEnrichment(ctx context.Context, key string) (model.Enrichment, bool, error) {
	var e model.Enrichment
	b, err := s.rdb.Get(ctx, enrichmentKey(key)).Bytes()
	if err == redis.Nil {
		return e, false, nil
	}
	if err != nil {
		return e, false, err
	}
	if err := json.Unmarshal(b, &e); err != nil {
		return e, false, err
	}
	return e, true, nil
}

// PutEnrichment caches e under key for the store's TTL.
func (s *RedisStore) PutEnrichment(ctx context.Context, key string, e model.Enrichment) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, enrichmentKey(key), b, s.cacheTTL).Err()
}

// AcquireRunLock takes the per-partition pipeline lock. It reports false when
// another run holds it.
func (s *RedisStore) AcquireRunLock(ctx context.Context, partition string, ttl time.Duration) (bool, error) {
	return s.rdb.SetNX(ctx, runLockKey(partition), time.Now().UTC().Format(time.RFC3339), ttl).Result()
}

// ReleaseRunLock drops the per-partition pipeline lock.
func (s *RedisStore) ReleaseRunLock(ctx context.Context, partition string) error {
	return s.rdb.Del(ctx, runLockKey(partition)).Err()
}

// RunLockHolder reports whether the partition is locked and since when.
func (s *RedisStore) RunLockHolder(ctx context.Context, partition string) (string, bool, error) {
	v, err := s.rdb.Get(ctx, runLockKey(partition)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

// LastMerged returns the aggregate size recorded by the latest merge of the
// partition.
func (s *RedisStore) LastMerged(ctx context.Context, partition string) (int, bool, error) {
	n, err := s.rdb.Get(ctx, mergedKey(partition)).Int()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return n, true, nil
}

// MarkMerged records the aggregate size after a merge of the partition.
func (s *RedisStore) MarkMerged(ctx context.Context, partition string, posts int) error {
	return s.rdb.Set(ctx, mergedKey(partition), posts, 30*24*time.Hour).Err()
}
