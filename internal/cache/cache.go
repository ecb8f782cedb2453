// Package cache wraps a Redis-compatible client with the operations the
// dispatch core needs: caching the available-courier roster between
// windows, and a distributed lock so only one of several running replicas
// executes a given window's tick. Grounded directly on the teacher's
// pkg/cache.CacheService (go-redis/v9, JSON marshal/unmarshal, SetNX-based
// locking), narrowed to this service's two actual uses instead of the
// teacher's general-purpose grab bag.
package cache

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config mirrors the teacher's DragonflyConfig fields this service
// actually uses.
type Config struct {
	Addr         string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	TLSEnabled   bool
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultConfig returns sane connection defaults.
func DefaultConfig() Config {
	return Config{
		Addr:         "localhost:6379",
		PoolSize:     50,
		MinIdleConns: 5,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

// NewClient creates a go-redis client and verifies connectivity.
func NewClient(cfg Config) (*redis.Client, error) {
	opts := &redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	if cfg.TLSEnabled {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping failed: %w", err)
	}
	return client, nil
}

// RosterCache caches a JSON snapshot of a window's roster (ProcessBatch
// stores the FindAvailable result under work4food:roster:<batch_id>), letting a hot-reload HTTP endpoint or monitoring
// dashboard read the last window's roster without hitting the primary
// store directly.
type RosterCache struct {
	client redis.UniversalClient
}

// NewRosterCache wraps an existing client.
func NewRosterCache(client redis.UniversalClient) *RosterCache {
	return &RosterCache{client: client}
}

// SetRoster caches an arbitrary JSON-serializable roster snapshot under key
// with the given TTL, generally the batch window duration so a stale
// snapshot never outlives the run that produced it.
func (r *RosterCache) SetRoster(ctx context.Context, key string, roster interface{}, ttl time.Duration) error {
	data, err := json.Marshal(roster)
	if err != nil {
		return fmt.Errorf("marshal roster: %w", err)
	}
	return r.client.Set(ctx, key, data, ttl).Err()
}

// GetRoster reads back a cached roster snapshot, returning redis.Nil
// (wrapped) when absent or expired.
func (r *RosterCache) GetRoster(ctx context.Context, key string, dest interface{}) error {
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

// BatchLock is a SetNX-based distributed lock preventing two scheduler
// replicas from processing the same window concurrently, mirroring the
// teacher's CacheService.AcquireLock/ReleaseLock.
type BatchLock struct {
	client redis.UniversalClient
}

// NewBatchLock wraps an existing client.
func NewBatchLock(client redis.UniversalClient) *BatchLock {
	return &BatchLock{client: client}
}

// Acquire attempts to claim the lock for batchID, holding it for at most
// ttl so a crashed holder can't wedge future windows forever.
func (l *BatchLock) Acquire(ctx context.Context, batchID string, ttl time.Duration) (bool, error) {
	return l.client.SetNX(ctx, lockKey(batchID), "1", ttl).Result()
}

// Release frees the lock for batchID.
func (l *BatchLock) Release(ctx context.Context, batchID string) error {
	return l.client.Del(ctx, lockKey(batchID)).Err()
}

func lockKey(batchID string) string {
	return "work4food:batch-lock:" + batchID
}
