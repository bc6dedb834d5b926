// Package database also provides Redis-based caching for derived snapshots.
//
// The cache fronts the overview/reporting read paths (latest corpus, monthly
// return snapshots). When Redis is unavailable it falls back to an in-memory
// map so reporting keeps working without Redis.
package database

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis key prefixes for cached snapshots
const (
	// MonthlyReturnKeyPrefix is the prefix for cached monthly return
	// snapshots. Format: returns:monthly:{YYYY-MM}
	MonthlyReturnKeyPrefix = "returns:monthly"

	// CorpusKeyPrefix is the prefix for cached corpus resolutions.
	// Format: returns:corpus:{YYYY-MM-DD}
	CorpusKeyPrefix = "returns:corpus"
)

// SnapshotCache caches derived snapshots in Redis with an in-memory fallback
// when Redis is unavailable. Cached entries are throwaway: every cascade run
// invalidates the whole cache, so staleness is bounded by the TTL.
type SnapshotCache struct {
	client         *redis.Client
	ttl            time.Duration
	mu             sync.RWMutex
	memory         map[string][]byte
	redisAvailable atomic.Bool
}

// NewSnapshotCache creates a SnapshotCache. If client is nil, the cache
// operates in memory-only mode.
func NewSnapshotCache(client *redis.Client, ttl time.Duration) *SnapshotCache {
	c := &SnapshotCache{
		client: client,
		ttl:    ttl,
		memory: make(map[string][]byte),
	}

	if client != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			log.Printf("[SNAPSHOT-CACHE] Initial Redis connection failed, using in-memory fallback: %v", err)
		} else {
			c.redisAvailable.Store(true)
		}
	}

	return c
}

func monthlyReturnKey(month time.Time) string {
	return fmt.Sprintf("%s:%s", MonthlyReturnKeyPrefix, month.Format("2006-01"))
}

func corpusKey(asOf time.Time) string {
	return fmt.Sprintf("%s:%s", CorpusKeyPrefix, asOf.Format("2006-01-02"))
}

// GetMonthlyReturn returns the cached snapshot for a month, or nil on miss
func (c *SnapshotCache) GetMonthlyReturn(ctx context.Context, month time.Time) (*MonthlyReturn, error) {
	data, ok := c.get(ctx, monthlyReturnKey(month))
	if !ok {
		return nil, nil
	}

	mr := &MonthlyReturn{}
	if err := json.Unmarshal(data, mr); err != nil {
		return nil, fmt.Errorf("failed to decode cached monthly return: %w", err)
	}

	return mr, nil
}

// SetMonthlyReturn caches a monthly return snapshot
func (c *SnapshotCache) SetMonthlyReturn(ctx context.Context, mr *MonthlyReturn) error {
	data, err := json.Marshal(mr)
	if err != nil {
		return fmt.Errorf("failed to encode monthly return for cache: %w", err)
	}

	c.set(ctx, monthlyReturnKey(mr.Month), data)
	return nil
}

// GetCorpus returns a cached corpus resolution payload, or nil on miss. The
// payload is opaque JSON owned by the caller.
func (c *SnapshotCache) GetCorpus(ctx context.Context, asOf time.Time) ([]byte, bool) {
	return c.get(ctx, corpusKey(asOf))
}

// SetCorpus caches a corpus resolution payload
func (c *SnapshotCache) SetCorpus(ctx context.Context, asOf time.Time, payload []byte) {
	c.set(ctx, corpusKey(asOf), payload)
}

// InvalidateAll drops every cached entry. Called after each cascade run so
// readers never observe pre-recalculation snapshots.
func (c *SnapshotCache) InvalidateAll(ctx context.Context) {
	c.mu.Lock()
	c.memory = make(map[string][]byte)
	c.mu.Unlock()

	if c.client == nil || !c.redisAvailable.Load() {
		return
	}

	for _, prefix := range []string{MonthlyReturnKeyPrefix, CorpusKeyPrefix} {
		iter := c.client.Scan(ctx, 0, prefix+":*", 100).Iterator()
		var keys []string
		for iter.Next(ctx) {
			keys = append(keys, iter.Val())
		}
		if err := iter.Err(); err != nil {
			log.Printf("[SNAPSHOT-CACHE] Failed to scan keys for invalidation: %v", err)
			c.redisAvailable.Store(false)
			return
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				log.Printf("[SNAPSHOT-CACHE] Failed to delete cached keys: %v", err)
				c.redisAvailable.Store(false)
				return
			}
		}
	}
}

func (c *SnapshotCache) get(ctx context.Context, key string) ([]byte, bool) {
	if c.client != nil && c.redisAvailable.Load() {
		data, err := c.client.Get(ctx, key).Bytes()
		if err == nil {
			return data, true
		}
		if err != redis.Nil {
			log.Printf("[SNAPSHOT-CACHE] Redis get failed, falling back to memory: %v", err)
			c.redisAvailable.Store(false)
		}
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	data, ok := c.memory[key]
	return data, ok
}

func (c *SnapshotCache) set(ctx context.Context, key string, data []byte) {
	c.mu.Lock()
	c.memory[key] = data
	c.mu.Unlock()

	if c.client == nil || !c.redisAvailable.Load() {
		return
	}

	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		log.Printf("[SNAPSHOT-CACHE] Redis set failed: %v", err)
		c.redisAvailable.Store(false)
	}
}
