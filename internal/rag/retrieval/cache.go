package retrieval

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/akolanti/TutorAPI/internal/config"
	"github.com/akolanti/TutorAPI/internal/data/redisStore"
	"github.com/akolanti/TutorAPI/internal/domain/commonModels"
)

// CacheKey identifies one cached search. Bucket is the owner id or the public bucket.
type CacheKey struct {
	Bucket  string
	Purpose commonModels.Purpose
	Query   string
}

func NewCacheKey(ownerId string, purpose commonModels.Purpose, query string) CacheKey {
	bucket := ownerId
	if bucket == "" {
		bucket = config.PublicOwnerBucket
	}
	return CacheKey{Bucket: bucket, Purpose: purpose, Query: query}
}

// Cache is a read through store of search results. Entries older than the TTL are absent.
type Cache interface {
	Get(ctx context.Context, key CacheKey) ([]commonModels.RetrievalResult, bool, error)
	Set(ctx context.Context, key CacheKey, results []commonModels.RetrievalResult) error
	Invalidate(ctx context.Context, bucket string) error
	InvalidateAll(ctx context.Context) error
}

type memoryEntry struct {
	results  []commonModels.RetrievalResult
	storedAt time.Time
}

type MemoryCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	now     func() time.Time
	buckets map[string]map[CacheKey]memoryEntry
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		ttl:     ttl,
		now:     time.Now,
		buckets: make(map[string]map[CacheKey]memoryEntry),
	}
}

// WithClock swaps the time source, for tests.
func (c *MemoryCache) WithClock(now func() time.Time) *MemoryCache {
	c.now = now
	return c
}

func (c *MemoryCache) Get(ctx context.Context, key CacheKey) ([]commonModels.RetrievalResult, bool, error) {
	c.mu.RLock()
	entry, ok := c.buckets[key.Bucket][key]
	c.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if c.now().Sub(entry.storedAt) >= c.ttl {
		c.mu.Lock()
		if current, still := c.buckets[key.Bucket][key]; still && current.storedAt.Equal(entry.storedAt) {
			delete(c.buckets[key.Bucket], key)
		}
		c.mu.Unlock()
		return nil, false, nil
	}
	return append([]commonModels.RetrievalResult(nil), entry.results...), true, nil
}

func (c *MemoryCache) Set(ctx context.Context, key CacheKey, results []commonModels.RetrievalResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	bucket, ok := c.buckets[key.Bucket]
	if !ok {
		bucket = make(map[CacheKey]memoryEntry)
		c.buckets[key.Bucket] = bucket
	}
	bucket[key] = memoryEntry{
		results:  append([]commonModels.RetrievalResult(nil), results...),
		storedAt: c.now(),
	}
	return nil
}

func (c *MemoryCache) Invalidate(ctx context.Context, bucket string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.buckets, bucket)
	return nil
}

func (c *MemoryCache) InvalidateAll(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.buckets = make(map[string]map[CacheKey]memoryEntry)
	return nil
}

// RedisCache leaves expiry to Redis. Keys look like rag:search:<bucket>:<sha256(purpose::query)>.
type RedisCache struct {
	store *redisStore.Store
	ttl   time.Duration
}

func NewRedisCache(store *redisStore.Store, ttl time.Duration) *RedisCache {
	return &RedisCache{store: store, ttl: ttl}
}

func (c *RedisCache) redisKey(key CacheKey) string {
	sum := sha256.Sum256([]byte(string(key.Purpose) + "::" + key.Query))
	return config.RetrievalCachePrefix + escapeBucket(key.Bucket) + ":" + hex.EncodeToString(sum[:])
}

// owner ids end up inside a SCAN pattern, so glob characters are escaped
func escapeBucket(bucket string) string {
	return strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`).Replace(bucket)
}

func (c *RedisCache) Get(ctx context.Context, key CacheKey) ([]commonModels.RetrievalResult, bool, error) {
	val, err := c.store.Get(ctx, c.redisKey(key))
	if c.store.IsNil(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var results []commonModels.RetrievalResult
	if err := json.Unmarshal([]byte(val), &results); err != nil {
		return nil, false, err
	}
	return results, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key CacheKey, results []commonModels.RetrievalResult) error {
	if results == nil {
		results = []commonModels.RetrievalResult{}
	}
	data, err := json.Marshal(results)
	if err != nil {
		return err
	}
	return c.store.Set(ctx, c.redisKey(key), data, c.ttl)
}

func (c *RedisCache) Invalidate(ctx context.Context, bucket string) error {
	_, err := c.store.DelPattern(ctx, config.RetrievalCachePrefix+escapeBucket(bucket)+":*")
	return err
}

func (c *RedisCache) InvalidateAll(ctx context.Context) error {
	_, err := c.store.DelPattern(ctx, config.RetrievalCachePrefix+"*")
	return err
}
