// Package cache wraps a storage.Store with an in-process LRU tier and an
// optional Redis tier.
//
// Reads check the LRU first, then Redis, then the wrapped store. Concurrent
// misses for the same key share one backend load. Redis failures are logged
// and never surface to the caller.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"
	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"github.com/platinummonkey/conceptdoc/pkg/entity"
	"github.com/platinummonkey/conceptdoc/pkg/observability"
	"github.com/platinummonkey/conceptdoc/pkg/storage"
)

const (
	tierL1 = "l1"
	tierL2 = "redis"

	keyEntity = "entity"
	keyTree   = "tree"

	rootKey = "root"

	// DefaultKeyPrefix namespaces Redis keys
	DefaultKeyPrefix = "conceptdoc:"
)

// Options configures a Store
type Options struct {
	L1Size    int
	EntityTTL time.Duration
	TreeTTL   time.Duration
	Redis     *redis.Client // optional
	KeyPrefix string
	Metrics   *observability.Metrics // optional
	Logger    *observability.Logger  // optional

	// LoadTimeout bounds a backend load shared by concurrent callers
	LoadTimeout time.Duration
}

// Store is a caching storage.Store
type Store struct {
	store    storage.Store
	entities *lru.LRU[int64, *entity.Entity]
	trees    *lru.LRU[string, []entity.TreeNode]
	redis    *redis.Client
	prefix   string
	opts     Options
	group    singleflight.Group
	purging  atomic.Bool

	// generation changes on every Purge; fillMu orders fills against it
	generation atomic.Uint64
	fillMu     sync.RWMutex

	metrics *observability.Metrics
	logger  *observability.Logger
}

// New wraps store. When the store reloads from a snapshot, the cache purges itself.
func New(store storage.Store, opts Options) *Store {
	if opts.L1Size <= 0 {
		opts.L1Size = 1024
	}
	if opts.EntityTTL <= 0 {
		opts.EntityTTL = 5 * time.Minute
	}
	if opts.TreeTTL <= 0 {
		opts.TreeTTL = time.Minute
	}
	if opts.LoadTimeout <= 0 {
		opts.LoadTimeout = 30 * time.Second
	}
	if opts.KeyPrefix == "" {
		opts.KeyPrefix = DefaultKeyPrefix
	}
	if opts.Logger == nil {
		opts.Logger = observability.NewLogger(observability.InfoLevel, nil)
	}

	c := &Store{
		store:   store,
		redis:   opts.Redis,
		prefix:  opts.KeyPrefix,
		opts:    opts,
		metrics: opts.Metrics,
		logger:  opts.Logger.WithField("component", "cache"),
	}
	c.entities = lru.NewLRU[int64, *entity.Entity](opts.L1Size, func(int64, *entity.Entity) { c.evicted() }, opts.EntityTTL)
	c.trees = lru.NewLRU[string, []entity.TreeNode](opts.L1Size, func(string, []entity.TreeNode) { c.evicted() }, opts.TreeTTL)

	if notifier, ok := store.(interface{ OnReplace(func()) }); ok {
		notifier.OnReplace(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := c.Purge(ctx); err != nil {
				c.logger.WithError(err).Warn("Failed to purge cache after reload")
			}
		})
	}
	return c
}

func (c *Store) evicted() {
	if c.metrics == nil {
		return
	}
	reason := "evicted"
	if c.purging.Load() {
		reason = "purged"
	}
	c.metrics.CacheEvictionsTotal.WithLabelValues(tierL1, reason).Inc()
}

// Get implements entity.Source
func (c *Store) Get(ctx context.Context, id int64) (*entity.Entity, error) {
	if e, ok := c.entities.Get(id); ok {
		c.hit(tierL1, keyEntity)
		return e, nil
	}
	c.miss(tierL1, keyEntity)

	key := c.key(keyEntity, strconv.FormatInt(id, 10))
	v, err := c.load(ctx, key, func(ctx context.Context, gen uint64) (any, error) {
		var e entity.Entity
		if c.getRemote(ctx, key, keyEntity, &e) {
			c.fill(gen, func() { c.entities.Add(id, &e) })
			return &e, nil
		}

		loaded, err := c.store.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		c.fill(gen, func() {
			c.entities.Add(id, loaded)
			c.setRemote(ctx, key, loaded, c.opts.EntityTTL)
		})
		return loaded, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*entity.Entity), nil
}

// TreeLevel implements entity.Source
func (c *Store) TreeLevel(ctx context.Context, parent *int64) ([]entity.TreeNode, error) {
	suffix := rootKey
	if parent != nil {
		suffix = strconv.FormatInt(*parent, 10)
	}
	if nodes, ok := c.trees.Get(suffix); ok {
		c.hit(tierL1, keyTree)
		return nodes, nil
	}
	c.miss(tierL1, keyTree)

	key := c.key(keyTree, suffix)
	v, err := c.load(ctx, key, func(ctx context.Context, gen uint64) (any, error) {
		var nodes []entity.TreeNode
		if c.getRemote(ctx, key, keyTree, &nodes) {
			c.fill(gen, func() { c.trees.Add(suffix, nodes) })
			return nodes, nil
		}

		loaded, err := c.store.TreeLevel(ctx, parent)
		if err != nil {
			return nil, err
		}
		c.fill(gen, func() {
			c.trees.Add(suffix, loaded)
			c.setRemote(ctx, key, loaded, c.opts.TreeTTL)
		})
		return loaded, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]entity.TreeNode), nil
}

// load runs fn once per key and generation. The shared load is detached from
// the caller's cancellation; each caller still returns when its own ctx is done.
func (c *Store) load(ctx context.Context, key string, fn func(ctx context.Context, gen uint64) (any, error)) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	gen := c.generation.Load()
	flight := key + "@" + strconv.FormatUint(gen, 10)

	ch := c.group.DoChan(flight, func() (any, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.opts.LoadTimeout)
		defer cancel()
		return fn(loadCtx, gen)
	})

	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// fill runs add unless the cache was purged after gen was read
func (c *Store) fill(gen uint64, add func()) {
	c.fillMu.RLock()
	defer c.fillMu.RUnlock()
	if c.generation.Load() != gen {
		return
	}
	add()
	c.updateEntries()
}

// Purge drops every cached entry from both tiers
func (c *Store) Purge(ctx context.Context) error {
	c.purgeLocal()
	if c.redis == nil {
		return nil
	}

	// Loads that read Redis before the delete below may have refilled L1
	defer c.purgeLocal()

	start := time.Now()
	var keys []string
	iter := c.redis.Scan(ctx, 0, c.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	err := iter.Err()
	c.recordRedis("scan", start, err)
	if err != nil {
		return fmt.Errorf("failed to scan cache keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}

	start = time.Now()
	err = c.redis.Del(ctx, keys...).Err()
	c.recordRedis("del", start, err)
	if err != nil {
		return fmt.Errorf("failed to delete cache keys: %w", err)
	}
	return nil
}

// Len returns the number of entries held in the in-process tier
func (c *Store) Len() int {
	return c.entities.Len() + c.trees.Len()
}

// HealthCheck delegates to the wrapped store
func (c *Store) HealthCheck(ctx context.Context) error {
	return c.store.HealthCheck(ctx)
}

// Close purges the in-process tier and closes the wrapped store
func (c *Store) Close() error {
	c.purgeLocal()
	return c.store.Close()
}

// purgeLocal empties L1 and starts a new generation so that loads already in
// flight neither refill L1 nor write Redis.
func (c *Store) purgeLocal() {
	c.fillMu.Lock()
	c.generation.Add(1)
	c.purging.Store(true)
	c.entities.Purge()
	c.trees.Purge()
	c.purging.Store(false)
	c.fillMu.Unlock()
	c.updateEntries()
}

func (c *Store) key(keyType, suffix string) string {
	return c.prefix + keyType + ":" + suffix
}

// getRemote decodes key into dst and reports whether it was a usable hit
func (c *Store) getRemote(ctx context.Context, key, keyType string, dst any) bool {
	if c.redis == nil {
		return false
	}

	start := time.Now()
	data, err := c.redis.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		c.recordRedis("get", start, nil)
		c.miss(tierL2, keyType)
		return false
	}
	c.recordRedis("get", start, err)
	if err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("Redis get failed")
		c.miss(tierL2, keyType)
		return false
	}

	if err := json.Unmarshal(data, dst); err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("Deleting corrupt cache entry")
		c.redis.Del(ctx, key)
		c.miss(tierL2, keyType)
		return false
	}
	c.hit(tierL2, keyType)
	return true
}

func (c *Store) setRemote(ctx context.Context, key string, v any, ttl time.Duration) {
	if c.redis == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("Failed to encode cache entry")
		return
	}

	start := time.Now()
	err = c.redis.Set(ctx, key, data, ttl).Err()
	c.recordRedis("set", start, err)
	if err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("Redis set failed")
	}
}

func (c *Store) hit(tier, keyType string) {
	if c.metrics != nil {
		c.metrics.RecordCacheHit(tier, keyType)
	}
}

func (c *Store) miss(tier, keyType string) {
	if c.metrics != nil {
		c.metrics.RecordCacheMiss(tier, keyType)
	}
}

func (c *Store) recordRedis(command string, start time.Time, err error) {
	if c.metrics != nil {
		c.metrics.RecordRedisCommand(command, time.Since(start), err)
	}
}

func (c *Store) updateEntries() {
	if c.metrics != nil {
		c.metrics.CacheEntries.WithLabelValues(tierL1).Set(float64(c.Len()))
	}
}
