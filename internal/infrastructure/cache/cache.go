// Package cache holds the routing resolution caches: a bounded in-process
// LRU, a Redis namespace and a tiered combination of both.
package cache

import (
	"container/list"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const DefaultSize = 256

type entry struct {
	key     string
	value   string
	expires time.Time
}

// LRU is a size-bounded cache. A zero ttl keeps entries until evicted.
type LRU struct {
	mu    sync.Mutex
	size  int
	ttl   time.Duration
	ll    *list.List
	items map[string]*list.Element
	now   func() time.Time
}

func NewLRU(size int, ttl time.Duration) *LRU {
	if size <= 0 {
		size = DefaultSize
	}
	return &LRU{
		size:  size,
		ttl:   ttl,
		ll:    list.New(),
		items: make(map[string]*list.Element, size),
		now:   time.Now,
	}
}

func (c *LRU) Get(_ context.Context, key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return "", false
	}
	e := el.Value.(*entry)
	if !e.expires.IsZero() && c.now().After(e.expires) {
		c.removeElement(el)
		return "", false
	}
	c.ll.MoveToFront(el)
	return e.value, true
}

func (c *LRU) Set(_ context.Context, key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var expires time.Time
	if c.ttl > 0 {
		expires = c.now().Add(c.ttl)
	}

	if el, ok := c.items[key]; ok {
		e := el.Value.(*entry)
		e.value = value
		e.expires = expires
		c.ll.MoveToFront(el)
		return
	}

	c.items[key] = c.ll.PushFront(&entry{key: key, value: value, expires: expires})
	for c.ll.Len() > c.size {
		c.removeElement(c.ll.Back())
	}
}

func (c *LRU) Invalidate(_ context.Context, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		c.removeElement(el)
	}
}

func (c *LRU) Purge(_ context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ll.Init()
	c.items = make(map[string]*list.Element, c.size)
}

func (c *LRU) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

func (c *LRU) removeElement(el *list.Element) {
	c.ll.Remove(el)
	delete(c.items, el.Value.(*entry).key)
}

// Redis stores entries under namespace:key. Redis errors are logged and
// reported as misses so routing falls back to the provider listing.
type Redis struct {
	client    redis.UniversalClient
	namespace string
	ttl       time.Duration
	log       *zap.Logger
}

func NewRedis(client redis.UniversalClient, namespace string, ttl time.Duration, log *zap.Logger) *Redis {
	return &Redis{client: client, namespace: namespace, ttl: ttl, log: log}
}

func (c *Redis) key(k string) string {
	return c.namespace + ":" + k
}

func (c *Redis) Get(ctx context.Context, key string) (string, bool) {
	v, err := c.client.Get(ctx, c.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false
	}
	if err != nil {
		c.log.Warn("route cache get failed", zap.String("key", key), zap.Error(err))
		return "", false
	}
	return v, true
}

func (c *Redis) Set(ctx context.Context, key, value string) {
	if err := c.client.Set(ctx, c.key(key), value, c.ttl).Err(); err != nil {
		c.log.Warn("route cache set failed", zap.String("key", key), zap.Error(err))
	}
}

func (c *Redis) Invalidate(ctx context.Context, key string) {
	if err := c.client.Del(ctx, c.key(key)).Err(); err != nil {
		c.log.Warn("route cache delete failed", zap.String("key", key), zap.Error(err))
	}
}

func (c *Redis) Purge(ctx context.Context) {
	if err := c.purge(ctx); err != nil {
		c.log.Warn("route cache purge failed", zap.String("namespace", c.namespace), zap.Error(err))
	}
}

func (c *Redis) purge(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, c.key("*"), 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan %s: %w", c.namespace, err)
	}
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

type store interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string)
	Invalidate(ctx context.Context, key string)
	Purge(ctx context.Context)
}

// Tiered reads the local tier first and backfills it from the remote tier.
type Tiered struct {
	local  store
	remote store
}

func NewTiered(local *LRU, remote *Redis) *Tiered {
	return &Tiered{local: local, remote: remote}
}

func (c *Tiered) Get(ctx context.Context, key string) (string, bool) {
	if v, ok := c.local.Get(ctx, key); ok {
		return v, true
	}
	v, ok := c.remote.Get(ctx, key)
	if ok {
		c.local.Set(ctx, key, v)
	}
	return v, ok
}

func (c *Tiered) Set(ctx context.Context, key, value string) {
	c.local.Set(ctx, key, value)
	c.remote.Set(ctx, key, value)
}

func (c *Tiered) Invalidate(ctx context.Context, key string) {
	c.local.Invalidate(ctx, key)
	c.remote.Invalidate(ctx, key)
}

func (c *Tiered) Purge(ctx context.Context) {
	c.local.Purge(ctx)
	c.remote.Purge(ctx)
}
