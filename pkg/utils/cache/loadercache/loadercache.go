package loadercache

import (
	"context"
	"sync"
	"time"

	"github.com/mpapenbr/iracelog-league-stats/log"
	"github.com/mpapenbr/iracelog-league-stats/pkg/utils/cache"
)

// The loader runs without the cache mutex held. A loaded value is only kept
// if no invalidation happened while it was loading.

type (
	Option[K comparable, V any] func(*config[K, V])
	item[T any]                 struct {
		data    T
		expires time.Time
	}
	LoaderFunc[K comparable, V any] func(ctx context.Context, key K) (V, error)
	config[K comparable, V any]     struct {
		expiration time.Duration
		loader     LoaderFunc[K, V]
		l          *log.Logger
	}
	loaderCache[K comparable, V any] struct {
		mutex      sync.Mutex
		items      map[K]item[V]
		generation uint64
		config     *config[K, V]
	}
)

// WithExpiration sets the time to live of an entry. 0 disables expiration.
func WithExpiration[K comparable, V any](expiration time.Duration) Option[K, V] {
	return func(c *config[K, V]) {
		c.expiration = expiration
	}
}

func WithLoader[K comparable, V any](lf LoaderFunc[K, V]) Option[K, V] {
	return func(c *config[K, V]) {
		c.loader = lf
	}
}

func WithLogger[K comparable, V any](arg *log.Logger) Option[K, V] {
	return func(c *config[K, V]) {
		c.l = arg
	}
}

func New[K comparable, V any](opts ...Option[K, V]) cache.Cache[K, V] {
	c := &config[K, V]{
		expiration: 5 * time.Minute,
		l:          log.Default().Named("cache"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return &loaderCache[K, V]{
		items:  make(map[K]item[V]),
		config: c,
	}
}

func (c *loaderCache[K, V]) Get(ctx context.Context, key K) (V, error) {
	c.mutex.Lock()
	if cacheItem, ok := c.items[key]; ok {
		if cacheItem.expires.IsZero() || cacheItem.expires.After(time.Now()) {
			c.mutex.Unlock()
			return cacheItem.data, nil
		}
		delete(c.items, key)
	}
	gen := c.generation
	c.mutex.Unlock()
	return c.load(ctx, key, gen)
}

func (c *loaderCache[K, V]) load(ctx context.Context, key K, gen uint64) (V, error) {
	var zero V
	if c.config.loader == nil {
		return zero, cache.ErrCacheMiss
	}
	v, err := c.config.loader(ctx, key)
	c.config.l.Debug("loaderCache.load", log.Any("key", key))
	if err != nil {
		return zero, err
	}
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.generation != gen {
		c.config.l.Debug("discarding outdated entry", log.Any("key", key))
		return v, nil
	}
	var expires time.Time
	if c.config.expiration > 0 {
		expires = time.Now().Add(c.config.expiration)
	}
	c.items[key] = item[V]{data: v, expires: expires}
	return v, nil
}

func (c *loaderCache[K, V]) Invalidate(key K) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.generation++
	delete(c.items, key)
	c.config.l.Debug("Invalidate",
		log.Any("key", key),
		log.Int("remain items", len(c.items)))
}

func (c *loaderCache[K, V]) InvalidateAll() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.generation++
	clear(c.items)
}
