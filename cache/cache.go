package cache

import (
	"fmt"
	"time"

	"github.com/karlseguin/ccache/v3"
	"golang.org/x/sync/singleflight"

	"github.com/xeptore/tunefetch/must"
)

// DefaultGenreTTL bounds how long artist genres are reused. Genres change rarely.
const DefaultGenreTTL = 6 * time.Hour

// Cache is an in-memory LRU keyed by string. Concurrent fetches of the same missing key share a
// single call to the loader.
type Cache[T any] struct {
	c     *ccache.Cache[T]
	group singleflight.Group
	ttl   time.Duration
}

func New[T any](maxSize int64, ttl time.Duration) *Cache[T] {
	must.Be(maxSize > 0, "cache size must be positive")
	must.Be(ttl > 0, "cache ttl must be positive")

	return &Cache[T]{
		c: ccache.New(
			ccache.Configure[T]().
				MaxSize(maxSize).
				GetsPerPromote(3).
				ItemsToPrune(1),
		),
		group: singleflight.Group{},
		ttl:   ttl,
	}
}

// Fetch returns the cached value for k or loads, stores and returns it. Loader errors are not
// cached.
func (c *Cache[T]) Fetch(k string, fetch func() (T, error)) (T, error) {
	if item := c.c.Get(k); nil != item && !item.Expired() {
		return item.Value(), nil
	}

	v, err, _ := c.group.Do(k, func() (any, error) {
		v, err := fetch()
		if nil != err {
			return nil, err
		}
		c.c.Set(k, v, c.ttl)

		return v, nil
	})
	if nil != err {
		var zero T
		return zero, fmt.Errorf("fetch %s: %w", k, err)
	}

	return v.(T), nil //nolint:forcetypeassert
}

func (c *Cache[T]) Set(k string, v T) {
	c.c.Set(k, v, c.ttl)
}

func (c *Cache[T]) Get(k string) (T, bool) {
	item := c.c.Get(k)
	if nil == item || item.Expired() {
		var zero T
		return zero, false
	}

	return item.Value(), true
}

func (c *Cache[T]) Stop() {
	c.c.Stop()
}
