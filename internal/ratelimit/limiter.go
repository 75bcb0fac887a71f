// Package ratelimit keeps a token bucket per key. Buckets idle for longer
// than their window are evicted.
package ratelimit

import (
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// Limiter answers whether a keyed caller may proceed. Implementations must be
// safe for concurrent use.
type Limiter interface {
	Allow(key string, limit int, window time.Duration) bool
}

// Buckets is a Limiter backed by x/time/rate buckets stored in go-cache.
type Buckets struct {
	cache *cache.Cache
	now   func() time.Time
}

func New() *Buckets {
	return &Buckets{
		cache: cache.New(10*time.Minute, 10*time.Minute),
		now:   time.Now,
	}
}

// SetClock overrides the time source.
func (b *Buckets) SetClock(now func() time.Time) {
	b.now = now
}

// Allow refills limit tokens per window with a burst of limit. A non-positive
// limit or window disables limiting.
func (b *Buckets) Allow(key string, limit int, window time.Duration) bool {
	if limit <= 0 || window <= 0 {
		return true
	}
	return b.bucket(key, limit, window).AllowN(b.now(), 1)
}

func (b *Buckets) bucket(key string, limit int, window time.Duration) *rate.Limiter {
	id := fmt.Sprintf("%s|%d|%s", key, limit, window)
	ttl := 2 * window
	if v, ok := b.cache.Get(id); ok {
		b.cache.Set(id, v, ttl)
		return v.(*rate.Limiter)
	}
	l := rate.NewLimiter(rate.Every(window/time.Duration(limit)), limit)
	if err := b.cache.Add(id, l, ttl); err != nil {
		if v, ok := b.cache.Get(id); ok {
			return v.(*rate.Limiter)
		}
	}
	return l
}

// Size reports the number of live buckets.
func (b *Buckets) Size() int {
	return b.cache.ItemCount()
}

var _ Limiter = (*Buckets)(nil)
