package ratelimit

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestAllowBurstThenRefill(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	b := New()
	b.SetClock(clock.Now)

	for i := 0; i < 3; i++ {
		assert.True(t, b.Allow("gen:u1", 3, time.Minute), "call %d", i)
	}
	assert.False(t, b.Allow("gen:u1", 3, time.Minute))

	clock.Advance(20 * time.Second)
	assert.True(t, b.Allow("gen:u1", 3, time.Minute))
	assert.False(t, b.Allow("gen:u1", 3, time.Minute))
}

func TestAllowKeysAreIndependent(t *testing.T) {
	b := New()
	assert.True(t, b.Allow("gen:u1", 1, time.Hour))
	assert.False(t, b.Allow("gen:u1", 1, time.Hour))
	assert.True(t, b.Allow("gen:u2", 1, time.Hour))
	assert.True(t, b.Allow("theme:u1", 1, time.Hour))
	assert.Equal(t, 3, b.Size())
}

func TestAllowDisabled(t *testing.T) {
	b := New()
	for i := 0; i < 10; i++ {
		assert.True(t, b.Allow("k", 0, time.Minute))
		assert.True(t, b.Allow("k", 5, 0))
	}
}

func TestAllowConcurrentNeverExceedsBurst(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	b := New()
	b.SetClock(clock.Now)

	var allowed atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if b.Allow("gen:u1", 5, time.Minute) {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(5), allowed.Load())
}
