package ratelimit_test

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/robalyx/warden/internal/automod/ratelimit"
	"github.com/stretchr/testify/assert"
)

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestLimiter(t *testing.T) {
	t.Parallel()

	t.Run("debounces until timeout elapses", func(t *testing.T) {
		t.Parallel()

		clock := newFakeClock()
		l := ratelimit.NewSeconds(20, ratelimit.WithClock[string](clock.Now))

		assert.True(t, l.IsPermitted("K"))
		assert.False(t, l.IsPermitted("K"))

		clock.Advance(19 * time.Second)
		assert.False(t, l.IsPermitted("K"))

		clock.Advance(time.Second)
		assert.True(t, l.IsPermitted("K"))
		assert.False(t, l.IsPermitted("K"))
	})

	t.Run("keys are independent", func(t *testing.T) {
		t.Parallel()

		clock := newFakeClock()
		l := ratelimit.NewSeconds(20, ratelimit.WithClock[uint64](clock.Now))

		assert.True(t, l.IsPermitted(1))
		assert.True(t, l.IsPermitted(2))
		assert.False(t, l.IsPermitted(1))
		assert.Equal(t, 2, l.Len())
	})

	t.Run("refused calls do not extend the window", func(t *testing.T) {
		t.Parallel()

		clock := newFakeClock()
		l := ratelimit.NewSeconds(10, ratelimit.WithClock[string](clock.Now))

		assert.True(t, l.IsPermitted("K"))
		clock.Advance(5 * time.Second)
		assert.False(t, l.IsPermitted("K"))
		clock.Advance(5 * time.Second)
		assert.True(t, l.IsPermitted("K"))
	})

	t.Run("expired entries are swept lazily", func(t *testing.T) {
		t.Parallel()

		clock := newFakeClock()
		l := ratelimit.NewSeconds(5, ratelimit.WithClock[int](clock.Now))

		for i := range 10 {
			assert.True(t, l.IsPermitted(i))
		}
		assert.Equal(t, 10, l.Len())

		clock.Advance(5 * time.Second)
		assert.True(t, l.IsPermitted(100))
		assert.Equal(t, 1, l.Len())
	})

	t.Run("zero timeout disables limiting", func(t *testing.T) {
		t.Parallel()

		l := ratelimit.NewSeconds[string](0)
		for range 100 {
			assert.True(t, l.IsPermitted("K"))
		}
		assert.Equal(t, 0, l.Len())
	})
}

func TestLimiterConcurrent(t *testing.T) {
	t.Parallel()

	l := ratelimit.New[string](time.Hour)

	var (
		wg        sync.WaitGroup
		permitted atomic.Int32
	)
	for range 64 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.IsPermitted("same") {
				permitted.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), permitted.Load())
}
