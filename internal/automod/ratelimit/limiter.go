package ratelimit

import (
	"sync"
	"time"
)

// Limiter debounces actions per key. A key is permitted once, then refused until
// the timeout has elapsed since the last permitted call.
type Limiter[K comparable] struct {
	timeout time.Duration
	now     func() time.Time

	mu   sync.Mutex
	last map[K]time.Time
}

// Option configures a Limiter.
type Option[K comparable] func(*Limiter[K])

// WithClock replaces the time source, mainly for tests.
func WithClock[K comparable](now func() time.Time) Option[K] {
	return func(l *Limiter[K]) {
		l.now = now
	}
}

// New creates a limiter with the given timeout. A zero timeout disables limiting.
func New[K comparable](timeout time.Duration, opts ...Option[K]) *Limiter[K] {
	l := &Limiter[K]{
		timeout: timeout,
		now:     time.Now,
		last:    make(map[K]time.Time),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// NewSeconds creates a limiter from a timeout given in whole seconds.
func NewSeconds[K comparable](seconds int, opts ...Option[K]) *Limiter[K] {
	return New(time.Duration(seconds)*time.Second, opts...)
}

// Timeout returns the configured timeout.
func (l *Limiter[K]) Timeout() time.Duration {
	return l.timeout
}

// IsPermitted reports whether key may act now and, if so, records the current time for it.
// Expired entries are swept before the check.
func (l *Limiter[K]) IsPermitted(key K) bool {
	if l.timeout <= 0 {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)

	if _, limited := l.last[key]; limited {
		return false
	}

	l.last[key] = now
	return true
}

// Len returns the number of keys currently being limited.
func (l *Limiter[K]) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.last)
}

// sweep removes entries whose timeout has elapsed. Callers must hold mu.
func (l *Limiter[K]) sweep(now time.Time) {
	for key, recorded := range l.last {
		if !recorded.Add(l.timeout).After(now) {
			delete(l.last, key)
		}
	}
}
