package ratelimit

import (
	"context"
	"sync"
	"time"
)

const defaultCleanupInterval = 5 * time.Minute

// MemoryLimiter is an in-process Limiter backed by a TTL map. It is used
// when no key-value store address is configured, and in tests. Always
// available.
type MemoryLimiter struct {
	mu       sync.Mutex
	entries  map[string]time.Time // deviceHash -> expiry
	now      func() time.Time
	stopOnce sync.Once
	done     chan struct{}
}

// MemoryOption configures a MemoryLimiter.
type MemoryOption func(*MemoryLimiter)

// WithClock overrides the clock (for testing).
func WithClock(now func() time.Time) MemoryOption {
	return func(m *MemoryLimiter) {
		if now != nil {
			m.now = now
		}
	}
}

// NewMemoryLimiter creates an in-memory cooldown limiter and starts its
// cleanup loop.
func NewMemoryLimiter(opts ...MemoryOption) *MemoryLimiter {
	m := &MemoryLimiter{
		entries: make(map[string]time.Time),
		now:     time.Now,
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	go m.cleanupLoop()
	return m
}

// Available always returns true for the in-process limiter.
func (m *MemoryLimiter) Available(ctx context.Context) bool {
	return true
}

// Admit implements the atomic check-and-reserve under the map mutex.
func (m *MemoryLimiter) Admit(ctx context.Context, deviceHash string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if expiry, ok := m.entries[deviceHash]; ok && now.Before(expiry) {
		return false, nil
	}
	m.entries[deviceHash] = now.Add(ttl)
	return true, nil
}

// Record sets or extends the cooldown entry.
func (m *MemoryLimiter) Record(ctx context.Context, deviceHash string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[deviceHash] = m.now().Add(ttl)
	return nil
}

// cleanupLoop periodically removes expired entries.
func (m *MemoryLimiter) cleanupLoop() {
	ticker := time.NewTicker(defaultCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.removeExpired()
		case <-m.done:
			return
		}
	}
}

func (m *MemoryLimiter) removeExpired() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for hash, expiry := range m.entries {
		if !now.Before(expiry) {
			delete(m.entries, hash)
		}
	}
}

// Stop stops the cleanup goroutine.
func (m *MemoryLimiter) Stop() {
	m.stopOnce.Do(func() {
		close(m.done)
	})
}
