package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/quentinrf/fermpi/internal/ports"
)

// idle buckets are dropped after this long so the map doesn't grow forever
const idleTTL = 10 * time.Minute

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// MemoryLimiter keeps one token bucket per key in process memory
type MemoryLimiter struct {
	limit rate.Limit
	burst int
	now   func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket
}

// NewMemoryLimiter allows l.Count requests per l.Window per key
func NewMemoryLimiter(l ports.Limit) *MemoryLimiter {
	return &MemoryLimiter{
		limit:   rate.Every(l.Window / time.Duration(l.Count)),
		burst:   l.Count,
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
}

// Allow takes one token from key's bucket
func (m *MemoryLimiter) Allow(ctx context.Context, key string) (bool, error) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(m.limit, m.burst)}
		m.buckets[key] = b
	}
	b.lastSeen = now

	for k, other := range m.buckets {
		if now.Sub(other.lastSeen) > idleTTL {
			delete(m.buckets, k)
		}
	}

	return b.limiter.AllowN(now, 1), nil
}
