package ports

import (
	"context"
	"time"
)

// RateLimiter decides whether a caller identified by key may proceed.
// Adapters (memory token buckets, Redis windows) implement it
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// Limit is Count requests per Window
type Limit struct {
	Count  int
	Window time.Duration
}
