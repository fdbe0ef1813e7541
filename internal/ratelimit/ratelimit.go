// Package ratelimit counts requests per client key over a sliding window.
package ratelimit

import (
	"context"
	"time"
)

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed bool
	// Limit is the quota per window.
	Limit int
	// Remaining is the number of requests still allowed in the current window.
	Remaining int
	// RetryAfter is how long until the oldest counted request leaves the window.
	// Zero when Allowed is true.
	RetryAfter time.Duration
}

// Store decides whether a request identified by key may proceed and, if so,
// records it. Implementations must be safe for concurrent use: concurrent calls
// for the same key never admit more than the quota.
type Store interface {
	Allow(ctx context.Context, key string) (Decision, error)
}
