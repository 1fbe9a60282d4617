package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Limiter throttles outgoing mirror requests
type Limiter interface {
	// Wait blocks until a request may proceed or ctx is done
	Wait(ctx context.Context) error
}

// TokenBucket spreads capacity requests evenly over each period, allowing
// bursts of up to capacity
type TokenBucket struct {
	capacity int
	period   time.Duration
	limiter  *rate.Limiter
}

// NewTokenBucket creates a full bucket of capacity tokens that refills
// completely over period
func NewTokenBucket(capacity int, period time.Duration) *TokenBucket {
	return &TokenBucket{
		capacity: capacity,
		period:   period,
		limiter:  rate.NewLimiter(rate.Every(period/time.Duration(capacity)), capacity),
	}
}

// PerMinute returns a limiter for the configured requests per minute, or nil
// when throttling is disabled
func PerMinute(requests int) Limiter {
	if requests <= 0 {
		return nil
	}
	return NewTokenBucket(requests, time.Minute)
}

// Wait blocks until a token is available. It fails early when ctx would
// expire before then.
func (tb *TokenBucket) Wait(ctx context.Context) error {
	return tb.limiter.Wait(ctx)
}
