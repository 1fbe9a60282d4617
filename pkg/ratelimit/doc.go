// Package ratelimit provides an optional token bucket, backed by
// golang.org/x/time/rate, used to space out requests to a mirror site.
//
// Throttling is off unless rate_limit.requests_per_minute is positive:
//
//	limiter := ratelimit.PerMinute(cfg.RateLimit.RequestsPerMinute)
//	if limiter != nil {
//		if err := limiter.Wait(ctx); err != nil {
//			return err
//		}
//	}
package ratelimit
