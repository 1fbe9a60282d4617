// Package retry repeats mirror requests that failed for transient reasons.
//
// Only typed network, rate limit and server errors are retried. A cancelled
// context stops the loop immediately, including during the backoff sleep.
// The default configuration performs a single attempt, so retrying is
// opt-in through the retry section of the configuration.
//
//	cfg := retry.FromSettings(cfg.Retry, log)
//	err := retry.Do(ctx, func(ctx context.Context) error {
//		return fetch(ctx)
//	}, cfg)
package retry
