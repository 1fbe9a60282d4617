package retry

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"instanon/pkg/config"
	errs "instanon/pkg/errors"
	"instanon/pkg/logger"
)

// Operation is one attempt at a mirror request
type Operation func(ctx context.Context) error

// Config holds retry configuration
type Config struct {
	// MaxAttempts is the total number of attempts, values below 1 mean one
	MaxAttempts int
	Backoff     BackoffStrategy
	// RetryIf decides whether a failed attempt is worth repeating
	RetryIf func(error) bool
	Logger  logger.Logger
}

// DefaultConfig returns a configuration that performs a single attempt
func DefaultConfig() *Config {
	return &Config{
		MaxAttempts: 1,
		Backoff:     DefaultExponentialBackoff(),
		RetryIf:     DefaultRetryIf,
	}
}

// FromSettings builds a Config from the loaded retry section. Strategy
// "constant" waits baseDelay between attempts; anything else backs off
// exponentially from baseDelay up to maxDelay.
func FromSettings(settings config.RetryConfig, log logger.Logger) *Config {
	var backoff BackoffStrategy
	if strings.EqualFold(settings.Backoff, "constant") {
		backoff = &ConstantBackoff{Delay: settings.BaseDelay}
	} else {
		exp := DefaultExponentialBackoff()
		if settings.BaseDelay > 0 {
			exp.BaseDelay = settings.BaseDelay
		}
		if settings.MaxDelay > 0 {
			exp.MaxDelay = settings.MaxDelay
		}
		backoff = exp
	}
	return &Config{
		MaxAttempts: settings.MaxAttempts,
		Backoff:     backoff,
		RetryIf:     DefaultRetryIf,
		Logger:      log,
	}
}

// DefaultRetryIf retries typed transient failures and nothing else
func DefaultRetryIf(err error) bool {
	if err == nil {
		return false
	}

	var typed *errs.Error
	if errors.As(err, &typed) {
		return errs.IsRetryable(typed.Type)
	}
	return false
}

// Do runs op until it succeeds, fails permanently, runs out of attempts or
// ctx is cancelled. The error of the last attempt is returned wrapped.
func Do(ctx context.Context, op Operation, cfg *Config) error {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	retryIf := cfg.RetryIf
	if retryIf == nil {
		retryIf = DefaultRetryIf
	}
	backoff := cfg.Backoff
	if backoff == nil {
		backoff = DefaultExponentialBackoff()
	}

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := op(ctx)
		if err == nil {
			if attempt > 1 && cfg.Logger != nil {
				cfg.Logger.DebugWithFields("operation succeeded after retry", map[string]interface{}{
					"attempt": attempt,
				})
			}
			return nil
		}

		if !retryIf(err) {
			return err
		}
		if attempt >= maxAttempts {
			if maxAttempts == 1 {
				return err
			}
			if cfg.Logger != nil {
				cfg.Logger.ErrorWithFields("max retry attempts exceeded", map[string]interface{}{
					"attempts":   attempt,
					"last_error": err.Error(),
				})
			}
			return fmt.Errorf("max retry attempts (%d) exceeded: %w", maxAttempts, err)
		}

		delay := backoff.NextDelay(attempt)
		if cfg.Logger != nil {
			cfg.Logger.WarnWithFields("retrying operation", map[string]interface{}{
				"attempt":      attempt,
				"error":        err.Error(),
				"delay_ms":     delay.Milliseconds(),
				"max_attempts": maxAttempts,
			})
		}

		if werr := Wait(ctx, delay); werr != nil {
			return fmt.Errorf("retry cancelled: %w", werr)
		}
	}
}
