package specerrors

import (
	"context"
	"fmt"
	"time"
)

// RetryConfig configures bounded exponential-backoff retry.
type RetryConfig struct {
	MaxAttempts int
	InitialWait time.Duration
	MaxWait     time.Duration
	Multiplier  float64
}

// LockRetryConfig is used for workflow-state lock acquisition: lock timeouts
// are retryable once after a short backoff.
func LockRetryConfig() RetryConfig {
	return RetryConfig{MaxAttempts: 2, InitialWait: 50 * time.Millisecond, MaxWait: 250 * time.Millisecond, Multiplier: 2.0}
}

// LintAutofixRetryConfig bounds the lint auto-fix retry to exactly one
// additional attempt after the autofix pass runs.
func LintAutofixRetryConfig() RetryConfig {
	return RetryConfig{MaxAttempts: 2, InitialWait: 0, MaxWait: 0, Multiplier: 1}
}

// CommitHookRetryConfig bounds the pre-commit-hook re-stage retry to 3
// attempts, covering hooks that rewrite staged files (formatters, linters).
func CommitHookRetryConfig() RetryConfig {
	return RetryConfig{MaxAttempts: 3, InitialWait: 20 * time.Millisecond, MaxWait: 200 * time.Millisecond, Multiplier: 2.0}
}

// Attempt records one retry attempt for an audit trail entry.
type Attempt struct {
	Number int
	Err    error
}

// Retry executes fn with bounded exponential backoff, invoking onAttempt
// (if non-nil) after every attempt including the final one, so callers can
// append audit entries as they happen.
func Retry(ctx context.Context, cfg RetryConfig, onAttempt func(Attempt), fn func() error) error {
	var lastErr error
	wait := cfg.InitialWait

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		err := fn()
		if onAttempt != nil {
			onAttempt(Attempt{Number: attempt, Err: err})
		}
		if err == nil {
			return nil
		}
		lastErr = err

		if attempt == cfg.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("retry cancelled: %w", ctx.Err())
		default:
		}

		if wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return fmt.Errorf("retry cancelled: %w", ctx.Err())
			case <-timer.C:
			}
		}

		wait = time.Duration(float64(wait) * cfg.Multiplier)
		if cfg.MaxWait > 0 && wait > cfg.MaxWait {
			wait = cfg.MaxWait
		}
	}

	return fmt.Errorf("retry failed after %d attempts: %w", cfg.MaxAttempts, lastErr)
}
