package rpc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"strings"
	"syscall"
	"time"

	"github.com/goran-ethernal/TokenLedger/internal/logger"
	"github.com/goran-ethernal/TokenLedger/pkg/config"
)

var transientMarkers = []string{
	// timeouts
	"timeout", "deadline exceeded",
	// rate limiting
	"429", "too many requests", "rate limit",
	// upstream failures
	"502", "503", "504", "bad gateway", "service unavailable", "gateway timeout",
	// pool exhaustion
	"connection pool", "no available connection",
	"connection reset", "broken pipe",
}

// retryableError reports whether err is worth another attempt.
// Oversized log queries are never retried; the caller narrows the range instead.
func retryableError(err error) bool {
	if err == nil {
		return false
	}

	if tooMany, _ := IsTooManyResultsError(err); tooMany {
		return false
	}

	if errors.Is(err, context.Canceled) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, io.EOF) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}

	return false
}

// calculateBackoff returns the wait before the given attempt. Attempt 1 never waits;
// with the default multiplier of 1 every retry waits exactly cfg.Delay.
func calculateBackoff(attempt int, cfg *config.RetryConfig) time.Duration {
	if attempt <= 1 {
		return 0
	}

	multiplier := math.Max(cfg.BackoffMultiplier, 1)
	backoff := float64(cfg.Delay.Duration) * math.Pow(multiplier, float64(attempt-2))

	if cfg.MaxDelay.Duration > 0 && backoff > float64(cfg.MaxDelay.Duration) {
		backoff = float64(cfg.MaxDelay.Duration)
	}

	return time.Duration(backoff)
}

// retryWithBackoff runs fn up to cfg.MaxAttempts times, waiting between attempts and
// giving up early on non-retryable errors. A nil cfg runs fn once.
func retryWithBackoff(
	ctx context.Context,
	cfg *config.RetryConfig,
	log *logger.Logger,
	operation string,
	fn func() error,
) error {
	if cfg == nil {
		return fn()
	}

	var lastErr error
	startTime := time.Now()

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if wait := calculateBackoff(attempt, cfg); wait > 0 {
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return fmt.Errorf("context cancelled during backoff (attempt %d/%d): %w",
					attempt, cfg.MaxAttempts, ctx.Err())
			}
			RPCRetryInc(operation)
		}

		if err := ctx.Err(); err != nil {
			return fmt.Errorf("context cancelled before attempt %d: %w", attempt, err)
		}

		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !retryableError(err) {
			return fmt.Errorf("non-retryable error on attempt %d/%d: %w", attempt, cfg.MaxAttempts, err)
		}

		if log != nil && attempt < cfg.MaxAttempts {
			log.Warnw("rpc call failed, retrying",
				"operation", operation,
				"attempt", attempt,
				"max_attempts", cfg.MaxAttempts,
				"error", err,
			)
		}
	}

	return fmt.Errorf("all %d attempts failed after %v (last error: %w)",
		cfg.MaxAttempts, time.Since(startTime), lastErr)
}
