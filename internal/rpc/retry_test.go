package rpc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/goran-ethernal/TokenLedger/internal/common"
	"github.com/goran-ethernal/TokenLedger/internal/logger"
	"github.com/goran-ethernal/TokenLedger/pkg/config"
)

// netError implements net.Error for testing
type netError struct {
	msg     string
	timeout bool
}

func (e *netError) Error() string   { return e.msg }
func (e *netError) Timeout() bool   { return e.timeout }
func (e *netError) Temporary() bool { return false }

func fastRetry(attempts int) *config.RetryConfig {
	return &config.RetryConfig{
		MaxAttempts:       attempts,
		Delay:             common.NewDuration(time.Millisecond),
		MaxDelay:          common.NewDuration(time.Millisecond),
		BackoffMultiplier: 1,
	}
}

func TestRetryableError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "net error", err: &netError{msg: "dial tcp", timeout: true}, want: true},
		{name: "connection refused", err: fmt.Errorf("dial: %w", syscall.ECONNREFUSED), want: true},
		{name: "unexpected eof", err: fmt.Errorf("read: %w", io.ErrUnexpectedEOF), want: true},
		{name: "timeout text", err: errors.New("request timeout"), want: true},
		{name: "rate limited", err: errors.New("429 Too Many Requests"), want: true},
		{name: "service unavailable", err: errors.New("503 Service Unavailable"), want: true},
		{name: "execution reverted", err: errors.New("execution reverted"), want: false},
		{name: "invalid params", err: errors.New("invalid argument 0"), want: false},
		{name: "context canceled", err: context.Canceled, want: false},
		{
			name: "too many results",
			err:  &dataError{msg: "rpc error", data: "Query returned more than 10000 results"},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, retryableError(tt.err))
		})
	}
}

func TestCalculateBackoff(t *testing.T) {
	fixed := &config.RetryConfig{
		MaxAttempts:       5,
		Delay:             common.NewDuration(5 * time.Second),
		MaxDelay:          common.NewDuration(5 * time.Second),
		BackoffMultiplier: 1,
	}

	require.Zero(t, calculateBackoff(1, fixed))
	for attempt := 2; attempt <= 5; attempt++ {
		require.Equal(t, 5*time.Second, calculateBackoff(attempt, fixed), "attempt %d", attempt)
	}

	growing := &config.RetryConfig{
		MaxAttempts:       5,
		Delay:             common.NewDuration(time.Second),
		MaxDelay:          common.NewDuration(3 * time.Second),
		BackoffMultiplier: 2,
	}

	require.Equal(t, time.Second, calculateBackoff(2, growing))
	require.Equal(t, 2*time.Second, calculateBackoff(3, growing))
	require.Equal(t, 3*time.Second, calculateBackoff(4, growing), "capped at max delay")
	require.Equal(t, 3*time.Second, calculateBackoff(10, growing))
}

func TestRetryWithBackoff_Success(t *testing.T) {
	calls := 0
	err := retryWithBackoff(context.Background(), fastRetry(3), logger.NewNopLogger(), "eth_getLogs", func() error {
		calls++
		return nil
	})

	require.NoError(t, err)
	require.Equal(t, 1, calls)
}

func TestRetryWithBackoff_SuccessAfterRetries(t *testing.T) {
	calls := 0
	err := retryWithBackoff(context.Background(), fastRetry(3), logger.NewNopLogger(), "eth_getLogs", func() error {
		calls++
		if calls < 3 {
			return errors.New("503 service unavailable")
		}
		return nil
	})

	require.NoError(t, err)
	require.Equal(t, 3, calls)
}

func TestRetryWithBackoff_NonRetryableError(t *testing.T) {
	calls := 0
	err := retryWithBackoff(context.Background(), fastRetry(3), logger.NewNopLogger(), "eth_call", func() error {
		calls++
		return errors.New("execution reverted")
	})

	require.ErrorContains(t, err, "non-retryable error on attempt 1/3")
	require.Equal(t, 1, calls)
}

func TestRetryWithBackoff_ExhaustedRetries(t *testing.T) {
	lastErr := errors.New("connection reset by peer")
	calls := 0
	err := retryWithBackoff(context.Background(), fastRetry(2), logger.NewNopLogger(), "eth_getLogs", func() error {
		calls++
		return lastErr
	})

	require.ErrorIs(t, err, lastErr)
	require.ErrorContains(t, err, "all 2 attempts failed")
	require.Equal(t, 2, calls)
}

func TestRetryWithBackoff_ContextCancelledDuringBackoff(t *testing.T) {
	cfg := &config.RetryConfig{
		MaxAttempts:       3,
		Delay:             common.NewDuration(time.Hour),
		MaxDelay:          common.NewDuration(time.Hour),
		BackoffMultiplier: 1,
	}

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := retryWithBackoff(ctx, cfg, nil, "eth_getLogs", func() error {
		calls++
		cancel()
		return errors.New("timeout")
	})

	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, calls)
}

func TestRetryWithBackoff_ContextCancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := retryWithBackoff(ctx, fastRetry(3), nil, "eth_getLogs", func() error {
		t.Fatal("operation must not run")
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)
}

func TestRetryWithBackoff_NilConfig(t *testing.T) {
	boom := errors.New("503")
	calls := 0
	err := retryWithBackoff(context.Background(), nil, nil, "eth_getLogs", func() error {
		calls++
		return boom
	})

	require.ErrorIs(t, err, boom)
	require.Equal(t, 1, calls)
}

func TestRetryWithBackoff_FixedDelayTiming(t *testing.T) {
	cfg := &config.RetryConfig{
		MaxAttempts:       3,
		Delay:             common.NewDuration(20 * time.Millisecond),
		MaxDelay:          common.NewDuration(20 * time.Millisecond),
		BackoffMultiplier: 1,
	}

	start := time.Now()
	_ = retryWithBackoff(context.Background(), cfg, nil, "eth_getLogs", func() error {
		return errors.New("timeout")
	})

	// two waits between three attempts
	require.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}
