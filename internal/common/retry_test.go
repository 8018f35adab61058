package common

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuSeok-Kwon/Daiso-Cosmetic-analysis/internal/service"
)

func TestWithRetrySucceedsAfterTransientFailure(t *testing.T) {
	attempts := 0
	err := WithRetry(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return ErrServiceUnavailable
		}
		return nil
	}, service.RetryOptions{
		MaxAttempts:  5,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestWithRetryExhaustsAttempts(t *testing.T) {
	attempts := 0
	err := WithRetry(context.Background(), func() error {
		attempts++
		return ErrServiceUnavailable
	}, service.RetryOptions{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMaxRetries)
	assert.Equal(t, 3, attempts)
}

func TestWithRetryStopsOnNonRetryableError(t *testing.T) {
	attempts := 0
	permanent := &RetryableError{Err: errors.New("invalid api key"), Retryable: false}

	err := WithRetry(context.Background(), func() error {
		attempts++
		return permanent
	}, service.RetryOptions{
		MaxAttempts:  5,
		InitialDelay: time.Millisecond,
	})

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
	assert.NotErrorIs(t, err, ErrMaxRetries)
}

func TestWithRetryRespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0

	err := WithRetry(ctx, func() error {
		attempts++
		cancel()
		return ErrServiceUnavailable
	}, service.RetryOptions{
		MaxAttempts:  5,
		InitialDelay: time.Second,
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"rate limit", ErrRateLimit, true},
		{"service unavailable", ErrServiceUnavailable, true},
		{"malformed response", ErrMalformedResponse, true},
		{"deadline exceeded", context.DeadlineExceeded, true},
		{"wrapped rate limit", errors.Join(errors.New("outer"), ErrRateLimit), true},
		{"retryable wrapper", &RetryableError{Err: errors.New("flaky"), Retryable: true}, true},
		{"permanent wrapper", &RetryableError{Err: errors.New("fatal"), Retryable: false}, false},
		{"not found", ErrNotFound, false},
		{"plain error", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestUserErrorUnwrap(t *testing.T) {
	inner := errors.New("db locked")
	err := NewUserError("could not save results", inner)

	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "could not save results")
	assert.Contains(t, err.Error(), "db locked")
}
