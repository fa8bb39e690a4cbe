package ai_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/brandlens/brandlens/internal/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithRetry_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	got, err := ai.WithRetry(context.Background(), 3, time.Millisecond, nil,
		func(_ context.Context) (string, error) {
			calls++
			return "ok", nil
		})

	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 1, calls)
}

func TestWithRetry_RecoversAfterFailures(t *testing.T) {
	calls := 0
	got, err := ai.WithRetry(context.Background(), 3, time.Millisecond, nil,
		func(_ context.Context) (int, error) {
			calls++
			if calls < 3 {
				return 0, errors.New("transient")
			}
			return 42, nil
		})

	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, 3, calls)
}

func TestWithRetry_ExhaustsAttemptsAndReturnsFinalError(t *testing.T) {
	finalErr := errors.New("upstream unavailable")
	calls := 0

	_, err := ai.WithRetry(context.Background(), 3, time.Millisecond, nil,
		func(_ context.Context) (string, error) {
			calls++
			return "", finalErr
		})

	assert.Equal(t, 3, calls)
	// The final error propagates unmodified.
	assert.Same(t, finalErr, err)
}

func TestWithRetry_ObserverSeesEachFailedAttempt(t *testing.T) {
	var observed []int
	_, _ = ai.WithRetry(context.Background(), 3, time.Millisecond,
		func(attempt int, err error) {
			observed = append(observed, attempt)
		},
		func(_ context.Context) (string, error) {
			return "", errors.New("boom")
		})

	// Called before each retry, not after the final attempt.
	assert.Equal(t, []int{1, 2}, observed)
}

func TestWithRetry_StopsWaitingOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	callErr := errors.New("slow upstream")
	calls := 0

	_, err := ai.WithRetry(ctx, 3, time.Hour, nil,
		func(_ context.Context) (string, error) {
			calls++
			cancel()
			return "", callErr
		})

	assert.Equal(t, 1, calls)
	assert.Same(t, callErr, err)
}
