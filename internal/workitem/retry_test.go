package workitem_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"worklist/internal/workitem"
)

func TestRetryStopsOnSuccess(t *testing.T) {
	calls := 0
	got, err := workitem.Retry(context.Background(), workitem.RetryPolicy{Attempts: 5, Backoff: time.Millisecond}, func(context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, fmt.Errorf("attempt %d: %w", calls, workitem.ErrConcurrencyConflict)
		}
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, 3, calls)
}

func TestRetryDoesNotRetryOtherErrors(t *testing.T) {
	calls := 0
	boom := &workitem.InvalidTransitionError{From: workitem.StateCompleted, To: workitem.StateInProgress}
	_, err := workitem.Retry(context.Background(), workitem.RetryPolicy{Attempts: 5}, func(context.Context) (struct{}, error) {
		calls++
		return struct{}{}, boom
	})
	assert.ErrorIs(t, err, workitem.ErrInvalidTransition)
	assert.Equal(t, 1, calls)
}

func TestRetryGivesUpAfterAttempts(t *testing.T) {
	calls := 0
	_, err := workitem.Retry(context.Background(), workitem.RetryPolicy{Attempts: 3}, func(context.Context) (int, error) {
		calls++
		return 0, workitem.ErrConcurrencyConflict
	})
	assert.ErrorIs(t, err, workitem.ErrConcurrencyConflict)
	assert.Equal(t, 3, calls)
}

func TestRetryHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := workitem.Retry(ctx, workitem.RetryPolicy{Attempts: 3, Backoff: time.Hour}, func(context.Context) (int, error) {
		calls++
		cancel()
		return 0, workitem.ErrConcurrencyConflict
	})
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 1, calls)
}
