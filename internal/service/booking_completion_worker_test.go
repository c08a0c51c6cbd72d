package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingCompleter struct {
	calls int32
	fail  int32
}

func (c *countingCompleter) CompleteElapsed(ctx context.Context, now time.Time) (int64, error) {
	n := atomic.AddInt32(&c.calls, 1)
	if n <= atomic.LoadInt32(&c.fail) {
		return 0, errors.New("store unavailable")
	}
	return 2, nil
}

func TestBookingCompletionWorkerRunsOnStart(t *testing.T) {
	completer := &countingCompleter{}
	worker := NewBookingCompletionWorker(completer, BookingCompletionConfig{Schedule: "@every 1h"})

	require.NoError(t, worker.Start(context.Background()))
	defer worker.Stop()

	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&completer.calls) >= 1
	}, time.Second, 10*time.Millisecond)
}

func TestBookingCompletionWorkerRetriesFailures(t *testing.T) {
	completer := &countingCompleter{fail: 1}
	worker := NewBookingCompletionWorker(completer, BookingCompletionConfig{
		Schedule:   "@every 1h",
		MaxRetries: 2,
		RetryDelay: 10 * time.Millisecond,
	})

	require.NoError(t, worker.Start(context.Background()))
	defer worker.Stop()

	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&completer.calls) >= 2
	}, time.Second, 10*time.Millisecond)
}

func TestBookingCompletionWorkerRejectsBadSchedule(t *testing.T) {
	worker := NewBookingCompletionWorker(&countingCompleter{}, BookingCompletionConfig{Schedule: "every now and then"})
	assert.Error(t, worker.Start(context.Background()))
}
