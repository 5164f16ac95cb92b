package async

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"mailspot/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerRunsTasks(t *testing.T) {
	w := NewWorker(10, logger.NewNop())
	w.Start(2)

	var done atomic.Int32
	for i := 0; i < 5; i++ {
		require.NoError(t, w.Submit(Task{Name: "count", Handler: func(ctx context.Context) error {
			done.Add(1)
			return nil
		}}))
	}
	w.Stop()

	assert.Equal(t, int32(5), done.Load())
	assert.Equal(t, uint64(0), w.Failed())
}

func TestWorkerRetriesAndCountsFailures(t *testing.T) {
	w := NewWorker(10, logger.NewNop())
	w.Start(1)

	var attempts atomic.Int32
	require.NoError(t, w.Submit(Task{RetryMax: 2, Handler: func(ctx context.Context) error {
		attempts.Add(1)
		return errors.New("boom")
	}}))
	require.NoError(t, w.Submit(Task{Handler: func(ctx context.Context) error {
		panic("bad task")
	}}))
	w.Stop()

	assert.Equal(t, int32(3), attempts.Load())
	assert.Equal(t, uint64(2), w.Failed())
}

func TestWorkerQueueFullAndStopped(t *testing.T) {
	w := NewWorker(1, logger.NewNop())

	noop := Task{Handler: func(ctx context.Context) error { return nil }}
	require.NoError(t, w.Submit(noop))
	assert.ErrorIs(t, w.Submit(noop), ErrQueueFull)

	w.Start(1)
	w.Stop()
	assert.ErrorIs(t, w.Submit(noop), ErrStopped)
	w.Stop()
}
