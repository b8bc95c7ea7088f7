package worker

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestWorkerPool_RunsAllJobs(t *testing.T) {
	defer goleak.VerifyNone(t)

	wp := New(4, 8, discard)
	wp.Start(context.Background())

	var ran atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		require.NoError(t, wp.Submit(context.Background(), func(context.Context) {
			defer wg.Done()
			ran.Add(1)
		}))
	}
	wg.Wait()
	wp.Stop()

	assert.Equal(t, int64(100), ran.Load())
}

func TestWorkerPool_SubmitAfterStop(t *testing.T) {
	defer goleak.VerifyNone(t)

	wp := New(1, 1, discard)
	wp.Start(context.Background())
	wp.Stop()
	wp.Stop()

	err := wp.Submit(context.Background(), func(context.Context) {})
	assert.ErrorIs(t, err, ErrStopped)
}

func TestWorkerPool_StopDrainsQueue(t *testing.T) {
	defer goleak.VerifyNone(t)

	// never started: queued jobs only run during Stop
	wp := New(1, 4, discard)
	var ran atomic.Int64
	for i := 0; i < 3; i++ {
		require.NoError(t, wp.Submit(context.Background(), func(context.Context) { ran.Add(1) }))
	}
	wp.Stop()
	assert.Equal(t, int64(3), ran.Load())
}

func TestWorkerPool_RecoversPanics(t *testing.T) {
	defer goleak.VerifyNone(t)

	wp := New(1, 1, discard)
	wp.Start(context.Background())

	done := make(chan struct{})
	require.NoError(t, wp.Submit(context.Background(), func(context.Context) { panic("boom") }))
	require.NoError(t, wp.Submit(context.Background(), func(context.Context) { close(done) }))
	<-done
	wp.Stop()
}

func TestWorkerPool_SubmitHonoursContext(t *testing.T) {
	defer goleak.VerifyNone(t)

	wp := New(1, 0, discard)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := wp.Submit(ctx, func(context.Context) {})
	assert.ErrorIs(t, err, context.Canceled)
	wp.Stop()
}
