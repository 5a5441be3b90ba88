package async_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flagship-io/flagship-go/pkg/async"
)

func TestFuture(t *testing.T) {
	t.Parallel()

	t.Run("RunResolvesWithResult", func(t *testing.T) {
		t.Parallel()
		f := async.Run(context.Background(), func(context.Context) (int, error) {
			return 42, nil
		})
		got, err := f.Await()
		require.NoError(t, err)
		assert.Equal(t, 42, got)
	})

	t.Run("RunResolvesWithError", func(t *testing.T) {
		t.Parallel()
		boom := errors.New("boom")
		f := async.Run(context.Background(), func(context.Context) (int, error) {
			return 0, boom
		})
		_, err := f.Await()
		assert.ErrorIs(t, err, boom)
	})

	t.Run("AwaitIsRepeatable", func(t *testing.T) {
		t.Parallel()
		f := async.Run(context.Background(), func(context.Context) (string, error) {
			return "once", nil
		})
		for i := 0; i < 3; i++ {
			got, err := f.Await()
			require.NoError(t, err)
			assert.Equal(t, "once", got)
		}
	})

	t.Run("CancelledContextSkipsWork", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		var ran atomic.Bool
		f := async.Run(ctx, func(context.Context) (int, error) {
			ran.Store(true)
			return 1, nil
		})
		_, err := f.Await()
		assert.ErrorIs(t, err, context.Canceled)
		assert.False(t, ran.Load())
	})

	t.Run("AwaitWithTimeout", func(t *testing.T) {
		t.Parallel()
		blocked := make(chan struct{})
		f := async.Run(context.Background(), func(context.Context) (int, error) {
			<-blocked
			return 1, nil
		})
		_, err := f.AwaitWithTimeout(10 * time.Millisecond)
		assert.ErrorIs(t, err, async.ErrTimeout)

		close(blocked)
		got, err := f.AwaitWithTimeout(time.Second)
		require.NoError(t, err)
		assert.Equal(t, 1, got)
	})

	t.Run("Completed", func(t *testing.T) {
		t.Parallel()
		f := async.Completed("done", nil)
		assert.True(t, f.IsComplete())
		got, err := f.Await()
		require.NoError(t, err)
		assert.Equal(t, "done", got)
	})

	t.Run("IsComplete", func(t *testing.T) {
		t.Parallel()
		blocked := make(chan struct{})
		f := async.Run(context.Background(), func(context.Context) (int, error) {
			<-blocked
			return 1, nil
		})
		assert.False(t, f.IsComplete())
		close(blocked)
		_, _ = f.Await()
		assert.True(t, f.IsComplete())
	})

	t.Run("ThenRunsAfterCompletion", func(t *testing.T) {
		t.Parallel()
		notified := make(chan int, 1)
		async.Run(context.Background(), func(context.Context) (int, error) {
			return 7, nil
		}).Then(func(v int, err error) {
			require.NoError(t, err)
			notified <- v
		})
		select {
		case v := <-notified:
			assert.Equal(t, 7, v)
		case <-time.After(time.Second):
			t.Fatal("Then callback never ran")
		}
	})
}
