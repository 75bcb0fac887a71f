package tasks

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inviteai/internal/domain"
)

func TestQueueRunsAndDrains(t *testing.T) {
	q := NewQueue(3, 16, zerolog.Nop())
	var ran atomic.Int32
	for i := 0; i < 10; i++ {
		require.NoError(t, q.Submit("count", func(context.Context) error {
			ran.Add(1)
			return nil
		}))
	}
	require.NoError(t, q.Shutdown(context.Background()))
	assert.Equal(t, int32(10), ran.Load())

	assert.ErrorIs(t, q.Submit("late", func(context.Context) error { return nil }), ErrClosed)
}

func TestQueueFull(t *testing.T) {
	q := NewQueue(1, 1, zerolog.Nop())
	release := make(chan struct{})
	started := make(chan struct{})

	require.NoError(t, q.Submit("block", func(context.Context) error {
		close(started)
		<-release
		return nil
	}))
	<-started
	require.NoError(t, q.Submit("buffered", func(context.Context) error { return nil }))

	err := q.Submit("overflow", func(context.Context) error { return nil })
	assert.ErrorIs(t, err, domain.ErrQueueFull)

	close(release)
	require.NoError(t, q.Shutdown(context.Background()))
}

func TestQueueSurvivesPanicsAndErrors(t *testing.T) {
	q := NewQueue(1, 4, zerolog.Nop())
	var wg sync.WaitGroup
	wg.Add(1)
	require.NoError(t, q.Submit("panic", func(context.Context) error { panic("boom") }))
	require.NoError(t, q.Submit("error", func(context.Context) error { return errors.New("nope") }))
	require.NoError(t, q.Submit("ok", func(context.Context) error {
		wg.Done()
		return nil
	}))
	wg.Wait()
	require.NoError(t, q.Shutdown(context.Background()))
}

func TestShutdownDeadlineCancelsRunningTasks(t *testing.T) {
	q := NewQueue(1, 1, zerolog.Nop())
	started := make(chan struct{})
	var cancelled atomic.Bool
	require.NoError(t, q.Submit("slow", func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		cancelled.Store(true)
		return ctx.Err()
	}))
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := q.Shutdown(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, cancelled.Load())
}

func TestInlineRunsSynchronously(t *testing.T) {
	var ran bool
	require.NoError(t, Inline{}.Submit("x", func(context.Context) error {
		ran = true
		return nil
	}))
	assert.True(t, ran)
}
