// Package tasks runs deferred work on a fixed pool of goroutines. Callers
// persist state before submitting so a lost task can be picked up again by
// the worker binary.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"inviteai/internal/domain"
)

// ErrClosed is returned by Submit after Shutdown started.
var ErrClosed = errors.New("task queue closed")

// Func is one unit of deferred work. The context is detached from the
// submitting request and cancelled only on hard shutdown.
type Func func(ctx context.Context) error

// Scheduler accepts deferred work.
type Scheduler interface {
	Submit(name string, fn Func) error
}

type task struct {
	name string
	fn   Func
}

// Queue is a bounded Scheduler. Submit never blocks; a full buffer yields
// domain.ErrQueueFull.
type Queue struct {
	logger zerolog.Logger
	tasks  chan task
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func NewQueue(workers, size int, logger zerolog.Logger) *Queue {
	if workers <= 0 {
		workers = 1
	}
	if size < 0 {
		size = 0
	}
	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{
		logger: logger,
		tasks:  make(chan task, size),
		ctx:    ctx,
		cancel: cancel,
	}
	q.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go q.work(i)
	}
	return q
}

func (q *Queue) Submit(name string, fn Func) error {
	if fn == nil {
		return fmt.Errorf("%w: nil task %q", domain.ErrInvalidRequest, name)
	}
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrClosed
	}
	select {
	case q.tasks <- task{name: name, fn: fn}:
		return nil
	default:
		q.logger.Warn().Str("task", name).Msg("task queue full")
		return domain.ErrQueueFull
	}
}

// Shutdown stops accepting work and waits for queued tasks to drain. When ctx
// expires first, running tasks see their context cancelled.
func (q *Queue) Shutdown(ctx context.Context) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.tasks)
	}
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		q.cancel()
		return nil
	case <-ctx.Done():
		q.cancel()
		<-done
		return ctx.Err()
	}
}

func (q *Queue) work(id int) {
	defer q.wg.Done()
	for t := range q.tasks {
		q.run(id, t)
	}
}

func (q *Queue) run(id int, t task) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error().Str("task", t.name).Int("worker", id).Interface("panic", r).Msg("task panicked")
		}
	}()
	if err := t.fn(q.ctx); err != nil {
		q.logger.Error().Err(err).Str("task", t.name).Int("worker", id).Msg("task failed")
		return
	}
	q.logger.Debug().Str("task", t.name).Int("worker", id).Msg("task done")
}

// Inline runs tasks synchronously on Submit. Tests and CLIs use it where a
// background pool is unnecessary.
type Inline struct{}

func (Inline) Submit(name string, fn Func) error {
	if fn == nil {
		return fmt.Errorf("%w: nil task %q", domain.ErrInvalidRequest, name)
	}
	return fn(context.Background())
}

var (
	_ Scheduler = (*Queue)(nil)
	_ Scheduler = Inline{}
)
