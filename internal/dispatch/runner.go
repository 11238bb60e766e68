// Package dispatch serializes operations behind a single worker goroutine.
// Every trigger from every surface funnels through one Runner, so two
// captures fired back to back run one after the other and never interleave
// their read-modify-write of the queue.
package dispatch

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hpungsan/tinycapture/internal/errors"
	"github.com/hpungsan/tinycapture/internal/logging"
	"github.com/oklog/ulid/v2"
)

// ErrClosed is returned by Do after Close.
var ErrClosed = stderrors.New("dispatch: runner closed")

// queueDepth is how many submitted tasks may wait before Do blocks.
const queueDepth = 64

type task struct {
	id   string
	name string
	ctx  context.Context
	fn   func(ctx context.Context) error
	done chan error
}

// Runner executes submitted tasks one at a time in submission order.
type Runner struct {
	tasks  chan *task
	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
	logger *slog.Logger
}

// New starts a Runner. A nil logger discards task logs.
func New(logger *slog.Logger) *Runner {
	if logger == nil {
		logger = logging.Nop()
	}
	r := &Runner{
		tasks:  make(chan *task, queueDepth),
		logger: logger.With("component", "dispatch"),
	}
	r.wg.Add(1)
	go r.loop()
	return r
}

// Do submits fn under name and waits for it to finish.
//
// If ctx ends before the task starts, the task is skipped and a CANCELLED
// error is returned. Once started, the task runs to completion with ctx's
// values but without its cancellation.
func (r *Runner) Do(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	t := &task{
		id:   ulid.Make().String(),
		name: name,
		ctx:  ctx,
		fn:   fn,
		done: make(chan error, 1),
	}

	r.mu.RLock()
	if r.closed {
		r.mu.RUnlock()
		return ErrClosed
	}
	select {
	case r.tasks <- t:
		r.mu.RUnlock()
	case <-ctx.Done():
		r.mu.RUnlock()
		return errors.NewCancelled(name)
	}

	return <-t.done
}

// Run is Do for tasks that produce a value.
func Run[T any](ctx context.Context, r *Runner, name string, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := r.Do(ctx, name, func(ctx context.Context) error {
		v, err := fn(ctx)
		out = v
		return err
	})
	return out, err
}

// Close stops accepting tasks and waits for queued ones to finish.
func (r *Runner) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	close(r.tasks)
	r.mu.Unlock()

	r.wg.Wait()
}

func (r *Runner) loop() {
	defer r.wg.Done()
	for t := range r.tasks {
		t.done <- r.exec(t)
	}
}

func (r *Runner) exec(t *task) (err error) {
	if t.ctx.Err() != nil {
		r.logger.Debug("task skipped", "task_id", t.id, "task", t.name)
		return errors.NewCancelled(t.name)
	}

	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			err = errors.NewInternal(fmt.Errorf("%s panicked: %v", t.name, p))
		}
		if err != nil {
			r.logger.Warn("task failed", "task_id", t.id, "task", t.name, "error", err, "elapsed", time.Since(start))
			return
		}
		r.logger.Debug("task done", "task_id", t.id, "task", t.name, "elapsed", time.Since(start))
	}()

	return t.fn(context.WithoutCancel(t.ctx))
}
