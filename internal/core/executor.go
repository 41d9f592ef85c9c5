package core

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// executor runs tasks one at a time on a single goroutine. All mutable service state
// is touched only from inside tasks.
type executor struct {
	tasks   chan func()
	quit    chan struct{}
	stopped chan struct{}
	once    sync.Once
}

func newExecutor() *executor {
	e := &executor{
		tasks:   make(chan func()),
		quit:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go e.run()
	return e
}

func (e *executor) run() {
	defer close(e.stopped)
	for {
		select {
		case task := <-e.tasks:
			task()
		case <-e.quit:
			return
		}
	}
}

// stop waits for the running task, if any, and rejects further submissions.
func (e *executor) stop() {
	e.once.Do(func() { close(e.quit) })
	<-e.stopped
}

// submit runs fn on the executor and returns its result. A task whose context is done
// before it starts is skipped.
func submit[T any](ctx context.Context, e *executor, fn func() (T, error)) (T, error) {
	type result struct {
		value T
		err   error
	}
	var zero T
	done := make(chan result, 1)

	task := func() {
		if err := ctx.Err(); err != nil {
			done <- result{zero, err}
			return
		}
		defer func() {
			if r := recover(); r != nil {
				slog.Error("task panicked", "panic", r)
				done <- result{zero, fmt.Errorf("task panicked: %v", r)}
			}
		}()
		value, err := fn()
		done <- result{value, err}
	}

	select {
	case e.tasks <- task:
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-e.quit:
		return zero, ErrClosed
	}

	r := <-done
	return r.value, r.err
}

// do is submit for tasks without a result.
func do(ctx context.Context, e *executor, fn func() error) error {
	_, err := submit(ctx, e, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}
