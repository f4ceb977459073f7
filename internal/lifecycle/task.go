package lifecycle

import (
	"context"
	"sync"
)

// Task is the eventual result of an asynchronous machine operation.
type Task[T any] struct {
	once  sync.Once
	done  chan struct{}
	value T
	err   error
}

func newTask[T any]() *Task[T] {
	return &Task[T]{done: make(chan struct{})}
}

func failedTask[T any](err error) *Task[T] {
	t := newTask[T]()
	var zero T
	t.finish(zero, err)
	return t
}

func (t *Task[T]) finish(value T, err error) {
	t.once.Do(func() {
		t.value = value
		t.err = err
		close(t.done)
	})
}

// Done is closed when the task finished.
func (t *Task[T]) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the task finished or ctx is done.
func (t *Task[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-t.done:
		return t.value, t.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Result returns the outcome of a finished task. It must only be called
// after Done is closed.
func (t *Task[T]) Result() (T, error) {
	<-t.done
	return t.value, t.err
}
