package lifecycle

import "sync"

// Dispatcher runs functions on the goroutine that owns observable state.
// Dispatch returns false when the function will never run.
type Dispatcher interface {
	Dispatch(fn func()) bool
}

// Queue is a Dispatcher backed by a single goroutine. Functions run one at a
// time in dispatch order.
type Queue struct {
	ch        chan func()
	done      chan struct{}
	closeOnce sync.Once
	stopped   chan struct{}
}

// NewQueue starts a queue with the given buffer size.
func NewQueue(buffer int) *Queue {
	q := &Queue{
		ch:      make(chan func(), buffer),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go q.run()
	return q
}

func (q *Queue) run() {
	defer close(q.stopped)
	for {
		select {
		case <-q.done:
			return
		case fn := <-q.ch:
			select {
			case <-q.done:
				return
			default:
			}
			fn()
		}
	}
}

// Dispatch enqueues fn. It blocks while the buffer is full.
func (q *Queue) Dispatch(fn func()) bool {
	select {
	case <-q.done:
		return false
	default:
	}
	select {
	case q.ch <- fn:
		return true
	case <-q.done:
		return false
	}
}

// Close stops the queue. Functions not yet started are dropped. Close does
// not wait for a running function when called from the queue itself.
func (q *Queue) Close() {
	q.closeOnce.Do(func() { close(q.done) })
}

// Stopped is closed once the queue goroutine exited.
func (q *Queue) Stopped() <-chan struct{} {
	return q.stopped
}
