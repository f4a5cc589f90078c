// Package queue provides an ordered hand-off queue between a producer
// running on a transport-owned goroutine and a single consumer.
package queue

import (
	"errors"
	"sync"
	"time"
)

var (
	// ErrClosed is returned when pushing to or popping from a closed,
	// drained queue.
	ErrClosed = errors.New("queue is closed")
	// ErrTimeout is returned when no item arrives within the Pop timeout.
	ErrTimeout = errors.New("timed out waiting for item")
)

// Queue is an unbounded FIFO safe for one concurrent writer and one reader.
// Items are popped in exactly the order they were pushed.
type Queue[T any] struct {
	mu     sync.Mutex
	items  []T
	closed bool
	signal chan struct{}
}

// New creates an empty queue.
func New[T any]() *Queue[T] {
	return &Queue[T]{
		signal: make(chan struct{}, 1),
	}
}

// Push appends an item to the queue.
func (q *Queue[T]) Push(item T) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrClosed
	}
	q.items = append(q.items, item)
	q.mu.Unlock()

	q.wake()
	return nil
}

// Pop removes and returns the oldest item, waiting up to timeout for one to
// arrive. It returns ErrTimeout if the wait elapses and ErrClosed once the
// queue is closed and drained.
func (q *Queue[T]) Pop(timeout time.Duration) (T, error) {
	var zero T

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			item := q.items[0]
			q.items = q.items[1:]
			q.mu.Unlock()
			return item, nil
		}
		closed := q.closed
		q.mu.Unlock()

		if closed {
			return zero, ErrClosed
		}

		select {
		case <-q.signal:
		case <-deadline.C:
			return zero, ErrTimeout
		}
	}
}

// Len returns the number of items currently queued.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close marks the queue closed. Queued items remain poppable; further
// pushes fail with ErrClosed. Close is idempotent.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	q.wake()
}

// wake signals the reader without blocking. A single pending signal is
// enough because the reader re-checks the queue length before waiting.
func (q *Queue[T]) wake() {
	select {
	case q.signal <- struct{}{}:
	default:
	}
}
