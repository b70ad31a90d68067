package util

import (
	"sync"

	"github.com/gammazero/deque"
)

// Queue is an unbounded FIFO with a wake-up signal, meant for a single
// consumer goroutine. Push never blocks, so producers running inside
// library callbacks (pion) or broadcast loops cannot stall on a slow
// consumer.
//
// The consumer waits on Signal() and then calls Pop until it reports empty.
type Queue[T any] struct {
	mu     sync.Mutex
	items  deque.Deque[T]
	signal chan struct{}
	closed bool
}

// NewQueue returns an empty, open queue.
func NewQueue[T any]() *Queue[T] {
	return &Queue[T]{signal: make(chan struct{}, 1)}
}

// Push appends v. It reports false (and drops v) once the queue is closed.
func (q *Queue[T]) Push(v T) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.items.PushBack(v)
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// Pop removes the oldest item.
func (q *Queue[T]) Pop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.items.Len() == 0 {
		var zero T
		return zero, false
	}
	return q.items.PopFront(), true
}

// Len returns the number of pending items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Len()
}

// Signal fires at least once after every Push.
func (q *Queue[T]) Signal() <-chan struct{} {
	return q.signal
}

// Close rejects further pushes and discards pending items.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	q.items.Clear()
}
