package chat

import (
	"context"
	"sync"
	"sync/atomic"

	"mintsniper/internal/domain"
)

// Queue is the bounded message queue between sessions and the extraction
// workers. When full, Push drops the oldest unprocessed message instead of
// blocking, so a slow worker pool degrades to lossy rather than stalling the
// ingest connections.
type Queue struct {
	mu      sync.Mutex
	ch      chan domain.Message
	dropped atomic.Int64
}

// NewQueue creates a queue holding at most capacity messages.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = 1024
	}
	return &Queue{
		ch: make(chan domain.Message, capacity),
	}
}

// Push enqueues a message, evicting the oldest one if the queue is full.
// Returns false when an eviction happened.
func (q *Queue) Push(m domain.Message) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	var evicted bool
	for {
		select {
		case q.ch <- m:
			return !evicted
		default:
		}

		// Full. Drop the head and retry. The lock excludes concurrent
		// producers; a concurrent Pop only makes room.
		select {
		case <-q.ch:
			q.dropped.Add(1)
			evicted = true
		default:
		}
	}
}

// Pop blocks until a message is available or ctx is done.
func (q *Queue) Pop(ctx context.Context) (domain.Message, error) {
	select {
	case m := <-q.ch:
		return m, nil
	case <-ctx.Done():
		return domain.Message{}, ctx.Err()
	}
}

// Len returns the number of queued messages.
func (q *Queue) Len() int {
	return len(q.ch)
}

// Dropped returns the total number of messages evicted so far.
func (q *Queue) Dropped() int64 {
	return q.dropped.Load()
}
