// Package queue provides a bounded buffered queue for transcript events with backpressure support
package queue

import (
	"context"
	"sync"

	"github.com/Sheliakhin-Golang-portfolio/ReviewRelay/internal/obs"
	"github.com/Sheliakhin-Golang-portfolio/ReviewRelay/internal/types"
)

// Queue is a bounded buffered channel between the gateway consumer and the workers.
// When the queue is full, Enqueue blocks, which in turn blocks the gateway
// handler goroutine that delivered the event.
type Queue struct {
	events  chan *types.TranscriptEvent
	done    chan struct{}
	size    int
	metrics *obs.Metrics
	once    sync.Once
	mu      sync.RWMutex
	closed  bool
}

// NewQueue creates a new Queue with the specified buffer size
func NewQueue(size int, metrics *obs.Metrics) *Queue {
	q := &Queue{
		events:  make(chan *types.TranscriptEvent, size),
		done:    make(chan struct{}),
		size:    size,
		metrics: metrics,
	}

	if metrics != nil {
		metrics.NullifyQueueDepth()
	}

	return q
}

// Enqueue adds an event to the queue.
// It blocks while the queue is full and returns an error if the context is
// cancelled or the queue is closed.
func (q *Queue) Enqueue(ctx context.Context, event *types.TranscriptEvent) error {
	// Hold the read lock so Close cannot close the channel mid-send
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.events <- event:
		if q.metrics != nil {
			q.metrics.IncrementQueueDepth()
			q.metrics.IncrementEventsIngested()
		}
		return nil
	case <-q.done:
		return ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dequeue removes and returns an event from the queue.
// It blocks while the queue is empty. Events still buffered when the queue
// is closed are drained before ErrQueueClosed is returned.
func (q *Queue) Dequeue(ctx context.Context) (*types.TranscriptEvent, error) {
	select {
	case event, ok := <-q.events:
		if !ok {
			return nil, ErrQueueClosed
		}
		if q.metrics != nil {
			q.metrics.DecrementQueueDepth()
		}
		return event, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Depth returns the current number of events in the queue
func (q *Queue) Depth() int {
	return len(q.events)
}

// Size returns the queue capacity
func (q *Queue) Size() int {
	return q.size
}

// Close stops accepting events. Blocked producers are released first, then
// the channel is closed so consumers drain what is left.
func (q *Queue) Close() {
	q.once.Do(func() {
		close(q.done)
		q.mu.Lock()
		q.closed = true
		close(q.events)
		q.mu.Unlock()
	})
}

// Errors
var (
	ErrQueueClosed = &QueueError{msg: "queue is closed"}
)

// QueueError represents a queue operation error
type QueueError struct {
	msg string
}

func (e *QueueError) Error() string {
	return e.msg
}
