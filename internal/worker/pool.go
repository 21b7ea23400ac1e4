// Package worker provides a fixed-size worker pool for processing events from the queue
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Sheliakhin-Golang-portfolio/ReviewRelay/internal/pipeline"
	"github.com/Sheliakhin-Golang-portfolio/ReviewRelay/internal/queue"
	"github.com/Sheliakhin-Golang-portfolio/ReviewRelay/internal/types"
	"go.uber.org/zap"
)

// Handler processes one event
type Handler interface {
	Process(ctx context.Context, event *types.TranscriptEvent) (pipeline.State, error)
}

// Pool represents a fixed-size worker pool that processes events from a queue.
// With one worker, events are handled strictly in arrival order.
type Pool struct {
	workerCount int
	queue       *queue.Queue
	handler     Handler
	logger      *zap.Logger
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	started     bool
	mu          sync.Mutex
}

// NewPool creates a new worker pool with the specified number of workers
// workerCount must be greater than 0
func NewPool(workerCount int, queue *queue.Queue, handler Handler, logger *zap.Logger) (*Pool, error) {
	if workerCount <= 0 {
		return nil, fmt.Errorf("worker count must be greater than 0, got: %d", workerCount)
	}
	if queue == nil {
		return nil, fmt.Errorf("queue cannot be nil")
	}
	if handler == nil {
		return nil, fmt.Errorf("handler cannot be nil")
	}

	return &Pool{
		workerCount: workerCount,
		queue:       queue,
		handler:     handler,
		logger:      logger,
	}, nil
}

// Start begins processing events from the queue using the worker pool
// Returns an error if the pool is already started
func (p *Pool) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return ErrPoolAlreadyStarted
	}

	p.logger.Info("Starting worker pool",
		zap.Int("workerCount", p.workerCount),
	)

	// Pool context is cancelled by Stop; ctx by the caller
	p.ctx, p.cancel = context.WithCancel(ctx)
	p.started = true

	for i := range p.workerCount {
		p.wg.Add(1)
		go p.worker(p.ctx, i)
	}

	return nil
}

// worker pulls events from the queue and processes them until the context
// is cancelled or the queue is closed and drained
func (p *Pool) worker(ctx context.Context, workerID int) {
	defer p.wg.Done()

	p.logger.Debug("Worker started",
		zap.Int("workerID", workerID),
	)

	for {
		event, err := p.queue.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				p.logger.Debug("Worker stopping due to context cancellation",
					zap.Int("workerID", workerID),
				)
				return
			}
			if errors.Is(err, queue.ErrQueueClosed) {
				p.logger.Debug("Worker stopping due to queue closed",
					zap.Int("workerID", workerID),
				)
				return
			}

			p.logger.Error("Failed to dequeue event",
				zap.Error(err),
				zap.Int("workerID", workerID),
			)
			continue
		}

		p.processEvent(ctx, event, workerID)
	}
}

// processEvent runs the handler for one event. An event that has been
// dequeued is finished even if the pool is stopping, so its side effects and
// watermark stay consistent.
func (p *Pool) processEvent(ctx context.Context, event *types.TranscriptEvent, workerID int) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("Panic while processing event",
				zap.Any("panic", r),
				zap.String("eventId", event.ID),
				zap.Int("workerID", workerID),
			)
		}
	}()

	state, err := p.handler.Process(context.WithoutCancel(ctx), event)
	if err != nil {
		p.logger.Error("Pipeline process failed",
			zap.Error(err),
			zap.String("eventId", event.ID),
			zap.Int("workerID", workerID),
			zap.Int("queueDepth", p.queue.Depth()),
		)
		return
	}

	p.logger.Debug("Event processed",
		zap.String("eventId", event.ID),
		zap.Stringer("kind", event.Kind),
		zap.Stringer("state", state),
		zap.Int("workerID", workerID),
	)
}

// Wait blocks until every worker has exited or ctx is done. Workers exit on
// their own once the queue is closed and drained.
func (p *Pool) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop cancels the workers and waits for in-flight events to finish
func (p *Pool) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return nil
	}
	p.started = false

	p.logger.Info("Stopping worker pool",
		zap.Int("workerCount", p.workerCount),
	)

	if p.cancel != nil {
		p.cancel()
	}

	p.wg.Wait()

	p.logger.Info("Worker pool stopped",
		zap.Int("workerCount", p.workerCount),
	)

	p.ctx = nil
	p.cancel = nil

	return nil
}

// Errors
var (
	ErrPoolAlreadyStarted = &PoolError{msg: "worker pool is already started"}
)

// PoolError represents a worker pool operation error
type PoolError struct {
	msg string
}

func (e *PoolError) Error() string {
	return e.msg
}
