// Package worker provides the single-writer queue used for asynchronous
// ledger persistence and exports.
package worker

import (
	"context"
	"errors"
	"sync"

	"ledgerbook/internal/core"
	"ledgerbook/internal/log"
)

// ErrQueueClosed is returned by Save after the queue stopped.
var ErrQueueClosed = errors.New("write queue closed")

// Sink receives full ledger snapshots.
type Sink interface {
	Save(ctx context.Context, records []core.ExpenseRecord) error
}

// Queue hands snapshots to a Sink from a single goroutine. Snapshots that
// arrive while a write is in flight coalesce: only the latest is written, so
// the sink always holds a complete, most recent snapshot and never an
// interleaving of two.
type Queue struct {
	sink   Sink
	logger *log.Logger

	mu       sync.Mutex
	pending  []core.ExpenseRecord
	queued   uint64 // snapshots accepted by Save
	written  uint64 // highest sequence handed to the sink
	lastErr  error
	progress chan struct{}
	closed   bool
	started  bool

	wake     chan struct{}
	stop     chan struct{}
	stopOnce sync.Once
	finished chan struct{}
}

func NewQueue(sink Sink, logger *log.Logger) *Queue {
	if logger == nil {
		logger = log.Discard()
	}
	return &Queue{
		sink:     sink,
		logger:   logger.WithComponent(log.ComponentWorker),
		progress: make(chan struct{}),
		wake:     make(chan struct{}, 1),
		stop:     make(chan struct{}),
		finished: make(chan struct{}),
	}
}

// Save enqueues a copy of records and returns without waiting for the write.
func (q *Queue) Save(_ context.Context, records []core.ExpenseRecord) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrQueueClosed
	}
	q.pending = append(make([]core.ExpenseRecord, 0, len(records)), records...)
	q.queued++
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return nil
}

// Start runs the writer in a new goroutine.
func (q *Queue) Start(ctx context.Context) {
	go func() {
		_ = q.Run(ctx)
	}()
}

// Run writes snapshots until ctx is done or Close is called, then drains what
// is still pending. Write failures are logged and reported through Flush.
func (q *Queue) Run(ctx context.Context) error {
	q.mu.Lock()
	if q.started {
		q.mu.Unlock()
		return errors.New("write queue already running")
	}
	q.started = true
	q.mu.Unlock()

	defer close(q.finished)
	for {
		select {
		case <-q.wake:
			q.writePending(ctx)
		case <-q.stop:
			q.shutdown(ctx)
			return nil
		case <-ctx.Done():
			q.shutdown(ctx)
			return nil
		}
	}
}

func (q *Queue) shutdown(ctx context.Context) {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	// The final snapshot must land even though ctx may already be cancelled.
	q.writePending(context.WithoutCancel(ctx))
}

func (q *Queue) writePending(ctx context.Context) {
	q.mu.Lock()
	if q.written == q.queued {
		q.mu.Unlock()
		return
	}
	records := q.pending
	seq := q.queued
	q.pending = nil
	q.mu.Unlock()

	err := q.sink.Save(ctx, records)
	if err != nil {
		q.logger.ErrorContext(ctx, "Queued write failed",
			log.FieldOperation, log.OpSave,
			log.FieldCount, len(records),
			log.FieldError, err)
	}

	q.mu.Lock()
	q.written = seq
	q.lastErr = err
	close(q.progress)
	q.progress = make(chan struct{})
	q.mu.Unlock()
}

// Flush waits until every snapshot accepted before the call has been written
// and returns the error of the latest write.
func (q *Queue) Flush(ctx context.Context) error {
	q.mu.Lock()
	target := q.queued
	q.mu.Unlock()

	for {
		q.mu.Lock()
		if q.written >= target {
			err := q.lastErr
			q.mu.Unlock()
			return err
		}
		progress := q.progress
		q.mu.Unlock()

		select {
		case <-progress:
		case <-q.finished:
			q.mu.Lock()
			done := q.written >= target
			err := q.lastErr
			q.mu.Unlock()
			if done {
				return err
			}
			return ErrQueueClosed
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close stops the writer after draining pending snapshots.
func (q *Queue) Close() error {
	q.stopOnce.Do(func() { close(q.stop) })

	q.mu.Lock()
	started := q.started
	q.closed = true
	q.mu.Unlock()
	if started {
		<-q.finished
	}
	return nil
}
