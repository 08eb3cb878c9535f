package worker

import (
	"context"

	"ledgerbook/internal/core"
	"ledgerbook/internal/log"
)

// Persister matches ledger.Persister.
type Persister interface {
	Load(ctx context.Context) ([]core.ExpenseRecord, error)
	Save(ctx context.Context, records []core.ExpenseRecord) error
}

// AsyncPersister makes saves asynchronous through a Queue. Loads wait for
// queued writes first so a reload observes the latest mutation.
type AsyncPersister struct {
	*Queue
	inner Persister
}

func NewAsyncPersister(inner Persister, logger *log.Logger) *AsyncPersister {
	return &AsyncPersister{
		Queue: NewQueue(inner, logger),
		inner: inner,
	}
}

func (p *AsyncPersister) Load(ctx context.Context) ([]core.ExpenseRecord, error) {
	if err := p.Flush(ctx); err != nil && ctx.Err() != nil {
		return nil, err
	}
	return p.inner.Load(ctx)
}
