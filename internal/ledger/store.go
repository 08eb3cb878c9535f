// Package ledger owns the ordered collection of expense records.
//
// Store keeps the authoritative in-memory list, persists it wholesale through
// a Persister after every mutation and derives totals from it. New records
// are prepended, so index 0 is always the most recent entry.
package ledger

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"ledgerbook/internal/core"
	"ledgerbook/internal/log"
)

// Op identifies what changed the ledger.
type Op string

const (
	OpAdd    Op = "add"
	OpRemove Op = "remove"
	OpLoad   Op = "load"
)

// Change is delivered to observers after a successful mutation or load.
// Records is a snapshot of the ledger after the change.
type Change struct {
	Op      Op
	Index   int
	Record  core.ExpenseRecord
	Records []core.ExpenseRecord
}

// Observer is notified in subscription order after the store lock has been
// released. Changes are delivered in mutation order: when another goroutine is
// already delivering, the change is handed to it and the mutating call returns
// without waiting. The same applies to a mutation made from inside an observer.
type Observer func(ctx context.Context, c Change)

type Store struct {
	mu        sync.Mutex
	records   []core.ExpenseRecord
	persister Persister
	logger    *log.Logger

	obsMu     sync.Mutex
	observers []*observerEntry

	// pending holds changes in mutation order until one goroutine delivers them.
	pendMu     sync.Mutex
	pending    []pendingChange
	delivering bool
}

type observerEntry struct {
	fn Observer
}

type pendingChange struct {
	ctx    context.Context
	change Change
}

type Option func(*Store)

func WithLogger(logger *log.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithObserver(fn Observer) Option {
	return func(s *Store) {
		s.observers = append(s.observers, &observerEntry{fn: fn})
	}
}

// New returns an empty store. Call Load to restore persisted state.
func New(persister Persister, opts ...Option) *Store {
	s := &Store{
		records:   []core.ExpenseRecord{},
		persister: persister,
		logger:    log.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithComponent(log.ComponentLedger)
	return s
}

// Load replaces the in-memory ledger with the persisted one. Persistence
// failures are logged and leave an empty ledger so callers stay operable.
func (s *Store) Load(ctx context.Context) []core.ExpenseRecord {
	records, err := s.persister.Load(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to load ledger, starting empty",
			log.FieldOperation, log.OpLoad,
			log.FieldErrorType, log.ErrorTypeStorage,
			log.FieldError, err)
		records = nil
	}

	s.mu.Lock()
	s.records = append(make([]core.ExpenseRecord, 0, len(records)), records...)
	snapshot := s.snapshotLocked()
	s.enqueueLocked(ctx, Change{Op: OpLoad, Index: -1, Records: snapshot})
	s.mu.Unlock()

	s.logger.DebugContext(ctx, "Ledger loaded", log.FieldCount, len(snapshot))
	s.deliver()
	return s.copyOf(snapshot)
}

// Add validates the input, prepends a record and persists the ledger.
// It returns the new record's position, which is always 0.
func (s *Store) Add(ctx context.Context, title, amount, category, date string) (int, error) {
	if _, err := s.Create(ctx, title, amount, category, date); err != nil {
		return 0, err
	}
	return 0, nil
}

// Create is Add returning the stored record. Callers that report what was
// added must use it instead of reading index 0 back, which another writer may
// already have replaced.
func (s *Store) Create(ctx context.Context, title, amount, category, date string) (core.ExpenseRecord, error) {
	r, err := core.NewExpenseRecord(title, amount, category, date)
	if err != nil {
		return core.ExpenseRecord{}, err
	}
	return s.Insert(ctx, r)
}

// Insert prepends an already built record and returns it as stored. The
// record is validated again.
func (s *Store) Insert(ctx context.Context, r core.ExpenseRecord) (core.ExpenseRecord, error) {
	if err := r.Validate(); err != nil {
		return core.ExpenseRecord{}, err
	}
	r.Category = core.NormalizeCategory(r.Category)

	s.mu.Lock()
	s.records = append(s.records, core.ExpenseRecord{})
	copy(s.records[1:], s.records)
	s.records[0] = r
	s.saveLocked(ctx, log.OpAdd)
	s.enqueueLocked(ctx, Change{Op: OpAdd, Index: 0, Record: r, Records: s.snapshotLocked()})
	s.mu.Unlock()

	s.logger.DebugContext(ctx, "Expense added",
		log.NewFields().WithRecord(r.Title, r.Amount.String(), r.Category).ToSlice()...)
	s.deliver()
	return r, nil
}

// Remove deletes and returns the record at index.
func (s *Store) Remove(ctx context.Context, index int) (core.ExpenseRecord, error) {
	s.mu.Lock()
	if err := core.CheckIndex(index, len(s.records)); err != nil {
		s.mu.Unlock()
		return core.ExpenseRecord{}, err
	}
	removed := s.records[index]
	s.records = append(s.records[:index], s.records[index+1:]...)
	s.saveLocked(ctx, log.OpRemove)
	s.enqueueLocked(ctx, Change{Op: OpRemove, Index: index, Record: removed, Records: s.snapshotLocked()})
	s.mu.Unlock()

	s.logger.DebugContext(ctx, "Expense removed", log.FieldIndex, index)
	s.deliver()
	return removed, nil
}

// List returns a copy of the ledger in current order.
func (s *Store) List() []core.ExpenseRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func (s *Store) Get(index int) (core.ExpenseRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := core.CheckIndex(index, len(s.records)); err != nil {
		return core.ExpenseRecord{}, err
	}
	return s.records[index], nil
}

// Total sums all amounts; zero for an empty ledger.
func (s *Store) Total() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return core.Total(s.records)
}

func (s *Store) TotalsByCategory() map[string]decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return core.TotalsByCategory(s.records)
}

func (s *Store) Overview() core.Overview {
	s.mu.Lock()
	defer s.mu.Unlock()
	return core.Summarize(s.records)
}

// Save writes the full ledger and reports any persistence error.
func (s *Store) Save(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persister.Save(ctx, s.snapshotLocked())
}

// Subscribe registers fn and returns a function that removes it.
func (s *Store) Subscribe(fn Observer) (unsubscribe func()) {
	entry := &observerEntry{fn: fn}
	s.obsMu.Lock()
	s.observers = append(s.observers, entry)
	s.obsMu.Unlock()

	return func() {
		s.obsMu.Lock()
		defer s.obsMu.Unlock()
		for i, e := range s.observers {
			if e == entry {
				s.observers = append(s.observers[:i], s.observers[i+1:]...)
				return
			}
		}
	}
}

// saveLocked persists after a mutation. A failed write keeps the in-memory
// change; the error is only logged.
func (s *Store) saveLocked(ctx context.Context, op string) {
	if err := s.persister.Save(ctx, s.snapshotLocked()); err != nil {
		s.logger.ErrorContext(ctx, "Failed to persist ledger",
			log.FieldOperation, op,
			log.FieldErrorType, log.ErrorTypeStorage,
			log.FieldError, err)
	}
}

func (s *Store) snapshotLocked() []core.ExpenseRecord {
	return s.copyOf(s.records)
}

func (s *Store) copyOf(records []core.ExpenseRecord) []core.ExpenseRecord {
	out := make([]core.ExpenseRecord, len(records))
	copy(out, records)
	return out
}

// enqueueLocked records c while s.mu is held, which fixes its delivery
// position. Delivery may outlive the caller's request, so cancellation is
// detached from ctx.
func (s *Store) enqueueLocked(ctx context.Context, c Change) {
	s.pendMu.Lock()
	s.pending = append(s.pending, pendingChange{ctx: context.WithoutCancel(ctx), change: c})
	s.pendMu.Unlock()
}

// deliver drains pending changes unless another goroutine already is.
func (s *Store) deliver() {
	s.pendMu.Lock()
	if s.delivering {
		s.pendMu.Unlock()
		return
	}
	s.delivering = true

	drained := false
	defer func() {
		// An observer panicked; let the next mutation resume delivery.
		if !drained {
			s.pendMu.Lock()
			s.delivering = false
			s.pendMu.Unlock()
		}
	}()

	for len(s.pending) > 0 {
		p := s.pending[0]
		s.pending[0] = pendingChange{}
		s.pending = s.pending[1:]
		s.pendMu.Unlock()
		s.notify(p.ctx, p.change)
		s.pendMu.Lock()
	}
	s.delivering = false
	drained = true
	s.pendMu.Unlock()
}

func (s *Store) notify(ctx context.Context, c Change) {
	s.obsMu.Lock()
	observers := make([]*observerEntry, len(s.observers))
	copy(observers, s.observers)
	s.obsMu.Unlock()

	for _, o := range observers {
		o.fn(ctx, c)
	}
}
