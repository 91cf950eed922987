package core

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/looplab/fsm"
)

// Table lifecycle states.
const (
	StateLoaded   = "loaded"
	StateMutating = "mutating"
	StateClosed   = "closed"
)

// TableOption configures a Table.
type TableOption func(*tableOptions)

type tableOptions struct {
	logger *slog.Logger
	clock  func() time.Time
	name   string
}

// WithTableLogger sets the logger used for load/persist/allocation events.
func WithTableLogger(logger *slog.Logger) TableOption {
	return func(o *tableOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithClock overrides the time source used for record timestamps.
func WithClock(clock func() time.Time) TableOption {
	return func(o *tableOptions) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithName labels the table in logs and introspection output.
func WithName(name string) TableOption {
	return func(o *tableOptions) {
		o.name = name
	}
}

// Table is the map of identifier to record, backed by a Storage. Every
// successful mutation rewrites the whole document through the Storage.
type Table[R Record] struct {
	mu      sync.RWMutex
	storage Storage[R]
	doc     *Document[R]
	state   *fsm.FSM
	logger  *slog.Logger
	now     func() time.Time
	name    string
}

// Open loads the document from storage and returns a table in the loaded state.
func Open[R Record](ctx context.Context, storage Storage[R], opts ...TableOption) (*Table[R], error) {
	o := &tableOptions{
		logger: slog.New(slog.DiscardHandler),
		clock:  time.Now,
		name:   "records",
	}
	for _, opt := range opts {
		opt(o)
	}

	doc, err := storage.Load(ctx)
	if err != nil {
		if c, ok := storage.(Closer); ok {
			_ = c.Close()
		}
		return nil, asStoreError("load", ErrIO, err)
	}

	o.logger.Debug("store loaded", "table", o.name, "records", len(doc.Records), "next_id", doc.Counter.NextID)

	return &Table[R]{
		storage: storage,
		doc:     doc,
		state:   newLifecycle(),
		logger:  o.logger,
		now:     o.clock,
		name:    o.name,
	}, nil
}

func newLifecycle() *fsm.FSM {
	return fsm.NewFSM(
		StateLoaded,
		fsm.Events{
			{Name: "begin", Src: []string{StateLoaded}, Dst: StateMutating},
			{Name: "commit", Src: []string{StateMutating}, Dst: StateLoaded},
			{Name: "abort", Src: []string{StateMutating}, Dst: StateLoaded},
			{Name: "close", Src: []string{StateLoaded}, Dst: StateClosed},
		},
		fsm.Callbacks{},
	)
}

// Add validates rec, assigns it an identifier and persists the document.
// An invalid record leaves the document untouched.
func (t *Table[R]) Add(ctx context.Context, rec R) (RecordID, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.checkOpen("add"); err != nil {
		return 0, err
	}

	if s, ok := any(&rec).(Stamped); ok {
		s.Created(t.now())
	}
	if err := rec.Validate(); err != nil {
		return 0, asStoreError("add", ErrValidation, err)
	}

	var id RecordID
	err := t.mutate(ctx, "add", func(doc *Document[R]) {
		id = doc.Counter.Allocate()
		doc.Records[id] = rec
	})
	if err != nil {
		return 0, err
	}

	t.logger.Debug("record added", "table", t.name, "id", id)
	return id, nil
}

// Get returns the record stored under id.
func (t *Table[R]) Get(id RecordID) (R, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var zero R
	if err := t.checkOpen("get"); err != nil {
		return zero, err
	}
	rec, ok := t.doc.Records[id]
	if !ok {
		return zero, &Error{Kind: ErrNotFound, Op: "get", ID: id}
	}
	return rec, nil
}

// Update applies fn to a copy of the record stored under id. The copy is
// validated before it replaces the stored record, so a rejected update
// leaves both the fields and the timestamp as they were.
func (t *Table[R]) Update(ctx context.Context, id RecordID, fn func(*R) error) (R, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var zero R
	if err := t.checkOpen("update"); err != nil {
		return zero, err
	}

	current, ok := t.doc.Records[id]
	if !ok {
		return zero, &Error{Kind: ErrNotFound, Op: "update", ID: id}
	}

	next := current
	if err := fn(&next); err != nil {
		return zero, withID(asStoreError("update", ErrValidation, err), id)
	}
	if s, ok := any(&next).(Stamped); ok {
		s.Touched(t.now())
	}
	if err := next.Validate(); err != nil {
		return zero, withID(asStoreError("update", ErrValidation, err), id)
	}

	err := t.mutate(ctx, "update", func(doc *Document[R]) {
		doc.Records[id] = next
	})
	if err != nil {
		return zero, err
	}

	t.logger.Debug("record updated", "table", t.name, "id", id)
	return next, nil
}

// Delete removes the record stored under id and returns id to the free pool,
// making it the candidate for the next Add.
func (t *Table[R]) Delete(ctx context.Context, id RecordID) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.checkOpen("delete"); err != nil {
		return err
	}
	if _, ok := t.doc.Records[id]; !ok {
		return &Error{Kind: ErrNotFound, Op: "delete", ID: id}
	}

	err := t.mutate(ctx, "delete", func(doc *Document[R]) {
		delete(doc.Records, id)
		if !doc.Counter.Release(id) {
			t.logger.Warn("identifier released twice", "table", t.name, "id", id)
		}
	})
	if err != nil {
		return err
	}

	t.logger.Debug("record deleted", "table", t.name, "id", id)
	return nil
}

// Snapshot returns a deep copy of the current document.
func (t *Table[R]) Snapshot() (*Document[R], error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.doc.Clone()
}

// Lifecycle returns the current lifecycle state of the table.
func (t *Table[R]) Lifecycle() string {
	return t.state.Current()
}

// Close releases the storage. Further operations fail with ErrClosed.
func (t *Table[R]) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state.Is(StateClosed) {
		return nil
	}
	if err := t.state.Event(context.Background(), "close"); err != nil {
		return err
	}
	if c, ok := t.storage.(Closer); ok {
		return c.Close()
	}
	return nil
}

// mutate applies fn to the document and persists it. If persisting fails the
// document is restored to its state before fn ran. Callers hold t.mu.
func (t *Table[R]) mutate(ctx context.Context, op string, fn func(doc *Document[R])) error {
	snapshot, err := t.doc.Clone()
	if err != nil {
		return NewError(ErrIO, op, err)
	}
	if err := t.state.Event(context.Background(), "begin"); err != nil {
		return NewError(ErrClosed, op, err)
	}

	fn(t.doc)

	if err := t.storage.Persist(ctx, t.doc); err != nil {
		t.doc = snapshot
		_ = t.state.Event(context.Background(), "abort")
		t.logger.Debug("persist failed, mutation discarded", "table", t.name, "op", op, "error", err)
		return asStoreError(op, ErrIO, err)
	}

	if err := t.state.Event(context.Background(), "commit"); err != nil {
		return NewError(ErrIO, op, err)
	}
	return nil
}

func (t *Table[R]) checkOpen(op string) error {
	if t.state.Is(StateClosed) {
		return &Error{Kind: ErrClosed, Op: op}
	}
	return nil
}

// asStoreError keeps errors that already carry a kind and wraps the rest
// with fallback.
func asStoreError(op string, fallback, err error) error {
	var se *Error
	if errors.As(err, &se) {
		if se.Op == "" {
			se.Op = op
		}
		return err
	}
	if KindOf(err) != nil {
		return err
	}
	return NewError(fallback, op, err)
}

func withID(err error, id RecordID) error {
	var se *Error
	if errors.As(err, &se) && se.ID == 0 {
		se.ID = id
	}
	return err
}
