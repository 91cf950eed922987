// Package core holds the record store domain: documents, identifier
// allocation, the record table and its query layer.
package core

import (
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/tiendc/go-deepcopy"
)

// RecordID identifies a live record. A deleted id may be issued again.
type RecordID int

// CounterState tracks identifier issuance for a Document.
type CounterState struct {
	// NextID is the smallest identifier never issued.
	NextID RecordID
	// FreeIDs holds released identifiers, ascending, without duplicates.
	FreeIDs []RecordID
}

// Record is the constraint satisfied by every value stored in a Table.
type Record interface {
	// Validate reports a domain constraint violation, if any.
	Validate() error
}

// Stamped is implemented by record pointers that carry their own timestamps.
// The Table calls Created once before insertion and Touched on every
// successful update.
type Stamped interface {
	Created(now time.Time)
	Touched(now time.Time)
}

// Document is the whole persisted state of one store.
type Document[R any] struct {
	Counter CounterState
	Records map[RecordID]R
}

// NewDocument returns the bootstrap document: next id 1, nothing free, no records.
func NewDocument[R any]() *Document[R] {
	return &Document[R]{
		Counter: CounterState{NextID: 1, FreeIDs: []RecordID{}},
		Records: make(map[RecordID]R),
	}
}

// IDs returns the live record ids in ascending numeric order.
func (d *Document[R]) IDs() []RecordID {
	return slices.Sorted(maps.Keys(d.Records))
}

// Clone returns a deep copy of the document. Records are copied through a
// pointer so unexported fields (time.Time) are reachable.
func (d *Document[R]) Clone() (*Document[R], error) {
	out := &Document[R]{
		Counter: CounterState{
			NextID:  d.Counter.NextID,
			FreeIDs: append([]RecordID{}, d.Counter.FreeIDs...),
		},
		Records: make(map[RecordID]R, len(d.Records)),
	}
	for id, rec := range d.Records {
		var cp R
		if err := deepcopy.Copy(&cp, &rec); err != nil {
			return nil, fmt.Errorf("clone record %d: %w", id, err)
		}
		out.Records[id] = cp
	}
	return out, nil
}

// Check verifies the document invariants. Codecs call it after decoding.
func (d *Document[R]) Check() error {
	if d.Counter.NextID < 1 {
		return fmt.Errorf("counter %d is below 1", d.Counter.NextID)
	}
	if d.Records == nil {
		return fmt.Errorf("items are missing")
	}

	free := make(map[RecordID]struct{}, len(d.Counter.FreeIDs))
	for i, id := range d.Counter.FreeIDs {
		if id < 1 || id >= d.Counter.NextID {
			return fmt.Errorf("available id %d is outside [1, %d)", id, d.Counter.NextID)
		}
		if i > 0 && d.Counter.FreeIDs[i-1] >= id {
			return fmt.Errorf("available ids are not strictly ascending at %d", id)
		}
		free[id] = struct{}{}
	}

	for id := range d.Records {
		if id < 1 || id >= d.Counter.NextID {
			return fmt.Errorf("item %d is outside [1, %d)", id, d.Counter.NextID)
		}
		if _, ok := free[id]; ok {
			return fmt.Errorf("item %d is also listed as available", id)
		}
	}
	return nil
}
