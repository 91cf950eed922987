package core

import (
	"github.com/aretw0/introspection"
)

// TableState exposes internal state for observability.
type TableState struct {
	Name        string     `json:"name"`
	Lifecycle   string     `json:"lifecycle"`
	Records     int        `json:"records"`
	NextID      RecordID   `json:"next_id"`
	FreeIDs     []RecordID `json:"available_ids"`
	StorageType string     `json:"storage_type"`
	Storage     any        `json:"storage,omitempty"`
}

// State implements introspection.Introspectable.
func (t *Table[R]) State() any {
	t.mu.RLock()
	defer t.mu.RUnlock()

	storageType := "storage"
	if comp, ok := t.storage.(introspection.Component); ok {
		storageType = comp.ComponentType()
	}
	var storageState any
	if intro, ok := t.storage.(introspection.Introspectable); ok {
		storageState = intro.State()
	}

	return TableState{
		Name:        t.name,
		Lifecycle:   t.state.Current(),
		Records:     len(t.doc.Records),
		NextID:      t.doc.Counter.NextID,
		FreeIDs:     append([]RecordID(nil), t.doc.Counter.FreeIDs...),
		StorageType: storageType,
		Storage:     storageState,
	}
}

// ComponentType implements introspection.Component.
func (t *Table[R]) ComponentType() string {
	return "table"
}
