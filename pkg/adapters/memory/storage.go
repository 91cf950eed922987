// Package memory provides an in-process core.Storage. Documents still pass
// through a codec on every load and persist, so it behaves like a file that
// nobody else can touch.
package memory

import (
	"context"
	"sync"

	"github.com/aretw0/tally/pkg/core"
)

// Storage keeps the encoded document in memory.
type Storage[R any] struct {
	mu       sync.Mutex
	codec    core.Codec[R]
	data     []byte
	persists int
	// FailPersist, when set, is returned by the next Persist calls.
	FailPersist error
}

// New creates an empty storage; the first Load bootstraps it.
func New[R any](codec core.Codec[R]) *Storage[R] {
	return &Storage[R]{codec: codec}
}

// NewWithBytes creates a storage whose backing bytes are data.
func NewWithBytes[R any](codec core.Codec[R], data []byte) *Storage[R] {
	return &Storage[R]{codec: codec, data: append([]byte(nil), data...)}
}

func (s *Storage[R]) Load(ctx context.Context) (*core.Document[R], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.data == nil {
		data, err := s.codec.Encode(core.NewDocument[R]())
		if err != nil {
			return nil, core.NewError(core.ErrIO, "load", err)
		}
		s.data = data
	}
	return s.codec.Decode(s.data)
}

func (s *Storage[R]) Persist(ctx context.Context, doc *core.Document[R]) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailPersist != nil {
		return core.NewError(core.ErrIO, "persist", s.FailPersist)
	}
	data, err := s.codec.Encode(doc)
	if err != nil {
		return core.NewError(core.ErrIO, "persist", err)
	}
	s.data = data
	s.persists++
	return nil
}

// Bytes returns a copy of the stored bytes.
func (s *Storage[R]) Bytes() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.data...)
}

// Persists reports how many successful persists happened.
func (s *Storage[R]) Persists() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persists
}

// State implements introspection.Introspectable.
func (s *Storage[R]) State() any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return map[string]any{"format": s.codec.Name(), "bytes": len(s.data), "persists": s.persists}
}

// ComponentType implements introspection.Component.
func (s *Storage[R]) ComponentType() string {
	return "memory-storage"
}
