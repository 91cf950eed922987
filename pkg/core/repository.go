package core

import "context"

// Storage is the persistence port of a Table. Implementations decode and
// encode the whole Document on every call; there are no partial writes.
type Storage[R any] interface {
	// Load returns the stored document, bootstrapping an empty one first if
	// the backing location does not exist yet.
	Load(ctx context.Context) (*Document[R], error)

	// Persist replaces the stored document with doc in one operation.
	Persist(ctx context.Context, doc *Document[R]) error
}

// Closer is implemented by storages that hold resources (locks, handles)
// between Load and the end of the invocation.
type Closer interface {
	Close() error
}

// Codec converts a Document to and from its stored byte form.
type Codec[R any] interface {
	Encode(doc *Document[R]) ([]byte, error)
	// Decode fails with ErrCorruptStore when data does not have the shape of
	// a Document.
	Decode(data []byte) (*Document[R], error)
	// Name identifies the format ("json", "yaml").
	Name() string
}
