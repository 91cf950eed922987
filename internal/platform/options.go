package platform

import (
	"log/slog"
	"time"

	"github.com/aretw0/tally/pkg/adapters/sqlite"
)

// Backend names.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// options holds the internal configuration for opening a store.
type options struct {
	logger         *slog.Logger
	backend        string
	format         string
	clock          func() time.Time
	readOnly       bool
	locking        bool
	lockTimeout    time.Duration
	conflictCheck  bool
	recoverCorrupt bool
	forceTemp      bool
	db             *sqlite.DB
	storage        any
}

// Option defines a functional option for opening a store.
type Option func(*options)

// defaultOptions returns the default configuration.
func defaultOptions() *options {
	return &options{
		logger:      slog.New(slog.DiscardHandler),
		backend:     BackendFile,
		clock:       time.Now,
		lockTimeout: 2 * time.Second,
	}
}

// WithLogger sets the logger for the table and its storage.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithBackend selects the storage backend by name ("file", "sqlite", "memory").
// Defaults to "file".
func WithBackend(name string) Option {
	return func(o *options) {
		if name != "" {
			o.backend = name
		}
	}
}

// WithFormat forces the document format ("json" or "yaml"). By default the
// file extension decides, and SQLite rows use JSON.
func WithFormat(format string) Option {
	return func(o *options) {
		o.format = format
	}
}

// WithClock overrides the time source used for record timestamps.
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithReadOnly opens the store without bootstrapping or locking it.
// Every mutation fails with core.ErrReadOnly.
func WithReadOnly(enabled bool) Option {
	return func(o *options) {
		o.readOnly = enabled
	}
}

// WithLocking holds an advisory lock file for the lifetime of the table,
// so concurrent invocations serialize instead of overwriting each other.
// On SQLite it enables the conflict check instead.
func WithLocking(enabled bool) Option {
	return func(o *options) {
		o.locking = enabled
	}
}

// WithLockTimeout bounds how long opening waits for a held lock.
// Zero means a single attempt.
func WithLockTimeout(d time.Duration) Option {
	return func(o *options) {
		o.lockTimeout = d
	}
}

// WithConflictCheck makes a persist fail with core.ErrConflict when the file
// (or SQLite row) changed after it was loaded.
func WithConflictCheck(enabled bool) Option {
	return func(o *options) {
		o.conflictCheck = enabled
	}
}

// WithRecoverCorrupt quarantines an undecodable store file and starts with
// an empty document instead of failing.
func WithRecoverCorrupt(enabled bool) Option {
	return func(o *options) {
		o.recoverCorrupt = enabled
	}
}

// WithForceTemp re-roots relative store paths into a temporary directory
// (useful for testing and `go run`).
func WithForceTemp(force bool) Option {
	return func(o *options) {
		o.forceTemp = force
	}
}

// WithDB shares an open SQLite database between stores. The caller keeps
// ownership and closes it.
func WithDB(db *sqlite.DB) Option {
	return func(o *options) {
		o.db = db
	}
}

// WithStorage injects a ready core.Storage[R] (e.g. memory). It must match
// the record type of the table being opened; this is checked at open time.
func WithStorage(storage any) Option {
	return func(o *options) {
		o.storage = storage
	}
}
