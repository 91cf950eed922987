package fs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/aretw0/tally/pkg/core"
)

// Config holds the configuration for a file-backed store.
type Config struct {
	Path   string
	Format string // "json" or "yaml"; empty picks by the extension of Path
	Perm   os.FileMode
	Logger *slog.Logger

	// ReadOnly loads without bootstrapping or locking; Persist fails.
	ReadOnly bool
	// Locking holds an advisory lock file from Load until Close.
	Locking     bool
	LockTimeout time.Duration
	// StaleLockAge bounds how long a lock is honoured when its holder cannot
	// be proven dead. Zero means DefaultStaleLockAge.
	StaleLockAge time.Duration
	// ConflictCheck makes Persist fail with core.ErrConflict when the file
	// changed on disk since it was loaded or last persisted.
	ConflictCheck bool
	// RecoverCorrupt quarantines an undecodable file and starts afresh
	// instead of failing.
	RecoverCorrupt bool
}

// Storage implements core.Storage on a single file that is rewritten in full
// on every persist.
type Storage[R any] struct {
	mu          sync.Mutex
	config      Config
	codec       core.Codec[R]
	lock        *fileLock
	fingerprint uint64
	persists    int
	lastPersist *time.Time
	recovered   string
}

// NewStorage creates a file storage. The file is not touched until Load.
func NewStorage[R any](config Config) (*Storage[R], error) {
	if config.Path == "" {
		return nil, fmt.Errorf("store path is empty")
	}
	if config.Perm == 0 {
		config.Perm = 0o644
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.DiscardHandler)
	}

	var (
		codec core.Codec[R]
		err   error
	)
	if config.Format != "" {
		codec, err = CodecByName[R](config.Format)
	} else {
		codec, err = CodecFor[R](config.Path)
	}
	if err != nil {
		return nil, err
	}

	return &Storage[R]{config: config, codec: codec}, nil
}

// Path returns the backing file path.
func (s *Storage[R]) Path() string {
	return s.config.Path
}

// Load reads and decodes the store file, creating it with an empty document
// first when it does not exist.
//
// Workflow:
//  1. Acquire the advisory lock (if enabled and writable).
//  2. Bootstrap a missing file (skipped in read-only mode).
//  3. Decode; quarantine and restart on corruption if configured.
//  4. Remember the fingerprint of the bytes for conflict checks.
func (s *Storage[R]) Load(ctx context.Context) (*core.Document[R], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, core.NewError(core.ErrIO, "load", err)
	}

	if s.config.Locking && !s.config.ReadOnly && s.lock == nil {
		lock, err := acquireLock(ctx, s.config.Path+LockSuffix, lockOptions{
			timeout:  s.config.LockTimeout,
			staleAge: s.config.StaleLockAge,
			logger:   s.config.Logger,
		})
		if err != nil {
			return nil, err
		}
		s.lock = lock
	}

	data, err := os.ReadFile(s.config.Path)
	if errors.Is(err, os.ErrNotExist) {
		if s.config.ReadOnly {
			s.config.Logger.Debug("store missing, read-only load returns empty document", "path", s.config.Path)
			return core.NewDocument[R](), nil
		}
		data, err = s.bootstrap()
	}
	if err != nil {
		return nil, core.NewError(core.ErrIO, "load", err)
	}

	doc, err := s.codec.Decode(data)
	if err != nil {
		if !s.config.RecoverCorrupt || s.config.ReadOnly {
			return nil, withPath(err, s.config.Path)
		}
		data, err = s.quarantine(err)
		if err != nil {
			return nil, core.NewError(core.ErrIO, "load", err)
		}
		if doc, err = s.codec.Decode(data); err != nil {
			return nil, withPath(err, s.config.Path)
		}
	}

	s.fingerprint = xxhash.Sum64(data)
	return doc, nil
}

// Persist encodes doc and atomically replaces the store file with it.
func (s *Storage[R]) Persist(ctx context.Context, doc *core.Document[R]) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.config.ReadOnly {
		return &core.Error{Kind: core.ErrReadOnly, Op: "persist", Detail: s.config.Path}
	}
	if err := ctx.Err(); err != nil {
		return core.NewError(core.ErrIO, "persist", err)
	}

	data, err := s.codec.Encode(doc)
	if err != nil {
		return core.NewError(core.ErrIO, "persist", fmt.Errorf("failed to encode document: %w", err))
	}

	if s.config.ConflictCheck {
		current, err := os.ReadFile(s.config.Path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			return &core.Error{Kind: core.ErrConflict, Op: "persist", Detail: s.config.Path + " was removed"}
		case err != nil:
			return core.NewError(core.ErrIO, "persist", err)
		case xxhash.Sum64(current) != s.fingerprint:
			return &core.Error{Kind: core.ErrConflict, Op: "persist", Detail: s.config.Path}
		}
	}

	if err := writeFileAtomic(s.config.Path, data, s.config.Perm); err != nil {
		return core.NewError(core.ErrIO, "persist", err)
	}

	now := time.Now()
	s.fingerprint = xxhash.Sum64(data)
	s.persists++
	s.lastPersist = &now
	s.config.Logger.Debug("store persisted", "path", s.config.Path, "bytes", len(data), "records", len(doc.Records))
	return nil
}

// Close releases the advisory lock, if held.
func (s *Storage[R]) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lock == nil {
		return nil
	}
	err := s.lock.release()
	s.lock = nil
	if err != nil {
		return core.NewError(core.ErrIO, "unlock", err)
	}
	s.config.Logger.Debug("store lock released", "path", s.config.Path)
	return nil
}

func (s *Storage[R]) bootstrap() ([]byte, error) {
	data, err := s.codec.Encode(core.NewDocument[R]())
	if err != nil {
		return nil, fmt.Errorf("failed to encode empty document: %w", err)
	}
	if err := writeFileAtomic(s.config.Path, data, s.config.Perm); err != nil {
		return nil, err
	}
	s.config.Logger.Debug("store bootstrapped", "path", s.config.Path)

	// Read back so bootstrap and load share one decoding path.
	return os.ReadFile(s.config.Path)
}

// quarantine moves the corrupt file aside and bootstraps a fresh one.
func (s *Storage[R]) quarantine(cause error) ([]byte, error) {
	dest := fmt.Sprintf("%s.corrupt-%d", s.config.Path, time.Now().UnixNano())
	if err := os.Rename(s.config.Path, dest); err != nil {
		return nil, fmt.Errorf("failed to quarantine corrupt store: %w", err)
	}
	s.recovered = dest
	s.config.Logger.Warn("corrupt store quarantined, starting empty",
		"path", s.config.Path, "quarantine", dest, "error", cause)
	return s.bootstrap()
}

func withPath(err error, path string) error {
	var se *core.Error
	if errors.As(err, &se) && se.Detail != "" {
		se.Detail = filepath.Base(path) + " (" + se.Detail + ")"
	}
	return err
}
