// Package sqlite stores whole documents in a SQLite database, one row per
// store name. Persisting replaces the row inside a transaction, which gives
// the same all-or-nothing replace as the file storage's rename. Every write
// bumps the row's version, which the conflict check compares against.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/aretw0/tally/pkg/core"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
    name       TEXT PRIMARY KEY,
    format     TEXT NOT NULL,
    body       BLOB NOT NULL,
    version    INTEGER NOT NULL DEFAULT 1,
    updated_at TIMESTAMP NOT NULL
);`

// DB wraps a SQLite database connection shared by several stores.
type DB struct {
	*sql.DB
}

// Open opens (and creates if needed) the database at dataSourceName.
func Open(dataSourceName string) (*DB, error) {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &DB{db}, nil
}

// Storage implements core.Storage on one row of the documents table.
type Storage[R any] struct {
	mu       sync.Mutex
	db       *DB
	name     string
	codec    core.Codec[R]
	readOnly bool
	ownsDB   bool
	conflict bool
	logger   *slog.Logger
	persists int
	version  int64
}

// Option configures a Storage.
type Option func(*options)

type options struct {
	readOnly bool
	ownsDB   bool
	conflict bool
	logger   *slog.Logger
}

// WithReadOnly makes Persist fail and skips bootstrapping.
func WithReadOnly(readOnly bool) Option {
	return func(o *options) { o.readOnly = readOnly }
}

// WithOwnership makes Close close the database as well.
func WithOwnership(owns bool) Option {
	return func(o *options) { o.ownsDB = owns }
}

// WithConflictCheck makes Persist fail with core.ErrConflict when the row was
// written by someone else since this storage loaded or last persisted it.
func WithConflictCheck(enabled bool) Option {
	return func(o *options) { o.conflict = enabled }
}

// WithLogger sets the storage logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// NewStorage creates a storage for the document called name.
func NewStorage[R any](db *DB, name string, codec core.Codec[R], opts ...Option) *Storage[R] {
	o := &options{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(o)
	}
	return &Storage[R]{
		db:       db,
		name:     name,
		codec:    codec,
		readOnly: o.readOnly,
		ownsDB:   o.ownsDB,
		conflict: o.conflict,
		logger:   o.logger,
	}
}

func (s *Storage[R]) Load(ctx context.Context) (*core.Document[R], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	body, version, err := s.read(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		if s.readOnly {
			return core.NewDocument[R](), nil
		}
		if err := s.bootstrap(ctx); err != nil {
			return nil, core.NewError(core.ErrIO, "load", err)
		}
		body, version, err = s.read(ctx)
	}
	if err != nil {
		return nil, core.NewError(core.ErrIO, "load", err)
	}

	doc, err := s.codec.Decode(body)
	if err != nil {
		return nil, err
	}
	s.version = version
	return doc, nil
}

func (s *Storage[R]) Persist(ctx context.Context, doc *core.Document[R]) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.readOnly {
		return &core.Error{Kind: core.ErrReadOnly, Op: "persist", Detail: s.name}
	}
	version, err := s.write(ctx, doc)
	if err != nil {
		if errors.Is(err, core.ErrConflict) {
			return err
		}
		return core.NewError(core.ErrIO, "persist", err)
	}
	s.version = version
	s.persists++
	s.logger.Debug("store persisted", "name", s.name, "records", len(doc.Records), "version", version)
	return nil
}

// Close closes the database when the storage owns it.
func (s *Storage[R]) Close() error {
	if !s.ownsDB {
		return nil
	}
	return s.db.Close()
}

func (s *Storage[R]) read(ctx context.Context) ([]byte, int64, error) {
	var (
		body    []byte
		version int64
	)
	err := s.db.QueryRowContext(ctx, "SELECT body, version FROM documents WHERE name = ?", s.name).Scan(&body, &version)
	return body, version, err
}

// bootstrap inserts the empty document unless another writer got there first.
func (s *Storage[R]) bootstrap(ctx context.Context) error {
	body, err := s.codec.Encode(core.NewDocument[R]())
	if err != nil {
		return fmt.Errorf("failed to encode empty document: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO documents (name, format, body, version, updated_at) VALUES (?, ?, ?, 1, ?)
ON CONFLICT(name) DO NOTHING`,
		s.name, s.codec.Name(), body, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to bootstrap document %s: %w", s.name, err)
	}
	s.logger.Debug("store bootstrapped", "name", s.name)
	return nil
}

// write replaces the row and returns its new version. With the conflict
// check on, the row is only replaced while it still has the loaded version.
func (s *Storage[R]) write(ctx context.Context, doc *core.Document[R]) (int64, error) {
	body, err := s.codec.Encode(doc)
	if err != nil {
		return 0, fmt.Errorf("failed to encode document: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	if s.conflict {
		res, err := tx.ExecContext(ctx, `
UPDATE documents SET format = ?, body = ?, version = version + 1, updated_at = ?
WHERE name = ? AND version = ?`,
			s.codec.Name(), body, now, s.name, s.version)
		if err != nil {
			return 0, fmt.Errorf("failed to write document %s: %w", s.name, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("failed to write document %s: %w", s.name, err)
		}
		if n == 0 {
			return 0, &core.Error{Kind: core.ErrConflict, Op: "persist", Detail: s.name}
		}
	} else {
		_, err = tx.ExecContext(ctx, `
INSERT INTO documents (name, format, body, version, updated_at) VALUES (?, ?, ?, 1, ?)
ON CONFLICT(name) DO UPDATE SET format = excluded.format, body = excluded.body,
    version = documents.version + 1, updated_at = excluded.updated_at`,
			s.name, s.codec.Name(), body, now)
		if err != nil {
			return 0, fmt.Errorf("failed to write document %s: %w", s.name, err)
		}
	}

	var version int64
	if err := tx.QueryRowContext(ctx, "SELECT version FROM documents WHERE name = ?", s.name).Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to read version of %s: %w", s.name, err)
	}
	return version, tx.Commit()
}

// State implements introspection.Introspectable.
func (s *Storage[R]) State() any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return map[string]any{
		"name":           s.name,
		"format":         s.codec.Name(),
		"read_only":      s.readOnly,
		"conflict_check": s.conflict,
		"version":        s.version,
		"persists":       s.persists,
	}
}

// ComponentType implements introspection.Component.
func (s *Storage[R]) ComponentType() string {
	return "sqlite-storage"
}
