package platform

import (
	"context"
	"fmt"

	"github.com/aretw0/tally/pkg/adapters/fs"
	"github.com/aretw0/tally/pkg/adapters/memory"
	"github.com/aretw0/tally/pkg/adapters/sqlite"
	"github.com/aretw0/tally/pkg/core"
)

// OpenTable opens the store called name and loads it into a table.
// The location argument is backend-specific: the store file for "file",
// the database file for "sqlite", ignored for "memory".
//
//	table, err := platform.OpenTable[task.Task](ctx, "taskDB.json", "tasks", platform.WithLocking(true))
func OpenTable[R core.Record](ctx context.Context, location, name string, opts ...Option) (*core.Table[R], error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	storage, err := newStorage[R](location, name, o)
	if err != nil {
		return nil, err
	}

	o.logger.Debug("opening store", "name", name, "backend", o.backend, "location", location, "read_only", o.readOnly)

	return core.Open(ctx, storage,
		core.WithTableLogger(o.logger),
		core.WithClock(o.clock),
		core.WithName(name),
	)
}

func newStorage[R core.Record](location, name string, o *options) (core.Storage[R], error) {
	if o.storage != nil {
		s, ok := o.storage.(core.Storage[R])
		if !ok {
			return nil, fmt.Errorf("injected storage %T does not store this record type", o.storage)
		}
		return s, nil
	}

	switch o.backend {
	case BackendFile:
		storage, err := fs.NewStorage[R](fs.Config{
			Path:           ResolveStorePath(location, o.forceTemp),
			Format:         o.format,
			Logger:         o.logger,
			ReadOnly:       o.readOnly,
			Locking:        o.locking,
			LockTimeout:    o.lockTimeout,
			ConflictCheck:  o.conflictCheck,
			RecoverCorrupt: o.recoverCorrupt,
		})
		if err != nil {
			return nil, err
		}
		return storage, nil

	case BackendSQLite:
		codec, err := fs.CodecByName[R](o.format)
		if err != nil {
			return nil, err
		}
		db, owns := o.db, false
		if db == nil {
			if db, err = sqlite.Open(ResolveStorePath(location, o.forceTemp)); err != nil {
				return nil, core.NewError(core.ErrIO, "open", err)
			}
			owns = true
		}
		// SQLite serializes each write itself; what locking adds on top is
		// refusing to overwrite a row another writer changed after our load.
		return sqlite.NewStorage[R](db, name, codec,
			sqlite.WithReadOnly(o.readOnly),
			sqlite.WithOwnership(owns),
			sqlite.WithConflictCheck(o.conflictCheck || o.locking),
			sqlite.WithLogger(o.logger),
		), nil

	case BackendMemory:
		codec, err := fs.CodecByName[R](o.format)
		if err != nil {
			return nil, err
		}
		return memory.New[R](codec), nil

	default:
		return nil, fmt.Errorf("unknown backend %q", o.backend)
	}
}
