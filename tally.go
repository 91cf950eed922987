package tally

import (
	"context"
	"log/slog"
	"time"

	"github.com/aretw0/tally/internal/platform"
	"github.com/aretw0/tally/pkg/adapters/sqlite"
	"github.com/aretw0/tally/pkg/core"
	"github.com/aretw0/tally/pkg/expense"
	"github.com/aretw0/tally/pkg/task"
)

// Default store file names, relative to the working directory.
const (
	DefaultExpenseFile = "expenseDB.json"
	DefaultTaskFile    = "taskDB.json"
)

// Store names used as table names and SQLite row keys.
const (
	ExpenseStore = "expenses"
	TaskStore    = "tasks"
)

// Backend names accepted by WithBackend.
const (
	BackendFile   = platform.BackendFile
	BackendSQLite = platform.BackendSQLite
	BackendMemory = platform.BackendMemory
)

// --- Configuration ---

// Option defines a functional option for opening a store.
type Option = platform.Option

// WithLogger sets the logger for the table and its storage.
func WithLogger(logger *slog.Logger) Option {
	return platform.WithLogger(logger)
}

// WithBackend selects the storage backend by name.
func WithBackend(name string) Option {
	return platform.WithBackend(name)
}

// WithFormat forces the document format ("json" or "yaml").
func WithFormat(format string) Option {
	return platform.WithFormat(format)
}

// WithClock overrides the time source for record timestamps.
func WithClock(clock func() time.Time) Option {
	return platform.WithClock(clock)
}

// WithReadOnly opens the store for reading only.
func WithReadOnly(enabled bool) Option {
	return platform.WithReadOnly(enabled)
}

// WithLocking holds an advisory lock file while the store is open.
func WithLocking(enabled bool) Option {
	return platform.WithLocking(enabled)
}

// WithLockTimeout bounds how long opening waits for a held lock.
func WithLockTimeout(d time.Duration) Option {
	return platform.WithLockTimeout(d)
}

// WithConflictCheck rejects a persist when the file changed since it was loaded.
func WithConflictCheck(enabled bool) Option {
	return platform.WithConflictCheck(enabled)
}

// WithRecoverCorrupt quarantines an undecodable store and starts empty.
func WithRecoverCorrupt(enabled bool) Option {
	return platform.WithRecoverCorrupt(enabled)
}

// WithForceTemp re-roots store paths into a temporary directory.
func WithForceTemp(force bool) Option {
	return platform.WithForceTemp(force)
}

// WithDB shares an open SQLite database between stores.
func WithDB(db *sqlite.DB) Option {
	return platform.WithDB(db)
}

// WithStorage injects a ready core.Storage for the record type being opened.
func WithStorage(storage any) Option {
	return platform.WithStorage(storage)
}

// --- Factory ---

// OpenTable opens any record type. See platform.OpenTable for location.
func OpenTable[R core.Record](ctx context.Context, location, name string, opts ...Option) (*core.Table[R], error) {
	return platform.OpenTable[R](ctx, location, name, opts...)
}

// OpenExpenses opens the expense store at location.
func OpenExpenses(ctx context.Context, location string, opts ...Option) (*expense.Service, error) {
	table, err := platform.OpenTable[expense.Expense](ctx, location, ExpenseStore, opts...)
	if err != nil {
		return nil, err
	}
	return expense.NewService(table), nil
}

// OpenTasks opens the task store at location.
func OpenTasks(ctx context.Context, location string, opts ...Option) (*task.Service, error) {
	table, err := platform.OpenTable[task.Task](ctx, location, TaskStore, opts...)
	if err != nil {
		return nil, err
	}
	return task.NewService(table), nil
}

// OpenDB opens (creating if needed) a SQLite database to share with WithDB.
func OpenDB(path string) (*sqlite.DB, error) {
	return sqlite.Open(path)
}

// --- Safety & Utils ---

// ResolveStorePath applies the dev safety rule to a store path.
func ResolveStorePath(userPath string, forceTemp bool) string {
	return platform.ResolveStorePath(userPath, forceTemp)
}

// IsDevRun checks if the current process is running via `go run` or `go test`.
func IsDevRun() bool {
	return platform.IsDevRun()
}

// FindStore looks upwards from startDir for a store file called name.
func FindStore(startDir, name string) (string, error) {
	return platform.FindStore(startDir, name)
}
