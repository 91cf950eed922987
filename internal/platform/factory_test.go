package platform_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/tally/internal/platform"
	"github.com/aretw0/tally/pkg/adapters/fs"
	"github.com/aretw0/tally/pkg/adapters/memory"
	"github.com/aretw0/tally/pkg/adapters/sqlite"
	"github.com/aretw0/tally/pkg/core"
	"github.com/aretw0/tally/pkg/expense"
	"github.com/aretw0/tally/pkg/task"
)

var fixed = time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

func clock() time.Time { return fixed }

func TestOpenTable_File(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "taskDB.json")

	table, err := platform.OpenTable[task.Task](ctx, path, "tasks", platform.WithClock(clock))
	require.NoError(t, err)

	id, err := table.Add(ctx, task.Task{Description: "write tests"})
	require.NoError(t, err)
	assert.Equal(t, core.RecordID(1), id)
	require.NoError(t, table.Close())

	reopened, err := platform.OpenTable[task.Task](ctx, path, "tasks")
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Get(id)
	require.NoError(t, err)
	assert.Equal(t, "write tests", got.Description)
	assert.True(t, fixed.Equal(got.CreatedAt))
}

func TestOpenTable_YAMLByExtension(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "expenses.yaml")

	table, err := platform.OpenTable[expense.Expense](ctx, path, "expenses", platform.WithClock(clock))
	require.NoError(t, err)
	_, err = table.Add(ctx, expense.Expense{Description: "Lunch", Amount: 20})
	require.NoError(t, err)
	require.NoError(t, table.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "id_counter:")
	assert.Contains(t, string(data), "description: Lunch")
}

func TestOpenTable_ReadOnlyDoesNotCreate(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "taskDB.json")

	table, err := platform.OpenTable[task.Task](ctx, path, "tasks", platform.WithReadOnly(true))
	require.NoError(t, err)
	defer table.Close()

	assert.Equal(t, 0, table.Count(nil))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	_, err = table.Add(ctx, task.Task{Description: "nope"})
	assert.ErrorIs(t, err, core.ErrReadOnly)
}

func TestOpenTable_LockingSerializesOpeners(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "taskDB.json")

	first, err := platform.OpenTable[task.Task](ctx, path, "tasks", platform.WithLocking(true))
	require.NoError(t, err)

	_, err = platform.OpenTable[task.Task](ctx, path, "tasks",
		platform.WithLocking(true),
		platform.WithLockTimeout(0),
	)
	assert.ErrorIs(t, err, core.ErrLocked)

	require.NoError(t, first.Close())

	second, err := platform.OpenTable[task.Task](ctx, path, "tasks", platform.WithLocking(true))
	require.NoError(t, err)
	assert.NoError(t, second.Close())
}

func TestOpenTable_SQLite(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "tally.db")

	db, err := sqlite.Open(dbPath)
	require.NoError(t, err)
	defer db.Close()

	tasks, err := platform.OpenTable[task.Task](ctx, dbPath, "tasks",
		platform.WithBackend(platform.BackendSQLite),
		platform.WithDB(db),
		platform.WithClock(clock),
	)
	require.NoError(t, err)
	expenses, err := platform.OpenTable[expense.Expense](ctx, dbPath, "expenses",
		platform.WithBackend(platform.BackendSQLite),
		platform.WithDB(db),
		platform.WithClock(clock),
	)
	require.NoError(t, err)

	_, err = tasks.Add(ctx, task.Task{Description: "shared db"})
	require.NoError(t, err)
	_, err = expenses.Add(ctx, expense.Expense{Description: "Coffee", Amount: 3})
	require.NoError(t, err)

	// Tables that do not own the database leave it open.
	require.NoError(t, tasks.Close())
	require.NoError(t, expenses.Close())
	require.NoError(t, db.PingContext(ctx))

	again, err := platform.OpenTable[task.Task](ctx, dbPath, "tasks",
		platform.WithBackend(platform.BackendSQLite),
		platform.WithDB(db),
	)
	require.NoError(t, err)
	defer again.Close()
	assert.Equal(t, 1, again.Count(nil))
}

func TestOpenTable_SQLiteLockingRejectsStaleWriter(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "tally.db")
	opts := []platform.Option{
		platform.WithBackend(platform.BackendSQLite),
		platform.WithLocking(true),
		platform.WithClock(clock),
	}

	a, err := platform.OpenTable[task.Task](ctx, dbPath, "tasks", opts...)
	require.NoError(t, err)
	defer a.Close()
	b, err := platform.OpenTable[task.Task](ctx, dbPath, "tasks", opts...)
	require.NoError(t, err)
	defer b.Close()

	_, err = a.Add(ctx, task.Task{Description: "from A"})
	require.NoError(t, err)
	_, err = b.Add(ctx, task.Task{Description: "from B"})
	assert.ErrorIs(t, err, core.ErrConflict)
	assert.Equal(t, 0, b.Count(nil), "the rejected add is rolled back")

	again, err := platform.OpenTable[task.Task](ctx, dbPath, "tasks",
		platform.WithBackend(platform.BackendSQLite),
		platform.WithReadOnly(true),
	)
	require.NoError(t, err)
	defer again.Close()
	got, err := again.Get(1)
	require.NoError(t, err)
	assert.Equal(t, "from A", got.Description)
}

func TestOpenTable_InjectedStorage(t *testing.T) {
	ctx := context.Background()
	store := memory.New[task.Task](fs.NewJSONCodec[task.Task]())

	table, err := platform.OpenTable[task.Task](ctx, "", "tasks", platform.WithStorage(store))
	require.NoError(t, err)
	_, err = table.Add(ctx, task.Task{Description: "in memory"})
	require.NoError(t, err)
	assert.Equal(t, 1, store.Persists())

	_, err = platform.OpenTable[expense.Expense](ctx, "", "expenses", platform.WithStorage(store))
	assert.Error(t, err)
}

func TestOpenTable_UnknownBackend(t *testing.T) {
	_, err := platform.OpenTable[task.Task](context.Background(), "x", "tasks", platform.WithBackend("s3"))
	assert.ErrorContains(t, err, "unknown backend")
}
