package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/tally/pkg/adapters/fs"
	"github.com/aretw0/tally/pkg/adapters/sqlite"
	"github.com/aretw0/tally/pkg/core"
)

type entry struct {
	Name string `json:"name" yaml:"name"`
}

func (e entry) Validate() error { return core.RequireText("name", e.Name, 0) }

func openDB(t *testing.T) *sqlite.DB {
	t.Helper()
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "tally.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestStorage_BootstrapAndPersist(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	s := sqlite.NewStorage[entry](db, "entries", fs.NewJSONCodec[entry]())

	doc, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, core.NewDocument[entry](), doc)

	var rows int
	require.NoError(t, db.QueryRowContext(ctx, "SELECT COUNT(*) FROM documents WHERE name = ?", "entries").Scan(&rows))
	assert.Equal(t, 1, rows, "load bootstraps the row")

	doc.Records[1] = entry{Name: "one"}
	doc.Counter.NextID = 2
	require.NoError(t, s.Persist(ctx, doc))

	other := sqlite.NewStorage[entry](db, "entries", fs.NewJSONCodec[entry]())
	got, err := other.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, doc, got)
}

func TestStorage_SeparateStoresShareDatabase(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)

	a, err := core.Open[entry](ctx, sqlite.NewStorage[entry](db, "a", fs.NewJSONCodec[entry]()))
	require.NoError(t, err)
	b, err := core.Open[entry](ctx, sqlite.NewStorage[entry](db, "b", fs.NewYAMLCodec[entry]()))
	require.NoError(t, err)

	_, err = a.Add(ctx, entry{Name: "in a"})
	require.NoError(t, err)
	id, err := b.Add(ctx, entry{Name: "in b"})
	require.NoError(t, err)
	assert.Equal(t, core.RecordID(1), id, "counters are per store")

	var format string
	require.NoError(t, db.QueryRowContext(ctx, "SELECT format FROM documents WHERE name = ?", "b").Scan(&format))
	assert.Equal(t, "yaml", format)
}

func TestStorage_ReadOnly(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	s := sqlite.NewStorage[entry](db, "entries", fs.NewJSONCodec[entry](), sqlite.WithReadOnly(true))

	doc, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, doc.Records)

	var rows int
	require.NoError(t, db.QueryRowContext(ctx, "SELECT COUNT(*) FROM documents").Scan(&rows))
	assert.Equal(t, 0, rows)

	assert.ErrorIs(t, s.Persist(ctx, doc), core.ErrReadOnly)
}

func TestStorage_CorruptRow(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	_, err := db.ExecContext(ctx,
		"INSERT INTO documents (name, format, body, updated_at) VALUES (?, 'json', ?, CURRENT_TIMESTAMP)",
		"entries", []byte(`{"items":{}}`))
	require.NoError(t, err)

	s := sqlite.NewStorage[entry](db, "entries", fs.NewJSONCodec[entry]())
	_, err = s.Load(ctx)
	assert.ErrorIs(t, err, core.ErrCorruptStore)
}

func TestStorage_Ownership(t *testing.T) {
	ctx := context.Background()
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "owned.db"))
	require.NoError(t, err)

	shared := sqlite.NewStorage[entry](db, "x", fs.NewJSONCodec[entry]())
	require.NoError(t, shared.Close())
	require.NoError(t, db.PingContext(ctx), "a borrowed database stays open")

	owner := sqlite.NewStorage[entry](db, "x", fs.NewJSONCodec[entry](), sqlite.WithOwnership(true))
	require.NoError(t, owner.Close())
	assert.Error(t, db.PingContext(ctx))

	state := owner.State().(map[string]any)
	assert.Equal(t, "x", state["name"])
	assert.Equal(t, "sqlite-storage", owner.ComponentType())
}

func TestStorage_ConflictCheck(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	codec := fs.NewJSONCodec[entry]()
	a := sqlite.NewStorage[entry](db, "entries", codec, sqlite.WithConflictCheck(true))
	b := sqlite.NewStorage[entry](db, "entries", codec, sqlite.WithConflictCheck(true))

	docA, err := a.Load(ctx)
	require.NoError(t, err)
	docB, err := b.Load(ctx)
	require.NoError(t, err)

	docA.Records[1] = entry{Name: "from a"}
	docA.Counter.NextID = 2
	require.NoError(t, a.Persist(ctx, docA))

	docB.Records[1] = entry{Name: "from b"}
	docB.Counter.NextID = 2
	assert.ErrorIs(t, b.Persist(ctx, docB), core.ErrConflict)

	// Successive persists by the same writer are not conflicts.
	docA.Records[1] = entry{Name: "from a again"}
	require.NoError(t, a.Persist(ctx, docA))

	// Reloading picks up the current version.
	docB, err = b.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, entry{Name: "from a again"}, docB.Records[1])
	docB.Records[1] = entry{Name: "from b"}
	require.NoError(t, b.Persist(ctx, docB))

	assert.Equal(t, int64(4), b.State().(map[string]any)["version"])
}

// Without the conflict check the last persist wins.
func TestStorage_LastPersistWins(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	codec := fs.NewJSONCodec[entry]()
	a := sqlite.NewStorage[entry](db, "entries", codec)
	b := sqlite.NewStorage[entry](db, "entries", codec)

	docA, err := a.Load(ctx)
	require.NoError(t, err)
	docB, err := b.Load(ctx)
	require.NoError(t, err)

	docA.Records[1] = entry{Name: "from a"}
	docA.Counter.NextID = 2
	require.NoError(t, a.Persist(ctx, docA))
	docB.Records[1] = entry{Name: "from b"}
	docB.Counter.NextID = 2
	require.NoError(t, b.Persist(ctx, docB))

	got, err := sqlite.NewStorage[entry](db, "entries", codec).Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, entry{Name: "from b"}, got.Records[1])
}
