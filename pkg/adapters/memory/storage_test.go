package memory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/tally/pkg/adapters/fs"
	"github.com/aretw0/tally/pkg/adapters/memory"
	"github.com/aretw0/tally/pkg/core"
)

type entry struct {
	Name string `json:"name"`
}

func TestStorage(t *testing.T) {
	ctx := context.Background()
	s := memory.New[entry](fs.NewJSONCodec[entry]())

	doc, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, core.NewDocument[entry](), doc)
	assert.Contains(t, string(s.Bytes()), `"id_counter"`)

	doc.Records[1] = entry{Name: "one"}
	doc.Counter.NextID = 2
	require.NoError(t, s.Persist(ctx, doc))
	assert.Equal(t, 1, s.Persists())

	again, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, doc, again)

	s.FailPersist = errors.New("boom")
	err = s.Persist(ctx, core.NewDocument[entry]())
	assert.ErrorIs(t, err, core.ErrIO)
	assert.Equal(t, 1, s.Persists())

	again, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, doc, again, "a failed persist keeps the previous bytes")
}

func TestNewWithBytes(t *testing.T) {
	s := memory.NewWithBytes[entry](fs.NewYAMLCodec[entry](), []byte("id_counter:\n  counter: 3\n  available_ids: [1]\nitems:\n  2:\n    name: two\n"))

	doc, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, core.CounterState{NextID: 3, FreeIDs: []core.RecordID{1}}, doc.Counter)
	assert.Equal(t, entry{Name: "two"}, doc.Records[2])
	assert.Equal(t, "memory-storage", s.ComponentType())
}
