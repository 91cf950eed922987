package platform

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveStorePath(t *testing.T) {
	t.Parallel()

	devBase := filepath.Join(os.TempDir(), "tally-dev")
	insideTemp := filepath.Join(os.TempDir(), "already", "expenseDB.json")

	tests := []struct {
		name      string
		userPath  string
		forceTemp bool
		expected  string
	}{
		{name: "Normal Mode - Relative", userPath: "taskDB.json", expected: "taskDB.json"},
		{name: "Normal Mode - Absolute", userPath: "/data/taskDB.json", expected: "/data/taskDB.json"},
		{name: "Dev Mode - Relative", userPath: "taskDB.json", forceTemp: true, expected: filepath.Join(devBase, "taskDB.json")},
		{name: "Dev Mode - Nested", userPath: "data/expenseDB.json", forceTemp: true, expected: filepath.Join(devBase, "expenseDB.json")},
		{name: "Dev Mode - Current Dir", userPath: ".", forceTemp: true, expected: filepath.Join(devBase, "store.json")},
		{name: "Dev Mode - Already in Temp", userPath: insideTemp, forceTemp: true, expected: insideTemp},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, ResolveStorePath(tt.userPath, tt.forceTemp))
		})
	}
}

func TestIsDevRun(t *testing.T) {
	// Test binaries end in .test and live in a temp build dir.
	assert.True(t, IsDevRun())
}
