package platform

import (
	"fmt"
	"os"
	"path/filepath"
)

// FindStore looks for a file called name in startDir and then in each parent
// directory. It returns the absolute path of the first match.
func FindStore(startDir, name string) (string, error) {
	abs, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	dir := abs
	for {
		candidate := filepath.Join(dir, name)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("store %s not found from %s", name, abs)
}
