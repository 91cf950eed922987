package fs

import (
	"strconv"
	"time"

	"github.com/aretw0/introspection"
)

// StorageState exposes internal state for observability.
type StorageState struct {
	Path           string     `json:"path"`
	Format         string     `json:"format"`
	ReadOnly       bool       `json:"read_only"`
	Locking        bool       `json:"locking"`
	LockHeld       bool       `json:"lock_held"`
	ConflictCheck  bool       `json:"conflict_check"`
	RecoverCorrupt bool       `json:"recover_corrupt"`
	Fingerprint    string     `json:"fingerprint"`
	Persists       int        `json:"persists"`
	LastPersist    *time.Time `json:"last_persist,omitempty"`
	Quarantined    string     `json:"quarantined,omitempty"`
}

// State implements introspection.Introspectable.
func (s *Storage[R]) State() any {
	s.mu.Lock()
	defer s.mu.Unlock()

	return StorageState{
		Path:           s.config.Path,
		Format:         s.codec.Name(),
		ReadOnly:       s.config.ReadOnly,
		Locking:        s.config.Locking,
		LockHeld:       s.lock != nil,
		ConflictCheck:  s.config.ConflictCheck,
		RecoverCorrupt: s.config.RecoverCorrupt,
		Fingerprint:    strconv.FormatUint(s.fingerprint, 16),
		Persists:       s.persists,
		LastPersist:    s.lastPersist,
		Quarantined:    s.recovered,
	}
}

// ComponentType implements introspection.Component.
func (s *Storage[R]) ComponentType() string {
	return "file-storage"
}

var _ introspection.Introspectable = (*Storage[struct{}])(nil)
var _ introspection.Component = (*Storage[struct{}])(nil)
