package migrate

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// VersionRecord is the persisted schema marker.
type VersionRecord struct {
	DatabaseVersion int    `yaml:"DatabaseVersion"`
	LastError       string `yaml:"LastError,omitempty"`
}

// VersionStore persists the schema marker. Load reports false when nothing
// has been stored yet.
type VersionStore interface {
	Load() (VersionRecord, bool, error)
	Save(rec VersionRecord) error
}

// FileStore keeps the VersionRecord in a YAML file. Writes go to a
// temporary file in the same directory which is then renamed over the
// target, so a crash never leaves a half-written marker.
type FileStore struct {
	path string
}

// NewFileStore returns a store backed by path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file path.
func (s *FileStore) Path() string {
	return s.path
}

// Load implements VersionStore.
func (s *FileStore) Load() (VersionRecord, bool, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return VersionRecord{}, false, nil
	}
	if err != nil {
		return VersionRecord{}, false, fmt.Errorf("read version file: %w", err)
	}

	var rec VersionRecord
	if err := yaml.Unmarshal(data, &rec); err != nil {
		return VersionRecord{}, false, fmt.Errorf("parse version file %s: %w", s.path, err)
	}
	return rec, true, nil
}

// Save implements VersionStore.
func (s *FileStore) Save(rec VersionRecord) error {
	data, err := yaml.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode version record: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create version directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".version-*.yaml")
	if err != nil {
		return fmt.Errorf("create temp version file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write version file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync version file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close version file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace version file: %w", err)
	}
	return nil
}

// MemoryStore is an in-memory VersionStore. It records every saved value.
type MemoryStore struct {
	mu      sync.Mutex
	rec     VersionRecord
	present bool
	history []VersionRecord
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// NewMemoryStoreAt returns a store that already holds version.
func NewMemoryStoreAt(version int) *MemoryStore {
	return &MemoryStore{rec: VersionRecord{DatabaseVersion: version}, present: true}
}

// Load implements VersionStore.
func (s *MemoryStore) Load() (VersionRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rec, s.present, nil
}

// Save implements VersionStore.
func (s *MemoryStore) Save(rec VersionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rec = rec
	s.present = true
	s.history = append(s.history, rec)
	return nil
}

// History returns every record passed to Save, oldest first.
func (s *MemoryStore) History() []VersionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]VersionRecord(nil), s.history...)
}
