// Package state persists the running capital between sessions.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/shopspring/decimal"
)

// ErrCorruptState is returned when the capital file exists but cannot be used.
var ErrCorruptState = errors.New("corrupt capital state")

type capitalFile struct {
	Capital decimal.Decimal `json:"capital"`
}

// FileStore keeps the capital value in a small JSON document.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates a store backed by path. The file is not touched until
// the first Load or Save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file path.
func (s *FileStore) Path() string {
	return s.path
}

// Load returns the persisted capital. found is false when nothing has been
// saved yet.
func (s *FileStore) Load() (capital decimal.Decimal, found bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("failed to read %s: %w", s.path, err)
	}

	var cf capitalFile
	if err := json.Unmarshal(data, &cf); err != nil {
		return decimal.Zero, false, fmt.Errorf("%w: %s: %v", ErrCorruptState, s.path, err)
	}
	if !cf.Capital.IsPositive() {
		return decimal.Zero, false, fmt.Errorf("%w: %s: capital %s is not positive", ErrCorruptState, s.path, cf.Capital)
	}
	return cf.Capital, true, nil
}

// Save replaces the persisted capital. Readers never observe a partial file.
func (s *FileStore) Save(capital decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(capitalFile{Capital: capital})
	if err != nil {
		return err
	}
	if err := writeFileAtomic(s.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", s.path, err)
	}
	return nil
}

// Reset overwrites the persisted capital with start.
func (s *FileStore) Reset(start decimal.Decimal) error {
	return s.Save(start)
}

// writeFileAtomic writes to a temp file in the same directory, fsyncs it and
// renames it over path.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".capital-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return err
	}

	// best effort
	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}
	return nil
}
