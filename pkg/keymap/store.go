package keymap

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Store manages persistence of a layout to a JSON file.
type Store struct {
	mu   sync.Mutex
	path string
}

// NewStore creates a layout store for the given file path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the file path the store reads and writes.
func (s *Store) Path() string { return s.path }

// Save persists the layout to disk.
func (s *Store) Save(l *Layout) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	l.Version = LayoutVersion
	if l.SavedAt.IsZero() {
		l.SavedAt = time.Now()
	}

	data, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(s.path, data, 0644)
}

// Load reads the layout from disk.
// Returns nil, nil if the file doesn't exist.
func (s *Store) Load() (*Layout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	l := &Layout{}
	if err := json.Unmarshal(data, l); err != nil {
		return nil, err
	}
	if l.Version > LayoutVersion {
		return nil, fmt.Errorf("layout file version %d is newer than supported version %d", l.Version, LayoutVersion)
	}

	return l, nil
}

// Clear removes the layout file.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
