package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileStore keeps all keys in a single JSON file. A missing or corrupted
// file reads as an empty store; only write failures surface as errors.
type FileStore struct {
	path string
	mu   sync.Mutex
}

func NewFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	return &FileStore{path: path}, nil
}

func (s *FileStore) Get(key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	values := s.loadLocked()
	raw, ok := values[key]
	if !ok {
		return nil, false, nil
	}
	return raw, true, nil
}

func (s *FileStore) Set(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values := s.loadLocked()
	values[key] = json.RawMessage(value)
	return s.saveLocked(values)
}

func (s *FileStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values := s.loadLocked()
	if _, ok := values[key]; !ok {
		return nil
	}
	delete(values, key)
	return s.saveLocked(values)
}

// loadLocked reads the backing file. Unreadable or malformed content is
// treated as an empty store rather than an error.
func (s *FileStore) loadLocked() map[string]json.RawMessage {
	values := map[string]json.RawMessage{}

	raw, err := os.ReadFile(s.path)
	if err != nil {
		return values
	}
	if err := json.Unmarshal(raw, &values); err != nil {
		return map[string]json.RawMessage{}
	}
	return values
}

func (s *FileStore) saveLocked(values map[string]json.RawMessage) error {
	raw, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("encode store: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("write store: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace store: %w", err)
	}
	return nil
}
