package kv

import (
	"fmt"
	"os"
	"path/filepath"
)

// FileStore implements Store using one file per key under a base
// directory, the local-profile analogue of browser storage. Writes go
// through a temp file and rename so a crash mid-write never leaves a
// torn value behind.
type FileStore struct {
	basePath string
}

// NewFileStore creates a file-backed store rooted at basePath.
// The directory is created if it doesn't exist.
func NewFileStore(basePath string) (*FileStore, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	return &FileStore{basePath: basePath}, nil
}

// Get retrieves the value stored under key.
func (s *FileStore) Get(key string) ([]byte, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrKeyNotFound
		}
		return nil, fmt.Errorf("failed to read key %q: %w", key, err)
	}

	return data, nil
}

// Put stores a value under key atomically.
func (s *FileStore) Put(key string, value []byte) error {
	target := s.path(key)

	tmp, err := os.CreateTemp(s.basePath, key+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write key %q: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), target); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to persist key %q: %w", key, err)
	}

	return nil
}

// Delete removes a key. Missing keys are ignored (idempotent).
func (s *FileStore) Delete(key string) error {
	err := os.Remove(s.path(key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete key %q: %w", key, err)
	}

	return nil
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.basePath, key+".json")
}
