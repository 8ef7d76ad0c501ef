package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
)

// Keys used by the tracker.
const (
	KeyFoods = "foods"
	KeyGoal  = "goal"
)

// Store is a small key-value persistence boundary. Load reports false when
// the key has never been saved.
type Store interface {
	Load(ctx context.Context, key string) ([]byte, bool, error)
	Save(ctx context.Context, key string, value []byte) error
}

var validKey = regexp.MustCompile(`^[a-z0-9_-]+$`)

// FileStore keeps one JSON document per key in a directory.
type FileStore struct {
	basePath string
}

// NewFileStore creates a new FileStore and ensures the base directory exists.
func NewFileStore(basePath string) (*FileStore, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory %s: %w", basePath, err)
	}
	return &FileStore{basePath: basePath}, nil
}

func (s *FileStore) pathFor(key string) (string, error) {
	if !validKey.MatchString(key) {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	return filepath.Join(s.basePath, key+".json"), nil
}

// Load reads the document stored under key.
func (s *FileStore) Load(_ context.Context, key string) ([]byte, bool, error) {
	path, err := s.pathFor(key)
	if err != nil {
		return nil, false, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, true, nil
}

// Save replaces the document under key. The write goes through a temp file
// and a rename so a crash never leaves a half-written ledger.
func (s *FileStore) Save(_ context.Context, key string, value []byte) error {
	path, err := s.pathFor(key)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.basePath, key+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

// Exists checks if a document has been saved under key.
func (s *FileStore) Exists(key string) bool {
	path, err := s.pathFor(key)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}
