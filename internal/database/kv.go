package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// KVStore implements storage.Store on the kv table.
type KVStore struct {
	db *sql.DB
}

// NewKVStore creates a KVStore on an open, migrated database.
func NewKVStore(db *sql.DB) *KVStore {
	return &KVStore{db: db}
}

// Load returns the value stored under key.
func (s *KVStore) Load(ctx context.Context, key string) ([]byte, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to load key %s: %w", key, err)
	}
	return []byte(value), true, nil
}

// Save upserts the value under key.
func (s *KVStore) Save(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, string(value), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save key %s: %w", key, err)
	}
	return nil
}
