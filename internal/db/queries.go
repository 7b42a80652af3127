package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/moiskillnadne/work-time-tracker/internal/errors"
)

// GetRecord returns the raw value stored under key.
// Returns a NOT_FOUND error when the key is absent.
func GetRecord(ctx context.Context, db *sql.DB, key string) ([]byte, error) {
	var value string
	err := db.QueryRowContext(ctx, `SELECT value FROM records WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("record", key)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return []byte(value), nil
}

// PutRecord inserts or replaces the value stored under key.
func PutRecord(ctx context.Context, db *sql.DB, key string, value []byte) error {
	query := `
		INSERT INTO records (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`
	if _, err := db.ExecContext(ctx, query, key, string(value), time.Now().UnixMilli()); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// DeleteRecord removes key. Deleting an absent key is not an error.
func DeleteRecord(ctx context.Context, db *sql.DB, key string) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM records WHERE key = ?`, key); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// KV adapts a database handle to the key-value interface used by the store.
type KV struct {
	DB *sql.DB
}

// NewKV wraps database.
func NewKV(database *sql.DB) *KV {
	return &KV{DB: database}
}

// Get returns (value, true, nil) when present and (nil, false, nil) when absent.
func (k *KV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := GetRecord(ctx, k.DB, key)
	if errors.Is(err, errors.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

// Put stores value under key.
func (k *KV) Put(ctx context.Context, key string, value []byte) error {
	return PutRecord(ctx, k.DB, key, value)
}

// Delete removes key.
func (k *KV) Delete(ctx context.Context, key string) error {
	return DeleteRecord(ctx, k.DB, key)
}
