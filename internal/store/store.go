// Package store is the local durable store: crash-safe collections on
// SQLite that survive restarts. It holds CRUD primitives only; business
// rules live with the callers.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// ErrNotFound reports an absent record on single-record lookups.
var ErrNotFound = errors.New("record not found")

// StorageError wraps any I/O or engine failure. Callers are expected to
// log it and continue in memory-only mode rather than crash.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return "storage: " + e.Op + ": " + e.Err.Error() }
func (e *StorageError) Unwrap() error { return e.Err }

func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

type Store struct {
	db *sql.DB
}

// Open creates the database file if needed, runs migrations and returns
// the process-wide store handle. SQLite serializes writes internally, so
// the handle is shared without extra locking.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, storageErr("create db directory", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, storageErr("open sqlite database", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, storageErr("ping database", err)
	}

	if err := runMigrations(dbPath); err != nil {
		db.Close()
		return nil, storageErr("run migrations", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// inTx runs fn inside a transaction so multi-statement writes either
// fully apply or not at all.
func (s *Store) inTx(op string, fn func(*sql.Tx) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return storageErr(op, fmt.Errorf("begin: %w", err))
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return storageErr(op, err)
	}
	if err := tx.Commit(); err != nil {
		return storageErr(op, fmt.Errorf("commit: %w", err))
	}
	return nil
}
