// Package storage persists keystore documents and an event journal in SQLite.
package storage

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

var ErrNotFound = errors.New("not found")

// DB is one SQLite file shared by the keystore table and the journal
type DB struct {
	db *sql.DB
}

// Open opens or creates the database at path. ":memory:" works for tests
// but each connection then sees its own database, so the pool is pinned
// to one connection.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	s := &DB{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *DB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS keystores (
		uin INTEGER PRIMARY KEY,
		document BLOB NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		group_uin INTEGER NOT NULL DEFAULT 0,
		peer_uin INTEGER NOT NULL DEFAULT 0,
		sequence INTEGER NOT NULL DEFAULT 0,
		payload BLOB NOT NULL,
		recorded_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_name ON events(name, recorded_at DESC);
	CREATE INDEX IF NOT EXISTS idx_events_recorded ON events(recorded_at);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

func (s *DB) Close() error {
	return s.db.Close()
}
