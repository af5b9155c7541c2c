package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/ZentaChain/ntlink/pkg/keystore"
)

// KeystoreStore keeps keystore documents keyed by uin. It implements
// keystore.Store.
type KeystoreStore struct {
	db *DB
}

func (s *DB) Keystores() *KeystoreStore {
	return &KeystoreStore{db: s}
}

// Load returns the document for uin. uin 0 returns the most recently
// saved document, for QR logins where the account is not known yet.
func (k *KeystoreStore) Load(ctx context.Context, uin int64) (*keystore.Document, error) {
	var row *sql.Row
	if uin == 0 {
		row = k.db.db.QueryRowContext(ctx, `SELECT document FROM keystores ORDER BY updated_at DESC LIMIT 1`)
	} else {
		row = k.db.db.QueryRowContext(ctx, `SELECT document FROM keystores WHERE uin = ?`, uin)
	}

	var raw []byte
	if err := row.Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, keystore.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load keystore: %w", err)
	}

	var doc keystore.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode keystore: %w", err)
	}
	return &doc, nil
}

// Save inserts or replaces the document for doc.Uin
func (k *KeystoreStore) Save(ctx context.Context, doc *keystore.Document) error {
	if doc.Uin == 0 {
		return fmt.Errorf("keystore document has no uin")
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode keystore: %w", err)
	}

	updated := doc.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}

	_, err = k.db.db.ExecContext(ctx, `
		INSERT INTO keystores (uin, document, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(uin) DO UPDATE SET document = excluded.document, updated_at = excluded.updated_at
	`, doc.Uin, raw, updated.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to save keystore: %w", err)
	}
	return nil
}

// Delete drops the stored document, forcing a full login next time
func (k *KeystoreStore) Delete(ctx context.Context, uin int64) error {
	res, err := k.db.db.ExecContext(ctx, `DELETE FROM keystores WHERE uin = ?`, uin)
	if err != nil {
		return fmt.Errorf("failed to delete keystore: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Uins lists stored accounts, most recent first
func (k *KeystoreStore) Uins(ctx context.Context) ([]int64, error) {
	rows, err := k.db.db.QueryContext(ctx, `SELECT uin FROM keystores ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list keystores: %w", err)
	}
	defer rows.Close()

	var uins []int64
	for rows.Next() {
		var uin int64
		if err := rows.Scan(&uin); err != nil {
			return nil, fmt.Errorf("failed to scan keystore: %w", err)
		}
		uins = append(uins, uin)
	}
	return uins, rows.Err()
}
