package keystore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
)

// Store persists keystore documents
type Store interface {
	Load(ctx context.Context, uin int64) (*Document, error)
	Save(ctx context.Context, doc *Document) error
}

// FileStore keeps one JSON document on disk
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the document. A missing file or a document for another account
// returns ErrNotFound.
func (s *FileStore) Load(ctx context.Context, uin int64) (*Document, error) {
	b, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read keystore: %w", err)
	}

	var doc Document
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode keystore: %w", err)
	}
	if uin != 0 && doc.Uin != 0 && doc.Uin != uin {
		return nil, ErrNotFound
	}
	return &doc, nil
}

// Save writes through a temp file and rename
func (s *FileStore) Save(ctx context.Context, doc *Document) error {
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode keystore: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("failed to create keystore dir: %w", err)
		}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return fmt.Errorf("failed to write keystore: %w", err)
	}
	return os.Rename(tmp, s.path)
}

// LoadOrCreate returns the stored keystore for uin, or a new one
func LoadOrCreate(ctx context.Context, store Store, uin int64, deviceName string) (*Keystore, error) {
	doc, err := store.Load(ctx, uin)
	if errors.Is(err, ErrNotFound) {
		return New(uin, deviceName), nil
	}
	if err != nil {
		return nil, err
	}
	ks := FromDocument(doc)
	if uin != 0 && ks.Uin() == 0 {
		ks.SetUin(uin)
	}
	return ks, nil
}
