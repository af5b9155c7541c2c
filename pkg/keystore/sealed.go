package keystore

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	"golang.org/x/crypto/pbkdf2"

	"github.com/ZentaChain/ntlink/pkg/crypto"
)

const (
	sealKeySize = 32

	// PBKDF2 iterations for the ticket sealing key
	sealIterations = 100000
)

var ErrWrongPassphrase = errors.New("keystore passphrase does not open the saved tickets")

// SealedStore encrypts the ticket bundle before handing documents to the
// wrapped store. Identity fields stay readable so sessions can be listed
// without the passphrase.
type SealedStore struct {
	inner      Store
	passphrase []byte
}

func NewSealedStore(inner Store, passphrase string) *SealedStore {
	return &SealedStore{inner: inner, passphrase: []byte(passphrase)}
}

// sealKey derives the AES-256 key for one document. The device guid is the
// salt, so every saved account gets its own key.
func (s *SealedStore) sealKey(guid []byte) []byte {
	return pbkdf2.Key(s.passphrase, guid, sealIterations, sealKeySize, sha256.New)
}

func (s *SealedStore) Save(ctx context.Context, doc *Document) error {
	plain, err := json.Marshal(doc.Tickets)
	if err != nil {
		return fmt.Errorf("failed to encode tickets: %w", err)
	}
	sealed, err := crypto.AESEncryptGCM(plain, s.sealKey(doc.Guid))
	if err != nil {
		return fmt.Errorf("failed to seal tickets: %w", err)
	}

	out := *doc
	out.Tickets = Tickets{}
	out.Sealed = sealed
	return s.inner.Save(ctx, &out)
}

// Load opens sealed tickets. Documents saved before sealing was enabled
// are returned as they are and sealed on the next Save.
func (s *SealedStore) Load(ctx context.Context, uin int64) (*Document, error) {
	doc, err := s.inner.Load(ctx, uin)
	if err != nil || len(doc.Sealed) == 0 {
		return doc, err
	}

	plain, err := crypto.AESDecryptGCM(doc.Sealed, s.sealKey(doc.Guid))
	if err != nil {
		if errors.Is(err, crypto.ErrDecryptionFailed) {
			return nil, ErrWrongPassphrase
		}
		return nil, err
	}

	var tickets Tickets
	if err := json.Unmarshal(plain, &tickets); err != nil {
		return nil, fmt.Errorf("failed to decode tickets: %w", err)
	}
	doc.Tickets = tickets
	doc.Sealed = nil
	return doc, nil
}
