package crypto

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidKey       = errors.New("invalid key")
	ErrEncryptionFailed = errors.New("encryption failed")
	ErrDecryptionFailed = errors.New("decryption failed")
)

// CryptoError reports malformed key material, an off-curve point, or a
// ciphertext that fails validation.
type CryptoError struct {
	Op     string
	Reason string
	Err    error
}

func (e *CryptoError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("crypto: %s: %s: %v", e.Op, e.Reason, e.Err)
	}
	return fmt.Sprintf("crypto: %s: %s", e.Op, e.Reason)
}

func (e *CryptoError) Unwrap() error {
	return e.Err
}

func cryptoErr(op, reason string, err error) error {
	return &CryptoError{Op: op, Reason: reason, Err: err}
}
