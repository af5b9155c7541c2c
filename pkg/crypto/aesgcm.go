package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
)

// GCMNonceSize is the nonce length prepended to every sealed buffer
const GCMNonceSize = 12

// AESEncryptGCM seals plaintext with AES-GCM. Output is nonce‖ciphertext‖tag.
func AESEncryptGCM(plaintext []byte, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, cryptoErr("gcm seal", "bad key", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, cryptoErr("gcm seal", "mode init failed", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, cryptoErr("gcm seal", "random source failed", err)
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// AESDecryptGCM opens a buffer produced by AESEncryptGCM
func AESDecryptGCM(ciphertext []byte, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, cryptoErr("gcm open", "bad key", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, cryptoErr("gcm open", "mode init failed", err)
	}

	nonceSize := gcm.NonceSize()
	if len(ciphertext) < nonceSize+gcm.Overhead() {
		return nil, cryptoErr("gcm open", "ciphertext too short", ErrDecryptionFailed)
	}

	nonce, sealed := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, cryptoErr("gcm open", "authentication failed", ErrDecryptionFailed)
	}
	return plaintext, nil
}
