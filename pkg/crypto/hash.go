package crypto

import (
	"crypto/md5"
	"crypto/rand"
	"crypto/sha256"
)

// MD5 returns the MD5 digest of data
func MD5(data []byte) []byte {
	sum := md5.Sum(data)
	return sum[:]
}

// SHA256 returns the SHA-256 digest of data
func SHA256(data []byte) []byte {
	sum := sha256.Sum256(data)
	return sum[:]
}

// GenerateNonce generates a random nonce
func GenerateNonce(size int) ([]byte, error) {
	nonce := make([]byte, size)
	_, err := rand.Read(nonce)
	if err != nil {
		return nil, err
	}
	return nonce, nil
}
