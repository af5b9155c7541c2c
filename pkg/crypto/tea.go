package crypto

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/binary"

	"golang.org/x/crypto/tea"
)

// TeaKeySize is the key length of the legacy block cipher
const TeaKeySize = 16

// teaRounds is 16 Feistel cycles
const teaRounds = 32

// EmptyTeaKey is the all-zero key used for EncryptEmpty frames
var EmptyTeaKey = make([]byte, TeaKeySize)

func newTea(key []byte) (cipher.Block, error) {
	if len(key) != TeaKeySize {
		return nil, cryptoErr("tea", "key must be 16 bytes", ErrInvalidKey)
	}
	block, err := tea.NewCipherWithRounds(key, teaRounds)
	if err != nil {
		return nil, cryptoErr("tea", "cipher init failed", err)
	}
	return block, nil
}

// TeaEncrypt seals data with 16-round TEA in the interleaved CBC mode:
// each plaintext block is XORed with the previous ciphertext before
// encryption and the result XORed with the previous pre-image after.
//
// Layout before encryption: 1 header byte (low 3 bits = pad length),
// pad bytes, 2 salt bytes, data, 7 zero bytes.
func TeaEncrypt(data, key []byte) ([]byte, error) {
	block, err := newTea(key)
	if err != nil {
		return nil, err
	}

	fill := 10 - (len(data)+1)%8
	plain := make([]byte, fill+len(data)+7)
	if _, err := rand.Read(plain[:fill]); err != nil {
		return nil, cryptoErr("tea encrypt", "random source failed", err)
	}
	plain[0] = byte(fill-3) | 0xF8
	copy(plain[fill:], data)

	out := make([]byte, len(plain))
	var prevCipher, prevPlain uint64
	var buf [8]byte
	for i := 0; i < len(plain); i += 8 {
		holder := binary.BigEndian.Uint64(plain[i:]) ^ prevCipher

		binary.BigEndian.PutUint64(buf[:], holder)
		block.Encrypt(buf[:], buf[:])
		prevCipher = binary.BigEndian.Uint64(buf[:]) ^ prevPlain
		prevPlain = holder

		binary.BigEndian.PutUint64(out[i:], prevCipher)
	}

	return out, nil
}

// TeaDecrypt reverses TeaEncrypt and validates the padding
func TeaDecrypt(data, key []byte) ([]byte, error) {
	if len(data) < 16 || len(data)%8 != 0 {
		return nil, cryptoErr("tea decrypt", "ciphertext length is not a multiple of 8 or too short", ErrDecryptionFailed)
	}

	block, err := newTea(key)
	if err != nil {
		return nil, err
	}

	out := make([]byte, len(data))
	var prevCipher, prevHolder uint64
	var buf [8]byte
	for i := 0; i < len(data); i += 8 {
		c := binary.BigEndian.Uint64(data[i:])

		binary.BigEndian.PutUint64(buf[:], c^prevHolder)
		block.Decrypt(buf[:], buf[:])
		holder := binary.BigEndian.Uint64(buf[:])

		binary.BigEndian.PutUint64(out[i:], holder^prevCipher)
		prevCipher = c
		prevHolder = holder
	}

	start := int(out[0]&7) + 3
	end := len(out) - 7
	if start > end {
		return nil, cryptoErr("tea decrypt", "padding exceeds payload", ErrDecryptionFailed)
	}
	for _, b := range out[end:] {
		if b != 0 {
			return nil, cryptoErr("tea decrypt", "trailing zero block mismatch", ErrDecryptionFailed)
		}
	}

	return out[start:end], nil
}
