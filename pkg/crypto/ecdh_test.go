package crypto

import (
	"bytes"
	"crypto/ecdh"
	"crypto/elliptic"
	"crypto/rand"
	"errors"
	"math/big"
	"testing"
)

func TestPackPublicLengths(t *testing.T) {
	for _, curve := range Curves {
		t.Run(curve.Name, func(t *testing.T) {
			session, err := GenerateKeyPair(curve)
			if err != nil {
				t.Fatalf("GenerateKeyPair() error = %v", err)
			}

			compressed := session.PackPublic(true)
			if len(compressed) != curve.Size+1 {
				t.Errorf("compressed length = %d, want %d", len(compressed), curve.Size+1)
			}
			if compressed[0] != 0x02 && compressed[0] != 0x03 {
				t.Errorf("compressed prefix = %#x", compressed[0])
			}

			uncompressed := session.PackPublic(false)
			if len(uncompressed) != 2*curve.Size+1 {
				t.Errorf("uncompressed length = %d, want %d", len(uncompressed), 2*curve.Size+1)
			}
			if uncompressed[0] != 0x04 {
				t.Errorf("uncompressed prefix = %#x", uncompressed[0])
			}
		})
	}
}

func TestBasePointOnCurve(t *testing.T) {
	for _, curve := range Curves {
		if !curve.IsOnCurve(curve.G) {
			t.Errorf("%s: base point is not on the curve", curve.Name)
		}
	}
}

func TestKeyExchangeCommutative(t *testing.T) {
	for _, curve := range Curves {
		for _, compressed := range []bool{true, false} {
			for _, hash := range []bool{true, false} {
				alice, _ := GenerateKeyPair(curve)
				bob, _ := GenerateKeyPair(curve)

				ab, err := alice.ComputeSharedSecret(bob.PackPublic(compressed), hash)
				if err != nil {
					t.Fatalf("%s: alice exchange error = %v", curve.Name, err)
				}
				ba, err := bob.ComputeSharedSecret(alice.PackPublic(compressed), hash)
				if err != nil {
					t.Fatalf("%s: bob exchange error = %v", curve.Name, err)
				}

				if !bytes.Equal(ab, ba) {
					t.Errorf("%s compressed=%v hash=%v: shared secrets differ", curve.Name, compressed, hash)
				}

				want := curve.Size
				if hash {
					want = 16
				}
				if len(ab) != want {
					t.Errorf("%s hash=%v: shared length = %d, want %d", curve.Name, hash, len(ab), want)
				}
			}
		}
	}
}

func TestPrime256V1Scenario(t *testing.T) {
	alice, err := GenerateKeyPair(Prime256V1)
	if err != nil {
		t.Fatalf("GenerateKeyPair() error = %v", err)
	}
	bob, err := GenerateKeyPair(Prime256V1)
	if err != nil {
		t.Fatalf("GenerateKeyPair() error = %v", err)
	}

	aliceShared, err := alice.ComputeSharedSecret(bob.PackPublic(false), false)
	if err != nil {
		t.Fatalf("alice ComputeSharedSecret() error = %v", err)
	}
	bobShared, err := bob.ComputeSharedSecret(alice.PackPublic(false), false)
	if err != nil {
		t.Fatalf("bob ComputeSharedSecret() error = %v", err)
	}

	if len(aliceShared) != 32 {
		t.Errorf("shared length = %d, want 32", len(aliceShared))
	}
	if !bytes.Equal(aliceShared, bobShared) {
		t.Error("shared secrets differ")
	}
}

func TestPrime256V1MatchesStdlib(t *testing.T) {
	session, _ := GenerateKeyPair(Prime256V1)

	scalar := make([]byte, 32)
	session.secret.FillBytes(scalar)

	priv, err := ecdh.P256().NewPrivateKey(scalar)
	if err != nil {
		t.Fatalf("NewPrivateKey() error = %v", err)
	}

	if !bytes.Equal(priv.PublicKey().Bytes(), session.PackPublic(false)) {
		t.Fatal("public key differs from crypto/ecdh")
	}

	peer, _ := ecdh.P256().GenerateKey(rand.Reader)
	want, err := priv.ECDH(peer.PublicKey())
	if err != nil {
		t.Fatalf("ECDH() error = %v", err)
	}

	got, err := session.ComputeSharedSecret(peer.PublicKey().Bytes(), false)
	if err != nil {
		t.Fatalf("ComputeSharedSecret() error = %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Error("shared secret differs from crypto/ecdh")
	}
}

func TestSecp224R1MatchesStdlib(t *testing.T) {
	session, _ := GenerateKeyPair(Secp224R1)

	x, y := elliptic.P224().ScalarBaseMult(session.secret.Bytes())
	pub := session.Public()
	if x.Cmp(pub.X) != 0 || y.Cmp(pub.Y) != 0 {
		t.Fatal("public point differs from crypto/elliptic")
	}

	// compressed keys exercise the non-(P+1)/4 square root path
	other, _ := GenerateKeyPair(Secp224R1)
	a, err := session.ComputeSharedSecret(other.PackPublic(true), false)
	if err != nil {
		t.Fatalf("ComputeSharedSecret() error = %v", err)
	}
	b, _ := other.ComputeSharedSecret(session.PackPublic(false), false)
	if !bytes.Equal(a, b) {
		t.Error("shared secrets differ")
	}
}

func TestImportSecretDeterministic(t *testing.T) {
	for _, curve := range Curves {
		original, _ := GenerateKeyPair(curve)
		packed := original.PackSecret()

		if len(packed) != int(packed[3])+4 {
			t.Errorf("%s: packed length %d does not match header %d", curve.Name, len(packed), packed[3])
		}

		for i := 0; i < 3; i++ {
			imported, err := ImportSecret(curve, packed)
			if err != nil {
				t.Fatalf("%s: ImportSecret() error = %v", curve.Name, err)
			}
			if !bytes.Equal(imported.PackPublic(false), original.PackPublic(false)) {
				t.Errorf("%s: imported public key differs", curve.Name)
			}
			if !bytes.Equal(imported.PackSecret(), packed) {
				t.Errorf("%s: re-packed secret differs", curve.Name)
			}
		}
	}
}

func TestSecretUniqueness(t *testing.T) {
	a, _ := GenerateKeyPair(Prime256V1)
	b, _ := GenerateKeyPair(Prime256V1)

	if bytes.Equal(a.PackSecret(), b.PackSecret()) {
		t.Error("two generated secrets are identical")
	}
}

func TestUnpackSecretLengthMismatch(t *testing.T) {
	tests := []struct {
		name   string
		packed []byte
	}{
		{"too short", []byte{0, 0}},
		{"declared longer", []byte{0, 0, 0, 5, 1, 2, 3}},
		{"declared shorter", []byte{0, 0, 0, 1, 1, 2, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := UnpackSecret(tt.packed)
			var cerr *CryptoError
			if !errors.As(err, &cerr) {
				t.Errorf("UnpackSecret() error = %v, want *CryptoError", err)
			}
		})
	}
}

func TestImportZeroSecret(t *testing.T) {
	if _, err := ImportSecret(Prime256V1, []byte{0, 0, 0, 1, 0}); err == nil {
		t.Error("ImportSecret() should reject a zero scalar")
	}
	if _, err := ImportScalar(Prime256V1, Prime256V1.N.Bytes()); err == nil {
		t.Error("ImportScalar() should reject N")
	}
}

func TestComputeSharedSecretBadLength(t *testing.T) {
	session, _ := GenerateKeyPair(Prime256V1)

	_, err := session.ComputeSharedSecret(make([]byte, 20), true)
	var cerr *CryptoError
	if !errors.As(err, &cerr) {
		t.Fatalf("ComputeSharedSecret() error = %v, want *CryptoError", err)
	}
	if !errors.Is(err, ErrInvalidKey) {
		t.Errorf("ComputeSharedSecret() error should wrap ErrInvalidKey")
	}
}

func TestComputeSharedSecretOffCurve(t *testing.T) {
	session, _ := GenerateKeyPair(Prime256V1)

	peer, _ := GenerateKeyPair(Prime256V1)
	pub := peer.PackPublic(false)
	pub[len(pub)-1] ^= 0x01 // flip a bit of Y

	if _, err := session.ComputeSharedSecret(pub, false); err == nil {
		t.Error("ComputeSharedSecret() should reject an off-curve point")
	}

	bad := peer.PackPublic(false)
	bad[0] = 0x05
	if _, err := session.ComputeSharedSecret(bad, false); err == nil {
		t.Error("ComputeSharedSecret() should reject a bad prefix")
	}
}

func TestCompressedDecompressionMatches(t *testing.T) {
	for _, curve := range Curves {
		session, _ := GenerateKeyPair(curve)

		fromCompressed, err := curve.UnpackPublic(session.PackPublic(true))
		if err != nil {
			t.Fatalf("%s: UnpackPublic(compressed) error = %v", curve.Name, err)
		}
		fromFull, err := curve.UnpackPublic(session.PackPublic(false))
		if err != nil {
			t.Fatalf("%s: UnpackPublic(uncompressed) error = %v", curve.Name, err)
		}

		if fromCompressed.X.Cmp(fromFull.X) != 0 || fromCompressed.Y.Cmp(fromFull.Y) != 0 {
			t.Errorf("%s: decompressed point differs", curve.Name)
		}
	}
}

func TestModInverse(t *testing.T) {
	p := Prime256V1.P
	for _, v := range []int64{1, 2, 3, 12345, 987654321} {
		a := big.NewInt(v)
		inv := modInverse(a, p)

		check := new(big.Int).Mul(a, inv)
		check.Mod(check, p)
		if check.Cmp(big.NewInt(1)) != 0 {
			t.Errorf("modInverse(%d) * %d != 1 mod p", v, v)
		}
	}
}

func TestCurveByName(t *testing.T) {
	c, ok := CurveByName("prime256v1")
	if !ok || c != Prime256V1 {
		t.Error("CurveByName(prime256v1) failed")
	}
	if _, ok := CurveByName("curve25519"); ok {
		t.Error("CurveByName() should not find unsupported curves")
	}
}
