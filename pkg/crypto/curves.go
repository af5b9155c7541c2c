package crypto

import (
	"math/big"
)

// EllipticCurve holds the constants of a short-Weierstrass curve
// y² = x³ + a·x + b over GF(p).
type EllipticCurve struct {
	Name string

	P *big.Int // field modulus
	A *big.Int
	B *big.Int
	G EllipticPoint // base point
	N *big.Int      // order of G
	H *big.Int      // cofactor

	Size     int // field width in bytes
	PackSize int // bytes of the shared x-coordinate fed into the MD5 digest
}

// EllipticPoint is an affine point. The zero value is the point at infinity.
type EllipticPoint struct {
	X *big.Int
	Y *big.Int
}

// IsInfinity reports whether p is the point at infinity
func (p EllipticPoint) IsInfinity() bool {
	return (p.X == nil || p.X.Sign() == 0) && (p.Y == nil || p.Y.Sign() == 0)
}

// Named curves
var (
	Secp192K1 = &EllipticCurve{
		Name:     "secp192k1",
		P:        hexInt("FFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFEFFFFEE37"),
		A:        big.NewInt(0),
		B:        big.NewInt(3),
		G:        EllipticPoint{X: hexInt("DB4FF10EC057E9AE26B07D0280B7F4341DA5D1B1EAE06C7D"), Y: hexInt("9B2F2F6D9C5628A7844163D015BE86344082AA88D95E2F9D")},
		N:        hexInt("FFFFFFFFFFFFFFFFFFFFFFFE26F2FC170F69466A74DEFD8D"),
		H:        big.NewInt(1),
		Size:     24,
		PackSize: 24,
	}

	Prime256V1 = &EllipticCurve{
		Name:     "prime256v1",
		P:        hexInt("FFFFFFFF00000001000000000000000000000000FFFFFFFFFFFFFFFFFFFFFFFF"),
		A:        hexInt("FFFFFFFF00000001000000000000000000000000FFFFFFFFFFFFFFFFFFFFFFFC"),
		B:        hexInt("5AC635D8AA3A93E7B3EBBD55769886BC651D06B0CC53B0F63BCE3C3E27D2604B"),
		G:        EllipticPoint{X: hexInt("6B17D1F2E12C4247F8BCE6E563A440F277037D812DEB33A0F4A13945D898C296"), Y: hexInt("4FE342E2FE1A7F9B8EE7EB4A7C0F9E162BCE33576B315ECECBB6406837BF51F5")},
		N:        hexInt("FFFFFFFF00000000FFFFFFFFFFFFFFFFBCE6FAADA7179E84F3B9CAC2FC632551"),
		H:        big.NewInt(1),
		Size:     32,
		PackSize: 16,
	}

	Secp224R1 = &EllipticCurve{
		Name:     "secp224r1",
		P:        hexInt("FFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFF000000000000000000000001"),
		A:        hexInt("FFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFEFFFFFFFFFFFFFFFFFFFFFFFE"),
		B:        hexInt("B4050A850C04B3ABF54132565044B0B7D7BFD8BA270B39432355FFB4"),
		G:        EllipticPoint{X: hexInt("B70E0CBD6BB4BF7F321390B94A03C1D356C21122343280D6115C1D21"), Y: hexInt("BD376388B5F723FB4C22DFE6CD4375A05A07476444D5819985007E34")},
		N:        hexInt("FFFFFFFFFFFFFFFFFFFFFFFFFFFF16A2E0B8F03E13DD29455C5C2A3D"),
		H:        big.NewInt(1),
		Size:     28,
		PackSize: 16,
	}
)

// Curves lists every supported curve
var Curves = []*EllipticCurve{Secp192K1, Prime256V1, Secp224R1}

// CurveByName looks up a named curve
func CurveByName(name string) (*EllipticCurve, bool) {
	for _, c := range Curves {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// IsOnCurve reports whether p satisfies y² ≡ x³ + a·x + b (mod P).
// The point at infinity is not considered on the curve.
func (c *EllipticCurve) IsOnCurve(p EllipticPoint) bool {
	if p.IsInfinity() || p.X == nil || p.Y == nil {
		return false
	}
	if p.X.Sign() < 0 || p.Y.Sign() < 0 || p.X.Cmp(c.P) >= 0 || p.Y.Cmp(c.P) >= 0 {
		return false
	}

	y2 := new(big.Int).Mul(p.Y, p.Y)
	y2.Mod(y2, c.P)

	return c.polynomial(p.X).Cmp(y2) == 0
}

// polynomial returns x³ + a·x + b mod P
func (c *EllipticCurve) polynomial(x *big.Int) *big.Int {
	r := new(big.Int).Mul(x, x)
	r.Add(r, c.A)
	r.Mul(r, x)
	r.Add(r, c.B)
	return r.Mod(r, c.P)
}

func hexInt(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 16)
	if !ok {
		panic("crypto: bad curve constant " + s)
	}
	return v
}
