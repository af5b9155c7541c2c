package crypto

import (
	"crypto/md5"
	"crypto/rand"
	"math/big"
)

// EcdhSession is one side of an elliptic-curve Diffie-Hellman exchange.
// The public point is always derived from the secret scalar, so importing
// the same secret twice yields the same public key.
//
// Arithmetic is variable-time.
type EcdhSession struct {
	curve  *EllipticCurve
	secret *big.Int
	public EllipticPoint
}

// jacobianPoint is (X, Y, Z) with x = X/Z², y = Y/Z³. Z == 0 is infinity.
type jacobianPoint struct {
	x, y, z *big.Int
}

func jacobianInfinity() jacobianPoint {
	return jacobianPoint{x: big.NewInt(0), y: big.NewInt(1), z: big.NewInt(0)}
}

func (p jacobianPoint) isInfinity() bool {
	return p.z.Sign() == 0
}

func jacobianFromAffine(p EllipticPoint) jacobianPoint {
	if p.IsInfinity() {
		return jacobianInfinity()
	}
	return jacobianPoint{x: new(big.Int).Set(p.X), y: new(big.Int).Set(p.Y), z: big.NewInt(1)}
}

// GenerateKeyPair creates a session with a random secret in [1, N)
func GenerateKeyPair(curve *EllipticCurve) (*EcdhSession, error) {
	buf := make([]byte, curve.Size)
	var secret *big.Int
	for {
		if _, err := rand.Read(buf); err != nil {
			return nil, cryptoErr("generate", "random source failed", err)
		}
		secret = new(big.Int).SetBytes(buf)
		if secret.Sign() > 0 && secret.Cmp(curve.N) < 0 {
			break
		}
	}

	return newSession(curve, secret)
}

// ImportSecret rebuilds a session from a secret produced by PackSecret
func ImportSecret(curve *EllipticCurve, packed []byte) (*EcdhSession, error) {
	secret, err := UnpackSecret(packed)
	if err != nil {
		return nil, err
	}
	return newSession(curve, secret)
}

// ImportScalar rebuilds a session from a raw big-endian scalar
func ImportScalar(curve *EllipticCurve, scalar []byte) (*EcdhSession, error) {
	return newSession(curve, new(big.Int).SetBytes(scalar))
}

func newSession(curve *EllipticCurve, secret *big.Int) (*EcdhSession, error) {
	if new(big.Int).Mod(secret, curve.N).Sign() == 0 {
		return nil, cryptoErr("import", "secret is zero modulo the curve order", ErrInvalidKey)
	}

	s := &EcdhSession{curve: curve, secret: new(big.Int).Set(secret)}
	s.public = curve.scalarMult(s.secret, curve.G)
	return s, nil
}

// Curve returns the curve the session was created on
func (s *EcdhSession) Curve() *EllipticCurve {
	return s.curve
}

// Public returns a copy of the public point
func (s *EcdhSession) Public() EllipticPoint {
	return EllipticPoint{X: new(big.Int).Set(s.public.X), Y: new(big.Int).Set(s.public.Y)}
}

// PackPublic encodes the public key in SEC1 form: 0x02/0x03‖X when
// compressed, 0x04‖X‖Y otherwise.
func (s *EcdhSession) PackPublic(compressed bool) []byte {
	size := s.curve.Size
	if compressed {
		out := make([]byte, size+1)
		out[0] = 0x02 | byte(s.public.Y.Bit(0))
		s.public.X.FillBytes(out[1:])
		return out
	}

	out := make([]byte, 2*size+1)
	out[0] = 0x04
	s.public.X.FillBytes(out[1 : size+1])
	s.public.Y.FillBytes(out[size+1:])
	return out
}

// PackSecret encodes the scalar as a 4-byte header whose last byte is the
// scalar length, followed by the big-endian scalar.
func (s *EcdhSession) PackSecret() []byte {
	raw := s.secret.Bytes()
	out := make([]byte, 4+len(raw))
	out[3] = byte(len(raw))
	copy(out[4:], raw)
	return out
}

// UnpackSecret decodes a secret produced by PackSecret
func UnpackSecret(packed []byte) (*big.Int, error) {
	if len(packed) < 4 {
		return nil, cryptoErr("unpack secret", "buffer shorter than header", ErrInvalidKey)
	}
	length := len(packed) - 4
	if length != int(packed[3]) {
		return nil, cryptoErr("unpack secret", "declared length does not match buffer", ErrInvalidKey)
	}
	return new(big.Int).SetBytes(packed[4:]), nil
}

// ComputeSharedSecret multiplies the peer public key by the local secret.
// The result is the fixed-width x-coordinate, or, when hash is set, the MD5
// of its first PackSize bytes.
func (s *EcdhSession) ComputeSharedSecret(peerPublic []byte, hash bool) ([]byte, error) {
	peer, err := s.curve.UnpackPublic(peerPublic)
	if err != nil {
		return nil, err
	}

	point := s.curve.scalarMult(s.secret, peer)
	if point.IsInfinity() {
		return nil, cryptoErr("key exchange", "shared point is at infinity", ErrInvalidKey)
	}

	x := make([]byte, s.curve.Size)
	point.X.FillBytes(x)

	out := x
	if hash {
		sum := md5.Sum(x[:s.curve.PackSize])
		out = sum[:]
	}

	return out, nil
}

// UnpackPublic decodes a SEC1 public key and checks curve membership
func (c *EllipticCurve) UnpackPublic(data []byte) (EllipticPoint, error) {
	var p EllipticPoint

	switch len(data) {
	case 2*c.Size + 1:
		if data[0] != 0x04 {
			return p, cryptoErr("unpack public", "bad uncompressed prefix", ErrInvalidKey)
		}
		p.X = new(big.Int).SetBytes(data[1 : c.Size+1])
		p.Y = new(big.Int).SetBytes(data[c.Size+1:])

	case c.Size + 1:
		if data[0] != 0x02 && data[0] != 0x03 {
			return p, cryptoErr("unpack public", "bad compressed prefix", ErrInvalidKey)
		}
		p.X = new(big.Int).SetBytes(data[1:])
		if p.X.Cmp(c.P) >= 0 {
			return p, cryptoErr("unpack public", "x-coordinate out of range", ErrInvalidKey)
		}
		y, ok := c.sqrt(c.polynomial(p.X))
		if !ok {
			return p, cryptoErr("unpack public", "point is not on the curve", ErrInvalidKey)
		}
		if byte(y.Bit(0)) != data[0]&1 {
			y.Sub(c.P, y)
		}
		p.Y = y

	default:
		return p, cryptoErr("unpack public", "length matches neither compressed nor uncompressed form", ErrInvalidKey)
	}

	if !c.IsOnCurve(p) {
		return p, cryptoErr("unpack public", "point is not on the curve", ErrInvalidKey)
	}
	return p, nil
}

// sqrt returns a square root of v mod P. Primes ≡ 3 (mod 4) use
// v^((P+1)/4); other primes fall back to Tonelli-Shanks.
func (c *EllipticCurve) sqrt(v *big.Int) (*big.Int, bool) {
	if c.P.Bit(0) == 1 && c.P.Bit(1) == 1 {
		exp := new(big.Int).Add(c.P, big.NewInt(1))
		exp.Rsh(exp, 2)
		y := new(big.Int).Exp(v, exp, c.P)

		check := new(big.Int).Mul(y, y)
		check.Mod(check, c.P)
		if check.Cmp(new(big.Int).Mod(v, c.P)) != 0 {
			return nil, false
		}
		return y, true
	}

	y := new(big.Int).ModSqrt(v, c.P)
	if y == nil {
		return nil, false
	}
	return y, true
}

// scalarMult computes k·p by right-to-left double-and-add in Jacobian
// coordinates.
func (c *EllipticCurve) scalarMult(k *big.Int, p EllipticPoint) EllipticPoint {
	if k.Sign() < 0 {
		return c.scalarMult(new(big.Int).Neg(k), p)
	}
	if new(big.Int).Mod(k, c.N).Sign() == 0 || p.IsInfinity() {
		return EllipticPoint{}
	}

	result := jacobianInfinity()
	addend := jacobianFromAffine(p)

	for i := 0; i < k.BitLen(); i++ {
		if k.Bit(i) == 1 {
			result = c.jacobianAdd(result, addend)
		}
		addend = c.jacobianDouble(addend)
	}

	return c.jacobianToAffine(result)
}

func (c *EllipticCurve) jacobianDouble(p jacobianPoint) jacobianPoint {
	if p.isInfinity() {
		return p
	}
	m := c.P

	yy := mod(new(big.Int).Mul(p.y, p.y), m)

	// S = 4·X·Y²
	s := new(big.Int).Mul(p.x, yy)
	s.Lsh(s, 2)
	mod(s, m)

	// M = 3·X² + a·Z⁴
	z2 := new(big.Int).Mul(p.z, p.z)
	z4 := mod(z2.Mul(z2, z2), m)
	mm := new(big.Int).Mul(p.x, p.x)
	mm.Mul(mm, big.NewInt(3))
	mm.Add(mm, new(big.Int).Mul(c.A, z4))
	mod(mm, m)

	// X3 = M² - 2·S
	x3 := new(big.Int).Mul(mm, mm)
	x3.Sub(x3, new(big.Int).Lsh(s, 1))
	mod(x3, m)

	// Y3 = M·(S - X3) - 8·Y⁴
	y3 := new(big.Int).Sub(s, x3)
	y3.Mul(y3, mm)
	y4 := new(big.Int).Mul(yy, yy)
	y3.Sub(y3, y4.Lsh(y4, 3))
	mod(y3, m)

	// Z3 = 2·Y·Z
	z3 := new(big.Int).Mul(p.y, p.z)
	z3.Lsh(z3, 1)
	mod(z3, m)

	return jacobianPoint{x: x3, y: y3, z: z3}
}

func (c *EllipticCurve) jacobianAdd(p1, p2 jacobianPoint) jacobianPoint {
	if p1.isInfinity() {
		return p2
	}
	if p2.isInfinity() {
		return p1
	}
	m := c.P

	z1z1 := mod(new(big.Int).Mul(p1.z, p1.z), m)
	z2z2 := mod(new(big.Int).Mul(p2.z, p2.z), m)
	u1 := mod(new(big.Int).Mul(p1.x, z2z2), m)
	u2 := mod(new(big.Int).Mul(p2.x, z1z1), m)

	s1 := new(big.Int).Mul(p1.y, p2.z)
	mod(s1.Mul(s1, z2z2), m)
	s2 := new(big.Int).Mul(p2.y, p1.z)
	mod(s2.Mul(s2, z1z1), m)

	if u1.Cmp(u2) == 0 {
		if s1.Cmp(s2) == 0 {
			return c.jacobianDouble(p1)
		}
		return jacobianInfinity()
	}

	h := mod(new(big.Int).Sub(u2, u1), m)
	hh := mod(new(big.Int).Mul(h, h), m)
	hhh := mod(new(big.Int).Mul(h, hh), m)
	r := mod(new(big.Int).Sub(s2, s1), m)
	v := mod(new(big.Int).Mul(u1, hh), m)

	// X3 = r² - H³ - 2·V
	x3 := new(big.Int).Mul(r, r)
	x3.Sub(x3, hhh)
	x3.Sub(x3, new(big.Int).Lsh(v, 1))
	mod(x3, m)

	// Y3 = r·(V - X3) - S1·H³
	y3 := new(big.Int).Sub(v, x3)
	y3.Mul(y3, r)
	y3.Sub(y3, new(big.Int).Mul(s1, hhh))
	mod(y3, m)

	// Z3 = Z1·Z2·H
	z3 := new(big.Int).Mul(p1.z, p2.z)
	z3.Mul(z3, h)
	mod(z3, m)

	return jacobianPoint{x: x3, y: y3, z: z3}
}

func (c *EllipticCurve) jacobianToAffine(p jacobianPoint) EllipticPoint {
	if p.isInfinity() {
		return EllipticPoint{}
	}

	zInv := modInverse(p.z, c.P)
	zInv2 := mod(new(big.Int).Mul(zInv, zInv), c.P)
	zInv3 := mod(new(big.Int).Mul(zInv2, zInv), c.P)

	return EllipticPoint{
		X: mod(new(big.Int).Mul(p.x, zInv2), c.P),
		Y: mod(new(big.Int).Mul(p.y, zInv3), c.P),
	}
}

// modInverse uses the extended Euclidean algorithm. p must be prime and a
// non-zero modulo p.
func modInverse(a, p *big.Int) *big.Int {
	a = mod(new(big.Int).Set(a), p)

	t, newT := big.NewInt(0), big.NewInt(1)
	r, newR := new(big.Int).Set(p), a

	q := new(big.Int)
	tmp := new(big.Int)
	for newR.Sign() != 0 {
		q.Quo(r, newR)

		tmp.Mul(q, newT)
		t, newT = newT, new(big.Int).Sub(t, tmp)

		tmp.Mul(q, newR)
		r, newR = newR, new(big.Int).Sub(r, tmp)
	}

	if t.Sign() < 0 {
		t.Add(t, p)
	}
	return t
}

// mod reduces a into [0, m) in place and returns it
func mod(a, m *big.Int) *big.Int {
	return a.Mod(a, m)
}
