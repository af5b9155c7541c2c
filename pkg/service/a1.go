package service

import (
	"encoding/binary"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/ZentaChain/ntlink/pkg/crypto"
)

const (
	tgtgtVersion = 4
	a1SsoAppID   = 8001
)

// ClientA1 builds the TEA-sealed TGTGT blob proving the password, keyed by
// MD5(MD5(password) ‖ 0 ‖ uin)
func ClientA1(env *Env, password string) ([]byte, error) {
	ks := env.Keystore
	uin := ks.Uin()
	md5 := crypto.MD5([]byte(password))

	keyInput := make([]byte, 0, 24)
	keyInput = append(keyInput, md5...)
	keyInput = binary.BigEndian.AppendUint32(keyInput, 0)
	keyInput = binary.BigEndian.AppendUint32(keyInput, uint32(uin))
	key := crypto.MD5(keyInput)

	uinStr := strconv.FormatInt(uin, 10)
	b := make([]byte, 0, 100)
	b = binary.BigEndian.AppendUint16(b, tgtgtVersion)
	b = binary.BigEndian.AppendUint32(b, rand.Uint32())
	b = binary.BigEndian.AppendUint32(b, 0) // sso version
	b = binary.BigEndian.AppendUint32(b, env.App.AppID)
	b = binary.BigEndian.AppendUint32(b, a1SsoAppID)
	b = binary.BigEndian.AppendUint64(b, uint64(uin))
	b = binary.BigEndian.AppendUint32(b, uint32(time.Now().Unix()))
	b = binary.BigEndian.AppendUint32(b, 0) // ip
	b = append(b, 1)
	b = append(b, md5...)
	b = append(b, ks.TgtgtKey()...)
	b = binary.BigEndian.AppendUint32(b, 0)
	b = append(b, 1) // guid available
	b = append(b, ks.Guid()...)
	b = binary.BigEndian.AppendUint32(b, 1)
	b = binary.BigEndian.AppendUint32(b, 1)
	b = binary.BigEndian.AppendUint16(b, uint16(len(uinStr)))
	b = append(b, uinStr...)

	return crypto.TeaEncrypt(b, key)
}
