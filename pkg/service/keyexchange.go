package service

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"strconv"
	"time"

	"github.com/ZentaChain/ntlink/pkg/crypto"
	"github.com/ZentaChain/ntlink/pkg/keystore"
	"github.com/ZentaChain/ntlink/pkg/protocol"
	"github.com/ZentaChain/ntlink/pkg/wire"
)

const (
	OpKeyExchange Operation = "KeyExchange"

	CmdKeyExchange = "trpc.login.ecdh.EcdhService.SsoKeyExchange"

	keyExchangeType = 1
)

// DefaultServerPublicKey is the uncompressed Prime256V1 key of the login
// gateway
var DefaultServerPublicKey = mustHex("04ab7320d7a2208b902e5e64e957195fb0509a66a58ff5f8bbf1ac3a75beb7137c" +
	"2802548eba42ef1f8021e31f744ac055b2e07264c7f7f7f353e88211699006f1")

var ErrNoEcdhSession = errors.New("key exchange requires an ECDH session")

// KeyExchange establishes the session key that seals login bodies.
// Session is the fresh key pair owned by this attempt.
type KeyExchange struct {
	Session *crypto.EcdhSession
}

func (KeyExchange) Operation() Operation { return OpKeyExchange }

// KeyExchangeDigest is what the digest field authenticates
func KeyExchangeDigest(publicKey, sealed []byte, timestamp uint32) []byte {
	buf := make([]byte, 0, len(publicKey)+len(sealed)+8)
	buf = append(buf, publicKey...)
	buf = binary.BigEndian.AppendUint32(buf, keyExchangeType)
	buf = append(buf, sealed...)
	buf = binary.BigEndian.AppendUint32(buf, timestamp)
	return crypto.SHA256(buf)
}

// KeyExchangeKey derives the AES-GCM key from a raw ECDH secret
func KeyExchangeKey(shared []byte) []byte {
	return crypto.SHA256(shared)
}

func buildKeyExchange(env *Env, req KeyExchange) ([]byte, error) {
	if req.Session == nil {
		return nil, ErrNoEcdhSession
	}

	serverKey := env.ServerPublicKey
	if len(serverKey) == 0 {
		serverKey = DefaultServerPublicKey
	}
	shared, err := req.Session.ComputeSharedSecret(serverKey, false)
	if err != nil {
		return nil, err
	}
	gcmKey := KeyExchangeKey(shared)

	plain := &wire.KeyExchangePlain{
		Uin:  strconv.FormatInt(env.Keystore.Uin(), 10),
		Guid: env.Keystore.Guid(),
	}
	sealed, err := crypto.AESEncryptGCM(wire.Serialize(plain), gcmKey)
	if err != nil {
		return nil, err
	}

	publicKey := req.Session.PackPublic(false)
	timestamp := uint32(time.Now().Unix())
	digest, err := crypto.AESEncryptGCM(KeyExchangeDigest(publicKey, sealed, timestamp), gcmKey)
	if err != nil {
		return nil, err
	}

	return wire.Serialize(&wire.KeyExchangeRequest{
		PublicKey: publicKey,
		Type:      keyExchangeType,
		Sealed:    sealed,
		Timestamp: timestamp,
		Digest:    digest,
	}), nil
}

// parseKeyExchange opens the result with the server's ephemeral key and
// installs it in the keystore
func parseKeyExchange(env *Env, req KeyExchange, data []byte) (*keystore.KeyExchangeSession, error) {
	resp, err := wire.Deserialize[wire.KeyExchangeResponse](data)
	if err != nil {
		return nil, err
	}

	shared, err := req.Session.ComputeSharedSecret(resp.PublicKey, false)
	if err != nil {
		return nil, err
	}
	plain, err := crypto.AESDecryptGCM(resp.Sealed, KeyExchangeKey(shared))
	if err != nil {
		return nil, err
	}
	result, err := wire.Deserialize[wire.KeyExchangeResult](plain)
	if err != nil {
		return nil, err
	}

	session := &keystore.KeyExchangeSession{
		SessionKey:    result.SessionKey,
		SessionTicket: result.SessionTicket,
	}
	// zero means the server set no expiry
	if result.Expiry != 0 {
		session.Expiry = time.Unix(int64(result.Expiry), 0)
	}
	env.Keystore.SetKeyExchange(session, req.Session)
	return session, nil
}

func keyExchangeDescriptor() *Descriptor {
	return Define(CmdKeyExchange, protocol.RequestD2Auth, protocol.EncryptEmpty, protocol.All,
		buildKeyExchange, parseKeyExchange)
}

func mustHex(s string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil {
		panic(err)
	}
	return b
}
