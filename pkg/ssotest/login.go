package ssotest

import (
	"bytes"
	"encoding/binary"
	"errors"
	"sync"
	"time"

	"github.com/ZentaChain/ntlink/pkg/crypto"
	"github.com/ZentaChain/ntlink/pkg/protocol"
	"github.com/ZentaChain/ntlink/pkg/wire"
)

// LoginGateway plays the server side of the session key exchange and the
// sealed login envelope
type LoginGateway struct {
	SessionKey    []byte
	SessionTicket []byte

	// SessionLifetime sets the advertised expiry; zero sends none
	SessionLifetime time.Duration

	mu  sync.Mutex
	key *crypto.EcdhSession
	uin string
}

// LoginRequest is an opened login envelope
type LoginRequest struct {
	Android bool
	Ticket  []byte
	Head    *wire.NTLoginHead
	Body    []byte
	Ext     *wire.NTLoginAndroidExt
}

func NewLoginGateway() (*LoginGateway, error) {
	key, err := crypto.GenerateKeyPair(crypto.Prime256V1)
	if err != nil {
		return nil, err
	}
	sessionKey, err := crypto.GenerateNonce(32)
	if err != nil {
		return nil, err
	}
	return &LoginGateway{
		SessionKey:      sessionKey,
		SessionTicket:   []byte("session-ticket"),
		SessionLifetime: 24 * time.Hour,
		key:             key,
	}, nil
}

// PublicKey is the static key clients seal the exchange against
func (g *LoginGateway) PublicKey() []byte {
	return g.key.PackPublic(false)
}

// Uin returns the account carried in the last key exchange
func (g *LoginGateway) Uin() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.uin
}

// HandleKeyExchange answers the key exchange command
func (g *LoginGateway) HandleKeyExchange(req *protocol.Request) *Reply {
	data, err := g.keyExchange(req.Packet.Data())
	if err != nil {
		return &Reply{RetCode: -1, Extra: err.Error()}
	}
	return &Reply{Data: data}
}

func (g *LoginGateway) keyExchange(body []byte) ([]byte, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	req, err := wire.Deserialize[wire.KeyExchangeRequest](body)
	if err != nil {
		return nil, err
	}

	shared, err := g.key.ComputeSharedSecret(req.PublicKey, false)
	if err != nil {
		return nil, err
	}
	gcmKey := crypto.SHA256(shared)

	plain, err := crypto.AESDecryptGCM(req.Sealed, gcmKey)
	if err != nil {
		return nil, err
	}
	who, err := wire.Deserialize[wire.KeyExchangePlain](plain)
	if err != nil {
		return nil, err
	}

	digest, err := crypto.AESDecryptGCM(req.Digest, gcmKey)
	if err != nil {
		return nil, err
	}
	expected := make([]byte, 0, len(req.PublicKey)+len(req.Sealed)+8)
	expected = append(expected, req.PublicKey...)
	expected = binary.BigEndian.AppendUint32(expected, req.Type)
	expected = append(expected, req.Sealed...)
	expected = binary.BigEndian.AppendUint32(expected, req.Timestamp)
	if !bytes.Equal(digest, crypto.SHA256(expected)) {
		return nil, errors.New("digest mismatch")
	}
	g.uin = who.Uin

	ephemeral, err := crypto.GenerateKeyPair(crypto.Prime256V1)
	if err != nil {
		return nil, err
	}
	shared, err = ephemeral.ComputeSharedSecret(req.PublicKey, false)
	if err != nil {
		return nil, err
	}
	var expiry uint32
	if g.SessionLifetime > 0 {
		expiry = uint32(time.Now().Add(g.SessionLifetime).Unix())
	}
	sealed, err := crypto.AESEncryptGCM(wire.Serialize(&wire.KeyExchangeResult{
		SessionKey:    g.SessionKey,
		SessionTicket: g.SessionTicket,
		Expiry:        expiry,
	}), crypto.SHA256(shared))
	if err != nil {
		return nil, err
	}

	return wire.Serialize(&wire.KeyExchangeResponse{
		Sealed:     sealed,
		PublicKey:  ephemeral.PackPublic(false),
		ServerTime: uint32(time.Now().Unix()),
	}), nil
}

// OpenLogin unseals a login request of either platform family
func (g *LoginGateway) OpenLogin(data []byte) (*LoginRequest, error) {
	forward, err := wire.Deserialize[wire.NTLoginForward](data)
	if err != nil {
		return nil, err
	}

	out := &LoginRequest{Ticket: forward.SessionTicket}
	switch {
	case len(forward.SecBuffer) > 0:
		out.Android = true
		plain, err := crypto.AESDecryptGCM(forward.SecBuffer, g.SessionKey)
		if err != nil {
			return nil, err
		}
		android, err := wire.Deserialize[wire.NTLoginAndroidCommon](plain)
		if err != nil {
			return nil, err
		}
		if android.Common == nil {
			return nil, errors.New("android envelope without common")
		}
		out.Head, out.Body, out.Ext = android.Common.Head, android.Common.Body, android.Ext
	case len(forward.Buffer) > 0:
		plain, err := crypto.AESDecryptGCM(forward.Buffer, g.SessionKey)
		if err != nil {
			return nil, err
		}
		common, err := wire.Deserialize[wire.NTLoginCommon](plain)
		if err != nil {
			return nil, err
		}
		out.Head, out.Body = common.Head, common.Body
	default:
		return nil, errors.New("login envelope carries no buffer")
	}
	return out, nil
}

// SealLogin builds a login response in the envelope of the given family
func (g *LoginGateway) SealLogin(android bool, head *wire.NTLoginHead, body wire.Message) ([]byte, error) {
	common := &wire.NTLoginCommon{Head: head, Body: wire.Serialize(body)}

	if android {
		sealed, err := crypto.AESEncryptGCM(wire.Serialize(&wire.NTLoginAndroidCommon{Common: common}), g.SessionKey)
		if err != nil {
			return nil, err
		}
		return wire.Serialize(&wire.NTLoginForward{SessionTicket: g.SessionTicket, SecBuffer: sealed}), nil
	}

	sealed, err := crypto.AESEncryptGCM(wire.Serialize(common), g.SessionKey)
	if err != nil {
		return nil, err
	}
	return wire.Serialize(&wire.NTLoginForward{SessionTicket: g.SessionTicket, Buffer: sealed}), nil
}

// LoginHandler answers a login command: respond gets the opened request
// and returns the error info (nil for success) and the response body
func (g *LoginGateway) LoginHandler(respond func(*LoginRequest) (*wire.NTLoginErrorInfo, wire.Message)) HandlerFunc {
	return func(req *protocol.Request) *Reply {
		login, err := g.OpenLogin(req.Packet.Data())
		if err != nil {
			return &Reply{RetCode: -1, Extra: err.Error()}
		}
		info, body := respond(login)
		data, err := g.SealLogin(login.Android, &wire.NTLoginHead{ErrorInfo: info, Cookie: &wire.NTLoginCookie{Content: "server-cookie"}}, body)
		if err != nil {
			return &Reply{RetCode: -1, Extra: err.Error()}
		}
		return &Reply{Data: data}
	}
}
