package protocol

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"log"
	"strconv"

	"go.opentelemetry.io/otel/trace"

	"github.com/ZentaChain/ntlink/pkg/crypto"
	"github.com/ZentaChain/ntlink/pkg/wire"
)

// ssoHeadFlags sits between the locale and the ticket in every request head
var ssoHeadFlags = [12]byte{0x02}

// Credentials is the key material the codec reads on every packet
type Credentials interface {
	Uin() int64
	Uid() string
	GuidHex() string
	A2() []byte
	D2() []byte
	D2Key() []byte
}

// Signer produces the signature bundle for whitelisted commands
type Signer interface {
	IsWhitelisted(command string) bool
	Sign(ctx context.Context, uin int64, command string, sequence uint32, body []byte) (*wire.SecInfo, error)
}

// Codec frames and encrypts outbound packets and parses inbound ones.
// Encoding and decoding are pure apart from reading credentials, so one
// Codec may be shared by concurrent senders and the receive loop.
type Codec struct {
	app    *AppInfo
	creds  Credentials
	signer Signer
}

// NewCodec creates a codec. signer may be nil.
func NewCodec(app *AppInfo, creds Credentials, signer Signer) *Codec {
	return &Codec{app: app, creds: creds, signer: signer}
}

// AppInfo returns the client profile the codec writes into heads
func (c *Codec) AppInfo() *AppInfo {
	return c.app
}

// Encode builds the complete length-prefixed service frame for pkt.
// A failed signature is logged and the packet goes out unsigned.
func (c *Codec) Encode(ctx context.Context, pkt *SsoPacket, req RequestType, enc EncryptType) ([]byte, error) {
	key, err := c.key(enc, "encode")
	if err != nil {
		return nil, err
	}

	uin := c.creds.Uin()
	reserve := &wire.ReserveFields{
		TraceParent: traceParent(ctx),
		Uid:         c.creds.Uid(),
	}

	if c.signer != nil && c.signer.IsWhitelisted(pkt.Command()) {
		sec, err := c.signer.Sign(ctx, uin, pkt.Command(), pkt.Sequence(), pkt.Data())
		if err != nil {
			log.Printf("⚠️  [codec] sign failed for %s seq=%d, sending unsigned: %v", pkt.Command(), pkt.Sequence(), err)
		} else if sec != nil {
			reserve.SecInfo = sec
		}
	}

	sso := c.buildSsoFrame(pkt, reserve)
	if key != nil {
		if sso, err = crypto.TeaEncrypt(sso, key); err != nil {
			return nil, &ProtocolError{Op: "encode", Reason: "sealing sso frame", Err: err}
		}
	}

	w := frameWriter{buf: make([]byte, 0, len(sso)+64)}
	w.u32(0) // patched below
	w.u32(uint32(req))
	w.u8(uint8(enc))
	switch req {
	case RequestD2Auth:
		w.lv32(c.creds.D2())
	case RequestSimple:
		w.u32(pkt.Sequence())
	default:
		return nil, &ProtocolError{Op: "encode", Reason: fmt.Sprintf("unknown request type %#x", uint32(req)), Err: ErrInvalidFrame}
	}
	w.u8(0)
	w.lv32([]byte(strconv.FormatInt(uin, 10)))
	w.raw(sso)

	binary.BigEndian.PutUint32(w.buf, uint32(len(w.buf)))
	return w.buf, nil
}

func (c *Codec) buildSsoFrame(pkt *SsoPacket, reserve *wire.ReserveFields) []byte {
	head := frameWriter{}
	head.u32(pkt.Sequence())
	head.u32(c.app.SubAppID)
	head.u32(LocaleID)
	head.raw(ssoHeadFlags[:])
	head.lv32(c.creds.A2())
	head.lv32([]byte(pkt.Command()))
	head.lv32(nil) // message cookie
	head.lv32([]byte(c.creds.GuidHex()))
	head.lv32(nil)
	head.lv16([]byte(c.app.CurrentVersion))
	head.lv32(wire.Serialize(reserve))

	sso := frameWriter{buf: make([]byte, 0, len(head.buf)+len(pkt.Data())+8)}
	sso.lv32(head.buf)
	sso.lv32(pkt.Data())
	return sso.buf
}

// Decode parses one inbound service frame as returned by ReadFrame
func (c *Codec) Decode(frame []byte) (*SsoPacket, error) {
	r := frameReader{buf: frame}
	length := r.u32()
	r.u32() // protocol
	enc := EncryptType(r.u8())
	r.u8()
	r.lv32() // uin
	body := r.rest()
	if r.err != nil {
		return nil, &ProtocolError{Op: "decode", Reason: "truncated service frame", Err: r.err}
	}
	if int(length) != len(frame) {
		return nil, &ProtocolError{Op: "decode", Reason: "length prefix disagrees with frame", Err: ErrInvalidFrame}
	}

	key, err := c.key(enc, "decode")
	if err != nil {
		return nil, err
	}
	if key != nil {
		if body, err = crypto.TeaDecrypt(body, key); err != nil {
			return nil, &ProtocolError{Op: "decode", Reason: "opening sso frame", Err: err}
		}
	}

	return parseSsoResponse(body)
}

func parseSsoResponse(data []byte) (*SsoPacket, error) {
	r := frameReader{buf: data}
	head := r.lv32()
	body := r.lv32()
	if r.err != nil {
		return nil, &ProtocolError{Op: "decode", Reason: "truncated sso frame", Err: r.err}
	}

	h := frameReader{buf: head}
	seq := h.u32()
	ret := int32(h.u32())
	extra := string(h.lv32())
	command := string(h.lv32())
	h.lv32() // message cookie
	flag := h.u32()
	h.lv32() // reserve fields
	if h.err != nil {
		return nil, &ProtocolError{Op: "decode", Reason: "truncated sso head", Err: h.err}
	}

	switch flag {
	case CompressZlib:
		inflated, err := Decompress(body)
		if err != nil {
			return nil, &ProtocolError{Op: "decode", Reason: "inflating body", Err: err}
		}
		body = inflated
	case CompressNone, CompressNoneWith:
	default:
		return nil, &ProtocolError{Op: "decode", Reason: fmt.Sprintf("unknown compression flag %d", flag), Err: ErrInvalidFrame}
	}

	return NewResponsePacket(command, seq, ret, extra, body), nil
}

func (c *Codec) key(enc EncryptType, op string) ([]byte, error) {
	switch enc {
	case EncryptNone:
		return nil, nil
	case EncryptEmpty:
		return crypto.EmptyTeaKey, nil
	case EncryptD2Key:
		key := c.creds.D2Key()
		if len(key) != crypto.TeaKeySize {
			return nil, &ProtocolError{Op: op, Reason: "D2 key is not available", Err: ErrMissingSessionKey}
		}
		return key, nil
	default:
		return nil, &ProtocolError{Op: op, Reason: fmt.Sprintf("unknown encrypt type %#x", uint8(enc)), Err: ErrInvalidFrame}
	}
}

// traceParent renders the W3C trace context of ctx, or a fresh random one
func traceParent(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if sc.IsValid() {
		return fmt.Sprintf("00-%s-%s-01", sc.TraceID(), sc.SpanID())
	}

	var id [24]byte
	if _, err := rand.Read(id[:]); err != nil {
		return ""
	}
	return fmt.Sprintf("00-%s-%s-01", hex.EncodeToString(id[:16]), hex.EncodeToString(id[16:]))
}
