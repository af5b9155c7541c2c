package protocol

import (
	"encoding/binary"
	"fmt"
	"strconv"

	"github.com/ZentaChain/ntlink/pkg/crypto"
	"github.com/ZentaChain/ntlink/pkg/wire"
)

// Request is an outbound frame as seen by the server side
type Request struct {
	Packet   *SsoPacket
	Type     RequestType
	Encrypt  EncryptType
	Uin      int64
	D2       []byte
	A2       []byte
	Guid     string
	SubAppID uint32
	Version  string
	Reserve  *wire.ReserveFields
}

// DecodeRequest parses a frame produced by Codec.Encode. d2Key opens
// EncryptD2Key frames. In-process servers use it to emulate the remote end.
func DecodeRequest(frame []byte, d2Key []byte) (*Request, error) {
	r := frameReader{buf: frame}
	length := r.u32()
	req := &Request{
		Type:    RequestType(r.u32()),
		Encrypt: EncryptType(r.u8()),
	}

	var outerSeq uint32
	switch req.Type {
	case RequestD2Auth:
		req.D2 = r.lv32()
	case RequestSimple:
		outerSeq = r.u32()
	default:
		return nil, &ProtocolError{Op: "decode request", Reason: "unknown request type", Err: ErrInvalidFrame}
	}
	r.u8()
	uin := string(r.lv32())
	body := r.rest()
	if r.err != nil || int(length) != len(frame) {
		return nil, &ProtocolError{Op: "decode request", Reason: "truncated service frame", Err: ErrInvalidFrame}
	}
	if uin != "" {
		var err error
		if req.Uin, err = strconv.ParseInt(uin, 10, 64); err != nil {
			return nil, &ProtocolError{Op: "decode request", Reason: "uin is not numeric", Err: err}
		}
	}

	var err error
	switch req.Encrypt {
	case EncryptNone:
	case EncryptEmpty:
		body, err = crypto.TeaDecrypt(body, crypto.EmptyTeaKey)
	case EncryptD2Key:
		body, err = crypto.TeaDecrypt(body, d2Key)
	default:
		err = ErrInvalidFrame
	}
	if err != nil {
		return nil, &ProtocolError{Op: "decode request", Reason: "opening sso frame", Err: err}
	}

	s := frameReader{buf: body}
	head := s.lv32()
	data := s.lv32()

	h := frameReader{buf: head}
	seq := h.u32()
	req.SubAppID = h.u32()
	h.u32() // locale
	h.bytes(len(ssoHeadFlags))
	req.A2 = h.lv32()
	command := string(h.lv32())
	h.lv32()
	req.Guid = string(h.lv32())
	h.lv32()
	req.Version = string(h.lv16())
	reserve := h.lv32()
	if s.err != nil || h.err != nil {
		return nil, &ProtocolError{Op: "decode request", Reason: "truncated sso frame", Err: ErrInvalidFrame}
	}
	if req.Type == RequestSimple && outerSeq != seq {
		return nil, &ProtocolError{Op: "decode request", Reason: fmt.Sprintf("outer sequence %d disagrees with head %d", outerSeq, seq), Err: ErrInvalidFrame}
	}

	req.Reserve = &wire.ReserveFields{}
	if err := req.Reserve.ReadWire(reserve); err != nil {
		return nil, &ProtocolError{Op: "decode request", Reason: "reserve fields", Err: err}
	}
	req.Packet = NewResponsePacket(command, seq, 0, "", data)
	return req, nil
}

// EncodeResponse frames pkt the way the server does, compressing the body
// when compress is set. key is the TEA key for EncryptD2Key.
func EncodeResponse(pkt *SsoPacket, uin int64, enc EncryptType, key []byte, compress bool) ([]byte, error) {
	body := pkt.Data()
	flag := CompressNone
	if compress {
		var err error
		if body, err = Compress(body); err != nil {
			return nil, err
		}
		flag = CompressZlib
	}

	head := frameWriter{}
	head.u32(pkt.Sequence())
	head.u32(uint32(pkt.RetCode()))
	head.lv32([]byte(pkt.Extra()))
	head.lv32([]byte(pkt.Command()))
	head.lv32(nil)
	head.u32(flag)
	head.lv32(nil)

	sso := frameWriter{}
	sso.lv32(head.buf)
	sso.lv32(body)

	sealed := sso.buf
	var err error
	switch enc {
	case EncryptNone:
	case EncryptEmpty:
		sealed, err = crypto.TeaEncrypt(sso.buf, crypto.EmptyTeaKey)
	case EncryptD2Key:
		sealed, err = crypto.TeaEncrypt(sso.buf, key)
	default:
		err = ErrInvalidFrame
	}
	if err != nil {
		return nil, &ProtocolError{Op: "encode response", Reason: "sealing sso frame", Err: err}
	}

	w := frameWriter{}
	w.u32(0)
	w.u32(uint32(RequestD2Auth))
	w.u8(uint8(enc))
	w.u8(0)
	w.lv32([]byte(strconv.FormatInt(uin, 10)))
	w.raw(sealed)
	binary.BigEndian.PutUint32(w.buf, uint32(len(w.buf)))
	return w.buf, nil
}
