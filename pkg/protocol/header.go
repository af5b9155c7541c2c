package protocol

import (
	"encoding/binary"
	"io"
)

// frameWriter appends big-endian fields. Length-prefixed values count the
// prefix itself, as the servers expect.
type frameWriter struct {
	buf []byte
}

func (w *frameWriter) u8(v uint8) {
	w.buf = append(w.buf, v)
}

func (w *frameWriter) u32(v uint32) {
	w.buf = binary.BigEndian.AppendUint32(w.buf, v)
}

func (w *frameWriter) raw(b []byte) {
	w.buf = append(w.buf, b...)
}

func (w *frameWriter) lv32(b []byte) {
	w.u32(uint32(len(b) + 4))
	w.raw(b)
}

func (w *frameWriter) lv16(b []byte) {
	w.buf = binary.BigEndian.AppendUint16(w.buf, uint16(len(b)+2))
	w.raw(b)
}

// frameReader consumes fields; the first failure sticks in err
type frameReader struct {
	buf []byte
	off int
	err error
}

func (r *frameReader) need(n int) bool {
	if r.err != nil {
		return false
	}
	if n < 0 || r.off+n > len(r.buf) {
		r.err = ErrInvalidFrame
		return false
	}
	return true
}

func (r *frameReader) u8() uint8 {
	if !r.need(1) {
		return 0
	}
	v := r.buf[r.off]
	r.off++
	return v
}

func (r *frameReader) u16() uint16 {
	if !r.need(2) {
		return 0
	}
	v := binary.BigEndian.Uint16(r.buf[r.off:])
	r.off += 2
	return v
}

func (r *frameReader) u32() uint32 {
	if !r.need(4) {
		return 0
	}
	v := binary.BigEndian.Uint32(r.buf[r.off:])
	r.off += 4
	return v
}

func (r *frameReader) bytes(n int) []byte {
	if !r.need(n) {
		return nil
	}
	v := r.buf[r.off : r.off+n]
	r.off += n
	return v
}

func (r *frameReader) lv32() []byte {
	n := int(r.u32()) - 4
	return r.bytes(n)
}

func (r *frameReader) lv16() []byte {
	n := int(r.u16()) - 2
	return r.bytes(n)
}

func (r *frameReader) rest() []byte {
	if r.err != nil {
		return nil
	}
	v := r.buf[r.off:]
	r.off = len(r.buf)
	return v
}

// ReadFrame reads one length-prefixed frame. The returned slice includes the
// 4-byte length.
func ReadFrame(r io.Reader) ([]byte, error) {
	var head [4]byte
	if _, err := io.ReadFull(r, head[:]); err != nil {
		return nil, err
	}

	length := binary.BigEndian.Uint32(head[:])
	if length < 4 {
		return nil, &ProtocolError{Op: "read frame", Reason: "length shorter than prefix", Err: ErrInvalidFrame}
	}
	if length > MaxFrameSize {
		return nil, &ProtocolError{Op: "read frame", Reason: "length exceeds limit", Err: ErrFrameTooLarge}
	}

	frame := make([]byte, length)
	copy(frame, head[:])
	if _, err := io.ReadFull(r, frame[4:]); err != nil {
		return nil, err
	}
	return frame, nil
}

// WriteFrame writes a frame produced by the codec
func WriteFrame(w io.Writer, frame []byte) error {
	_, err := w.Write(frame)
	return err
}
