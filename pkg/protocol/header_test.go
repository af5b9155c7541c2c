package protocol

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"
)

func TestReadFrame(t *testing.T) {
	frame := []byte{0, 0, 0, 7, 'a', 'b', 'c'}
	next := []byte{0, 0, 0, 4}

	r := bytes.NewReader(append(append([]byte{}, frame...), next...))

	got, err := ReadFrame(r)
	if err != nil {
		t.Fatalf("ReadFrame() error = %v", err)
	}
	if !bytes.Equal(got, frame) {
		t.Errorf("ReadFrame() = %x, want %x", got, frame)
	}

	got, err = ReadFrame(r)
	if err != nil {
		t.Fatalf("ReadFrame() second error = %v", err)
	}
	if len(got) != 4 {
		t.Errorf("ReadFrame() empty frame length = %d, want 4", len(got))
	}

	if _, err := ReadFrame(r); err != io.EOF {
		t.Errorf("ReadFrame() at end error = %v, want EOF", err)
	}
}

func TestReadFrameInvalidLength(t *testing.T) {
	tests := []struct {
		name    string
		length  uint32
		wantErr error
	}{
		{"shorter than prefix", 3, ErrInvalidFrame},
		{"too large", MaxFrameSize + 1, ErrFrameTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := binary.BigEndian.AppendUint32(nil, tt.length)
			_, err := ReadFrame(bytes.NewReader(buf))

			var perr *ProtocolError
			if !errors.As(err, &perr) {
				t.Fatalf("ReadFrame() error = %v, want *ProtocolError", err)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ReadFrame() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestReadFrameTruncated(t *testing.T) {
	buf := []byte{0, 0, 0, 10, 1, 2}
	if _, err := ReadFrame(bytes.NewReader(buf)); err != io.ErrUnexpectedEOF {
		t.Errorf("ReadFrame() error = %v, want ErrUnexpectedEOF", err)
	}
}

func TestFrameWriterReader(t *testing.T) {
	w := frameWriter{}
	w.u8(0xAB)
	w.u32(0xDEADBEEF)
	w.lv32([]byte("command"))
	w.lv16([]byte("1.0"))
	w.lv32(nil)
	w.raw([]byte{9, 9})

	r := frameReader{buf: w.buf}
	if got := r.u8(); got != 0xAB {
		t.Errorf("u8() = %x, want AB", got)
	}
	if got := r.u32(); got != 0xDEADBEEF {
		t.Errorf("u32() = %x, want DEADBEEF", got)
	}
	if got := string(r.lv32()); got != "command" {
		t.Errorf("lv32() = %q, want command", got)
	}
	if got := string(r.lv16()); got != "1.0" {
		t.Errorf("lv16() = %q, want 1.0", got)
	}
	if got := r.lv32(); len(got) != 0 {
		t.Errorf("lv32() empty = %x", got)
	}
	if got := r.rest(); !bytes.Equal(got, []byte{9, 9}) {
		t.Errorf("rest() = %x", got)
	}
	if r.err != nil {
		t.Errorf("reader error = %v", r.err)
	}
}

func TestFrameReaderSticky(t *testing.T) {
	r := frameReader{buf: []byte{0, 0, 0, 2}} // length below prefix size

	if got := r.lv32(); got != nil {
		t.Errorf("lv32() = %x, want nil", got)
	}
	if r.err != ErrInvalidFrame {
		t.Fatalf("err = %v, want ErrInvalidFrame", r.err)
	}
	if r.u8() != 0 || r.rest() != nil {
		t.Error("reads after failure should return zero values")
	}
}
