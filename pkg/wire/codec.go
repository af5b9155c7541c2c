// Package wire implements the structured-body codec: protobuf-compatible
// field encoding with a stable numbering per message, written by hand on top
// of protowire so that no generated code or reflection is involved.
package wire

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

var ErrMalformed = errors.New("malformed wire body")

// Message is a body with a fixed field numbering
type Message interface {
	AppendWire(b []byte) []byte
	ReadWire(data []byte) error
}

// Serialize encodes m
func Serialize(m Message) []byte {
	return m.AppendWire(nil)
}

// Deserialize decodes data into a new T
func Deserialize[T any, P interface {
	*T
	Message
}](data []byte) (P, error) {
	p := P(new(T))
	if err := p.ReadWire(data); err != nil {
		return nil, err
	}
	return p, nil
}

// Field is one decoded key/value pair. Varint holds varint and fixed-width
// values, Bytes holds length-delimited ones.
type Field struct {
	Num    protowire.Number
	Type   protowire.Type
	Varint uint64
	Bytes  []byte
}

func (f Field) Uint() uint64   { return f.Varint }
func (f Field) Uint32() uint32 { return uint32(f.Varint) }
func (f Field) Int() int64     { return int64(f.Varint) }
func (f Field) Int32() int32   { return int32(f.Varint) }
func (f Field) Bool() bool     { return protowire.DecodeBool(f.Varint) }
func (f Field) String() string { return string(f.Bytes) }

// Clone returns a copy of the length-delimited value
func (f Field) Clone() []byte {
	if f.Bytes == nil {
		return nil
	}
	return append([]byte{}, f.Bytes...)
}

// Read decodes a length-delimited field into m
func (f Field) Read(m Message) error {
	if f.Type != protowire.BytesType {
		return fmt.Errorf("%w: field %d is not length-delimited", ErrMalformed, f.Num)
	}
	return m.ReadWire(f.Bytes)
}

// Range calls fn for every field in data, in wire order
func Range(data []byte, fn func(Field) error) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
		}
		data = data[n:]

		f := Field{Num: num, Type: typ}
		switch typ {
		case protowire.VarintType:
			f.Varint, n = protowire.ConsumeVarint(data)
		case protowire.Fixed32Type:
			var v uint32
			v, n = protowire.ConsumeFixed32(data)
			f.Varint = uint64(v)
		case protowire.Fixed64Type:
			f.Varint, n = protowire.ConsumeFixed64(data)
		case protowire.BytesType:
			f.Bytes, n = protowire.ConsumeBytes(data)
		default:
			n = protowire.ConsumeFieldValue(num, typ, data)
		}
		if n < 0 {
			return fmt.Errorf("%w: field %d: %v", ErrMalformed, num, protowire.ParseError(n))
		}
		data = data[n:]

		if err := fn(f); err != nil {
			return err
		}
	}
	return nil
}

// Zero values are omitted, matching proto3 encoding.

func appendUint(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendInt(b []byte, num protowire.Number, v int64) []byte {
	return appendUint(b, num, uint64(v))
}

func appendBool(b []byte, num protowire.Number, v bool) []byte {
	return appendUint(b, num, protowire.EncodeBool(v))
}

func appendString(b []byte, num protowire.Number, v string) []byte {
	if v == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}

func appendBytes(b []byte, num protowire.Number, v []byte) []byte {
	if len(v) == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

// appendMessage always writes the field, even for an empty message; callers
// skip nil pointers themselves.
func appendMessage(b []byte, num protowire.Number, m Message) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, m.AppendWire(nil))
}
