// Package wire defines the byte layouts that cross the boundary: the
// protowire framing shared by the PIR protocol messages and the fixed
// little-endian layout of an OKVS encoding blob.
package wire

import (
	"encoding"
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

var (
	// ErrSerialization is returned when a value cannot be encoded.
	ErrSerialization = errors.New("wire: serialization failed")
	// ErrDeserialization is returned for malformed or truncated bytes.
	ErrDeserialization = errors.New("wire: malformed message")
)

// Marshal encodes v through its own serialization contract.
func Marshal(v encoding.BinaryMarshaler) ([]byte, error) {
	if v == nil {
		return nil, fmt.Errorf("%w: nil value", ErrSerialization)
	}
	data, err := v.MarshalBinary()
	if err != nil {
		if errors.Is(err, ErrSerialization) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	return data, nil
}

// Unmarshal decodes data into v. Empty input is always malformed: every
// protocol message carries at least one field.
func Unmarshal(data []byte, v encoding.BinaryUnmarshaler) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: empty input", ErrDeserialization)
	}
	if err := v.UnmarshalBinary(data); err != nil {
		if errors.Is(err, ErrDeserialization) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrDeserialization, err)
	}
	return nil
}

// Field is one decoded protowire field. Only the member matching Type is set.
type Field struct {
	Num    protowire.Number
	Type   protowire.Type
	Varint uint64
	Fixed  uint64
	Bytes  []byte
}

// AppendUint64 appends a varint field.
func AppendUint64(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

// AppendBool appends a varint field holding 0 or 1.
func AppendBool(b []byte, num protowire.Number, v bool) []byte {
	return AppendUint64(b, num, protowire.EncodeBool(v))
}

// AppendBytes appends a length-delimited field.
func AppendBytes(b []byte, num protowire.Number, v []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

// AppendUint32s appends vs as a packed fixed32 field.
func AppendUint32s(b []byte, num protowire.Number, vs []uint32) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	b = protowire.AppendVarint(b, uint64(4*len(vs)))
	for _, v := range vs {
		b = protowire.AppendFixed32(b, v)
	}
	return b
}

// ReadFields walks every field of b in order and hands it to fn.
func ReadFields(b []byte, fn func(Field) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("%w: %v", ErrDeserialization, protowire.ParseError(n))
		}
		b = b[n:]

		f := Field{Num: num, Type: typ}
		switch typ {
		case protowire.VarintType:
			f.Varint, n = protowire.ConsumeVarint(b)
		case protowire.Fixed32Type:
			var v uint32
			v, n = protowire.ConsumeFixed32(b)
			f.Fixed = uint64(v)
		case protowire.Fixed64Type:
			f.Fixed, n = protowire.ConsumeFixed64(b)
		case protowire.BytesType:
			f.Bytes, n = protowire.ConsumeBytes(b)
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return fmt.Errorf("%w: field %d: %v", ErrDeserialization, num, protowire.ParseError(n))
		}
		b = b[n:]

		if err := fn(f); err != nil {
			return err
		}
	}
	return nil
}

// ParseUint32s decodes the payload of a packed fixed32 field.
func ParseUint32s(b []byte) ([]uint32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("%w: packed fixed32 length %d", ErrDeserialization, len(b))
	}
	out := make([]uint32, 0, len(b)/4)
	for len(b) > 0 {
		v, n := protowire.ConsumeFixed32(b)
		if n < 0 {
			return nil, fmt.Errorf("%w: %v", ErrDeserialization, protowire.ParseError(n))
		}
		out = append(out, v)
		b = b[n:]
	}
	return out, nil
}

// Expect returns an error when f does not carry the wire type want.
func Expect(f Field, want protowire.Type) error {
	if f.Type != want {
		return fmt.Errorf("%w: field %d has wire type %d, want %d", ErrDeserialization, f.Num, f.Type, want)
	}
	return nil
}
