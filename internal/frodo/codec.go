package frodo

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/mundrapranay/silhouette-db/internal/wire"
)

// Field numbers are part of the wire format; never renumber.
const (
	bpDim           protowire.Number = 1
	bpM             protowire.Number = 2
	bpElemSize      protowire.Number = 3
	bpPlaintextBits protowire.Number = 4
	bpSeed          protowire.Number = 5
	bpRhs           protowire.Number = 6

	qpLhs           protowire.Number = 1
	qpRhs           protowire.Number = 2
	qpElemSize      protowire.Number = 3
	qpPlaintextBits protowire.Number = 4
	qpUsed          protowire.Number = 5

	vecValues protowire.Number = 1
)

// MarshalBinary implements encoding.BinaryMarshaler.
func (bp *BaseParams) MarshalBinary() ([]byte, error) {
	var b []byte
	b = wire.AppendUint64(b, bpDim, uint64(bp.Dim))
	b = wire.AppendUint64(b, bpM, uint64(bp.M))
	b = wire.AppendUint64(b, bpElemSize, uint64(bp.ElemSize))
	b = wire.AppendUint64(b, bpPlaintextBits, uint64(bp.PlaintextBits))
	b = wire.AppendBytes(b, bpSeed, bp.Seed[:])
	b = wire.AppendUint32s(b, bpRhs, bp.Rhs)
	return b, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (bp *BaseParams) UnmarshalBinary(data []byte) error {
	var out BaseParams
	var seedSeen bool
	err := wire.ReadFields(data, func(f wire.Field) error {
		switch f.Num {
		case bpDim, bpM, bpElemSize, bpPlaintextBits:
			if err := wire.Expect(f, protowire.VarintType); err != nil {
				return err
			}
			v, err := smallInt(f)
			if err != nil {
				return err
			}
			switch f.Num {
			case bpDim:
				out.Dim = v
			case bpM:
				out.M = v
			case bpElemSize:
				out.ElemSize = v
			case bpPlaintextBits:
				out.PlaintextBits = v
			}
		case bpSeed:
			if err := wire.Expect(f, protowire.BytesType); err != nil {
				return err
			}
			if len(f.Bytes) != SeedSize {
				return fmt.Errorf("%w: seed is %d bytes", wire.ErrDeserialization, len(f.Bytes))
			}
			copy(out.Seed[:], f.Bytes)
			seedSeen = true
		case bpRhs:
			return readUint32s(f, &out.Rhs)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if !seedSeen {
		return fmt.Errorf("%w: base params without seed", wire.ErrDeserialization)
	}
	if err := out.validate(); err != nil {
		return fmt.Errorf("%w: %v", wire.ErrDeserialization, err)
	}
	if len(out.Rhs) != out.Dim*out.Width() {
		return fmt.Errorf("%w: rhs has %d entries, want %d", wire.ErrDeserialization, len(out.Rhs), out.Dim*out.Width())
	}
	*bp = out
	return nil
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (qp *QueryParams) MarshalBinary() ([]byte, error) {
	var b []byte
	b = wire.AppendUint32s(b, qpLhs, qp.Lhs)
	b = wire.AppendUint32s(b, qpRhs, qp.Rhs)
	b = wire.AppendUint64(b, qpElemSize, uint64(qp.ElemSize))
	b = wire.AppendUint64(b, qpPlaintextBits, uint64(qp.PlaintextBits))
	b = wire.AppendBool(b, qpUsed, qp.Used)
	return b, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (qp *QueryParams) UnmarshalBinary(data []byte) error {
	var out QueryParams
	err := wire.ReadFields(data, func(f wire.Field) error {
		switch f.Num {
		case qpLhs:
			return readUint32s(f, &out.Lhs)
		case qpRhs:
			return readUint32s(f, &out.Rhs)
		case qpElemSize, qpPlaintextBits:
			if err := wire.Expect(f, protowire.VarintType); err != nil {
				return err
			}
			v, err := smallInt(f)
			if err != nil {
				return err
			}
			if f.Num == qpElemSize {
				out.ElemSize = v
			} else {
				out.PlaintextBits = v
			}
		case qpUsed:
			if err := wire.Expect(f, protowire.VarintType); err != nil {
				return err
			}
			out.Used = protowire.DecodeBool(f.Varint)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if out.PlaintextBits < 1 || out.PlaintextBits > MaxPlaintextBits || out.ElemSize <= 0 {
		return fmt.Errorf("%w: query params with %d plaintext bits, element size %d", wire.ErrDeserialization, out.PlaintextBits, out.ElemSize)
	}
	if len(out.Rhs) != chunkCount(out.ElemSize, out.PlaintextBits) {
		return fmt.Errorf("%w: query params rhs has %d entries", wire.ErrDeserialization, len(out.Rhs))
	}
	*qp = out
	return nil
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (q *Query) MarshalBinary() ([]byte, error) {
	return wire.AppendUint32s(nil, vecValues, q.Values), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (q *Query) UnmarshalBinary(data []byte) error {
	return unmarshalVector(data, &q.Values)
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (r *Response) MarshalBinary() ([]byte, error) {
	return wire.AppendUint32s(nil, vecValues, r.Values), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (r *Response) UnmarshalBinary(data []byte) error {
	return unmarshalVector(data, &r.Values)
}

func unmarshalVector(data []byte, dst *[]uint32) error {
	var out []uint32
	var seen bool
	err := wire.ReadFields(data, func(f wire.Field) error {
		if f.Num != vecValues {
			return nil
		}
		seen = true
		return readUint32s(f, &out)
	})
	if err != nil {
		return err
	}
	if !seen {
		return fmt.Errorf("%w: vector field missing", wire.ErrDeserialization)
	}
	*dst = out
	return nil
}

func readUint32s(f wire.Field, dst *[]uint32) error {
	if err := wire.Expect(f, protowire.BytesType); err != nil {
		return err
	}
	v, err := wire.ParseUint32s(f.Bytes)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

func smallInt(f wire.Field) (int, error) {
	if f.Varint > 1<<31 {
		return 0, fmt.Errorf("%w: field %d value %d out of range", wire.ErrDeserialization, f.Num, f.Varint)
	}
	return int(f.Varint), nil
}
