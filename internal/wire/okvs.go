package wire

import (
	"encoding/binary"
	"fmt"
)

const (
	// ParamsBlockLen is the fixed size of the OKVS parameter block.
	ParamsBlockLen = 24
	// ValueSize is the width of one encoding slot.
	ValueSize = 8

	lenPrefix = 8
)

// OKVSParams is the encoder configuration stored in front of the slots.
type OKVSParams struct {
	ElementCount uint64
	ColumnCount  uint64
	BandWidth    uint64
}

// OKVSBlob is a decoded encoding blob.
type OKVSBlob struct {
	Params OKVSParams
	Values [][ValueSize]byte
}

// EncodeOKVSBlob lays b out as
//
//	[u64 params_len=24][u64 elements][u64 columns][u64 band][u64 count][count x 8 bytes]
//
// little-endian throughout.
func EncodeOKVSBlob(b OKVSBlob) []byte {
	out := make([]byte, 0, lenPrefix+ParamsBlockLen+lenPrefix+len(b.Values)*ValueSize)
	out = binary.LittleEndian.AppendUint64(out, ParamsBlockLen)
	out = binary.LittleEndian.AppendUint64(out, b.Params.ElementCount)
	out = binary.LittleEndian.AppendUint64(out, b.Params.ColumnCount)
	out = binary.LittleEndian.AppendUint64(out, b.Params.BandWidth)
	out = binary.LittleEndian.AppendUint64(out, uint64(len(b.Values)))
	for _, v := range b.Values {
		out = append(out, v[:]...)
	}
	return out
}

// DecodeOKVSBlob parses data produced by EncodeOKVSBlob. Every length
// field is checked against the bytes actually present before it is used;
// any mismatch, including trailing bytes, is ErrDeserialization.
func DecodeOKVSBlob(data []byte) (OKVSBlob, error) {
	var blob OKVSBlob
	if len(data) < lenPrefix {
		return blob, fmt.Errorf("%w: okvs blob is %d bytes, shorter than its length prefix", ErrDeserialization, len(data))
	}
	paramsLen := binary.LittleEndian.Uint64(data)
	if paramsLen != ParamsBlockLen {
		return blob, fmt.Errorf("%w: okvs params block length %d, want %d", ErrDeserialization, paramsLen, ParamsBlockLen)
	}
	rest := data[lenPrefix:]
	if len(rest) < ParamsBlockLen+lenPrefix {
		return blob, fmt.Errorf("%w: okvs blob truncated inside params block", ErrDeserialization)
	}
	blob.Params = OKVSParams{
		ElementCount: binary.LittleEndian.Uint64(rest[0:]),
		ColumnCount:  binary.LittleEndian.Uint64(rest[8:]),
		BandWidth:    binary.LittleEndian.Uint64(rest[16:]),
	}
	rest = rest[ParamsBlockLen:]

	count := binary.LittleEndian.Uint64(rest)
	rest = rest[lenPrefix:]
	available := uint64(len(rest)) / ValueSize
	if count > available {
		return blob, fmt.Errorf("%w: okvs blob declares %d values, only %d present", ErrDeserialization, count, available)
	}
	if uint64(len(rest)) != count*ValueSize {
		return blob, fmt.Errorf("%w: okvs blob has %d trailing bytes", ErrDeserialization, uint64(len(rest))-count*ValueSize)
	}

	blob.Values = make([][ValueSize]byte, count)
	for i := range blob.Values {
		copy(blob.Values[i][:], rest[i*ValueSize:])
	}
	return blob, nil
}
