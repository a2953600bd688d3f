package session

import (
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/mundrapranay/silhouette-db/internal/keyval"
	"github.com/mundrapranay/silhouette-db/internal/rbokvs"
	"github.com/mundrapranay/silhouette-db/internal/status"
	"github.com/mundrapranay/silhouette-db/internal/wire"
)

// OKVSEncode encodes keys[i] -> values[i] into a self-describing blob.
// The blob stores the column count and band width it was built with, so
// decoding never re-derives them.
func (m *Manager) OKVSEncode(keys []string, values []float64) ([]byte, error) {
	const op = "okvs_encode"
	if len(keys) == 0 {
		return nil, status.WithCode(op, status.InvalidInput, fmt.Errorf("%w: no pairs", status.ErrInvalidInput))
	}
	if len(keys) != len(values) {
		return nil, status.WithCode(op, status.InvalidInput,
			fmt.Errorf("%w: %d keys but %d values", status.ErrInvalidInput, len(keys), len(values)))
	}
	for i, k := range keys {
		if !utf8.ValidString(k) {
			return nil, status.WithCode(op, status.InvalidInput, fmt.Errorf("%w: key %d is not valid text", status.ErrInvalidInput, i))
		}
	}

	okvs := rbokvs.New(len(keys))
	encoding, err := okvs.Encode(keyval.Pairs(keys, values))
	if err != nil {
		m.logger.Debug("okvs encode failed", "pairs", len(keys), "error", err)
		return nil, status.WithCode(op, status.EncodingError, err)
	}

	blob := wire.OKVSBlob{
		Params: wire.OKVSParams{
			ElementCount: uint64(okvs.KVCount()),
			ColumnCount:  uint64(okvs.Columns()),
			BandWidth:    uint64(okvs.BandWidth()),
		},
		Values: make([][wire.ValueSize]byte, len(encoding)),
	}
	for i, v := range encoding {
		blob.Values[i] = v
	}
	return wire.EncodeOKVSBlob(blob), nil
}

// OKVSDecode looks key up in blob. The result is only meaningful for keys
// that were present at encode time; any other key decodes to an arbitrary
// value and still succeeds.
func (m *Manager) OKVSDecode(blob []byte, key string) (float64, error) {
	const op = "okvs_decode"
	if len(blob) == 0 {
		return 0, status.WithCode(op, status.InvalidInput, fmt.Errorf("%w: empty blob", status.ErrInvalidInput))
	}
	if !utf8.ValidString(key) {
		return 0, status.WithCode(op, status.InvalidInput, fmt.Errorf("%w: key is not valid text", status.ErrInvalidInput))
	}

	parsed, err := wire.DecodeOKVSBlob(blob)
	if err != nil {
		return 0, status.WithCode(op, status.DeserializationError, err)
	}
	p := parsed.Params
	if p.ElementCount > math.MaxInt32 || p.ColumnCount != uint64(len(parsed.Values)) {
		return 0, status.WithCode(op, status.DeserializationError,
			fmt.Errorf("%w: %d elements, %d columns, %d values", wire.ErrDeserialization, p.ElementCount, p.ColumnCount, len(parsed.Values)))
	}
	okvs, err := rbokvs.NewWithParams(int(p.ElementCount), int(p.ColumnCount), int(min(p.BandWidth, math.MaxInt32)))
	if err != nil {
		return 0, status.WithCode(op, status.DeserializationError, err)
	}

	encoding := make([]rbokvs.Value, len(parsed.Values))
	for i, v := range parsed.Values {
		encoding[i] = v
	}
	v, err := okvs.Decode(encoding, keyval.HashKey(key))
	if err != nil {
		return 0, status.WithCode(op, status.DecodingError, err)
	}
	return keyval.DecodeValue(v), nil
}
