package crypto

import (
	"fmt"
)

// RBOKVSEncoder implements OKVSEncoder with a random band matrix OKVS.
// Values must be 8-byte little-endian float64s.
type RBOKVSEncoder struct{}

// NewRBOKVSEncoder creates a new RB-OKVS encoder.
func NewRBOKVSEncoder() *RBOKVSEncoder {
	return &RBOKVSEncoder{}
}

// Encode returns a self-describing OKVS blob for pairs. At least
// MinOKVSPairs pairs are required.
func (e *RBOKVSEncoder) Encode(pairs map[string][]byte) ([]byte, error) {
	if len(pairs) == 0 {
		return nil, fmt.Errorf("cannot encode empty pairs: %w", ErrTooFewPairs)
	}
	if len(pairs) < MinOKVSPairs {
		return nil, fmt.Errorf("%w: need at least %d, got %d", ErrTooFewPairs, MinOKVSPairs, len(pairs))
	}

	keys := SortedKeys(pairs)
	values := make([]float64, len(keys))
	for i, k := range keys {
		v := pairs[k]
		if len(v) != 8 {
			return nil, fmt.Errorf("%w: value for key %q is %d bytes, want 8", ErrValueSize, k, len(v))
		}
		values[i] = BytesToFloat64(v)
	}

	blob, err := sessions.OKVSEncode(keys, values)
	if err != nil {
		return nil, fmt.Errorf("rb-okvs encode: %w", err)
	}
	return blob, nil
}

// RBOKVSDecoder implements OKVSDecoder for blobs produced by RBOKVSEncoder.
type RBOKVSDecoder struct {
	encoding []byte
}

// NewRBOKVSDecoder creates a decoder bound to encoding. Decode falls back
// to it when called with an empty blob.
func NewRBOKVSDecoder(encoding []byte) *RBOKVSDecoder {
	return &RBOKVSDecoder{encoding: encoding}
}

// Decode returns the 8-byte value stored for key. A key that was never
// encoded still decodes, to an arbitrary value.
func (d *RBOKVSDecoder) Decode(blob []byte, key string) ([]byte, error) {
	if len(blob) == 0 {
		blob = d.encoding
	}
	if len(blob) == 0 {
		return nil, fmt.Errorf("rb-okvs decode: empty blob")
	}
	if key == "" {
		return nil, fmt.Errorf("rb-okvs decode: empty key")
	}

	v, err := sessions.OKVSDecode(blob, key)
	if err != nil {
		return nil, fmt.Errorf("rb-okvs decode %q: %w", key, err)
	}
	return Float64ToBytes(v), nil
}
