package crypto

import (
	"encoding/json"
	"fmt"
)

// KVSEncoder implements OKVSEncoder as a plain JSON object. It hides
// nothing, but accepts any number of pairs and values of any length.
type KVSEncoder struct{}

// NewKVSEncoder creates a new plain key-value encoder.
func NewKVSEncoder() *KVSEncoder {
	return &KVSEncoder{}
}

// Encode serializes pairs. Values are base64 strings in the JSON output.
func (e *KVSEncoder) Encode(pairs map[string][]byte) ([]byte, error) {
	if pairs == nil {
		return nil, fmt.Errorf("kvs encode: nil pairs")
	}
	blob, err := json.Marshal(pairs)
	if err != nil {
		return nil, fmt.Errorf("kvs encode: %w", err)
	}
	return blob, nil
}

// KVSDecoder implements OKVSDecoder over a blob parsed once up front.
type KVSDecoder struct {
	pairs map[string][]byte
}

// NewKVSDecoder parses blob.
func NewKVSDecoder(blob []byte) (*KVSDecoder, error) {
	if len(blob) == 0 {
		return nil, fmt.Errorf("kvs decode: empty blob")
	}
	var pairs map[string][]byte
	if err := json.Unmarshal(blob, &pairs); err != nil {
		return nil, fmt.Errorf("kvs decode: %w", err)
	}
	return &KVSDecoder{pairs: pairs}, nil
}

// Decode looks key up in the parsed pairs; blob is ignored. Unlike the
// OKVS decoder, a missing key is an error.
func (d *KVSDecoder) Decode(_ []byte, key string) ([]byte, error) {
	if key == "" {
		return nil, fmt.Errorf("kvs decode: empty key")
	}
	v, ok := d.pairs[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrKeyNotFound, key)
	}
	return v, nil
}

// Len returns the number of pairs in the blob.
func (d *KVSDecoder) Len() int {
	return len(d.pairs)
}
