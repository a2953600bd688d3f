package crypto

// OKVSEncoder defines the interface for encoding key-value pairs into
// an oblivious key-value store structure.
type OKVSEncoder interface {
	// Encode takes a map of key-value pairs and returns an opaque,
	// oblivious data structure as a byte slice.
	Encode(pairs map[string][]byte) ([]byte, error)
}

// OKVSDecoder defines the interface for decoding values from an encoded
// structure.
type OKVSDecoder interface {
	// Decode takes an encoded blob and a key, and returns the
	// corresponding value.
	Decode(blob []byte, key string) ([]byte, error)
}

var (
	_ OKVSEncoder = (*RBOKVSEncoder)(nil)
	_ OKVSEncoder = (*KVSEncoder)(nil)
	_ OKVSDecoder = (*RBOKVSDecoder)(nil)
	_ OKVSDecoder = (*KVSDecoder)(nil)
)
