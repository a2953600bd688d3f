package crypto

import (
	"errors"
	"fmt"
	"math"
	"testing"
)

func okvsPairs(n int) map[string][]byte {
	pairs := make(map[string][]byte, n)
	for i := 0; i < n; i++ {
		pairs[fmt.Sprintf("key%d", i)] = Float64ToBytes(float64(i) * 0.123)
	}
	return pairs
}

func TestRBOKVSEncoder_Encode(t *testing.T) {
	pairs := okvsPairs(100)
	encoding, err := NewRBOKVSEncoder().Encode(pairs)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	minSize := len(pairs) * 8
	maxSize := len(pairs) * 8 * 2
	if len(encoding) < minSize || len(encoding) > maxSize {
		t.Errorf("encoding is %d bytes, want between %d and %d", len(encoding), minSize, maxSize)
	}
}

func TestRBOKVSEncoder_Encode_TooFewPairs(t *testing.T) {
	encoder := NewRBOKVSEncoder()
	for _, n := range []int{0, 1, 10, MinOKVSPairs - 1} {
		_, err := encoder.Encode(okvsPairs(n))
		if !errors.Is(err, ErrTooFewPairs) {
			t.Errorf("n=%d: got %v, want ErrTooFewPairs", n, err)
		}
	}
}

func TestRBOKVSEncoder_Encode_BadValueSize(t *testing.T) {
	pairs := okvsPairs(100)
	pairs["key7"] = []byte{1, 2, 3}
	_, err := NewRBOKVSEncoder().Encode(pairs)
	if !errors.Is(err, ErrValueSize) {
		t.Fatalf("got %v, want ErrValueSize", err)
	}
}

func TestRBOKVS_EncodeDecode_AllPairs(t *testing.T) {
	pairs := okvsPairs(250)
	encoding, err := NewRBOKVSEncoder().Encode(pairs)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	decoder := NewRBOKVSDecoder(encoding)
	for key, want := range pairs {
		got, err := decoder.Decode(encoding, key)
		if err != nil {
			t.Fatalf("Decode failed for key %s: %v", key, err)
		}
		if math.Float64bits(BytesToFloat64(got)) != math.Float64bits(BytesToFloat64(want)) {
			t.Errorf("key %s: got %v, want %v", key, BytesToFloat64(got), BytesToFloat64(want))
		}
	}
}

func TestRBOKVSDecoder_Decode_BoundEncoding(t *testing.T) {
	encoding, err := NewRBOKVSEncoder().Encode(okvsPairs(100))
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	got, err := NewRBOKVSDecoder(encoding).Decode(nil, "key42")
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	i := 42
	if want := float64(i) * 0.123; BytesToFloat64(got) != want {
		t.Errorf("got %v, want %v", BytesToFloat64(got), want)
	}
}

func TestRBOKVSDecoder_Decode_InvalidInput(t *testing.T) {
	encoding, err := NewRBOKVSEncoder().Encode(okvsPairs(100))
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	decoder := NewRBOKVSDecoder(encoding)

	if _, err := decoder.Decode(encoding, ""); err == nil {
		t.Error("empty key should fail")
	}
	if _, err := NewRBOKVSDecoder(nil).Decode(nil, "key1"); err == nil {
		t.Error("empty blob should fail")
	}
	if _, err := decoder.Decode(encoding[:len(encoding)-1], "key1"); err == nil {
		t.Error("truncated blob should fail")
	}
	// Absent keys decode to an arbitrary value without error.
	if _, err := decoder.Decode(encoding, "nonexistent_key"); err != nil {
		t.Errorf("absent key: %v", err)
	}
}
