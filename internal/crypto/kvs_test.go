package crypto

import (
	"errors"
	"fmt"
	"testing"
)

func TestKVSEncoder_Encode_EmptyMap(t *testing.T) {
	blob, err := NewKVSEncoder().Encode(map[string][]byte{})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if string(blob) != "{}" {
		t.Errorf("got %q, want {}", blob)
	}

	decoder, err := NewKVSDecoder(blob)
	if err != nil {
		t.Fatalf("NewKVSDecoder failed: %v", err)
	}
	if decoder.Len() != 0 {
		t.Errorf("decoder has %d pairs", decoder.Len())
	}
}

func TestKVSEncoder_Encode_NilMap(t *testing.T) {
	if _, err := NewKVSEncoder().Encode(nil); err == nil {
		t.Fatal("nil map should fail")
	}
}

func TestKVS_RoundTrip(t *testing.T) {
	pairs := map[string][]byte{
		"float":          Float64ToBytes(3.14159),
		"bytes":          {0x00, 0xff, 0x10},
		"empty":          {},
		"key with space": []byte("v"),
		"ключ":           []byte("значение"),
		`"quoted"`:       []byte(`{"json":true}`),
	}
	for i := 0; i < 1000; i++ {
		pairs[fmt.Sprintf("bulk%d", i)] = Float64ToBytes(float64(i))
	}

	blob, err := NewKVSEncoder().Encode(pairs)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	decoder, err := NewKVSDecoder(blob)
	if err != nil {
		t.Fatalf("NewKVSDecoder failed: %v", err)
	}
	if decoder.Len() != len(pairs) {
		t.Fatalf("decoder has %d pairs, want %d", decoder.Len(), len(pairs))
	}

	for k, want := range pairs {
		got, err := decoder.Decode(nil, k)
		if err != nil {
			t.Fatalf("Decode(%q) failed: %v", k, err)
		}
		if string(got) != string(want) {
			t.Errorf("Decode(%q) = %x, want %x", k, got, want)
		}
	}
	if v, _ := decoder.Decode(nil, "float"); BytesToFloat64(v) != 3.14159 {
		t.Errorf("float value = %v", BytesToFloat64(v))
	}
}

func TestKVSDecoder_Errors(t *testing.T) {
	if _, err := NewKVSDecoder(nil); err == nil {
		t.Error("empty blob should fail")
	}
	if _, err := NewKVSDecoder([]byte("not json")); err == nil {
		t.Error("malformed blob should fail")
	}

	blob, err := NewKVSEncoder().Encode(map[string][]byte{"a": {1}})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	decoder, err := NewKVSDecoder(blob)
	if err != nil {
		t.Fatalf("NewKVSDecoder failed: %v", err)
	}
	if _, err := decoder.Decode(blob, ""); err == nil {
		t.Error("empty key should fail")
	}
	if _, err := decoder.Decode(blob, "missing"); !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("missing key: got %v, want ErrKeyNotFound", err)
	}
}

func BenchmarkKVSEncoder_Encode(b *testing.B) {
	for _, size := range []int{100, 1000, 10000} {
		pairs := okvsPairs(size)
		b.Run(fmt.Sprintf("Size_%d", size), func(b *testing.B) {
			encoder := NewKVSEncoder()
			for i := 0; i < b.N; i++ {
				if _, err := encoder.Encode(pairs); err != nil {
					b.Fatalf("Encode failed: %v", err)
				}
			}
		})
	}
}

func BenchmarkKVS_vs_OKVS_Encoding(b *testing.B) {
	for _, size := range []int{100, 1000} {
		pairs := okvsPairs(size)
		for _, backend := range []struct {
			name string
			enc  OKVSEncoder
		}{
			{"KVS", NewKVSEncoder()},
			{"OKVS", NewRBOKVSEncoder()},
		} {
			b.Run(fmt.Sprintf("%s_Size_%d", backend.name, size), func(b *testing.B) {
				for i := 0; i < b.N; i++ {
					if _, err := backend.enc.Encode(pairs); err != nil {
						b.Fatalf("Encode failed: %v", err)
					}
				}
			})
		}
	}
}
