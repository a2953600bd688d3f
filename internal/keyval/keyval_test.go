package keyval

import (
	"encoding/hex"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/blake2b"
)

func TestHashKey_TruncatedBlake2b512(t *testing.T) {
	sum := blake2b.Sum512([]byte("key0"))
	k := HashKey("key0")
	require.Equal(t, sum[:8], k[:])
	require.Equal(t, k, HashKey("key0"))
	require.NotEqual(t, k, HashKey("key1"))
}

func TestHashKey_EmptyString(t *testing.T) {
	// BLAKE2b-512("") starts with 786a02f742015903.
	k := HashKey("")
	require.Equal(t, "786a02f742015903", hex.EncodeToString(k[:]))
}

func TestValue_BitExact(t *testing.T) {
	for _, v := range []float64{
		0, math.Copysign(0, -1), 0.123, -1e300, math.SmallestNonzeroFloat64,
		math.MaxFloat64, math.Inf(1), math.Inf(-1),
	} {
		got := DecodeValue(EncodeValue(v))
		require.Equal(t, math.Float64bits(v), math.Float64bits(got))
	}

	nan := math.Float64frombits(0x7ff8000000000001)
	require.Equal(t, uint64(0x7ff8000000000001), math.Float64bits(DecodeValue(EncodeValue(nan))))
}

func TestEncodeValue_LittleEndian(t *testing.T) {
	v := EncodeValue(1.0)
	require.Equal(t, [8]byte{0, 0, 0, 0, 0, 0, 0xf0, 0x3f}, [8]byte(v))
}

func TestPairs(t *testing.T) {
	pairs := Pairs([]string{"a", "b"}, []float64{1.5, -2})
	require.Len(t, pairs, 2)
	require.Equal(t, HashKey("b"), pairs[1].Key)
	require.Equal(t, -2.0, DecodeValue(pairs[1].Value))
}
