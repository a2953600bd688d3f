// Package keyval maps caller keys and values onto the fixed-width OKVS types.
package keyval

import (
	"encoding/binary"
	"math"

	"golang.org/x/crypto/blake2b"

	"github.com/mundrapranay/silhouette-db/internal/rbokvs"
)

// HashKey truncates the BLAKE2b-512 digest of key's UTF-8 bytes to eight
// bytes. Colliding keys are not detected.
func HashKey(key string) rbokvs.Key {
	sum := blake2b.Sum512([]byte(key))
	var k rbokvs.Key
	copy(k[:], sum[:8])
	return k
}

// EncodeValue stores the IEEE-754 bits of v little-endian.
func EncodeValue(v float64) rbokvs.Value {
	var out rbokvs.Value
	binary.LittleEndian.PutUint64(out[:], math.Float64bits(v))
	return out
}

// DecodeValue is the inverse of EncodeValue.
func DecodeValue(v rbokvs.Value) float64 {
	return math.Float64frombits(binary.LittleEndian.Uint64(v[:]))
}

// Pairs builds OKVS pairs from parallel key and value slices.
func Pairs(keys []string, values []float64) []rbokvs.Pair {
	pairs := make([]rbokvs.Pair, len(keys))
	for i, k := range keys {
		pairs[i] = rbokvs.Pair{Key: HashKey(k), Value: EncodeValue(values[i])}
	}
	return pairs
}
