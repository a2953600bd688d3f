// Package crypto provides the key-oriented PIR and OKVS primitives used by
// the coordination server and its workers.
//
// The types here wrap the handle-based session layer: callers deal in keys
// and byte values, never in row indices or handles.
package crypto

import (
	"encoding/binary"
	"errors"
	"math"
	"sort"

	"github.com/mundrapranay/silhouette-db/internal/session"
)

// MinOKVSPairs is the smallest batch RBOKVSEncoder accepts.
const MinOKVSPairs = 100

var (
	ErrEmptyDatabase  = errors.New("crypto: empty database")
	ErrKeyNotFound    = errors.New("crypto: key not found")
	ErrNoPendingQuery = errors.New("crypto: no pending query for key")
	ErrTooFewPairs    = errors.New("crypto: too few pairs for OKVS")
	ErrValueSize      = errors.New("crypto: bad value size")
)

var sessions = session.NewManager(nil)

// SortedKeys returns the keys of pairs in the row order used by
// NewFrodoPIRServer.
func SortedKeys(pairs map[string][]byte) []string {
	keys := make([]string, 0, len(pairs))
	for k := range pairs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// KeyToIndex maps each key to its database row.
func KeyToIndex(keys []string) map[string]int {
	m := make(map[string]int, len(keys))
	for i, k := range keys {
		m[k] = i
	}
	return m
}

// Float64ToBytes encodes f as 8 little-endian bytes.
func Float64ToBytes(f float64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, math.Float64bits(f))
	return b
}

// BytesToFloat64 decodes the first 8 bytes of b. Shorter input yields 0.
func BytesToFloat64(b []byte) float64 {
	if len(b) < 8 {
		return 0
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b[:8]))
}
