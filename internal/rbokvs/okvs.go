// Package rbokvs implements a random band matrix oblivious key-value store
// over 8-byte keys and 8-byte values.
//
// A key selects a start column and a pseudo-random band of BandWidth bits.
// Encoding solves the banded GF(2) system so that, for every encoded pair,
// the XOR of the slots selected by the key's band equals its value.
// Decoding a key that was never encoded yields an arbitrary value.
package rbokvs

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"sort"

	"golang.org/x/crypto/blake2b"
)

const (
	// Epsilon is the column expansion factor applied to the pair count.
	Epsilon = 0.1
	// MaxBandWidth bounds the band so a row fits in a band value.
	MaxBandWidth = 128
	// MinBandWidth is the narrowest band the encoder will use.
	MinBandWidth = 8

	// Inputs below slackThreshold pairs get at least columnSlack spare
	// columns, which keeps them solvable with high probability. Larger
	// inputs use exactly (1+Epsilon)*kvCount columns.
	slackThreshold = 100
	columnSlack    = 16
)

var (
	// ErrEncodingFailed is returned when the band system has no solution,
	// typically because two pairs share a key but not a value.
	ErrEncodingFailed = errors.New("rbokvs: band system is not solvable")
	// ErrInvalidParams is returned for unusable encoder configurations.
	ErrInvalidParams = errors.New("rbokvs: invalid parameters")
	// ErrEncodingLength is returned when an encoding does not match the
	// configured column count.
	ErrEncodingLength = errors.New("rbokvs: encoding length mismatch")
)

// Key is a fixed-width OKVS key.
type Key [8]byte

// Value is a fixed-width OKVS value.
type Value [8]byte

// Pair is one key-value input to Encode.
type Pair struct {
	Key   Key
	Value Value
}

// RbOkvs holds the encoder configuration.
type RbOkvs struct {
	kvCount   int
	columns   int
	bandWidth int
}

// New derives the configuration for kvCount pairs.
func New(kvCount int) *RbOkvs {
	columns := int((1.0 + Epsilon) * float64(kvCount))
	if kvCount < slackThreshold && columns < kvCount+columnSlack {
		columns = kvCount + columnSlack
	}

	bandWidth := columns * 80 / 100
	if bandWidth > MaxBandWidth {
		bandWidth = MaxBandWidth
	}
	if bandWidth > columns-1 {
		bandWidth = columns - 1
	}
	if bandWidth < MinBandWidth {
		bandWidth = MinBandWidth
	}
	if columns <= bandWidth {
		columns = bandWidth + 1
	}

	return &RbOkvs{kvCount: kvCount, columns: columns, bandWidth: bandWidth}
}

// NewWithParams rebuilds a configuration from explicitly stored values.
func NewWithParams(kvCount, columns, bandWidth int) (*RbOkvs, error) {
	switch {
	case kvCount <= 0:
		return nil, fmt.Errorf("%w: element count %d", ErrInvalidParams, kvCount)
	case bandWidth < 1 || bandWidth > MaxBandWidth:
		return nil, fmt.Errorf("%w: band width %d", ErrInvalidParams, bandWidth)
	case columns <= bandWidth:
		return nil, fmt.Errorf("%w: %d columns for band width %d", ErrInvalidParams, columns, bandWidth)
	}
	return &RbOkvs{kvCount: kvCount, columns: columns, bandWidth: bandWidth}, nil
}

// KVCount returns the number of pairs the configuration was sized for.
func (r *RbOkvs) KVCount() int { return r.kvCount }

// Columns returns the encoding length.
func (r *RbOkvs) Columns() int { return r.columns }

// BandWidth returns the band width.
func (r *RbOkvs) BandWidth() int { return r.bandWidth }

type row struct {
	start int
	band  band
	value Value
}

// hashToBand maps a key to its start column and band.
func (r *RbOkvs) hashToBand(key Key) (int, band) {
	h := blake2b.Sum256(key[:])
	start := int(binary.LittleEndian.Uint64(h[0:8]) % uint64(r.columns-r.bandWidth+1))
	b := band{binary.LittleEndian.Uint64(h[8:16]), binary.LittleEndian.Uint64(h[16:24])}
	b = b.truncate(r.bandWidth)
	b[0] |= 1
	return start, b
}

// Encode solves for an encoding of length Columns. Pairs with the same key
// and value are tolerated; the same key with different values is not.
func (r *RbOkvs) Encode(pairs []Pair) ([]Value, error) {
	if len(pairs) == 0 {
		return nil, fmt.Errorf("%w: no pairs", ErrInvalidParams)
	}

	rows := make([]row, len(pairs))
	for i, p := range pairs {
		start, b := r.hashToBand(p.Key)
		rows[i] = row{start: start, band: b, value: p.Value}
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].start < rows[j].start })

	// pivots[c] is the index of the row whose leading bit is column c,
	// stored normalized so that its band starts at c.
	pivots := make([]int, r.columns)
	for i := range pivots {
		pivots[i] = -1
	}

	for i := range rows {
		cur := &rows[i]
		for {
			lead := cur.band.firstSet()
			if lead < 0 {
				if cur.value != (Value{}) {
					return nil, ErrEncodingFailed
				}
				break
			}
			col := cur.start + lead
			p := pivots[col]
			if p < 0 {
				cur.band = cur.band.shr(lead)
				cur.start = col
				pivots[col] = i
				break
			}
			cur.band = cur.band.xor(rows[p].band.shl(lead))
			cur.value = xorValue(cur.value, rows[p].value)
		}
	}

	encoding := make([]Value, r.columns)
	for c := r.columns - 1; c >= 0; c-- {
		p := pivots[c]
		if p < 0 {
			if _, err := rand.Read(encoding[c][:]); err != nil {
				return nil, fmt.Errorf("rbokvs: fill free column: %w", err)
			}
			continue
		}
		v := rows[p].value
		b := rows[p].band
		for j := 1; j < r.bandWidth && c+j < r.columns; j++ {
			if b.bit(j) {
				v = xorValue(v, encoding[c+j])
			}
		}
		encoding[c] = v
	}
	return encoding, nil
}

// Decode returns the value stored for key. The result is only meaningful
// for keys that were present when the encoding was produced.
func (r *RbOkvs) Decode(encoding []Value, key Key) (Value, error) {
	if len(encoding) != r.columns {
		return Value{}, fmt.Errorf("%w: have %d values, want %d", ErrEncodingLength, len(encoding), r.columns)
	}
	start, b := r.hashToBand(key)
	var v Value
	for j := 0; j < r.bandWidth; j++ {
		if b.bit(j) {
			v = xorValue(v, encoding[start+j])
		}
	}
	return v, nil
}

func xorValue(a, b Value) Value {
	binary.LittleEndian.PutUint64(a[:], binary.LittleEndian.Uint64(a[:])^binary.LittleEndian.Uint64(b[:]))
	return a
}
