package frodo

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// Shard is the server-side database. It is immutable once built, so
// Respond may be called from several goroutines at once.
type Shard struct {
	db         []uint32 // m rows of Width() chunks
	baseParams *BaseParams
}

// FromBase64Strings builds a shard from m base64-encoded rows. Each row
// decodes to at most ⌈elemSize/8⌉ bytes and is zero padded to that length.
func FromBase64Strings(rows []string, lweDim, m, elemSize, plaintextBits int) (*Shard, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no rows", ErrInvalidDatabase)
	}
	if len(rows) != m {
		return nil, fmt.Errorf("%w: %d rows supplied, m is %d", ErrInvalidDatabase, len(rows), m)
	}
	if err := validateDims(lweDim, m, elemSize, plaintextBits); err != nil {
		return nil, err
	}

	bp := &BaseParams{Dim: lweDim, M: m, ElemSize: elemSize, PlaintextBits: plaintextBits}
	w := bp.Width()
	rowBytes := bp.RowBytes()

	db := make([]uint32, m*w)
	for i, r := range rows {
		raw, err := base64.StdEncoding.DecodeString(r)
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", ErrInvalidDatabase, i, err)
		}
		if len(raw) > rowBytes {
			return nil, fmt.Errorf("%w: row %d is %d bytes, element size allows %d", ErrInvalidDatabase, i, len(raw), rowBytes)
		}
		splitRow(db[i*w:(i+1)*w], raw, plaintextBits)
	}

	if _, err := rand.Read(bp.Seed[:]); err != nil {
		return nil, fmt.Errorf("frodo: sample seed: %w", err)
	}

	a := expandMatrix(bp.Seed, m, lweDim)
	bp.Rhs = make([]uint32, lweDim*w)
	for i := 0; i < m; i++ {
		arow := a[i*lweDim : (i+1)*lweDim]
		drow := db[i*w : (i+1)*w]
		for k, av := range arow {
			out := bp.Rhs[k*w : (k+1)*w]
			for j, d := range drow {
				out[j] += av * d
			}
		}
	}

	return &Shard{db: db, baseParams: bp}, nil
}

// BaseParams returns the public parameters for this shard.
func (s *Shard) BaseParams() *BaseParams {
	return s.baseParams
}

// Respond multiplies the query vector into the database. It does not
// modify the shard.
func (s *Shard) Respond(q *Query) (*Response, error) {
	m, w := s.baseParams.M, s.baseParams.Width()
	if len(q.Values) != m {
		return nil, fmt.Errorf("%w: query has %d entries, database has %d rows", ErrLengthMismatch, len(q.Values), m)
	}
	out := make([]uint32, w)
	for i, qv := range q.Values {
		drow := s.db[i*w : (i+1)*w]
		for j, d := range drow {
			out[j] += qv * d
		}
	}
	return &Response{Values: out}, nil
}

func chunkCount(elemSize, plaintextBits int) int {
	return (elemSize + plaintextBits - 1) / plaintextBits
}

// splitRow fills dst with consecutive p-bit little-endian chunks of raw.
func splitRow(dst []uint32, raw []byte, p int) {
	for j := range dst {
		var v uint32
		for t := 0; t < p; t++ {
			bit := j*p + t
			if bit/8 < len(raw) && raw[bit/8]>>(bit%8)&1 == 1 {
				v |= 1 << t
			}
		}
		dst[j] = v
	}
}

// joinRow is the inverse of splitRow, producing n bytes.
func joinRow(chunks []uint32, p, n int) []byte {
	out := make([]byte, n)
	for j, v := range chunks {
		for t := 0; t < p; t++ {
			bit := j*p + t
			if bit/8 >= n {
				return out
			}
			if v>>t&1 == 1 {
				out[bit/8] |= 1 << (bit % 8)
			}
		}
	}
	return out
}
