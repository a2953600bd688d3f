package frodo

import (
	"crypto/rand"
	"fmt"
	"math/bits"
)

// QueryParams is the client's per-query secret state. It may generate
// exactly one query; the same instance (or its serialized form) is later
// needed to decode the matching response.
type QueryParams struct {
	// Lhs is A·s + e, one entry per database row.
	Lhs []uint32
	// Rhs is sᵀ·AᵀD, one entry per plaintext chunk.
	Rhs           []uint32
	ElemSize      int
	PlaintextBits int
	Used          bool
}

// Query is the blinded row selector sent to the server.
type Query struct {
	Values []uint32
}

// Response is the server's answer to a Query.
type Response struct {
	Values []uint32
}

// NewQueryParams samples fresh secret state for one query.
func NewQueryParams(cp *CommonParams, bp *BaseParams) (*QueryParams, error) {
	if cp.m != bp.M || cp.dim != bp.Dim {
		return nil, fmt.Errorf("%w: common params are %dx%d, base params %dx%d", ErrInvalidParams, cp.m, cp.dim, bp.M, bp.Dim)
	}
	w := bp.Width()
	if len(bp.Rhs) != bp.Dim*w {
		return nil, fmt.Errorf("%w: rhs has %d entries, want %d", ErrInvalidParams, len(bp.Rhs), bp.Dim*w)
	}

	s, err := sampleTernary(bp.Dim)
	if err != nil {
		return nil, err
	}
	e, err := sampleTernary(bp.M)
	if err != nil {
		return nil, err
	}

	lhs := make([]uint32, bp.M)
	for i := range lhs {
		row := cp.a[i*bp.Dim : (i+1)*bp.Dim]
		acc := e[i]
		for k, av := range row {
			acc += av * s[k]
		}
		lhs[i] = acc
	}

	rhs := make([]uint32, w)
	for k, sv := range s {
		if sv == 0 {
			continue
		}
		row := bp.Rhs[k*w : (k+1)*w]
		for j, v := range row {
			rhs[j] += sv * v
		}
	}

	return &QueryParams{
		Lhs:           lhs,
		Rhs:           rhs,
		ElemSize:      bp.ElemSize,
		PlaintextBits: bp.PlaintextBits,
	}, nil
}

// GenerateQuery blinds row and marks the params used. A failed call leaves
// the params unchanged.
func (qp *QueryParams) GenerateQuery(row int) (*Query, error) {
	if qp.Used {
		return nil, ErrQueryParamsReused
	}
	if row < 0 || row >= len(qp.Lhs) {
		return nil, fmt.Errorf("%w: row %d of %d", ErrRowIndexOutOfBounds, row, len(qp.Lhs))
	}

	blinded, carry := bits.Add32(qp.Lhs[row], qp.delta(), 0)
	if carry != 0 {
		return nil, ErrOverflownAdd
	}

	values := make([]uint32, len(qp.Lhs))
	copy(values, qp.Lhs)
	values[row] = blinded
	qp.Used = true
	return &Query{Values: values}, nil
}

func (qp *QueryParams) delta() uint32 {
	return 1 << (32 - qp.PlaintextBits)
}

// ParseOutputAsBytes removes the client's mask from r and returns the row
// bytes. Decoding with params that did not produce the query yields
// unrelated bytes; nothing detects the mismatch.
func (r *Response) ParseOutputAsBytes(qp *QueryParams) ([]byte, error) {
	if len(r.Values) != len(qp.Rhs) {
		return nil, fmt.Errorf("%w: response has %d chunks, params expect %d", ErrLengthMismatch, len(r.Values), len(qp.Rhs))
	}
	p := qp.PlaintextBits
	delta := qp.delta()
	mask := uint32(1)<<p - 1

	chunks := make([]uint32, len(r.Values))
	for j, v := range r.Values {
		noisy := v - qp.Rhs[j]
		chunks[j] = ((noisy + delta/2) >> (32 - p)) & mask
	}
	return joinRow(chunks, p, (qp.ElemSize+7)/8), nil
}

// sampleTernary draws n values uniformly from {-1, 0, 1} mod 2^32.
func sampleTernary(n int) ([]uint32, error) {
	out := make([]uint32, 0, n)
	buf := make([]byte, n)
	for len(out) < n {
		if _, err := rand.Read(buf); err != nil {
			return nil, fmt.Errorf("frodo: sample secret: %w", err)
		}
		for _, b := range buf {
			if b >= 255 {
				continue
			}
			out = append(out, uint32(b%3)-1)
			if len(out) == n {
				break
			}
		}
	}
	return out, nil
}
