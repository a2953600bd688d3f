// Package frodo implements a single-server LWE private information
// retrieval scheme in the style of FrodoPIR.
//
// The server holds a Shard built from m rows. It publishes BaseParams: a
// seed for the public matrix A and the product AᵀD with its database D.
// A client derives CommonParams (A itself) from the seed, then for every
// query samples a fresh, single-use QueryParams. All arithmetic is modulo
// 2^32.
package frodo

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/sha3"
)

// SeedSize is the length of the public matrix seed.
const SeedSize = 32

// Limits applied to parameters, including those decoded from the wire.
const (
	MaxLWEDim         = 1 << 14
	MaxRows           = 1 << 24
	MaxPlaintextBits  = 16
	maxMatrixElements = 1 << 28
)

var (
	// ErrQueryParamsReused is returned when a QueryParams generates a second query.
	ErrQueryParamsReused = errors.New("frodo: query params used already")
	// ErrOverflownAdd is returned when blinding a row overflows a u32.
	ErrOverflownAdd = errors.New("frodo: overflow in addition")
	// ErrRowIndexOutOfBounds is returned for a query row index >= m.
	ErrRowIndexOutOfBounds = errors.New("frodo: row index out of bounds")
	// ErrInvalidParams covers unusable dimensions or mismatched parameter sets.
	ErrInvalidParams = errors.New("frodo: invalid parameters")
	// ErrInvalidDatabase covers malformed database rows.
	ErrInvalidDatabase = errors.New("frodo: invalid database")
	// ErrLengthMismatch is returned when a query or response does not
	// match the dimensions it is applied to.
	ErrLengthMismatch = errors.New("frodo: message length mismatch")
)

// BaseParams are the public parameters a server hands to every client.
type BaseParams struct {
	Dim           int
	M             int
	ElemSize      int
	PlaintextBits int
	Seed          [SeedSize]byte
	// Rhs is AᵀD, Dim rows of Width() columns, row-major.
	Rhs []uint32
}

// Width returns the number of plaintext chunks per row.
func (bp *BaseParams) Width() int {
	return chunkCount(bp.ElemSize, bp.PlaintextBits)
}

// RowBytes returns the byte length of one decoded row.
func (bp *BaseParams) RowBytes() int {
	return (bp.ElemSize + 7) / 8
}

func (bp *BaseParams) validate() error {
	return validateDims(bp.Dim, bp.M, bp.ElemSize, bp.PlaintextBits)
}

func validateDims(dim, m, elemSize, plaintextBits int) error {
	switch {
	case dim <= 0 || dim > MaxLWEDim:
		return fmt.Errorf("%w: lwe dimension %d", ErrInvalidParams, dim)
	case m <= 0 || m > MaxRows:
		return fmt.Errorf("%w: %d rows", ErrInvalidParams, m)
	case plaintextBits < 1 || plaintextBits > MaxPlaintextBits:
		return fmt.Errorf("%w: %d plaintext bits", ErrInvalidParams, plaintextBits)
	case elemSize <= 0:
		return fmt.Errorf("%w: element size %d bits", ErrInvalidParams, elemSize)
	}
	w := chunkCount(elemSize, plaintextBits)
	if uint64(m)*uint64(dim) > maxMatrixElements || uint64(m)*uint64(w) > maxMatrixElements ||
		uint64(dim)*uint64(w) > maxMatrixElements {
		return fmt.Errorf("%w: matrices exceed %d elements", ErrInvalidParams, maxMatrixElements)
	}
	return nil
}

// CommonParams holds the public matrix A expanded from a seed.
type CommonParams struct {
	m, dim int
	a      []uint32
}

// NewCommonParams expands A from bp's seed. Two calls with the same
// BaseParams produce identical matrices.
func NewCommonParams(bp *BaseParams) *CommonParams {
	return &CommonParams{m: bp.M, dim: bp.Dim, a: expandMatrix(bp.Seed, bp.M, bp.Dim)}
}

// expandMatrix derives an m x n matrix from seed with SHAKE128.
func expandMatrix(seed [SeedSize]byte, m, n int) []uint32 {
	xof := sha3.NewShake128()
	xof.Write(seed[:])

	a := make([]uint32, m*n)
	buf := make([]byte, 4*n)
	for i := 0; i < m; i++ {
		xof.Read(buf)
		row := a[i*n : (i+1)*n]
		for k := range row {
			row[k] = uint32(buf[4*k]) | uint32(buf[4*k+1])<<8 | uint32(buf[4*k+2])<<16 | uint32(buf[4*k+3])<<24
		}
	}
	return a
}
