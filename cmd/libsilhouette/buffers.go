package main

/*
#include <stdint.h>
#include <stdlib.h>
*/
import "C"

import (
	"fmt"
	"math"
	"unsafe"

	"github.com/mundrapranay/silhouette-db/internal/status"
)

func toInt(v C.uintptr_t, what string) (int, error) {
	if uint64(v) > math.MaxInt {
		return 0, fmt.Errorf("%w: %s %d out of range", status.ErrInvalidInput, what, uint64(v))
	}
	return int(v), nil
}

// inBytes borrows a caller buffer for the duration of one call.
func inBytes(ptr *C.uint8_t, n C.uintptr_t, what string) ([]byte, error) {
	size, err := toInt(n, what)
	if err != nil {
		return nil, err
	}
	if size == 0 {
		return nil, nil
	}
	if ptr == nil {
		return nil, fmt.Errorf("%w: null %s of length %d", status.ErrInvalidInput, what, size)
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(ptr)), size), nil
}

func inStrings(ptr **C.char, n C.uintptr_t, what string) ([]string, error) {
	count, err := toInt(n, what)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, nil
	}
	if ptr == nil {
		return nil, fmt.Errorf("%w: null %s array", status.ErrInvalidInput, what)
	}
	out := make([]string, count)
	for i, p := range unsafe.Slice(ptr, count) {
		if p == nil {
			return nil, fmt.Errorf("%w: %s %d is null", status.ErrInvalidInput, what, i)
		}
		out[i] = C.GoString(p)
	}
	return out, nil
}

func inFloats(ptr *C.double, n int) ([]float64, error) {
	if n == 0 {
		return nil, nil
	}
	if ptr == nil {
		return nil, fmt.Errorf("%w: null values array", status.ErrInvalidInput)
	}
	return unsafe.Slice((*float64)(unsafe.Pointer(ptr)), n), nil
}

// export copies b into malloc'd memory and hands it to the caller. The
// ledger keeps the address until the matching free call.
func export(b []byte, out **C.uint8_t, outLen *C.uintptr_t) {
	n := len(b)
	p := C.malloc(C.size_t(max(n, 1)))
	copy(unsafe.Slice((*byte)(p), n), b)
	ledger.Track(uintptr(p), n)
	*out = (*C.uint8_t)(p)
	*outLen = C.uintptr_t(n)
}

func release(op string, ptr *C.uint8_t, n C.uintptr_t) {
	if ptr == nil {
		return
	}
	size, err := toInt(n, "length")
	if err == nil {
		err = ledger.Release(uintptr(unsafe.Pointer(ptr)), size)
	}
	if err != nil {
		logger.Warn("buffer release rejected", "op", op, "error", err)
		return
	}
	C.free(unsafe.Pointer(ptr))
}

func nullOutput(name string) error {
	return fmt.Errorf("%w: null %s", status.ErrInvalidInput, name)
}
