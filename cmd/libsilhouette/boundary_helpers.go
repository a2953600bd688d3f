package main

/*
#include <stdint.h>
#include <stdlib.h>
*/
import "C"

import (
	"unsafe"

	"github.com/mundrapranay/silhouette-db/internal/status"
)

// The helpers below drive the exports the way a C caller does: inputs are
// copied into malloc'd memory and outputs come back as library-owned
// buffers.

// cBuffer is a library-owned output buffer.
type cBuffer struct {
	ptr *C.uint8_t
	n   C.uintptr_t
}

func (b cBuffer) bytes() []byte {
	if b.ptr == nil {
		return nil
	}
	return C.GoBytes(unsafe.Pointer(b.ptr), C.int(b.n))
}

func (b cBuffer) free()     { frodopir_free_buffer(b.ptr, b.n) }
func (b cBuffer) freeOKVS() { rb_okvs_free_buffer(b.ptr, b.n) }

// cBytes copies b into caller-owned C memory.
func cBytes(b []byte) (*C.uint8_t, C.uintptr_t, func()) {
	if len(b) == 0 {
		return nil, 0, func() {}
	}
	p := C.malloc(C.size_t(len(b)))
	copy(unsafe.Slice((*byte)(p), len(b)), b)
	return (*C.uint8_t)(p), C.uintptr_t(len(b)), func() { C.free(p) }
}

// cStrings builds a caller-owned array of NUL-terminated strings.
func cStrings(ss []string) (**C.char, func()) {
	if len(ss) == 0 {
		return nil, func() {}
	}
	arr := (**C.char)(C.malloc(C.size_t(len(ss)) * C.size_t(unsafe.Sizeof(uintptr(0)))))
	elems := unsafe.Slice(arr, len(ss))
	for i, s := range ss {
		elems[i] = C.CString(s)
	}
	return arr, func() {
		for _, p := range elems {
			C.free(unsafe.Pointer(p))
		}
		C.free(unsafe.Pointer(arr))
	}
}

func cFloats(vs []float64) (*C.double, func()) {
	if len(vs) == 0 {
		return nil, func() {}
	}
	p := (*C.double)(C.malloc(C.size_t(len(vs)) * C.size_t(unsafe.Sizeof(C.double(0)))))
	copy(unsafe.Slice((*float64)(unsafe.Pointer(p)), len(vs)), vs)
	return p, func() { C.free(unsafe.Pointer(p)) }
}

// foreignBuffer returns n bytes of malloc'd memory the ledger never saw.
func foreignBuffer(n int) (cBuffer, func()) {
	p := C.malloc(C.size_t(n))
	return cBuffer{ptr: (*C.uint8_t)(p), n: C.uintptr_t(n)}, func() { C.free(p) }
}

func shardCreate(rows []string, lweDim, m, elemSize, plaintextBits int) (status.Code, uint64, cBuffer) {
	rowsPtr, freeRows := cStrings(rows)
	defer freeRows()
	var shard C.uint64_t
	var bp cBuffer
	rc := frodopir_shard_create(rowsPtr, C.uintptr_t(len(rows)), C.uintptr_t(lweDim), C.uintptr_t(m),
		C.uintptr_t(elemSize), C.uintptr_t(plaintextBits), &shard, &bp.ptr, &bp.n)
	return status.Code(rc), uint64(shard), bp
}

// shardCreateNullOutput calls shard_create without a base params out-pointer.
func shardCreateNullOutput(rows []string, lweDim, m, elemSize, plaintextBits int) status.Code {
	rowsPtr, freeRows := cStrings(rows)
	defer freeRows()
	var shard C.uint64_t
	var n C.uintptr_t
	return status.Code(frodopir_shard_create(rowsPtr, C.uintptr_t(len(rows)), C.uintptr_t(lweDim), C.uintptr_t(m),
		C.uintptr_t(elemSize), C.uintptr_t(plaintextBits), &shard, nil, &n))
}

func shardRespond(shard uint64, query []byte) (status.Code, cBuffer) {
	q, qn, freeQ := cBytes(query)
	defer freeQ()
	var resp cBuffer
	rc := frodopir_shard_respond(C.uint64_t(shard), q, qn, &resp.ptr, &resp.n)
	return status.Code(rc), resp
}

func shardFree(shard uint64) { frodopir_shard_free(C.uint64_t(shard)) }

func clientCreate(baseParams []byte) (status.Code, uint64) {
	bp, n, freeBP := cBytes(baseParams)
	defer freeBP()
	var client C.uint64_t
	rc := frodopir_client_create(bp, n, &client)
	return status.Code(rc), uint64(client)
}

func clientGenerateQuery(client uint64, row int) (status.Code, cBuffer, cBuffer) {
	var q, qp cBuffer
	rc := frodopir_client_generate_query(C.uint64_t(client), C.uintptr_t(row), &q.ptr, &q.n, &qp.ptr, &qp.n)
	return status.Code(rc), q, qp
}

// clientGenerateQueryNullOutput calls generate_query without a query
// params out-pointer.
func clientGenerateQueryNullOutput(client uint64, row int) status.Code {
	var q cBuffer
	var n C.uintptr_t
	return status.Code(frodopir_client_generate_query(C.uint64_t(client), C.uintptr_t(row), &q.ptr, &q.n, nil, &n))
}

func clientDecodeResponse(client uint64, response, queryParams []byte) (status.Code, cBuffer) {
	r, rn, freeR := cBytes(response)
	defer freeR()
	qp, qpn, freeQP := cBytes(queryParams)
	defer freeQP()
	var out cBuffer
	rc := frodopir_client_decode_response(C.uint64_t(client), r, rn, qp, qpn, &out.ptr, &out.n)
	return status.Code(rc), out
}

func clientFree(client uint64) { frodopir_client_free(C.uint64_t(client)) }

func okvsEncode(keys []string, values []float64) (status.Code, cBuffer) {
	k, freeK := cStrings(keys)
	defer freeK()
	v, freeV := cFloats(values)
	defer freeV()
	var enc cBuffer
	rc := rb_okvs_encode(k, v, C.uintptr_t(len(keys)), &enc.ptr, &enc.n)
	return status.Code(rc), enc
}

// okvsDecode passes the library-owned encoding straight back, as a C
// caller would.
func okvsDecode(enc cBuffer, key string) (status.Code, float64) {
	k := C.CString(key)
	defer C.free(unsafe.Pointer(k))
	var v C.double
	rc := rb_okvs_decode(enc.ptr, enc.n, k, &v)
	return status.Code(rc), float64(v)
}

// okvsDecodeNullOutput calls decode without a value out-pointer.
func okvsDecodeNullOutput(enc cBuffer, key string) status.Code {
	k := C.CString(key)
	defer C.free(unsafe.Pointer(k))
	return status.Code(rb_okvs_decode(enc.ptr, enc.n, k, nil))
}
