package main

import (
	"encoding/base64"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mundrapranay/silhouette-db/internal/status"
)

const (
	testLWEDim        = 128
	testElemSize      = 256
	testPlaintextBits = 10
)

func testRows(n int) ([]string, [][]byte) {
	rows := make([]string, n)
	raw := make([][]byte, n)
	for i := range rows {
		b := make([]byte, testElemSize/8)
		copy(b, fmt.Sprintf("row-%d-payload", i))
		raw[i] = b
		rows[i] = base64.StdEncoding.EncodeToString(b)
	}
	return rows, raw
}

// requireNoLeak fails the test if buffers handed out during it are still
// outstanding when it ends.
func requireNoLeak(t *testing.T) {
	t.Helper()
	buffers, bytes := ledger.Outstanding()
	t.Cleanup(func() {
		b, n := ledger.Outstanding()
		assert.Equal(t, buffers, b, "outstanding buffers")
		assert.Equal(t, bytes, n, "outstanding bytes")
	})
}

// generateQuery retries the blinding overflow like a real client.
func generateQuery(t *testing.T, client uint64, row int) (cBuffer, cBuffer) {
	t.Helper()
	for attempt := 0; attempt < 8; attempt++ {
		rc, q, qp := clientGenerateQuery(client, row)
		if rc == status.ArithmeticOverflow {
			continue
		}
		require.Equal(t, status.Success, rc)
		return q, qp
	}
	t.Fatalf("query generation overflowed repeatedly")
	return cBuffer{}, cBuffer{}
}

func TestOKVS_EncodeDecodeThroughC(t *testing.T) {
	requireNoLeak(t)

	keys := make([]string, 100)
	values := make([]float64, 100)
	for i := range keys {
		keys[i] = fmt.Sprintf("key%d", i)
		values[i] = float64(i) * 0.123
	}

	rc, enc := okvsEncode(keys, values)
	require.Equal(t, status.Success, rc)
	require.NotNil(t, enc.ptr)
	defer enc.freeOKVS()

	for i := 0; i < 10; i++ {
		rc, v := okvsDecode(enc, keys[i])
		require.Equal(t, status.Success, rc)
		require.Equal(t, math.Float64bits(values[i]), math.Float64bits(v), keys[i])
	}
	rc, v := okvsDecode(enc, "key9")
	require.Equal(t, status.Success, rc)
	require.Equal(t, 1.107, v)
}

func TestOKVS_InvalidInputThroughC(t *testing.T) {
	requireNoLeak(t)

	rc, enc := okvsEncode(nil, nil)
	assert.Equal(t, status.InvalidInput, rc)
	assert.Nil(t, enc.ptr)

	rc, _ = okvsDecode(cBuffer{}, "key0")
	assert.Equal(t, status.InvalidInput, rc)

	rc, enc = okvsEncode([]string{"a", "b"}, []float64{1, 2})
	require.Equal(t, status.Success, rc)
	defer enc.freeOKVS()
	assert.Equal(t, status.InvalidInput, okvsDecodeNullOutput(enc, "a"))

	// Truncated encodings are framing errors.
	trunc := enc
	trunc.n = 5
	rc, _ = okvsDecode(trunc, "a")
	assert.Equal(t, status.DeserializationError, rc)
}

func TestPIR_RoundTripThroughC(t *testing.T) {
	requireNoLeak(t)

	rows, raw := testRows(8)
	rc, shard, bp := shardCreate(rows, testLWEDim, len(rows), testElemSize, testPlaintextBits)
	require.Equal(t, status.Success, rc)
	defer shardFree(shard)
	defer bp.free()

	rc, client := clientCreate(bp.bytes())
	require.Equal(t, status.Success, rc)
	defer clientFree(client)

	for _, row := range []int{0, 2, 7} {
		q, qp := generateQuery(t, client, row)
		rc, resp := shardRespond(shard, q.bytes())
		require.Equal(t, status.Success, rc)
		rc, out := clientDecodeResponse(client, resp.bytes(), qp.bytes())
		require.Equal(t, status.Success, rc)
		require.Equal(t, raw[row], out.bytes(), "row %d", row)

		for _, b := range []cBuffer{q, qp, resp, out} {
			b.free()
		}
	}
}

func TestPIR_FailuresThroughC(t *testing.T) {
	requireNoLeak(t)

	rc, _, bp := shardCreate(nil, testLWEDim, 0, testElemSize, testPlaintextBits)
	assert.Equal(t, status.InvalidInput, rc, "zero rows")
	assert.Nil(t, bp.ptr)

	rows, _ := testRows(4)
	assert.Equal(t, status.InvalidInput, shardCreateNullOutput(rows, testLWEDim, len(rows), testElemSize, testPlaintextBits))

	rc, shard, bp := shardCreate(rows, testLWEDim, len(rows), testElemSize, testPlaintextBits)
	require.Equal(t, status.Success, rc)
	defer bp.free()

	rc, client := clientCreate(bp.bytes())
	require.Equal(t, status.Success, rc)
	defer clientFree(client)

	rc, q, qp := clientGenerateQuery(client, len(rows))
	assert.Equal(t, status.InvalidInput, rc, "row index == m")
	assert.Nil(t, q.ptr)
	assert.Nil(t, qp.ptr)
	assert.Equal(t, status.InvalidInput, clientGenerateQueryNullOutput(client, 0))

	rc, _ = clientCreate(nil)
	assert.Equal(t, status.InvalidInput, rc)

	q, qp = generateQuery(t, client, 1)
	defer q.free()
	defer qp.free()

	shardFree(shard)
	rc, resp := shardRespond(shard, q.bytes())
	assert.Equal(t, status.InvalidInput, rc, "respond after shard_free")
	assert.Nil(t, resp.ptr)
	// A second free of the same handle is ignored.
	shardFree(shard)
}

func TestFreeBuffer_RejectsDoubleAndForeignRelease(t *testing.T) {
	requireNoLeak(t)

	rc, enc := okvsEncode([]string{"x"}, []float64{42})
	require.Equal(t, status.Success, rc)
	before, _ := ledger.Outstanding()

	enc.freeOKVS()
	after, _ := ledger.Outstanding()
	require.Equal(t, before-1, after)

	// The address is no longer tracked, so nothing is freed twice.
	enc.freeOKVS()
	enc.free()
	again, _ := ledger.Outstanding()
	require.Equal(t, after, again)

	foreign, freeForeign := foreignBuffer(16)
	defer freeForeign()
	foreign.free()
	foreign.freeOKVS()
	still, _ := ledger.Outstanding()
	require.Equal(t, after, still)

	// Null pointers are a no-op.
	frodopir_free_buffer(nil, 0)
	rb_okvs_free_buffer(nil, 0)
}

func TestFreeBuffer_RejectsWrongLength(t *testing.T) {
	requireNoLeak(t)

	rc, enc := okvsEncode([]string{"x"}, []float64{1})
	require.Equal(t, status.Success, rc)

	wrong := enc
	wrong.n++
	wrong.freeOKVS()
	buffers, _ := ledger.Outstanding()
	require.NotZero(t, buffers)

	enc.freeOKVS()
}
