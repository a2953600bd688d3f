package main

/*
#include <stdint.h>
#include <stdlib.h>
*/
import "C"

import (
	"os"

	"github.com/hashicorp/go-hclog"

	"github.com/mundrapranay/silhouette-db/internal/handle"
	"github.com/mundrapranay/silhouette-db/internal/session"
	"github.com/mundrapranay/silhouette-db/internal/status"
)

var (
	logger = hclog.New(&hclog.LoggerOptions{
		Name:   "libsilhouette",
		Level:  hclog.LevelFromString(os.Getenv("SILHOUETTE_LOG_LEVEL")),
		Output: os.Stderr,
	})
	manager = session.NewManager(logger)
	ledger  = handle.NewLedger()
)

func main() {}

// run converts fn's outcome into a status. Panics never cross into C.
func run(op string, fn func() error) C.int {
	var failure error
	code := status.Guard(func() error {
		failure = fn()
		return failure
	})
	if code != status.Success {
		logger.Debug("call failed", "op", op, "status", code, "error", failure)
	}
	return C.int(code)
}

//export frodopir_shard_create
func frodopir_shard_create(rowsPtr **C.char, numRows, lweDim, m, elemSize, plaintextBits C.uintptr_t,
	shardOut *C.uint64_t, baseParamsOut **C.uint8_t, baseParamsLen *C.uintptr_t) C.int {
	return run("frodopir_shard_create", func() error {
		if shardOut == nil || baseParamsOut == nil || baseParamsLen == nil {
			return nullOutput("output pointer")
		}
		rows, err := inStrings(rowsPtr, numRows, "row")
		if err != nil {
			return err
		}
		dims := make([]int, 4)
		for i, v := range []C.uintptr_t{lweDim, m, elemSize, plaintextBits} {
			if dims[i], err = toInt(v, "dimension"); err != nil {
				return err
			}
		}
		h, bp, err := manager.ServerCreate(rows, dims[0], dims[1], dims[2], dims[3])
		if err != nil {
			return err
		}
		*shardOut = C.uint64_t(h)
		export(bp, baseParamsOut, baseParamsLen)
		return nil
	})
}

//export frodopir_shard_respond
func frodopir_shard_respond(shard C.uint64_t, queryPtr *C.uint8_t, queryLen C.uintptr_t,
	responseOut **C.uint8_t, responseLen *C.uintptr_t) C.int {
	return run("frodopir_shard_respond", func() error {
		if responseOut == nil || responseLen == nil {
			return nullOutput("response pointer")
		}
		query, err := inBytes(queryPtr, queryLen, "query")
		if err != nil {
			return err
		}
		resp, err := manager.ServerRespond(handle.Handle(shard), query)
		if err != nil {
			return err
		}
		export(resp, responseOut, responseLen)
		return nil
	})
}

//export frodopir_client_create
func frodopir_client_create(baseParamsPtr *C.uint8_t, baseParamsLen C.uintptr_t, clientOut *C.uint64_t) C.int {
	return run("frodopir_client_create", func() error {
		if clientOut == nil {
			return nullOutput("client pointer")
		}
		bp, err := inBytes(baseParamsPtr, baseParamsLen, "base params")
		if err != nil {
			return err
		}
		if len(bp) == 0 {
			return nullOutput("base params")
		}
		h, err := manager.ClientCreate(bp)
		if err != nil {
			return err
		}
		*clientOut = C.uint64_t(h)
		return nil
	})
}

//export frodopir_client_generate_query
func frodopir_client_generate_query(client C.uint64_t, rowIndex C.uintptr_t,
	queryOut **C.uint8_t, queryLen *C.uintptr_t, queryParamsOut **C.uint8_t, queryParamsLen *C.uintptr_t) C.int {
	return run("frodopir_client_generate_query", func() error {
		if queryOut == nil || queryLen == nil || queryParamsOut == nil || queryParamsLen == nil {
			return nullOutput("output pointer")
		}
		row, err := toInt(rowIndex, "row index")
		if err != nil {
			return err
		}
		q, qp, err := manager.ClientGenerateQuery(handle.Handle(client), row)
		if err != nil {
			return err
		}
		export(q, queryOut, queryLen)
		export(qp, queryParamsOut, queryParamsLen)
		return nil
	})
}

//export frodopir_client_decode_response
func frodopir_client_decode_response(client C.uint64_t, responsePtr *C.uint8_t, responseLen C.uintptr_t,
	queryParamsPtr *C.uint8_t, queryParamsLen C.uintptr_t, outputOut **C.uint8_t, outputLen *C.uintptr_t) C.int {
	return run("frodopir_client_decode_response", func() error {
		if outputOut == nil || outputLen == nil {
			return nullOutput("output pointer")
		}
		resp, err := inBytes(responsePtr, responseLen, "response")
		if err != nil {
			return err
		}
		qp, err := inBytes(queryParamsPtr, queryParamsLen, "query params")
		if err != nil {
			return err
		}
		out, err := manager.ClientDecodeResponse(handle.Handle(client), resp, qp)
		if err != nil {
			return err
		}
		export(out, outputOut, outputLen)
		return nil
	})
}

//export frodopir_shard_free
func frodopir_shard_free(shard C.uint64_t) {
	run("frodopir_shard_free", func() error {
		return manager.ServerDestroy(handle.Handle(shard))
	})
}

//export frodopir_client_free
func frodopir_client_free(client C.uint64_t) {
	run("frodopir_client_free", func() error {
		return manager.ClientDestroy(handle.Handle(client))
	})
}

//export frodopir_free_buffer
func frodopir_free_buffer(ptr *C.uint8_t, n C.uintptr_t) {
	release("frodopir_free_buffer", ptr, n)
}

//export rb_okvs_encode
func rb_okvs_encode(keysPtr **C.char, valuesPtr *C.double, numPairs C.uintptr_t,
	encodingOut **C.uint8_t, encodingLen *C.uintptr_t) C.int {
	return run("rb_okvs_encode", func() error {
		if encodingOut == nil || encodingLen == nil {
			return nullOutput("output pointer")
		}
		keys, err := inStrings(keysPtr, numPairs, "key")
		if err != nil {
			return err
		}
		values, err := inFloats(valuesPtr, len(keys))
		if err != nil {
			return err
		}
		blob, err := manager.OKVSEncode(keys, values)
		if err != nil {
			return err
		}
		export(blob, encodingOut, encodingLen)
		return nil
	})
}

// rb_okvs_decode succeeds for keys that were never encoded; the value
// written is then arbitrary.
//
//export rb_okvs_decode
func rb_okvs_decode(encodingPtr *C.uint8_t, encodingLen C.uintptr_t, keyPtr *C.char, valueOut *C.double) C.int {
	return run("rb_okvs_decode", func() error {
		if valueOut == nil || keyPtr == nil {
			return nullOutput("key or value pointer")
		}
		blob, err := inBytes(encodingPtr, encodingLen, "encoding")
		if err != nil {
			return err
		}
		v, err := manager.OKVSDecode(blob, C.GoString(keyPtr))
		if err != nil {
			return err
		}
		*valueOut = C.double(v)
		return nil
	})
}

//export rb_okvs_free_buffer
func rb_okvs_free_buffer(ptr *C.uint8_t, n C.uintptr_t) {
	release("rb_okvs_free_buffer", ptr, n)
}
