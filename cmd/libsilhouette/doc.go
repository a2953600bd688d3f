// Command libsilhouette builds the C shared library that exposes PIR and
// OKVS operations to foreign callers:
//
//	go build -buildmode=c-shared -o libsilhouette.so ./cmd/libsilhouette
//
// Every exported function returns an int status (0 on success). Shards
// and clients are addressed by opaque uint64 handles; a destroyed handle
// is rejected rather than dereferenced. Output buffers are allocated with
// malloc and owned by the caller, who must release each one exactly once
// through frodopir_free_buffer or rb_okvs_free_buffer. Outputs are only
// written when the call succeeds.
//
// The log level is taken from SILHOUETTE_LOG_LEVEL (default info); logs
// go to stderr.
package main
