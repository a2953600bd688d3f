package crypto

import (
	"encoding/base64"
	"fmt"
	"sync"

	"github.com/mundrapranay/silhouette-db/internal/handle"
	"github.com/mundrapranay/silhouette-db/internal/status"
)

// maxOverflowRetries bounds how often GenerateQuery resamples query params
// after an arithmetic overflow. Overflow is probabilistic, so a fresh
// sample usually succeeds.
const maxOverflowRetries = 3

// PIRServer answers PIR queries over a fixed database.
type PIRServer interface {
	ProcessQuery(query []byte) ([]byte, error)
	Close() error
}

// PIRClient builds queries for keys and decodes the matching responses.
type PIRClient interface {
	GenerateQuery(key string) ([]byte, error)
	DecodeResponse(key string, response []byte) ([]byte, error)
	Close() error
}

var (
	_ PIRServer = (*FrodoPIRServer)(nil)
	_ PIRClient = (*FrodoPIRClient)(nil)
)

// FrodoPIRServer implements PIRServer using FrodoPIR.
type FrodoPIRServer struct {
	h        handle.Handle
	rows     int
	elemSize int

	closeOnce sync.Once
}

// NewFrodoPIRServer creates a FrodoPIR server from key-value pairs. Rows
// follow SortedKeys order; each value is zero padded to elemSize bits.
//
// Parameters:
// - lweDim: LWE dimension (typically 512, 1024, or 1572)
// - elemSize: element size in bits
// - plaintextBits: plaintext bits per matrix element (10 or 9)
//
// Returns the server and the serialized BaseParams for clients.
func NewFrodoPIRServer(pairs map[string][]byte, lweDim, elemSize, plaintextBits int) (*FrodoPIRServer, []byte, error) {
	if len(pairs) == 0 {
		return nil, nil, ErrEmptyDatabase
	}

	rowBytes := (elemSize + 7) / 8
	keys := SortedKeys(pairs)
	rows := make([]string, len(keys))
	for i, k := range keys {
		v := pairs[k]
		if len(v) > rowBytes {
			return nil, nil, fmt.Errorf("%w: value for key %q is %d bytes, element holds %d", ErrValueSize, k, len(v), rowBytes)
		}
		padded := make([]byte, rowBytes)
		copy(padded, v)
		rows[i] = base64.StdEncoding.EncodeToString(padded)
	}

	h, baseParams, err := sessions.ServerCreate(rows, lweDim, len(rows), elemSize, plaintextBits)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create shard: %w", err)
	}
	return &FrodoPIRServer{h: h, rows: len(rows), elemSize: elemSize}, baseParams, nil
}

// Rows returns the number of database rows.
func (s *FrodoPIRServer) Rows() int {
	return s.rows
}

// ProcessQuery answers a serialized query. Safe for concurrent use.
func (s *FrodoPIRServer) ProcessQuery(query []byte) ([]byte, error) {
	if len(query) == 0 {
		return nil, fmt.Errorf("query cannot be empty")
	}
	resp, err := sessions.ServerRespond(s.h, query)
	if err != nil {
		return nil, fmt.Errorf("failed to process query: %w", err)
	}
	return resp, nil
}

// Close frees the server resources. Further queries fail.
func (s *FrodoPIRServer) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = sessions.ServerDestroy(s.h)
	})
	return err
}

// FrodoPIRClient implements PIRClient using FrodoPIR.
type FrodoPIRClient struct {
	h          handle.Handle
	keyToIndex map[string]int

	mu      sync.Mutex
	pending map[string][]byte // key -> query params of the outstanding query

	closeOnce sync.Once
}

// NewFrodoPIRClient creates a client from serialized BaseParams.
// keyToIndex maps keys to database rows.
func NewFrodoPIRClient(baseParams []byte, keyToIndex map[string]int) (*FrodoPIRClient, error) {
	if len(baseParams) == 0 {
		return nil, fmt.Errorf("baseParams cannot be empty")
	}
	h, err := sessions.ClientCreate(baseParams)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return &FrodoPIRClient{
		h:          h,
		keyToIndex: keyToIndex,
		pending:    make(map[string][]byte),
	}, nil
}

// GenerateQuery creates a PIR query for key. The query params are kept
// until DecodeResponse is called for the same key; a second query for a
// key replaces the first.
//
// Query generation occasionally overflows when the sampled params sit
// close to the modulus. Those attempts are retried with fresh params;
// every other failure is returned immediately.
func (c *FrodoPIRClient) GenerateQuery(key string) ([]byte, error) {
	return c.generateQueryWithRetry(key, maxOverflowRetries)
}

func (c *FrodoPIRClient) generateQueryWithRetry(key string, maxRetries int) ([]byte, error) {
	index, ok := c.keyToIndex[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrKeyNotFound, key)
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		query, queryParams, err := sessions.ClientGenerateQuery(c.h, index)
		if err == nil {
			c.mu.Lock()
			c.pending[key] = queryParams
			c.mu.Unlock()
			return query, nil
		}
		if status.FromError(err) != status.ArithmeticOverflow {
			return nil, fmt.Errorf("failed to generate query for %q: %w", key, err)
		}
		lastErr = err
	}
	return nil, fmt.Errorf("failed to generate query after %d attempts: %w", maxRetries+1, lastErr)
}

// DecodeResponse decodes the server response to the outstanding query for
// key. Trailing zero padding is trimmed, keeping at least 8 bytes so a
// float64 value always survives.
func (c *FrodoPIRClient) DecodeResponse(key string, response []byte) ([]byte, error) {
	if len(response) == 0 {
		return nil, fmt.Errorf("response cannot be empty")
	}

	c.mu.Lock()
	queryParams, ok := c.pending[key]
	delete(c.pending, key)
	c.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoPendingQuery, key)
	}

	out, err := sessions.ClientDecodeResponse(c.h, response, queryParams)
	if err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return trimPadding(out, 8), nil
}

// Close frees the client resources.
func (c *FrodoPIRClient) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = sessions.ClientDestroy(c.h)
	})
	return err
}

func trimPadding(b []byte, minSize int) []byte {
	n := len(b)
	for n > minSize && b[n-1] == 0 {
		n--
	}
	return b[:n]
}
