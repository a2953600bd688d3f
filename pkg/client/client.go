package client

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hashicorp/go-hclog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	apiv1 "github.com/mundrapranay/silhouette-db/api/v1"
	"github.com/mundrapranay/silhouette-db/internal/crypto"
)

// ErrKeyNotFound is returned by GetValue for a key the round does not hold.
var ErrKeyNotFound = errors.New("key not found in round")

// Client provides a Go client library for workers to interact with the
// silhouette coordination layer.
type Client struct {
	conn    *grpc.ClientConn
	service apiv1.CoordinationServiceClient
	logger  hclog.Logger

	mu     sync.Mutex
	rounds map[uint64]*roundState
}

// roundState caches what the client needs to query one round. pir is nil
// for an empty round.
type roundState struct {
	pir        *crypto.FrodoPIRClient
	keyToIndex map[string]int
}

// NewClient creates a new client connection to a silhouette server.
func NewClient(serverAddr string, logger hclog.Logger) (*Client, error) {
	conn, err := grpc.NewClient(serverAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to server: %w", err)
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	return &Client{
		conn:    conn,
		service: apiv1.NewCoordinationServiceClient(conn),
		logger:  logger.Named("client"),
		rounds:  make(map[uint64]*roundState),
	}, nil
}

// Close releases every cached PIR client and closes the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	for id, rs := range c.rounds {
		if rs.pir != nil {
			errs = append(errs, rs.pir.Close())
		}
		delete(c.rounds, id)
	}
	errs = append(errs, c.conn.Close())
	return errors.Join(errs...)
}

// StartRound initializes a new round on the server.
func (c *Client) StartRound(ctx context.Context, roundID uint64, expectedWorkers int32) error {
	req := &apiv1.StartRoundRequest{
		RoundId:         roundID,
		ExpectedWorkers: expectedWorkers,
	}

	resp, err := c.service.StartRound(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to start round: %w", err)
	}

	if !resp.Success {
		return fmt.Errorf("server returned failure for start round")
	}

	return nil
}

// PublishValues publishes key-value pairs for a given round.
func (c *Client) PublishValues(ctx context.Context, roundID uint64, workerID string, pairs map[string][]byte) error {
	kvPairs := make([]*apiv1.KeyValuePair, 0, len(pairs))
	for k, v := range pairs {
		kvPairs = append(kvPairs, &apiv1.KeyValuePair{
			Key:   k,
			Value: v,
		})
	}

	req := &apiv1.PublishValuesRequest{
		RoundId:  roundID,
		WorkerId: workerID,
		Pairs:    kvPairs,
	}

	resp, err := c.service.PublishValues(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to publish values: %w", err)
	}

	if !resp.Success {
		return fmt.Errorf("server returned failure for publish values")
	}

	return nil
}

// GetKeyMapping fetches the key-to-row mapping of a completed round.
func (c *Client) GetKeyMapping(ctx context.Context, roundID uint64) (map[string]int, error) {
	resp, err := c.service.GetKeyMapping(ctx, &apiv1.GetKeyMappingRequest{RoundId: roundID})
	if err != nil {
		return nil, fmt.Errorf("failed to get key mapping: %w", err)
	}
	keyToIndex := make(map[string]int, len(resp.Entries))
	for _, e := range resp.Entries {
		keyToIndex[e.Key] = int(e.Index)
	}
	return keyToIndex, nil
}

// InitializePIRClient prepares the client to query a completed round. It
// is called by GetValue on first use; calling it again is a no-op.
func (c *Client) InitializePIRClient(ctx context.Context, roundID uint64) error {
	_, err := c.round(ctx, roundID)
	return err
}

func (c *Client) round(ctx context.Context, roundID uint64) (*roundState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if rs, ok := c.rounds[roundID]; ok {
		return rs, nil
	}

	keyToIndex, err := c.GetKeyMapping(ctx, roundID)
	if err != nil {
		return nil, err
	}
	rs := &roundState{keyToIndex: keyToIndex}
	if len(keyToIndex) > 0 {
		resp, err := c.service.GetBaseParams(ctx, &apiv1.GetBaseParamsRequest{RoundId: roundID})
		if err != nil {
			return nil, fmt.Errorf("failed to get base params: %w", err)
		}
		if rs.pir, err = crypto.NewFrodoPIRClient(resp.BaseParams, keyToIndex); err != nil {
			return nil, fmt.Errorf("failed to create PIR client: %w", err)
		}
	}

	c.rounds[roundID] = rs
	c.logger.Debug("PIR client initialized", "round", roundID, "keys", len(keyToIndex))
	return rs, nil
}

// GetValue retrieves a value for a specific key from a round using PIR.
func (c *Client) GetValue(ctx context.Context, roundID uint64, key string) ([]byte, error) {
	rs, err := c.round(ctx, roundID)
	if err != nil {
		return nil, err
	}
	if _, ok := rs.keyToIndex[key]; !ok || rs.pir == nil {
		return nil, fmt.Errorf("%w: %q in round %d", ErrKeyNotFound, key, roundID)
	}

	// Generate PIR query for the key
	query, err := rs.pir.GenerateQuery(key)
	if err != nil {
		return nil, fmt.Errorf("failed to generate PIR query: %w", err)
	}

	req := &apiv1.GetValueRequest{
		RoundId:  roundID,
		PirQuery: query,
	}

	resp, err := c.service.GetValue(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to get value: %w", err)
	}

	value, err := rs.pir.DecodeResponse(key, resp.PirResponse)
	if err != nil {
		return nil, fmt.Errorf("failed to decode PIR response: %w", err)
	}

	return value, nil
}
