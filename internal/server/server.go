package server

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/hashicorp/go-hclog"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	apiv1 "github.com/mundrapranay/silhouette-db/api/v1"
	"github.com/mundrapranay/silhouette-db/internal/crypto"
	pirstatus "github.com/mundrapranay/silhouette-db/internal/status"
	"github.com/mundrapranay/silhouette-db/internal/store"
)

// PIRConfig holds the FrodoPIR parameters used for every round.
type PIRConfig struct {
	LWEDim        int `yaml:"lwe_dim"`
	PlaintextBits int `yaml:"plaintext_bits"`
	// MinElemBytes is the smallest database element; larger values round
	// the element up to the next power of two.
	MinElemBytes int `yaml:"min_elem_bytes"`
}

// DefaultPIRConfig returns parameters suited to small databases.
func DefaultPIRConfig() PIRConfig {
	return PIRConfig{LWEDim: 512, PlaintextBits: 10, MinElemBytes: 64}
}

// elemSizeBits returns the element size for values of at most maxValueBytes.
func (c PIRConfig) elemSizeBits(maxValueBytes int) int {
	elemBytes := c.MinElemBytes
	for elemBytes < maxValueBytes {
		elemBytes *= 2
	}
	return elemBytes * 8
}

// Config configures a Server.
type Config struct {
	// StorageBackend is store.BackendOKVS (default) or store.BackendKVS.
	StorageBackend string
	// Encoder overrides the encoder implied by StorageBackend.
	Encoder crypto.OKVSEncoder
	PIR     PIRConfig
	Logger  hclog.Logger
}

// Server implements the CoordinationService gRPC server.
type Server struct {
	apiv1.UnimplementedCoordinationServiceServer

	store          *store.Store
	encoder        crypto.OKVSEncoder
	storageBackend string
	pir            PIRConfig
	logger         hclog.Logger

	roundsMu sync.RWMutex
	rounds   map[uint64]*round
}

// round tracks one round from StartRound until its results are served.
type round struct {
	mu         sync.Mutex
	expected   int
	workerData map[string][]*apiv1.KeyValuePair // worker_id -> pairs
	complete   bool
	results    *roundResults
}

// roundResults is what a completed round serves. pir is nil for a round
// in which no pairs were published.
type roundResults struct {
	pir        *crypto.FrodoPIRServer
	baseParams []byte
	keyToIndex map[string]int
}

// NewServer creates a new gRPC server instance.
func NewServer(s *store.Store, cfg Config) (*Server, error) {
	if cfg.StorageBackend == "" {
		cfg.StorageBackend = store.BackendOKVS
	}
	if cfg.Encoder == nil {
		switch cfg.StorageBackend {
		case store.BackendOKVS:
			cfg.Encoder = crypto.NewRBOKVSEncoder()
		case store.BackendKVS:
			cfg.Encoder = crypto.NewKVSEncoder()
		default:
			return nil, fmt.Errorf("invalid storage backend %q (must be %q or %q)", cfg.StorageBackend, store.BackendOKVS, store.BackendKVS)
		}
	}
	if cfg.PIR == (PIRConfig{}) {
		cfg.PIR = DefaultPIRConfig()
	}
	if cfg.PIR.LWEDim <= 0 || cfg.PIR.PlaintextBits <= 0 || cfg.PIR.MinElemBytes <= 0 {
		return nil, fmt.Errorf("invalid PIR config %+v", cfg.PIR)
	}
	if cfg.Logger == nil {
		cfg.Logger = hclog.NewNullLogger()
	}

	return &Server{
		store:          s,
		encoder:        cfg.Encoder,
		storageBackend: cfg.StorageBackend,
		pir:            cfg.PIR,
		logger:         cfg.Logger.Named("server"),
		rounds:         make(map[uint64]*round),
	}, nil
}

func (s *Server) requireLeader() error {
	if !s.store.IsLeader() {
		return status.Errorf(codes.FailedPrecondition, "not the leader (leader is %q)", s.store.Leader())
	}
	return nil
}

func (s *Server) getRound(id uint64) (*round, bool) {
	s.roundsMu.RLock()
	defer s.roundsMu.RUnlock()
	r, ok := s.rounds[id]
	return r, ok
}

// completedResults returns the results of a completed round.
func (s *Server) completedResults(id uint64) (*roundResults, error) {
	r, ok := s.getRound(id)
	if !ok {
		return nil, status.Errorf(codes.NotFound, "round %d not found", id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.complete {
		return nil, status.Errorf(codes.NotFound, "round %d not complete", id)
	}
	return r.results, nil
}

// StartRound initializes a new synchronous round for data submission.
func (s *Server) StartRound(ctx context.Context, req *apiv1.StartRoundRequest) (*apiv1.StartRoundResponse, error) {
	if err := s.requireLeader(); err != nil {
		return nil, err
	}
	if req.ExpectedWorkers <= 0 {
		return nil, status.Errorf(codes.InvalidArgument, "expected workers must be positive, got %d", req.ExpectedWorkers)
	}

	s.roundsMu.Lock()
	defer s.roundsMu.Unlock()
	if _, exists := s.rounds[req.RoundId]; exists {
		return nil, status.Errorf(codes.AlreadyExists, "round %d already started", req.RoundId)
	}
	s.rounds[req.RoundId] = &round{
		expected:   int(req.ExpectedWorkers),
		workerData: make(map[string][]*apiv1.KeyValuePair),
	}

	s.logger.Info("round started", "round", req.RoundId, "expected_workers", req.ExpectedWorkers)
	return &apiv1.StartRoundResponse{Success: true}, nil
}

// PublishValues records one worker's pairs. The publish that brings the
// round to its expected worker count also completes the round: pairs are
// encoded, replicated through Raft and loaded into a PIR server.
func (s *Server) PublishValues(ctx context.Context, req *apiv1.PublishValuesRequest) (*apiv1.PublishValuesResponse, error) {
	if err := s.requireLeader(); err != nil {
		return nil, err
	}
	if req.WorkerId == "" {
		return nil, status.Errorf(codes.InvalidArgument, "worker id is required")
	}

	r, ok := s.getRound(req.RoundId)
	if !ok {
		return nil, status.Errorf(codes.NotFound, "round %d not found", req.RoundId)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.complete {
		return nil, status.Errorf(codes.AlreadyExists, "round %d already completed", req.RoundId)
	}
	for i, p := range req.Pairs {
		if p == nil || p.Key == "" {
			return nil, status.Errorf(codes.InvalidArgument, "pair %d has no key", i)
		}
	}

	// A worker that publishes again replaces its earlier contribution.
	r.workerData[req.WorkerId] = req.Pairs
	s.logger.Debug("values published", "round", req.RoundId, "worker", req.WorkerId,
		"pairs", len(req.Pairs), "workers", len(r.workerData), "expected", r.expected)
	if len(r.workerData) < r.expected {
		return &apiv1.PublishValuesResponse{Success: true}, nil
	}

	results, err := s.completeRound(req.RoundId, aggregate(r.workerData))
	if err != nil {
		// The last contribution is withdrawn so the worker can retry.
		delete(r.workerData, req.WorkerId)
		return nil, err
	}
	r.results = results
	r.complete = true
	r.workerData = nil
	return &apiv1.PublishValuesResponse{Success: true}, nil
}

// aggregate merges worker contributions. Workers are visited in ID order,
// so a key published by several workers takes the value of the last one.
func aggregate(workerData map[string][]*apiv1.KeyValuePair) map[string][]byte {
	workers := make([]string, 0, len(workerData))
	for w := range workerData {
		workers = append(workers, w)
	}
	sort.Strings(workers)

	all := make(map[string][]byte)
	for _, w := range workers {
		for _, p := range workerData[w] {
			all[p.Key] = p.Value
		}
	}
	return all
}

func (s *Server) completeRound(id uint64, pairs map[string][]byte) (*roundResults, error) {
	if len(pairs) == 0 {
		// Synchronization-only round: nothing to serve.
		if err := s.store.PutRound(id, store.RoundArtifact{Backend: store.BackendEmpty}); err != nil {
			return nil, storeError(id, err)
		}
		s.logger.Info("round completed", "round", id, "pairs", 0)
		return &roundResults{keyToIndex: map[string]int{}}, nil
	}

	if s.storageBackend == store.BackendOKVS && len(pairs) < crypto.MinOKVSPairs {
		return nil, status.Errorf(codes.InvalidArgument, "OKVS requires at least %d pairs, got %d", crypto.MinOKVSPairs, len(pairs))
	}

	blob, err := s.encoder.Encode(pairs)
	if err != nil {
		if errors.Is(err, crypto.ErrValueSize) || errors.Is(err, crypto.ErrTooFewPairs) {
			return nil, status.Errorf(codes.InvalidArgument, "failed to encode round %d: %v", id, err)
		}
		return nil, status.Errorf(codes.Internal, "failed to encode round %d: %v", id, err)
	}

	var decoder crypto.OKVSDecoder
	if s.storageBackend == store.BackendKVS {
		if decoder, err = crypto.NewKVSDecoder(blob); err != nil {
			return nil, status.Errorf(codes.Internal, "failed to create KVS decoder: %v", err)
		}
	} else {
		decoder = crypto.NewRBOKVSDecoder(blob)
	}

	// The PIR database holds the values as read back from the encoding.
	keys := crypto.SortedKeys(pairs)
	pirPairs := make(map[string][]byte, len(keys))
	maxValueBytes := 0
	for _, key := range keys {
		v, err := decoder.Decode(blob, key)
		if err != nil {
			return nil, status.Errorf(codes.Internal, "failed to decode value for key %s: %v", key, err)
		}
		pirPairs[key] = v
		maxValueBytes = max(maxValueBytes, len(v))
	}

	elemSize := s.pir.elemSizeBits(maxValueBytes)
	pirServer, baseParams, err := crypto.NewFrodoPIRServer(pirPairs, s.pir.LWEDim, elemSize, s.pir.PlaintextBits)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to create FrodoPIR server: %v", err)
	}

	artifact := store.RoundArtifact{Backend: s.storageBackend, Pairs: len(pairs), Blob: blob}
	if err := s.store.PutRound(id, artifact); err != nil {
		pirServer.Close()
		return nil, storeError(id, err)
	}

	s.logger.Info("round completed", "round", id, "pairs", len(pairs), "backend", s.storageBackend,
		"blob_bytes", len(blob), "elem_bits", elemSize)
	return &roundResults{
		pir:        pirServer,
		baseParams: baseParams,
		keyToIndex: crypto.KeyToIndex(keys),
	}, nil
}

func storeError(id uint64, err error) error {
	if errors.Is(err, store.ErrNotLeader) {
		return status.Errorf(codes.FailedPrecondition, "round %d: %v", id, err)
	}
	return status.Errorf(codes.Internal, "failed to store round %d: %v", id, err)
}

// GetValue answers a PIR query against a completed round.
func (s *Server) GetValue(ctx context.Context, req *apiv1.GetValueRequest) (*apiv1.GetValueResponse, error) {
	if err := s.requireLeader(); err != nil {
		return nil, err
	}
	results, err := s.completedResults(req.RoundId)
	if err != nil {
		return nil, err
	}
	if results.pir == nil {
		return nil, status.Errorf(codes.FailedPrecondition, "round %d is empty (no data available)", req.RoundId)
	}
	if len(req.PirQuery) == 0 {
		return nil, status.Errorf(codes.InvalidArgument, "PIR query is empty")
	}

	resp, err := results.pir.ProcessQuery(req.PirQuery)
	if err != nil {
		return nil, status.Errorf(queryCode(err), "failed to process PIR query: %v", err)
	}
	return &apiv1.GetValueResponse{PirResponse: resp}, nil
}

// queryCode maps a failed query onto a gRPC code: bytes the client sent
// wrong are its fault, anything else is ours.
func queryCode(err error) codes.Code {
	switch pirstatus.FromError(err) {
	case pirstatus.InvalidInput, pirstatus.DeserializationError:
		return codes.InvalidArgument
	default:
		return codes.Internal
	}
}

// GetBaseParams returns the serialized BaseParams clients need to build
// PIR queries for a round.
func (s *Server) GetBaseParams(ctx context.Context, req *apiv1.GetBaseParamsRequest) (*apiv1.GetBaseParamsResponse, error) {
	if err := s.requireLeader(); err != nil {
		return nil, err
	}
	results, err := s.completedResults(req.RoundId)
	if err != nil {
		return nil, err
	}
	if results.baseParams == nil {
		return nil, status.Errorf(codes.NotFound, "round %d base params not found (empty round)", req.RoundId)
	}
	return &apiv1.GetBaseParamsResponse{BaseParams: results.baseParams}, nil
}

// GetKeyMapping returns the key-to-row mapping of a round, ordered by row.
func (s *Server) GetKeyMapping(ctx context.Context, req *apiv1.GetKeyMappingRequest) (*apiv1.GetKeyMappingResponse, error) {
	if err := s.requireLeader(); err != nil {
		return nil, err
	}
	results, err := s.completedResults(req.RoundId)
	if err != nil {
		return nil, err
	}

	entries := make([]*apiv1.KeyMappingEntry, 0, len(results.keyToIndex))
	for key, index := range results.keyToIndex {
		entries = append(entries, &apiv1.KeyMappingEntry{Key: key, Index: int32(index)})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Index < entries[j].Index })
	return &apiv1.GetKeyMappingResponse{Entries: entries}, nil
}

// Close releases the PIR servers of every completed round.
func (s *Server) Close() error {
	s.roundsMu.Lock()
	defer s.roundsMu.Unlock()

	var errs []error
	for id, r := range s.rounds {
		r.mu.Lock()
		if r.results != nil && r.results.pir != nil {
			errs = append(errs, r.results.pir.Close())
		}
		r.mu.Unlock()
		delete(s.rounds, id)
	}
	return errors.Join(errs...)
}
