package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/hashicorp/raft"
)

// Command ops applied through the Raft log.
const (
	OpPutRound    = "PUT_ROUND"
	OpDeleteRound = "DELETE_ROUND"
)

// Storage backends recorded on an artifact.
const (
	BackendOKVS  = "okvs"
	BackendKVS   = "kvs"
	BackendEmpty = "empty"
)

// RoundArtifact is the replicated result of a completed round: the
// encoded blob its values were stored in and how it was encoded.
type RoundArtifact struct {
	Backend string `json:"backend"`
	Pairs   int    `json:"pairs"`
	Blob    []byte `json:"blob,omitempty"`
}

func (a RoundArtifact) clone() RoundArtifact {
	a.Blob = bytes.Clone(a.Blob)
	return a
}

// Command represents a single operation to be applied to the FSM.
type Command struct {
	Op       string         `json:"op"`
	Round    uint64         `json:"round"`
	Artifact *RoundArtifact `json:"artifact,omitempty"`
}

// FSM holds the artifacts of every completed round.
type FSM struct {
	mu     sync.RWMutex
	rounds map[uint64]RoundArtifact
}

// NewFSM creates a new FSM instance.
func NewFSM() *FSM {
	return &FSM{
		rounds: make(map[uint64]RoundArtifact),
	}
}

// Apply applies a Raft log entry to the FSM. A rejected command is
// returned as an error value in the apply response.
func (f *FSM) Apply(log *raft.Log) interface{} {
	var cmd Command
	if err := json.Unmarshal(log.Data, &cmd); err != nil {
		return fmt.Errorf("failed to deserialize command: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	switch cmd.Op {
	case OpPutRound:
		if cmd.Artifact == nil {
			return fmt.Errorf("round %d: put without artifact", cmd.Round)
		}
		f.rounds[cmd.Round] = *cmd.Artifact
		return nil
	case OpDeleteRound:
		delete(f.rounds, cmd.Round)
		return nil
	default:
		return fmt.Errorf("unrecognized command op: %s", cmd.Op)
	}
}

// Round returns a copy of the artifact stored for round.
func (f *FSM) Round(round uint64) (RoundArtifact, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	a, ok := f.rounds[round]
	if !ok {
		return RoundArtifact{}, false
	}
	return a.clone(), true
}

// Rounds returns the stored round IDs in ascending order.
func (f *FSM) Rounds() []uint64 {
	f.mu.RLock()
	ids := make([]uint64, 0, len(f.rounds))
	for id := range f.rounds {
		ids = append(ids, id)
	}
	f.mu.RUnlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Snapshot captures a deep copy of the FSM state for log compaction.
func (f *FSM) Snapshot() (raft.FSMSnapshot, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	clone := make(map[uint64]RoundArtifact, len(f.rounds))
	for id, a := range f.rounds {
		clone[id] = a.clone()
	}
	return &FSMSnapshot{rounds: clone}, nil
}

// Restore replaces the FSM state with a snapshot.
func (f *FSM) Restore(rc io.ReadCloser) error {
	defer rc.Close()

	var rounds map[uint64]RoundArtifact
	if err := json.NewDecoder(rc).Decode(&rounds); err != nil {
		return fmt.Errorf("failed to decode snapshot: %w", err)
	}
	if rounds == nil {
		rounds = make(map[uint64]RoundArtifact)
	}

	f.mu.Lock()
	f.rounds = rounds
	f.mu.Unlock()
	return nil
}

// FSMSnapshot represents a snapshot of the FSM state.
type FSMSnapshot struct {
	rounds map[uint64]RoundArtifact
}

// Persist writes the snapshot to the given sink.
func (s *FSMSnapshot) Persist(sink raft.SnapshotSink) error {
	if err := json.NewEncoder(sink).Encode(s.rounds); err != nil {
		sink.Cancel()
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return sink.Close()
}

// Release is a no-op; the snapshot holds no external resources.
func (s *FSMSnapshot) Release() {}
