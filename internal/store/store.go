package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/raft"
	raftboltdb "github.com/hashicorp/raft-boltdb/v2"
)

// ErrNotLeader is returned for writes on a follower.
var ErrNotLeader = errors.New("store: not the leader")

const defaultApplyTimeout = 10 * time.Second

// Store replicates round artifacts across the cluster with Raft.
type Store struct {
	raft         *raft.Raft
	fsm          *FSM
	transport    *raft.NetworkTransport
	logStore     *raftboltdb.BoltStore
	stableStore  *raftboltdb.BoltStore
	applyTimeout time.Duration
	logger       hclog.Logger
}

// Config holds configuration for initializing a Raft store. Zero
// timeouts keep the Raft defaults.
type Config struct {
	NodeID           string
	ListenAddr       string
	DataDir          string
	Bootstrap        bool
	HeartbeatTimeout time.Duration
	ElectionTimeout  time.Duration
	CommitTimeout    time.Duration
	ApplyTimeout     time.Duration
	Logger           hclog.Logger
}

// NewStore creates and initializes a new Raft store. A listen address
// with port 0 binds an ephemeral port; LocalAddr reports it.
func NewStore(config Config) (*Store, error) {
	logger := config.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	logger = logger.Named("store")

	if err := os.MkdirAll(config.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}

	fsm := NewFSM()

	raftConfig := raft.DefaultConfig()
	raftConfig.LocalID = raft.ServerID(config.NodeID)
	raftConfig.Logger = logger.Named("raft")
	if config.HeartbeatTimeout > 0 {
		raftConfig.HeartbeatTimeout = config.HeartbeatTimeout
		raftConfig.LeaderLeaseTimeout = config.HeartbeatTimeout
	}
	if config.ElectionTimeout > 0 {
		raftConfig.ElectionTimeout = config.ElectionTimeout
	}
	if config.CommitTimeout > 0 {
		raftConfig.CommitTimeout = config.CommitTimeout
	}

	logStore, err := raftboltdb.NewBoltStore(filepath.Join(config.DataDir, "logs"))
	if err != nil {
		return nil, fmt.Errorf("failed to create log store: %w", err)
	}
	stableStore, err := raftboltdb.NewBoltStore(filepath.Join(config.DataDir, "stable"))
	if err != nil {
		logStore.Close()
		return nil, fmt.Errorf("failed to create stable store: %w", err)
	}
	snapshotStore, err := raft.NewFileSnapshotStoreWithLogger(config.DataDir, 3, logger.Named("snapshots"))
	if err != nil {
		logStore.Close()
		stableStore.Close()
		return nil, fmt.Errorf("failed to create snapshot store: %w", err)
	}

	addr, err := net.ResolveTCPAddr("tcp", config.ListenAddr)
	if err != nil {
		logStore.Close()
		stableStore.Close()
		return nil, fmt.Errorf("failed to resolve address: %w", err)
	}
	var advertise net.Addr = addr
	if addr.Port == 0 {
		advertise = nil
	}
	transport, err := raft.NewTCPTransportWithLogger(config.ListenAddr, advertise, 3, 10*time.Second, logger.Named("transport"))
	if err != nil {
		logStore.Close()
		stableStore.Close()
		return nil, fmt.Errorf("failed to create transport: %w", err)
	}

	r, err := raft.NewRaft(raftConfig, fsm, logStore, stableStore, snapshotStore, transport)
	if err != nil {
		transport.Close()
		logStore.Close()
		stableStore.Close()
		return nil, fmt.Errorf("failed to create raft: %w", err)
	}

	if config.Bootstrap {
		configuration := raft.Configuration{
			Servers: []raft.Server{
				{
					ID:      raftConfig.LocalID,
					Address: transport.LocalAddr(),
				},
			},
		}
		if err := r.BootstrapCluster(configuration).Error(); err != nil && !errors.Is(err, raft.ErrCantBootstrap) {
			r.Shutdown()
			return nil, fmt.Errorf("failed to bootstrap cluster: %w", err)
		}
	}

	applyTimeout := config.ApplyTimeout
	if applyTimeout <= 0 {
		applyTimeout = defaultApplyTimeout
	}
	logger.Info("store started", "node", config.NodeID, "addr", transport.LocalAddr(), "bootstrap", config.Bootstrap)

	return &Store{
		raft:         r,
		fsm:          fsm,
		transport:    transport,
		logStore:     logStore,
		stableStore:  stableStore,
		applyTimeout: applyTimeout,
		logger:       logger,
	}, nil
}

func (s *Store) apply(cmd Command) error {
	if s.raft.State() != raft.Leader {
		return ErrNotLeader
	}
	data, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("failed to marshal command: %w", err)
	}

	future := s.raft.Apply(data, s.applyTimeout)
	if err := future.Error(); err != nil {
		if errors.Is(err, raft.ErrNotLeader) || errors.Is(err, raft.ErrLeadershipLost) {
			return fmt.Errorf("%w: %v", ErrNotLeader, err)
		}
		return fmt.Errorf("failed to apply command: %w", err)
	}
	if err, ok := future.Response().(error); ok {
		return fmt.Errorf("command rejected: %w", err)
	}
	return nil
}

// PutRound replicates the artifact of round. Only the leader accepts writes.
func (s *Store) PutRound(round uint64, artifact RoundArtifact) error {
	if err := s.apply(Command{Op: OpPutRound, Round: round, Artifact: &artifact}); err != nil {
		return err
	}
	s.logger.Debug("round stored", "round", round, "backend", artifact.Backend, "bytes", len(artifact.Blob))
	return nil
}

// DeleteRound removes the artifact of round from every replica.
func (s *Store) DeleteRound(round uint64) error {
	return s.apply(Command{Op: OpDeleteRound, Round: round})
}

// Round reads an artifact from the local FSM. Followers may lag the leader.
func (s *Store) Round(round uint64) (RoundArtifact, bool) {
	return s.fsm.Round(round)
}

// Rounds lists the rounds in the local FSM.
func (s *Store) Rounds() []uint64 {
	return s.fsm.Rounds()
}

// IsLeader returns whether this node is currently the Raft leader.
func (s *Store) IsLeader() bool {
	return s.raft.State() == raft.Leader
}

// Leader returns the address of the current leader.
func (s *Store) Leader() raft.ServerAddress {
	addr, _ := s.raft.LeaderWithID()
	return addr
}

// LocalAddr returns the Raft address this node advertises.
func (s *Store) LocalAddr() raft.ServerAddress {
	return s.transport.LocalAddr()
}

// WaitForLeader blocks until the cluster has a leader or timeout passes.
func (s *Store) WaitForLeader(timeout time.Duration) error {
	deadline := time.After(timeout)
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	for {
		if s.Leader() != "" {
			return nil
		}
		select {
		case <-deadline:
			return fmt.Errorf("no leader after %s", timeout)
		case <-tick.C:
		}
	}
}

// AddPeer adds a new voter to the cluster.
func (s *Store) AddPeer(peerID, peerAddr string) error {
	s.logger.Info("adding peer", "peer", peerID, "addr", peerAddr)
	return s.raft.AddVoter(raft.ServerID(peerID), raft.ServerAddress(peerAddr), 0, 0).Error()
}

// RemovePeer removes a peer from the cluster.
func (s *Store) RemovePeer(peerID string) error {
	s.logger.Info("removing peer", "peer", peerID)
	return s.raft.RemoveServer(raft.ServerID(peerID), 0, 0).Error()
}

// Shutdown stops Raft and closes the log and stable stores.
func (s *Store) Shutdown() error {
	if err := s.raft.Shutdown().Error(); err != nil {
		return err
	}
	return errors.Join(s.logStore.Close(), s.stableStore.Close())
}
