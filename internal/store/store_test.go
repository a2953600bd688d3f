package store

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T, nodeID, dataDir string, bootstrap bool) *Store {
	t.Helper()
	store, err := NewStore(Config{
		NodeID:           nodeID,
		ListenAddr:       "127.0.0.1:0",
		DataDir:          dataDir,
		Bootstrap:        bootstrap,
		HeartbeatTimeout: 500 * time.Millisecond,
		ElectionTimeout:  500 * time.Millisecond,
		CommitTimeout:    50 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Failed to create store %s: %v", nodeID, err)
	}
	t.Cleanup(func() { store.Shutdown() })
	return store
}

// waitForLeadership waits for a node to become leader.
func waitForLeadership(t *testing.T, store *Store, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for !store.IsLeader() {
		if time.Now().After(deadline) {
			t.Fatal("Timeout waiting for leadership")
		}
		time.Sleep(50 * time.Millisecond)
	}
}

func TestNewStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	store := newTestStore(t, "test-node", dir, true)

	if store.fsm == nil || store.raft == nil {
		t.Fatal("store is not fully initialized")
	}
	for _, name := range []string{"logs", "stable"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("%s file missing: %v", name, err)
		}
	}
	if store.LocalAddr() == "" || store.LocalAddr() == "127.0.0.1:0" {
		t.Errorf("LocalAddr should report the bound port, got %q", store.LocalAddr())
	}
}

func TestStore_PutAndGetRound(t *testing.T) {
	store := newTestStore(t, "test-node", t.TempDir(), true)
	waitForLeadership(t, store, 5*time.Second)

	artifact := RoundArtifact{Backend: BackendOKVS, Pairs: 100, Blob: []byte("encoded")}
	if err := store.PutRound(1, artifact); err != nil {
		t.Fatalf("PutRound failed: %v", err)
	}

	got, ok := store.Round(1)
	if !ok {
		t.Fatal("round 1 should exist")
	}
	if got.Backend != artifact.Backend || got.Pairs != artifact.Pairs || !bytes.Equal(got.Blob, artifact.Blob) {
		t.Fatalf("got %+v, want %+v", got, artifact)
	}

	if _, ok := store.Round(2); ok {
		t.Fatal("round 2 should not exist")
	}
}

func TestStore_DeleteRound(t *testing.T) {
	store := newTestStore(t, "test-node", t.TempDir(), true)
	waitForLeadership(t, store, 5*time.Second)

	for i := uint64(1); i <= 3; i++ {
		if err := store.PutRound(i, RoundArtifact{Backend: BackendEmpty}); err != nil {
			t.Fatalf("PutRound(%d) failed: %v", i, err)
		}
	}
	if err := store.DeleteRound(2); err != nil {
		t.Fatalf("DeleteRound failed: %v", err)
	}

	rounds := store.Rounds()
	if len(rounds) != 2 || rounds[0] != 1 || rounds[1] != 3 {
		t.Fatalf("Rounds() = %v, want [1 3]", rounds)
	}
}

func TestStore_Leader(t *testing.T) {
	store := newTestStore(t, "test-node", t.TempDir(), true)
	if err := store.WaitForLeader(5 * time.Second); err != nil {
		t.Fatal(err)
	}
	waitForLeadership(t, store, 5*time.Second)
	if store.Leader() != store.LocalAddr() {
		t.Fatalf("Leader() = %q, want %q", store.Leader(), store.LocalAddr())
	}
}

func TestStore_WriteWithoutLeader(t *testing.T) {
	// A node that never bootstraps has no cluster and never leads.
	store := newTestStore(t, "lonely", t.TempDir(), false)

	err := store.PutRound(1, RoundArtifact{Backend: BackendEmpty})
	if !errors.Is(err, ErrNotLeader) {
		t.Fatalf("got %v, want ErrNotLeader", err)
	}
	if err := store.WaitForLeader(200 * time.Millisecond); err == nil {
		t.Fatal("WaitForLeader should time out")
	}
}

func TestStore_RestartKeepsRounds(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{
		NodeID:           "node",
		ListenAddr:       "127.0.0.1:0",
		DataDir:          dir,
		Bootstrap:        true,
		HeartbeatTimeout: 500 * time.Millisecond,
		ElectionTimeout:  500 * time.Millisecond,
		CommitTimeout:    50 * time.Millisecond,
	}

	first, err := NewStore(cfg)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	waitForLeadership(t, first, 5*time.Second)
	if err := first.PutRound(5, RoundArtifact{Backend: BackendKVS, Pairs: 1, Blob: []byte(`{"k":"AQ=="}`)}); err != nil {
		t.Fatalf("PutRound failed: %v", err)
	}
	if err := first.Shutdown(); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}

	// The log replays on restart; bootstrapping again is a no-op.
	second := newTestStore(t, "node", dir, true)
	deadline := time.Now().Add(5 * time.Second)
	for {
		if got, ok := second.Round(5); ok {
			if got.Backend != BackendKVS {
				t.Fatalf("unexpected artifact %+v", got)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("round 5 was not replayed after restart")
		}
		time.Sleep(50 * time.Millisecond)
	}
}
