package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	apiv1 "github.com/mundrapranay/silhouette-db/api/v1"
	"github.com/mundrapranay/silhouette-db/internal/crypto"
	"github.com/mundrapranay/silhouette-db/internal/server"
	"github.com/mundrapranay/silhouette-db/internal/store"
)

// startServer runs a single-node leader and returns its gRPC address.
func startServer(t *testing.T, backend string) string {
	t.Helper()
	st, err := store.NewStore(store.Config{
		NodeID:           "client-test",
		ListenAddr:       "127.0.0.1:0",
		DataDir:          t.TempDir(),
		Bootstrap:        true,
		HeartbeatTimeout: 500 * time.Millisecond,
		ElectionTimeout:  500 * time.Millisecond,
		CommitTimeout:    50 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { st.Shutdown() })
	if err := st.WaitForLeader(5 * time.Second); err != nil {
		t.Fatalf("No leader: %v", err)
	}

	srv, err := server.NewServer(st, server.Config{
		StorageBackend: backend,
		PIR:            server.PIRConfig{LWEDim: 256, PlaintextBits: 10, MinElemBytes: 64},
	})
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	t.Cleanup(func() { srv.Close() })

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}
	gs := grpc.NewServer()
	apiv1.RegisterCoordinationServiceServer(gs, srv)
	go gs.Serve(lis)
	t.Cleanup(gs.Stop)
	return lis.Addr().String()
}

func newTestClient(t *testing.T, addr string) *Client {
	t.Helper()
	c, err := NewClient(addr, nil)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestClient_RoundLifecycle(t *testing.T) {
	c := newTestClient(t, startServer(t, store.BackendOKVS))
	ctx := context.Background()

	if err := c.StartRound(ctx, 1, 2); err != nil {
		t.Fatalf("StartRound failed: %v", err)
	}
	want := make(map[string]float64)
	for w := 0; w < 2; w++ {
		pairs := make(map[string][]byte)
		for i := 0; i < 60; i++ {
			key := fmt.Sprintf("node-%d-%d", w, i)
			want[key] = float64(i) * 0.123
			pairs[key] = crypto.Float64ToBytes(want[key])
		}
		if err := c.PublishValues(ctx, 1, fmt.Sprintf("worker-%d", w), pairs); err != nil {
			t.Fatalf("PublishValues failed: %v", err)
		}
	}

	mapping, err := c.GetKeyMapping(ctx, 1)
	if err != nil {
		t.Fatalf("GetKeyMapping failed: %v", err)
	}
	if len(mapping) != len(want) {
		t.Fatalf("mapping has %d keys, want %d", len(mapping), len(want))
	}

	if err := c.InitializePIRClient(ctx, 1); err != nil {
		t.Fatalf("InitializePIRClient failed: %v", err)
	}
	for _, key := range []string{"node-0-0", "node-0-42", "node-1-59"} {
		got, err := c.GetValue(ctx, 1, key)
		if err != nil {
			t.Fatalf("GetValue(%s) failed: %v", key, err)
		}
		if v := crypto.BytesToFloat64(got); v != want[key] {
			t.Errorf("%s = %v, want %v", key, v, want[key])
		}
	}

	if _, err := c.GetValue(ctx, 1, "missing"); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("missing key: got %v, want ErrKeyNotFound", err)
	}
}

func TestClient_KVSBackend(t *testing.T) {
	c := newTestClient(t, startServer(t, store.BackendKVS))
	ctx := context.Background()

	if err := c.StartRound(ctx, 4, 1); err != nil {
		t.Fatalf("StartRound failed: %v", err)
	}
	if err := c.PublishValues(ctx, 4, "w", map[string][]byte{"greeting": []byte("hello, world")}); err != nil {
		t.Fatalf("PublishValues failed: %v", err)
	}
	got, err := c.GetValue(ctx, 4, "greeting")
	if err != nil {
		t.Fatalf("GetValue failed: %v", err)
	}
	if string(got) != "hello, world" {
		t.Fatalf("got %q", got)
	}
}

func TestClient_EmptyRound(t *testing.T) {
	c := newTestClient(t, startServer(t, store.BackendOKVS))
	ctx := context.Background()

	if err := c.StartRound(ctx, 2, 1); err != nil {
		t.Fatalf("StartRound failed: %v", err)
	}
	if err := c.PublishValues(ctx, 2, "w", nil); err != nil {
		t.Fatalf("PublishValues failed: %v", err)
	}
	if _, err := c.GetValue(ctx, 2, "anything"); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("empty round: got %v, want ErrKeyNotFound", err)
	}
}

func TestClient_Errors(t *testing.T) {
	c := newTestClient(t, startServer(t, store.BackendOKVS))
	ctx := context.Background()

	if err := c.StartRound(ctx, 1, 0); status.Code(err) != codes.InvalidArgument {
		t.Fatalf("zero workers: %v", err)
	}
	if err := c.PublishValues(ctx, 9, "w", nil); status.Code(err) != codes.NotFound {
		t.Fatalf("missing round: %v", err)
	}
	// Incomplete rounds are not cached, so the client can retry later.
	if err := c.StartRound(ctx, 3, 2); err != nil {
		t.Fatalf("StartRound failed: %v", err)
	}
	if _, err := c.GetValue(ctx, 3, "k"); status.Code(err) != codes.NotFound {
		t.Fatalf("incomplete round: %v", err)
	}
	if len(c.rounds) != 0 {
		t.Fatalf("failed lookup was cached")
	}
}
