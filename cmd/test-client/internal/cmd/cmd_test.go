package cmd

import (
	"bytes"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"

	apiv1 "github.com/mundrapranay/silhouette-db/api/v1"
	"github.com/mundrapranay/silhouette-db/internal/crypto"
	"github.com/mundrapranay/silhouette-db/internal/server"
	"github.com/mundrapranay/silhouette-db/internal/store"
)

func startServer(t *testing.T) string {
	t.Helper()
	st, err := store.NewStore(store.Config{
		NodeID:           "cli-test",
		ListenAddr:       "127.0.0.1:0",
		DataDir:          t.TempDir(),
		Bootstrap:        true,
		HeartbeatTimeout: 500 * time.Millisecond,
		ElectionTimeout:  500 * time.Millisecond,
		CommitTimeout:    50 * time.Millisecond,
	})
	require.NoError(t, err)
	t.Cleanup(func() { st.Shutdown() })
	require.NoError(t, st.WaitForLeader(5*time.Second))

	srv, err := server.NewServer(st, server.Config{
		PIR: server.PIRConfig{LWEDim: 256, PlaintextBits: 10, MinElemBytes: 64},
	})
	require.NoError(t, err)
	t.Cleanup(func() { srv.Close() })

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	gs := grpc.NewServer()
	apiv1.RegisterCoordinationServiceServer(gs, srv)
	go gs.Serve(lis)
	t.Cleanup(gs.Stop)
	return lis.Addr().String()
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	RootCmd.SetOut(&out)
	RootCmd.SetErr(&out)
	RootCmd.SetArgs(args)
	err := RootCmd.Execute()
	return out.String(), err
}

func TestWorkload_Sample(t *testing.T) {
	wl := workload{round: 1, workers: 3, pairs: 10}

	sample := wl.sample(3)
	require.Equal(t, [][2]int{{0, 0}, {1, 4}, {2, 9}}, sample)

	assert.Len(t, wl.sample(100), 30)
	assert.Equal(t, [][2]int{{0, 0}}, wl.sample(1))
	assert.Nil(t, wl.sample(0))
	assert.Nil(t, workload{}.sample(5))
}

func TestWorkload_Pairs(t *testing.T) {
	wl := workload{round: 7, workers: 2, pairs: 5}
	pairs := wl.workerPairs(1)
	require.Len(t, pairs, 5)
	assert.Equal(t, wl.value(1, 3), crypto.BytesToFloat64(pairs[wl.key(1, 3)]))
	assert.NotEqual(t, wl.key(0, 3), wl.key(1, 3))
	assert.NotEqual(t, wl.key(0, 0), workload{round: 8}.key(0, 0))
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "1.5", formatValue(crypto.Float64ToBytes(1.5)))
	assert.Equal(t, `"hello"`, formatValue([]byte("hello")))
	assert.Equal(t, "0xff00ff", formatValue([]byte{0xff, 0x00, 0xff}))
}

func TestRunAndGet(t *testing.T) {
	addr := startServer(t)

	out, err := execute(t, "run", "-s", addr, "-r", "3", "-w", "2", "-n", "60", "-q", "4")
	require.NoError(t, err, out)
	assert.Contains(t, out, "4 of 4 queries succeeded")

	wl := workload{round: 3, workers: 2, pairs: 60}
	out, err = execute(t, "get", "-s", addr, "-r", "3", wl.key(1, 17))
	require.NoError(t, err, out)
	assert.Contains(t, out, formatValue(crypto.Float64ToBytes(wl.value(1, 17))))
}
