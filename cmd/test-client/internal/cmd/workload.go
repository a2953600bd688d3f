package cmd

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/mundrapranay/silhouette-db/internal/crypto"
	"github.com/mundrapranay/silhouette-db/pkg/client"
)

// workload describes one round filled by simulated workers. Keys and
// values are derived from their position, so any key can be checked
// without keeping the published data around.
type workload struct {
	round   uint64
	workers int
	pairs   int // per worker
}

func (wl workload) workerID(w int) string {
	return fmt.Sprintf("worker-%03d", w)
}

func (wl workload) key(w, i int) string {
	return fmt.Sprintf("r%d-w%03d-key-%04d", wl.round, w, i)
}

func (wl workload) value(w, i int) float64 {
	return float64(wl.round)*1000 + float64(w) + float64(i)*0.12345
}

func (wl workload) workerPairs(w int) map[string][]byte {
	pairs := make(map[string][]byte, wl.pairs)
	for i := 0; i < wl.pairs; i++ {
		pairs[wl.key(w, i)] = crypto.Float64ToBytes(wl.value(w, i))
	}
	return pairs
}

// sample returns up to n (worker, index) positions spread over the round.
func (wl workload) sample(n int) [][2]int {
	total := wl.workers * wl.pairs
	if total == 0 || n <= 0 {
		return nil
	}
	n = min(n, total)
	out := make([][2]int, 0, n)
	for k := 0; k < n; k++ {
		pos := k * (total - 1) / max(n-1, 1)
		out = append(out, [2]int{pos / wl.pairs, pos % wl.pairs})
	}
	return out
}

// publish starts the round and publishes every worker concurrently.
func (wl workload) publish(ctx context.Context, c *client.Client) error {
	if err := c.StartRound(ctx, wl.round, int32(wl.workers)); err != nil {
		return err
	}
	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < wl.workers; w++ {
		w := w
		g.Go(func() error {
			if err := c.PublishValues(ctx, wl.round, wl.workerID(w), wl.workerPairs(w)); err != nil {
				return fmt.Errorf("%s: %w", wl.workerID(w), err)
			}
			return nil
		})
	}
	return g.Wait()
}

// check retrieves the value at (w, i) and compares it with what was published.
func (wl workload) check(ctx context.Context, c *client.Client, w, i int) error {
	key := wl.key(w, i)
	got, err := c.GetValue(ctx, wl.round, key)
	if err != nil {
		return err
	}
	if len(got) != 8 {
		return fmt.Errorf("%s: expected 8 bytes, got %d", key, len(got))
	}
	if v, want := crypto.BytesToFloat64(got), wl.value(w, i); v != want {
		return fmt.Errorf("%s: retrieved %v, expected %v", key, v, want)
	}
	return nil
}
