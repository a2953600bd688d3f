package cmd

import (
	"context"
	"fmt"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Run concurrent rounds, then issue PIR queries at a fixed rate",
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		var opts loadOptions
		opts.firstRound, _ = flags.GetUint64("first-round")
		opts.rounds, _ = flags.GetInt("rounds")
		opts.workers, _ = flags.GetInt("workers")
		opts.pairs, _ = flags.GetInt("pairs")
		opts.qps, _ = flags.GetFloat64("qps")
		opts.duration, _ = flags.GetDuration("duration")
		return runLoad(cmd, opts)
	},
}

func init() {
	RootCmd.AddCommand(loadCmd)
	loadCmd.Flags().Uint64("first-round", 1000, "ID of the first round; rounds use consecutive IDs")
	loadCmd.Flags().Int("rounds", 10, "Number of concurrent rounds")
	loadCmd.Flags().Int("workers", 5, "Number of workers per round")
	loadCmd.Flags().Int("pairs", 30, "Number of key-value pairs per worker")
	loadCmd.Flags().Float64("qps", 10, "PIR queries per second")
	loadCmd.Flags().Duration("duration", 30*time.Second, "Query phase duration")
}

type loadOptions struct {
	firstRound uint64
	rounds     int
	workers    int
	pairs      int
	qps        float64
	duration   time.Duration
}

func runLoad(cmd *cobra.Command, opts loadOptions) error {
	if opts.rounds <= 0 || opts.workers <= 0 || opts.pairs <= 0 || opts.qps <= 0 {
		return fmt.Errorf("rounds, workers, pairs and qps must be positive")
	}
	c, err := connect(cmd)
	if err != nil {
		return err
	}
	defer c.Close()
	ctx := context.Background()

	workloads := make([]workload, opts.rounds)
	for r := range workloads {
		workloads[r] = workload{round: opts.firstRound + uint64(r), workers: opts.workers, pairs: opts.pairs}
	}

	var roundsFailed atomic.Int64
	start := time.Now()
	var g errgroup.Group
	for _, wl := range workloads {
		wl := wl
		g.Go(func() error {
			if err := wl.publish(ctx, c); err != nil {
				roundsFailed.Add(1)
				cmd.PrintErrf("round %d failed: %v\n", wl.round, err)
			}
			return nil
		})
	}
	g.Wait()
	cmd.Printf("rounds: %d completed, %d failed in %v\n",
		opts.rounds-int(roundsFailed.Load()), roundsFailed.Load(), time.Since(start))
	if int(roundsFailed.Load()) == opts.rounds {
		return fmt.Errorf("no round completed")
	}

	var (
		ok, failed int
		latency    time.Duration
	)
	tick := time.NewTicker(time.Duration(float64(time.Second) / opts.qps))
	defer tick.Stop()
	deadline := time.After(opts.duration)
	for done := false; !done; {
		select {
		case <-deadline:
			done = true
		case <-tick.C:
			wl := workloads[rand.Intn(len(workloads))]
			q := time.Now()
			if err := wl.check(ctx, c, rand.Intn(wl.workers), rand.Intn(wl.pairs)); err != nil {
				failed++
				continue
			}
			ok++
			latency += time.Since(q)
		}
	}

	cmd.Printf("queries: %d succeeded, %d failed", ok, failed)
	if ok > 0 {
		cmd.Printf(", mean latency %v", latency/time.Duration(ok))
	}
	cmd.Println()
	return nil
}
