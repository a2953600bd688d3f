package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mundrapranay/silhouette-db/internal/crypto"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one round end to end",
	Long: `Run one round end to end

Starts the round, publishes float64 values from every worker concurrently
and retrieves a sample of keys through PIR. Rounds with fewer than 100
pairs in total are rejected by servers using the okvs backend.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		round, _ := flags.GetUint64("round")
		workers, _ := flags.GetInt("workers")
		pairs, _ := flags.GetInt("pairs")
		queries, _ := flags.GetInt("queries")
		return runRound(cmd, workload{round: round, workers: workers, pairs: pairs}, queries)
	},
}

func init() {
	RootCmd.AddCommand(runCmd)
	runCmd.Flags().Uint64P("round", "r", 1, "Round ID")
	runCmd.Flags().IntP("workers", "w", 1, "Number of concurrent workers")
	runCmd.Flags().IntP("pairs", "n", 150, "Number of key-value pairs per worker")
	runCmd.Flags().IntP("queries", "q", 3, "Number of keys to retrieve")
}

func runRound(cmd *cobra.Command, wl workload, queries int) error {
	if wl.workers <= 0 {
		return fmt.Errorf("workers must be positive")
	}
	c, err := connect(cmd)
	if err != nil {
		return err
	}
	defer c.Close()
	ctx := context.Background()

	total := wl.workers * wl.pairs
	if total < crypto.MinOKVSPairs {
		cmd.Printf("note: %d pairs is below the okvs minimum of %d\n", total, crypto.MinOKVSPairs)
	}

	start := time.Now()
	if err := wl.publish(ctx, c); err != nil {
		return fmt.Errorf("round %d: %w", wl.round, err)
	}
	cmd.Printf("round %d: %d workers published %d pairs in %v\n", wl.round, wl.workers, total, time.Since(start))

	failed := 0
	sample := wl.sample(queries)
	for _, pos := range sample {
		start := time.Now()
		if err := wl.check(ctx, c, pos[0], pos[1]); err != nil {
			cmd.Printf("  FAIL %v\n", err)
			failed++
			continue
		}
		cmd.Printf("  ok   %s = %v [%v]\n", wl.key(pos[0], pos[1]), wl.value(pos[0], pos[1]), time.Since(start))
	}

	cmd.Printf("%d of %d queries succeeded\n", len(sample)-failed, len(sample))
	if failed > 0 {
		return fmt.Errorf("%d queries failed", failed)
	}
	return nil
}
