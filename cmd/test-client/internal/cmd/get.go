package cmd

import (
	"context"
	"encoding/hex"
	"strconv"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/mundrapranay/silhouette-db/internal/crypto"
)

var getCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Retrieve one key from a completed round through PIR",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		round, _ := cmd.Flags().GetUint64("round")
		c, err := connect(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		value, err := c.GetValue(context.Background(), round, args[0])
		if err != nil {
			return err
		}
		cmd.Println(formatValue(value))
		return nil
	},
}

func init() {
	RootCmd.AddCommand(getCmd)
	getCmd.Flags().Uint64P("round", "r", 1, "Round ID")
}

// formatValue prints 8-byte values as float64 and anything else as text
// or hex.
func formatValue(v []byte) string {
	switch {
	case len(v) == 8:
		return strconv.FormatFloat(crypto.BytesToFloat64(v), 'g', -1, 64)
	case utf8.Valid(v):
		return strconv.Quote(string(v))
	default:
		return "0x" + hex.EncodeToString(v)
	}
}
