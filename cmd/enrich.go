package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// enrichCmd enriches collected artifacts and merges them into the aggregate.
var enrichCmd = &cobra.Command{
	Use:   "enrich [YYYYMMDD]",
	Short: "Enrich collected posts and merge them into the date's aggregate",
	Args:  dateArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		date, err := parseDate(args, nowUTC())
		if err != nil {
			return err
		}
		ctx, cancel := signalContext()
		defer cancel()

		cache, closeCache := newRedisStore(cfg)
		defer closeCache()

		merged, err := runEnrich(ctx, cfg, date, cache)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "aggregate %s: %d posts\n", partitionKey(date), len(merged))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(enrichCmd)
}
