package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// redisCmd groups Redis-related subcommands.
var redisCmd = &cobra.Command{
	Use:   "redis",
	Short: "Redis utilities (enrichment cache and run lock)",
}

// unlockCmd drops a partition run lock left behind by a crashed run.
var unlockCmd = &cobra.Command{
	Use:   "unlock [YYYYMMDD]",
	Short: "Release the run lock of a date (default: today, UTC)",
	Args:  dateArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		date, err := parseDate(args, nowUTC())
		if err != nil {
			return err
		}
		cfg.Redis.Enabled = true
		store, closeStore := newRedisStore(cfg)
		defer closeStore()

		partition := partitionKey(date)
		if err := store.ReleaseRunLock(cmd.Context(), partition); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "released run lock for %s\n", partition)
		return nil
	},
}

func init() {
	redisCmd.AddCommand(unlockCmd)
	rootCmd.AddCommand(redisCmd)
}
