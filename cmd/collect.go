package cmd

import (
	"github.com/spf13/cobra"
)

// collectCmd collects the author roster into per-author artifacts.
var collectCmd = &cobra.Command{
	Use:   "collect [YYYYMMDD]",
	Short: "Collect each roster author's posts for a date (default: today, UTC)",
	Args:  dateArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		date, err := parseDate(args, nowUTC())
		if err != nil {
			return err
		}
		ctx, cancel := signalContext()
		defer cancel()
		return runCollect(ctx, cfg, date)
	},
}

func init() {
	rootCmd.AddCommand(collectCmd)
}
