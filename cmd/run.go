package cmd

import (
	"github.com/spf13/cobra"
)

// runCmd runs collection and enrichment back to back.
var runCmd = &cobra.Command{
	Use:   "run [YYYYMMDD]",
	Short: "Collect and enrich a date in one batch",
	Args:  dateArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		date, err := parseDate(args, nowUTC())
		if err != nil {
			return err
		}
		ctx, cancel := signalContext()
		defer cancel()
		return runPipeline(ctx, cfg, date)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
