package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

const partitionLayout = "20060102"

// dateArgs accepts an optional YYYYMMDD partition date.
var dateArgs = cobra.MatchAll(cobra.MaximumNArgs(1), func(cmd *cobra.Command, args []string) error {
	_, err := parseDate(args, time.Now())
	return err
})

// parseDate returns the partition date named by args, or today (UTC).
func parseDate(args []string, now time.Time) (time.Time, error) {
	if len(args) == 0 || args[0] == "" {
		y, m, d := now.UTC().Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	}
	t, err := time.Parse(partitionLayout, args[0])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: want YYYYMMDD", args[0])
	}
	return t, nil
}

func nowUTC() time.Time { return time.Now().UTC() }

func partitionKey(t time.Time) string {
	return t.UTC().Format(partitionLayout)
}
