package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"tweet-digest/internal/artifact"
	"tweet-digest/internal/config"
	"tweet-digest/internal/objstore"

	"github.com/spf13/cobra"
)

// fetchCmd downloads per-author artifacts of a date from remote storage.
var fetchCmd = &cobra.Command{
	Use:   "fetch [YYYYMMDD]",
	Short: "Download the roster's collected artifacts for a date into the data dir",
	Args:  dateArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		date, err := parseDate(args, nowUTC())
		if err != nil {
			return err
		}
		ctx, cancel := signalContext()
		defer cancel()

		fetched, err := runFetch(ctx, cfg, date)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "fetched %d/%d artifacts for %s\n", len(fetched), len(cfg.Enrich.Authors), partitionKey(date))
		return nil
	},
}

// runFetch downloads each roster author's artifact of date into the data dir
// and returns the authors found. Missing artifacts are logged and skipped.
func runFetch(ctx context.Context, cfg config.Config, date time.Time) ([]string, error) {
	remote, err := newRemote(ctx, cfg)
	if err != nil {
		return nil, err
	}
	partition := partitionKey(date)
	var fetched []string
	for _, author := range cfg.Enrich.Authors {
		key := objstore.Key(cfg.Storage.BasePath, partition, artifact.AuthorFileName(author))
		found, err := remote.Download(ctx, key, artifact.AuthorPath(cfg.App.DataDir, author))
		if err != nil {
			return fetched, fmt.Errorf("fetch %s: %w", author, err)
		}
		if !found {
			slog.Warn("fetch: artifact not found", "author", author, "key", key)
			continue
		}
		fetched = append(fetched, author)
	}
	return fetched, nil
}

func init() {
	rootCmd.AddCommand(fetchCmd)
}
