package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"tweet-digest/internal/aggregate"
	"tweet-digest/internal/artifact"
	"tweet-digest/internal/digest"

	"github.com/spf13/cobra"
)

var (
	digestOut   string
	digestTitle string
)

// digestCmd renders a date's aggregate as Markdown.
var digestCmd = &cobra.Command{
	Use:   "digest [YYYYMMDD]",
	Short: "Render the date's aggregate as a Markdown digest",
	Args:  dateArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		date, err := parseDate(args, nowUTC())
		if err != nil {
			return err
		}
		ctx, cancel := signalContext()
		defer cancel()

		remote, err := newRemote(ctx, cfg)
		if err != nil {
			return err
		}
		store := &aggregate.Store{
			Remote:   remote,
			Dir:      cfg.App.DataDir,
			BasePath: cfg.Storage.BasePath,
			FileName: cfg.Storage.AggregateFile,
		}
		partition := partitionKey(date)
		local := store.LocalPath(partition)
		found, err := remote.Download(ctx, store.Key(partition), local)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("no aggregate for %s", partition)
		}
		posts, err := artifact.ReadPosts(local)
		if err != nil {
			return err
		}

		data, err := digest.Build(digestTitle, date, posts, time.Now())
		if err != nil {
			return err
		}
		out, err := digest.Render(data)
		if err != nil {
			return err
		}
		path := digestOut
		if path == "" {
			path = filepath.Join(cfg.App.DataDir, partition, "digest.md")
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(path, []byte(out), 0o644); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d posts)\n", path, len(posts))
		return nil
	},
}

// digestInspectCmd prints a rendered digest's frontmatter.
var digestInspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "Print the frontmatter of a rendered digest",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := digest.ParseFile(args[0])
		if err != nil {
			return err
		}
		keys := make([]string, 0, len(doc.Frontmatter))
		for k := range doc.Frontmatter {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		w := cmd.OutOrStdout()
		for _, k := range keys {
			fmt.Fprintf(w, "%s: %v\n", k, doc.Frontmatter[k])
		}
		fmt.Fprintf(w, "body: %d bytes\n", len(doc.Body))
		return nil
	},
}

func init() {
	digestCmd.Flags().StringVar(&digestOut, "out", "", "output file (default: <data_dir>/<date>/digest.md)")
	digestCmd.Flags().StringVar(&digestTitle, "title", "Timeline digest {.Date}", "digest title; {.Date} expands to the date")
	digestCmd.AddCommand(digestInspectCmd)
	rootCmd.AddCommand(digestCmd)
}
