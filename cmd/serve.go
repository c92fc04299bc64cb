package cmd

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tweet-digest/worker"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the daily pipeline on a schedule",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()

		// one pipeline worker per process: runs never overlap
		pipeline := &worker.Pipeline{
			Interval: cfg.Schedule.Interval,
			Run: func(ctx context.Context, date time.Time) error {
				return runPipeline(ctx, cfg, date)
			},
		}
		slog.Info("starting pipeline worker", "interval", cfg.Schedule.Interval, "authors", cfg.Collect.Authors)
		mgr := worker.NewManager(pipeline)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Signal handling for systemd
		sigc := make(chan os.Signal, 1)
		signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			s := <-sigc
			log.Printf("received signal: %s, shutting down", s)
			cancel()
		}()

		return mgr.Start(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
