package cmd

import (
	"context"
	"fmt"
	"time"

	"tweet-digest/internal/storage"

	"github.com/spf13/cobra"
)

// pingCmd checks the configured Redis server and reports today's run lock.
var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Ping Redis and show whether today's partition is locked",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()

		rdb := storage.NewRedisClient(cfg.Redis)
		defer rdb.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		res, err := rdb.Ping(ctx).Result()
		if err != nil {
			return fmt.Errorf("ping %s: %w", cfg.Redis.Addr, err)
		}
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "%s (%s)\n", res, cfg.Redis.Addr)

		partition := partitionKey(nowUTC())
		holder, locked, err := storage.NewRedisStore(rdb, cfg.Redis.CacheTTL).RunLockHolder(ctx, partition)
		if err != nil {
			return err
		}
		if locked {
			fmt.Fprintf(w, "partition %s locked since %s\n", partition, holder)
		} else {
			fmt.Fprintf(w, "partition %s unlocked\n", partition)
		}
		return nil
	},
}

func init() {
	redisCmd.AddCommand(pingCmd)
}
