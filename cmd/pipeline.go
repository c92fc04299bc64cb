package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"tweet-digest/internal/aggregate"
	"tweet-digest/internal/ai"
	"tweet-digest/internal/artifact"
	"tweet-digest/internal/browser"
	"tweet-digest/internal/collect"
	"tweet-digest/internal/config"
	"tweet-digest/internal/enrich"
	"tweet-digest/internal/model"
	"tweet-digest/internal/objstore"
	"tweet-digest/internal/session"
	"tweet-digest/internal/storage"
	"tweet-digest/internal/timeline"
)

// runLockTTL bounds how long a crashed run keeps its partition locked.
const runLockTTL = 6 * time.Hour

// newRemote returns the S3 store, or a local directory store when no bucket
// is configured.
func newRemote(ctx context.Context, cfg config.Config) (objstore.Store, error) {
	if !cfg.Storage.Enabled() {
		slog.Warn("storage: no bucket configured, using local directory", "dir", cfg.Storage.LocalDir)
		return objstore.Dir{Root: cfg.Storage.LocalDir}, nil
	}
	s3, err := objstore.NewS3(ctx, objstore.Config{
		Bucket:       cfg.Storage.Bucket,
		Region:       cfg.Storage.Region,
		Profile:      cfg.Storage.Profile,
		Endpoint:     cfg.Storage.Endpoint,
		UsePathStyle: cfg.Storage.UsePathStyle,
	})
	if err != nil {
		return nil, err
	}
	return s3, nil
}

// newRedisStore returns nil when redis is disabled. The caller closes the
// returned client.
func newRedisStore(cfg config.Config) (*storage.RedisStore, func() error) {
	if !cfg.Redis.Enabled {
		return nil, func() error { return nil }
	}
	rdb := storage.NewRedisClient(cfg.Redis)
	return storage.NewRedisStore(rdb, cfg.Redis.CacheTTL), rdb.Close
}

// runCollect collects the roster into per-author artifacts for date.
func runCollect(ctx context.Context, cfg config.Config, date time.Time) error {
	if len(cfg.Collect.Authors) == 0 {
		return errors.New("collect.authors is empty")
	}
	window, err := collect.WindowFor(date, time.Now(), cfg.Collect.Window)
	if err != nil {
		return err
	}
	strategy, err := session.ParseStrategy(cfg.X.LoginStrategy)
	if err != nil {
		return err
	}

	b, err := browser.NewChrome(ctx, browser.Options{
		Headless:  cfg.Browser.Headless,
		UserAgent: cfg.Browser.UserAgent,
		ExecPath:  cfg.Browser.ExecPath,
	})
	if err != nil {
		return err
	}
	defer b.Close()

	sess := session.New(b, session.Config{
		BaseURL:     cfg.X.BaseURL,
		CookiesFile: cfg.X.CookiesFile,
		Credentials: session.Credentials{
			Identifier:        cfg.X.Identifier,
			Password:          cfg.X.Password,
			VerificationToken: cfg.X.VerificationToken,
		},
		Strategy:      strategy,
		DiagnosticDir: cfg.X.DiagnosticDir,
		WaitTimeout:   cfg.Browser.WaitTimeout,
	})
	tl, err := timeline.New(b, timeline.Config{
		BaseURL:        cfg.X.BaseURL,
		ScrollCount:    cfg.Collect.ScrollCount,
		SettleInterval: cfg.Collect.SettleInterval,
		WaitTimeout:    cfg.Browser.WaitTimeout,
	})
	if err != nil {
		return err
	}

	d := &collect.Driver{
		Session:   sess,
		Collector: tl,
		DataDir:   cfg.App.DataDir,
		BasePath:  cfg.Storage.BasePath,
		Partition: partitionKey(date),
	}
	if cfg.Collect.Upload {
		remote, err := newRemote(ctx, cfg)
		if err != nil {
			return err
		}
		d.Uploader = remote
	}
	return d.Run(ctx, window, cfg.Collect.Authors)
}

// runEnrich enriches the roster's artifacts, writes the run artifact and
// merges it into the partition aggregate.
func runEnrich(ctx context.Context, cfg config.Config, date time.Time, cache *storage.RedisStore) ([]model.Post, error) {
	partition := partitionKey(date)
	remote, err := newRemote(ctx, cfg)
	if err != nil {
		return nil, err
	}

	client, err := ai.NewOpenAI(ai.Config{APIKey: cfg.OpenAI.APIKey, Model: cfg.OpenAI.Model, BaseURL: cfg.OpenAI.BaseURL})
	if err != nil {
		return nil, err
	}
	gen := ai.NewRetrying(client, cfg.Enrich.RateLimitCooldown, cfg.Enrich.MaxAttempts)
	opts := []enrich.Option{enrich.WithLanguage(cfg.Enrich.Language)}
	if cache != nil {
		opts = append(opts, enrich.WithCache(cache))
	}
	posts, err := enrich.New(gen, opts...).EnrichAuthors(ctx, cfg.App.DataDir, cfg.Enrich.Authors)
	if err != nil {
		return nil, err
	}

	runPath := filepath.Join(cfg.App.DataDir, partition, cfg.Storage.RunFile)
	if err := artifact.WritePosts(runPath, posts); err != nil {
		return nil, fmt.Errorf("write run artifact: %w", err)
	}
	runKey := objstore.Key(cfg.Storage.BasePath, partition, cfg.Storage.RunFile)
	if err := remote.Upload(ctx, runPath, runKey); err != nil {
		return nil, fmt.Errorf("upload run artifact: %w", err)
	}
	slog.Info("enrich: run artifact stored", "posts", len(posts), "key", runKey)

	store := &aggregate.Store{
		Remote:   remote,
		Dir:      cfg.App.DataDir,
		BasePath: cfg.Storage.BasePath,
		FileName: cfg.Storage.AggregateFile,
	}
	merged, err := store.MergeAndPersist(ctx, posts, partition)
	if err != nil {
		return nil, err
	}
	if cache != nil {
		if prev, ok, err := cache.LastMerged(ctx, partition); err == nil && ok {
			slog.Info("aggregate: grew", "partition", partition, "before", prev, "after", len(merged))
		}
		if err := cache.MarkMerged(ctx, partition, len(merged)); err != nil {
			slog.Warn("aggregate: record merge size", "err", err)
		}
	}
	return merged, nil
}

// runPipeline collects then enriches date, holding the partition run lock
// when redis is enabled.
func runPipeline(ctx context.Context, cfg config.Config, date time.Time) error {
	cache, closeCache := newRedisStore(cfg)
	defer closeCache()

	partition := partitionKey(date)
	if cache != nil {
		ok, err := cache.AcquireRunLock(ctx, partition, runLockTTL)
		if err != nil {
			return fmt.Errorf("acquire run lock: %w", err)
		}
		if !ok {
			return fmt.Errorf("partition %s is already being processed", partition)
		}
		defer func() {
			if err := cache.ReleaseRunLock(context.Background(), partition); err != nil {
				slog.Warn("pipeline: release run lock", "partition", partition, "err", err)
			}
		}()
	}

	if err := runCollect(ctx, cfg, date); err != nil {
		return fmt.Errorf("collect: %w", err)
	}
	merged, err := runEnrich(ctx, cfg, date, cache)
	if err != nil {
		return fmt.Errorf("enrich: %w", err)
	}
	slog.Info("pipeline: done", "partition", partition, "aggregate", len(merged))
	return nil
}
