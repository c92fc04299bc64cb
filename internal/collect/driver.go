// Package collect runs the timeline collector over the author roster and
// persists one artifact per author.
package collect

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"tweet-digest/internal/artifact"
	"tweet-digest/internal/model"
	"tweet-digest/internal/objstore"
	"tweet-digest/internal/session"
)

// Authenticator establishes the browsing session.
type Authenticator interface {
	Authenticate(ctx context.Context) bool
}

// TimelineCollector collects one author's posts within a window.
type TimelineCollector interface {
	SetWindow(w model.Window)
	Collect(ctx context.Context, author string) ([]model.Post, error)
}

// Uploader stores a local file under a remote key.
type Uploader interface {
	Upload(ctx context.Context, localPath, key string) error
}

// Driver authenticates once and collects every author sequentially.
type Driver struct {
	Session   Authenticator
	Collector TimelineCollector
	DataDir   string

	// Uploader, when set, receives each author artifact right after it is
	// written under BasePath/Partition.
	Uploader  Uploader
	BasePath  string
	Partition string
}

// Run collects authors within window. Authentication failure aborts the run;
// per-author collection and upload failures are logged and skipped.
func (d *Driver) Run(ctx context.Context, window model.Window, authors []string) error {
	if !d.Session.Authenticate(ctx) {
		return session.ErrAuthFailed
	}
	d.Collector.SetWindow(window)
	slog.Info("collect: start", "authors", len(authors), "start", window.Start.Format(time.RFC3339), "end", window.End.Format(time.RFC3339))

	for _, author := range authors {
		if err := ctx.Err(); err != nil {
			return err
		}
		posts, err := d.Collector.Collect(ctx, author)
		if err != nil {
			slog.Error("collect: author failed", "author", author, "collected", len(posts), "err", err)
		}
		path := artifact.AuthorPath(d.DataDir, author)
		if err := artifact.WriteAuthor(path, posts); err != nil {
			return fmt.Errorf("write artifact for %s: %w", author, err)
		}
		slog.Info("collect: artifact written", "author", author, "posts", len(posts), "path", path)

		if d.Uploader != nil {
			key := objstore.Key(d.BasePath, d.Partition, artifact.AuthorFileName(author))
			if err := d.Uploader.Upload(ctx, path, key); err != nil {
				slog.Error("collect: upload failed", "author", author, "key", key, "err", err)
				continue
			}
			slog.Info("collect: artifact uploaded", "author", author, "key", key)
		}
	}
	return nil
}

// WindowFor derives the collection window for a partition date: it ends at
// the close of that UTC day and starts size before now.
func WindowFor(date, now time.Time, size time.Duration) (model.Window, error) {
	y, m, d := date.UTC().Date()
	end := time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Add(24 * time.Hour)
	start := now.UTC().Add(-size)
	if start.After(end) {
		return model.Window{}, fmt.Errorf("window start %s is after end %s", start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	return model.Window{Start: start, End: end}, nil
}
