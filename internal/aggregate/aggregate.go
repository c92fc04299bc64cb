// Package aggregate maintains the deduplicated cross-run history of enriched
// posts in remote storage.
package aggregate

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"tweet-digest/internal/artifact"
	"tweet-digest/internal/model"
	"tweet-digest/internal/objstore"
)

// Remote is the object storage used for the aggregate.
type Remote interface {
	Upload(ctx context.Context, localPath, key string) error
	// Download reports false with a nil error when key does not exist.
	Download(ctx context.Context, key, localPath string) (bool, error)
}

// Dedup keeps the first post for each URL, in order. Posts without a URL are
// always kept.
func Dedup(posts []model.Post) []model.Post {
	seen := make(map[string]struct{}, len(posts))
	out := make([]model.Post, 0, len(posts))
	for _, p := range posts {
		if p.URL != "" {
			if _, dup := seen[p.URL]; dup {
				continue
			}
			seen[p.URL] = struct{}{}
		}
		out = append(out, p)
	}
	return out
}

// Store merges enriched posts into the partitioned remote aggregate.
type Store struct {
	Remote   Remote
	Dir      string // local working directory
	BasePath string
	FileName string
}

// LocalPath is where the aggregate of a partition is kept locally.
func (s *Store) LocalPath(partition string) string {
	return filepath.Join(s.Dir, partition, s.FileName)
}

// Key is the remote key of the aggregate of a partition.
func (s *Store) Key(partition string) string {
	return objstore.Key(s.BasePath, partition, s.FileName)
}

// MergeAndPersist downloads the prior aggregate of partition, merges
// newPosts in front of it, deduplicates and uploads the result. A missing
// prior aggregate is not an error. The merged list is returned.
func (s *Store) MergeAndPersist(ctx context.Context, newPosts []model.Post, partition string) ([]model.Post, error) {
	local := s.LocalPath(partition)
	key := s.Key(partition)

	prior, err := s.loadPrior(ctx, key, local)
	if err != nil {
		return nil, err
	}
	merged := Dedup(append(append(make([]model.Post, 0, len(newPosts)+len(prior)), newPosts...), prior...))

	if err := artifact.WritePosts(local, merged); err != nil {
		return nil, fmt.Errorf("write aggregate: %w", err)
	}
	if err := s.Remote.Upload(ctx, local, key); err != nil {
		return nil, fmt.Errorf("upload aggregate: %w", err)
	}
	slog.Info("aggregate: persisted", "key", key, "new", len(newPosts), "prior", len(prior), "total", len(merged))
	return merged, nil
}

func (s *Store) loadPrior(ctx context.Context, key, local string) ([]model.Post, error) {
	// a stale local copy must never stand in for the remote history
	if err := os.Remove(local); err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	found, err := s.Remote.Download(ctx, key, local)
	if err != nil {
		return nil, fmt.Errorf("download aggregate: %w", err)
	}
	if !found {
		slog.Info("aggregate: no prior history", "key", key)
		return nil, nil
	}
	prior, err := artifact.ReadPosts(local)
	if err != nil {
		return nil, fmt.Errorf("read prior aggregate: %w", err)
	}
	return prior, nil
}
