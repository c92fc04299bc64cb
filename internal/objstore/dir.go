package objstore

import (
	"context"
	"io"
	"os"
	"path/filepath"
)

// Store is the remote storage capability used by the pipeline.
type Store interface {
	Upload(ctx context.Context, localPath, key string) error
	Download(ctx context.Context, key, localPath string) (bool, error)
}

// Dir is a Store backed by a local directory, used when no bucket is
// configured.
type Dir struct {
	Root string
}

func (d Dir) Upload(ctx context.Context, localPath, key string) error {
	return copyFile(localPath, filepath.Join(d.Root, filepath.FromSlash(key)))
}

func (d Dir) Download(ctx context.Context, key, localPath string) (bool, error) {
	src := filepath.Join(d.Root, filepath.FromSlash(key))
	if _, err := os.Stat(src); os.IsNotExist(err) {
		return false, nil
	}
	if err := copyFile(src, localPath); err != nil {
		return false, err
	}
	return true, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
