package objstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestDirRoundTrip(t *testing.T) {
	ctx := context.Background()
	d := Dir{Root: t.TempDir()}
	work := t.TempDir()

	src := filepath.Join(work, "in.json")
	if err := os.WriteFile(src, []byte(`[{"id":"1"}]`), 0o644); err != nil {
		t.Fatal(err)
	}
	key := Key("news_data", "20240703", "summarized_posts_history.json")
	if err := d.Upload(ctx, src, key); err != nil {
		t.Fatalf("Upload: %v", err)
	}

	dst := filepath.Join(work, "out", "copy.json")
	found, err := d.Download(ctx, key, dst)
	if err != nil || !found {
		t.Fatalf("Download: found=%v err=%v", found, err)
	}
	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != `[{"id":"1"}]` {
		t.Fatalf("content = %q", got)
	}

	found, err = d.Download(ctx, Key("news_data", "20240704", "missing.json"), dst)
	if err != nil || found {
		t.Fatalf("missing object: found=%v err=%v", found, err)
	}
}
