package artifact

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"tweet-digest/internal/model"
)

// AuthorFileName returns the per-author artifact file name, e.g. "rwang07_posts.json".
func AuthorFileName(author string) string {
	return author + "_posts.json"
}

// AuthorPath returns the per-author artifact path inside dir.
func AuthorPath(dir, author string) string {
	return filepath.Join(dir, AuthorFileName(author))
}

// WriteAuthor overwrites the artifact at path with {"data": posts}.
func WriteAuthor(path string, posts []model.Post) error {
	if posts == nil {
		posts = []model.Post{}
	}
	return writeJSON(path, model.AuthorArtifact{Data: posts})
}

// ReadAuthor loads the posts of a per-author artifact.
func ReadAuthor(path string) ([]model.Post, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var a model.AuthorArtifact
	if err := json.Unmarshal(b, &a); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return a.Data, nil
}

// WritePosts overwrites path with a flat JSON list of posts.
func WritePosts(path string, posts []model.Post) error {
	if posts == nil {
		posts = []model.Post{}
	}
	return writeJSON(path, posts)
}

// ReadPosts loads a flat JSON list of posts.
func ReadPosts(path string) ([]model.Post, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var posts []model.Post
	if err := json.Unmarshal(b, &posts); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return posts, nil
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	// keep non-ASCII text readable in the files
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(v); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
