package enrich

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"tweet-digest/internal/ai"
	"tweet-digest/internal/artifact"
	"tweet-digest/internal/model"
)

// fakeGen answers by prompt kind and records every prompt.
type fakeGen struct {
	prompts []string
	err     error
}

func (f *fakeGen) Generate(ctx context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	switch {
	case strings.HasPrefix(prompt, "Translate"):
		return "번역", nil
	case strings.HasPrefix(prompt, "Create a concise"):
		return "제목", nil
	default:
		return "- 요약", nil
	}
}

type mapCache struct {
	m    map[string]model.Enrichment
	puts int
}

func (c *mapCache) GetEnrichment(ctx context.Context, key string) (model.Enrichment, bool, error) {
	e, ok := c.m[key]
	return e, ok, nil
}

func (c *mapCache) PutEnrichment(ctx context.Context, key string, e model.Enrichment) error {
	if c.m == nil {
		c.m = map[string]model.Enrichment{}
	}
	c.m[key] = e
	c.puts++
	return nil
}

func TestTierFor(t *testing.T) {
	tests := []struct {
		text string
		want Tier
	}{
		{"", TierNone},
		{strings.Repeat("a", 14), TierNone},
		{strings.Repeat("a", 15), TierTranslate},
		{strings.Repeat("a", 249), TierTranslate},
		{strings.Repeat("a", 250), TierFull},
		{strings.Repeat("가", 14), TierNone},
		{strings.Repeat("가", 100), TierTranslate},
	}
	for _, tt := range tests {
		if got := TierFor(tt.text); got != tt.want {
			t.Errorf("TierFor(len %d) = %v, want %v", len(tt.text), got, tt.want)
		}
	}
}

func TestEnrichPostsByLength(t *testing.T) {
	g := &fakeGen{}
	e := New(g)
	posts := []model.Post{
		{URL: "u/long", Text: strings.Repeat("x", 300)},
		{URL: "u/short", Text: "hello"},
		{URL: "u/mid", Text: strings.Repeat("y", 40)},
	}
	if err := e.EnrichPosts(context.Background(), posts); err != nil {
		t.Fatalf("EnrichPosts: %v", err)
	}
	want := []model.Post{
		{URL: "u/long", Text: strings.Repeat("x", 300), TranslatedText: "번역", Title: "제목", Summary: "- 요약"},
		{URL: "u/short", Text: "hello"},
		{URL: "u/mid", Text: strings.Repeat("y", 40), TranslatedText: "번역"},
	}
	if diff := cmp.Diff(want, posts); diff != "" {
		t.Fatalf("posts mismatch (-want +got):\n%s", diff)
	}
	if len(g.prompts) != 4 {
		t.Fatalf("generator calls = %d, want 4", len(g.prompts))
	}
	if !strings.Contains(g.prompts[0], "to Korean") {
		t.Fatalf("default language missing from %q", g.prompts[0])
	}
}

func TestEnrichLanguageOption(t *testing.T) {
	g := &fakeGen{}
	posts := []model.Post{{Text: strings.Repeat("z", 20)}}
	if err := New(g, WithLanguage("Japanese")).EnrichPosts(context.Background(), posts); err != nil {
		t.Fatalf("EnrichPosts: %v", err)
	}
	if !strings.Contains(g.prompts[0], "to Japanese") {
		t.Fatalf("prompt = %q", g.prompts[0])
	}
}

func TestEnrichGenerationErrorUsesErrorText(t *testing.T) {
	g := &fakeGen{err: errors.New("invalid request")}
	c := &mapCache{}
	posts := []model.Post{
		{URL: "u/1", Text: strings.Repeat("x", 260)},
		{URL: "u/2", Text: strings.Repeat("x", 20)},
	}
	if err := New(g, WithCache(c)).EnrichPosts(context.Background(), posts); err != nil {
		t.Fatalf("EnrichPosts: %v", err)
	}
	if posts[0].TranslatedText != ErrorText || posts[0].Title != ErrorText || posts[0].Summary != ErrorText {
		t.Fatalf("post 0 = %+v", posts[0])
	}
	if posts[1].TranslatedText != ErrorText {
		t.Fatalf("post 1 = %+v", posts[1])
	}
	if c.puts != 0 {
		t.Fatalf("error text was cached")
	}
}

func TestEnrichRateLimitAborts(t *testing.T) {
	g := &fakeGen{err: &ai.RateLimitExceededError{Attempts: 5, Err: errors.New("rate limit")}}
	posts := []model.Post{
		{URL: "u/1", Text: strings.Repeat("x", 20)},
		{URL: "u/2", Text: strings.Repeat("x", 20)},
	}
	err := New(g).EnrichPosts(context.Background(), posts)
	var rle *ai.RateLimitExceededError
	if !errors.As(err, &rle) {
		t.Fatalf("want RateLimitExceededError, got %v", err)
	}
	if len(g.prompts) != 1 {
		t.Fatalf("enrichment continued after rate limit: %d calls", len(g.prompts))
	}
}

func TestEnrichUsesCacheWhenItCoversTier(t *testing.T) {
	mid, long := strings.Repeat("y", 40), strings.Repeat("x", 300)
	c := &mapCache{m: map[string]model.Enrichment{
		CacheKey("u/mid", mid):   {TranslatedText: "cached"},
		CacheKey("u/long", long): {TranslatedText: "cached only translation"},
	}}
	g := &fakeGen{}
	posts := []model.Post{
		{URL: "u/mid", Text: mid},
		{URL: "u/long", Text: long},
	}
	if err := New(g, WithCache(c)).EnrichPosts(context.Background(), posts); err != nil {
		t.Fatalf("EnrichPosts: %v", err)
	}
	if posts[0].TranslatedText != "cached" {
		t.Fatalf("cache not applied: %+v", posts[0])
	}
	if len(g.prompts) != 3 {
		t.Fatalf("generator calls = %d, want 3 for the uncovered long post", len(g.prompts))
	}
	if diff := cmp.Diff(model.Enrichment{TranslatedText: "번역", Title: "제목", Summary: "- 요약"}, c.m[CacheKey("u/long", long)]); diff != "" {
		t.Fatalf("cache entry mismatch (-want +got):\n%s", diff)
	}
}

func TestEnrichCacheRespectsTextAndTier(t *testing.T) {
	short := strings.Repeat("s", 40)
	full := model.Enrichment{TranslatedText: "t", Title: "stale title", Summary: "stale summary"}
	c := &mapCache{m: map[string]model.Enrichment{}}
	// generated from the expanded text of the same post
	c.m[CacheKey("u/1", strings.Repeat("s", 300))] = full
	// same text, stored with more fields than the tier produces
	c.m[CacheKey("u/2", short)] = full
	g := &fakeGen{}
	posts := []model.Post{
		{URL: "u/1", Text: short},
		{URL: "u/2", Text: short},
	}
	if err := New(g, WithCache(c)).EnrichPosts(context.Background(), posts); err != nil {
		t.Fatalf("EnrichPosts: %v", err)
	}
	want := []model.Post{
		{URL: "u/1", Text: short, TranslatedText: "번역"},
		{URL: "u/2", Text: short, TranslatedText: "t"},
	}
	if diff := cmp.Diff(want, posts); diff != "" {
		t.Fatalf("posts mismatch (-want +got):\n%s", diff)
	}
	if len(g.prompts) != 1 {
		t.Fatalf("generator calls = %d, want 1 for the changed text", len(g.prompts))
	}
}

func TestEnrichFileToleratesMissingAndCorrupt(t *testing.T) {
	dir := t.TempDir()
	e := New(&fakeGen{})

	posts, err := e.EnrichFile(context.Background(), filepath.Join(dir, "missing_posts.json"))
	if err != nil || len(posts) != 0 {
		t.Fatalf("missing: posts=%v err=%v", posts, err)
	}

	bad := filepath.Join(dir, "bad_posts.json")
	if err := os.WriteFile(bad, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	posts, err = e.EnrichFile(context.Background(), bad)
	if err != nil || len(posts) != 0 {
		t.Fatalf("corrupt: posts=%v err=%v", posts, err)
	}
}

func TestEnrichAuthors(t *testing.T) {
	dir := t.TempDir()
	if err := artifact.WriteAuthor(artifact.AuthorPath(dir, "alice"), []model.Post{
		{URL: "a/1", ID: "1", Text: strings.Repeat("a", 20)},
	}); err != nil {
		t.Fatal(err)
	}
	if err := artifact.WriteAuthor(artifact.AuthorPath(dir, "carol"), []model.Post{
		{URL: "c/1", ID: "1", Text: "short"},
	}); err != nil {
		t.Fatal(err)
	}

	posts, err := New(&fakeGen{}).EnrichAuthors(context.Background(), dir, []string{"alice", "bob", "carol"})
	if err != nil {
		t.Fatalf("EnrichAuthors: %v", err)
	}
	want := []model.Post{
		{URL: "a/1", ID: "1", Text: strings.Repeat("a", 20), TranslatedText: "번역"},
		{URL: "c/1", ID: "1", Text: "short"},
	}
	if diff := cmp.Diff(want, posts); diff != "" {
		t.Fatalf("posts mismatch (-want +got):\n%s", diff)
	}
}
