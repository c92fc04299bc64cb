// Package enrich adds translations, titles and summaries to collected posts
// through a text generator, choosing the work per post by text length.
package enrich

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"tweet-digest/internal/ai"
	"tweet-digest/internal/artifact"
	"tweet-digest/internal/model"
)

// Tier is the enrichment applied to a post.
type Tier int

const (
	TierNone Tier = iota
	TierTranslate
	TierFull
)

func (t Tier) String() string {
	switch t {
	case TierTranslate:
		return "translate"
	case TierFull:
		return "full"
	}
	return "none"
}

const (
	// MinTranslateLen is the shortest text, in runes, that is translated.
	MinTranslateLen = 15
	// FullEnrichLen is the shortest text that also gets a title and summary.
	FullEnrichLen = 250
	// ErrorText replaces a generated field whose call failed.
	ErrorText = "Error during API call."
)

// TierFor classifies text by its length in runes.
func TierFor(text string) Tier {
	switch n := utf8.RuneCountInString(text); {
	case n < MinTranslateLen:
		return TierNone
	case n < FullEnrichLen:
		return TierTranslate
	default:
		return TierFull
	}
}

// Cache stores enrichment results under CacheKey.
type Cache interface {
	GetEnrichment(ctx context.Context, key string) (model.Enrichment, bool, error)
	PutEnrichment(ctx context.Context, key string, e model.Enrichment) error
}

// CacheKey identifies one version of a post: the URL plus a digest of the
// text the results were generated from. An expanded or edited text misses.
func CacheKey(url, text string) string {
	sum := sha256.Sum256([]byte(text))
	return url + "#" + hex.EncodeToString(sum[:8])
}

// Option configures an Enricher.
type Option func(*Enricher)

// WithCache reuses and records results in c.
func WithCache(c Cache) Option { return func(e *Enricher) { e.cache = c } }

// WithLanguage sets the target language of generated text.
func WithLanguage(lang string) Option {
	return func(e *Enricher) {
		if l := strings.TrimSpace(lang); l != "" {
			e.language = l
		}
	}
}

// Enricher runs the tiered prompts against a Generator.
type Enricher struct {
	gen      ai.Generator
	cache    Cache
	language string
}

// New returns an Enricher using gen.
func New(gen ai.Generator, opts ...Option) *Enricher {
	e := &Enricher{gen: gen, language: "Korean"}
	for _, o := range opts {
		o(e)
	}
	return e
}

// EnrichFile reads an author artifact and enriches its posts. A missing or
// unreadable artifact yields no posts and no error.
func (e *Enricher) EnrichFile(ctx context.Context, path string) ([]model.Post, error) {
	posts, err := artifact.ReadAuthor(path)
	if err != nil {
		slog.Warn("enrich: artifact skipped", "path", path, "err", err)
		return nil, nil
	}
	if err := e.EnrichPosts(ctx, posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// EnrichAuthors enriches the artifact of each author under dir and returns
// all posts in roster order.
func (e *Enricher) EnrichAuthors(ctx context.Context, dir string, authors []string) ([]model.Post, error) {
	var all []model.Post
	for _, author := range authors {
		posts, err := e.EnrichFile(ctx, artifact.AuthorPath(dir, author))
		if err != nil {
			return nil, fmt.Errorf("enrich %s: %w", author, err)
		}
		slog.Info("enrich: author done", "author", author, "posts", len(posts))
		all = append(all, posts...)
	}
	return all, nil
}

// EnrichPosts enriches posts in place. It stops at the first
// *ai.RateLimitExceededError or context error; other generator errors put
// ErrorText into the affected field.
func (e *Enricher) EnrichPosts(ctx context.Context, posts []model.Post) error {
	for i := range posts {
		if err := e.enrichPost(ctx, &posts[i]); err != nil {
			return err
		}
	}
	return nil
}

func (e *Enricher) enrichPost(ctx context.Context, p *model.Post) error {
	tier := TierFor(p.Text)
	if tier == TierNone {
		return nil
	}
	if e.fromCache(ctx, p, tier) {
		return nil
	}

	var res model.Enrichment
	var err error
	if res.TranslatedText, err = e.call(ctx, translatePrompt(e.language, p.Text)); err != nil {
		return err
	}
	if tier == TierFull {
		if res.Title, err = e.call(ctx, titlePrompt(e.language, p.Text)); err != nil {
			return err
		}
		if res.Summary, err = e.call(ctx, summaryPrompt(e.language, p.Text)); err != nil {
			return err
		}
	}
	p.Apply(res)
	e.toCache(ctx, p, res)
	return nil
}

// call invokes the generator; only unrecoverable errors are returned.
func (e *Enricher) call(ctx context.Context, prompt string) (string, error) {
	out, err := e.gen.Generate(ctx, prompt)
	if err == nil {
		return out, nil
	}
	var rle *ai.RateLimitExceededError
	if errors.As(err, &rle) {
		return "", err
	}
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	slog.Error("enrich: generation failed", "err", err)
	return ErrorText, nil
}

func (e *Enricher) fromCache(ctx context.Context, p *model.Post, tier Tier) bool {
	if e.cache == nil || p.URL == "" {
		return false
	}
	c, ok, err := e.cache.GetEnrichment(ctx, CacheKey(p.URL, p.Text))
	if err != nil {
		slog.Warn("enrich: cache read failed", "url", p.URL, "err", err)
		return false
	}
	if !ok || !covers(c, tier) {
		return false
	}
	p.Apply(forTier(c, tier))
	slog.Debug("enrich: cache hit", "url", p.URL, "tier", tier.String())
	return true
}

func (e *Enricher) toCache(ctx context.Context, p *model.Post, res model.Enrichment) {
	if e.cache == nil || p.URL == "" {
		return
	}
	if res.TranslatedText == ErrorText || res.Title == ErrorText || res.Summary == ErrorText {
		return
	}
	if err := e.cache.PutEnrichment(ctx, CacheKey(p.URL, p.Text), res); err != nil {
		slog.Warn("enrich: cache write failed", "url", p.URL, "err", err)
	}
}

// forTier drops cached fields the tier does not produce.
func forTier(c model.Enrichment, tier Tier) model.Enrichment {
	if tier != TierFull {
		c.Title, c.Summary = "", ""
	}
	return c
}

func covers(c model.Enrichment, tier Tier) bool {
	if c.TranslatedText == "" {
		return false
	}
	return tier != TierFull || (c.Title != "" && c.Summary != "")
}
