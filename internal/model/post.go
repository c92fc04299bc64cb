package model

import (
	"strings"
	"time"
)

// Post is one collected timeline entry plus its optional enrichment.
type Post struct {
	URL            string `json:"url,omitempty"`
	ID             string `json:"id"`
	CreatedAt      string `json:"created_at"`
	Text           string `json:"text"`
	TranslatedText string `json:"translated_text,omitempty"`
	Title          string `json:"title,omitempty"`
	Summary        string `json:"summary,omitempty"`
}

// Enrichment holds the generated fields of a post.
type Enrichment struct {
	TranslatedText string `json:"translated_text,omitempty"`
	Title          string `json:"title,omitempty"`
	Summary        string `json:"summary,omitempty"`
}

// Enrichment returns the post's generated fields.
func (p Post) Enrichment() Enrichment {
	return Enrichment{TranslatedText: p.TranslatedText, Title: p.Title, Summary: p.Summary}
}

// Apply copies e's non-empty fields onto the post.
func (p *Post) Apply(e Enrichment) {
	if e.TranslatedText != "" {
		p.TranslatedText = e.TranslatedText
	}
	if e.Title != "" {
		p.Title = e.Title
	}
	if e.Summary != "" {
		p.Summary = e.Summary
	}
}

// AuthorArtifact is the per-author output of a collection run.
type AuthorArtifact struct {
	Data []Post `json:"data"`
}

// Window is an inclusive [Start, End] range of post creation times.
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t lies within the window, both ends inclusive.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// IDFromURL returns the last path segment of a post URL.
func IDFromURL(u string) string {
	u = strings.TrimRight(u, "/")
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	if i := strings.LastIndex(u, "/"); i >= 0 {
		return u[i+1:]
	}
	return u
}

// ParseCreatedAt parses an ISO-8601 post timestamp into UTC.
func ParseCreatedAt(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
