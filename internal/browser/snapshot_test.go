package browser

import (
	"context"
	"errors"
	"testing"
)

const timelineHTML = `<html><body>
<article data-testid="tweet">
  <a href="/alice/status/1"><time datetime="2024-07-03T10:00:00.000Z">Jul 3</time></a>
  <a href="/alice">profile</a>
  <div data-testid="tweetText"> hello   world </div>
</article>
<article data-testid="tweet">
  <a href="/alice/status/2"><time datetime="2024-07-03T09:00:00.000Z">Jul 3</time></a>
  <div data-testid="tweetText">long text<span>Show more</span></div>
</article>
</body></html>`

func TestSnapshotFindsPostsWithCascadiaExtensions(t *testing.T) {
	els, err := Snapshot(timelineHTML, `article[data-testid="tweet"]`)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(els) != 2 {
		t.Fatalf("want 2 posts, got %d", len(els))
	}

	link, ok := els[0].Find(`a:has(time)`)
	if !ok {
		t.Fatalf("link with time not found")
	}
	if href, _ := link.Attr("href"); href != "/alice/status/1" {
		t.Fatalf("href = %q", href)
	}
	text, ok := els[0].Find(`div[data-testid="tweetText"]`)
	if !ok {
		t.Fatalf("post text not found")
	}
	if got := text.Text(); got != "hello   world" {
		t.Fatalf("text = %q", got)
	}
	if _, ok := els[0].Find(`span:matchesOwn(^\s*Show more\s*$)`); ok {
		t.Fatalf("first post must not be truncated")
	}
	if _, ok := els[1].Find(`span:matchesOwn(^\s*Show more\s*$)`); !ok {
		t.Fatalf("second post must be truncated")
	}
	if _, ok := els[0].Attr("data-missing"); ok {
		t.Fatalf("unexpected attribute")
	}
}

func TestSnapshotNoMatches(t *testing.T) {
	els, err := Snapshot("<html></html>", "article")
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(els) != 0 {
		t.Fatalf("want none, got %d", len(els))
	}
}

type stubTab struct {
	Page
	closed int
}

func (s *stubTab) Close() error {
	s.closed++
	return nil
}

type stubBrowser struct {
	Browser
	tab *stubTab
}

func (s *stubBrowser) OpenTab(context.Context) (Tab, error) { return s.tab, nil }

func TestWithTabClosesOnError(t *testing.T) {
	b := &stubBrowser{tab: &stubTab{}}
	boom := errors.New("boom")
	err := WithTab(context.Background(), b, func(Page) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("want boom, got %v", err)
	}
	if b.tab.closed != 1 {
		t.Fatalf("tab closed %d times", b.tab.closed)
	}
	if err := WithTab(context.Background(), b, func(Page) error { return nil }); err != nil {
		t.Fatalf("WithTab: %v", err)
	}
	if b.tab.closed != 2 {
		t.Fatalf("tab closed %d times", b.tab.closed)
	}
}
