// Package timeline collects an author's posts from the rendered profile
// timeline within a collection window.
package timeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"tweet-digest/internal/browser"
	"tweet-digest/internal/model"
)

const (
	// EarlyStopSkips is the number of out-of-window posts within one scroll
	// iteration that ends scrolling for the author.
	EarlyStopSkips = 4
	// ExpandTimeoutText replaces the text of a truncated post whose detail
	// view did not load in time.
	ExpandTimeoutText = "ft timeout"
)

var (
	primaryColumn = browser.CSS(`div[data-testid="primaryColumn"]`)
	timelineCell  = browser.CSS(`div[data-testid="cellInnerDiv"]`)
	detailText    = browser.CSS(`article[data-testid="tweet"][tabindex="-1"] div[data-testid="tweetText"]`)
)

// Snapshot selectors; these may use cascadia extensions.
const (
	postCSS     = `article[data-testid="tweet"]`
	linkCSS     = `a:has(time)`
	timeCSS     = `time`
	textCSS     = `div[data-testid="tweetText"]`
	showMoreCSS = `[data-testid="tweet-text-show-more-link"], span:matchesOwn(^\s*(Show more|더 보기)\s*$)`
	userNameCSS = `div[data-testid="UserName"] span`
	bioCSS      = `div[data-testid="UserDescription"]`
)

// Config tunes scrolling and waits.
type Config struct {
	BaseURL        string
	ScrollCount    int
	SettleInterval time.Duration
	InitialSettle  time.Duration
	WaitTimeout    time.Duration
}

// Collector scrolls a profile timeline and keeps posts inside its window.
type Collector struct {
	b      browser.Browser
	cfg    Config
	base   *url.URL
	window model.Window

	sleep func(ctx context.Context, d time.Duration) error
}

// New returns a Collector that drives b.
func New(b browser.Browser, cfg Config) (*Collector, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if cfg.ScrollCount <= 0 {
		cfg.ScrollCount = 5
	}
	if cfg.SettleInterval == 0 {
		cfg.SettleInterval = 4 * time.Second
	}
	if cfg.InitialSettle == 0 {
		cfg.InitialSettle = 3 * time.Second
	}
	if cfg.WaitTimeout == 0 {
		cfg.WaitTimeout = 15 * time.Second
	}
	return &Collector{b: b, cfg: cfg, base: base, sleep: sleepCtx}, nil
}

// SetWindow sets the inclusive window applied by Collect.
func (c *Collector) SetWindow(w model.Window) { c.window = w }

// Window returns the current window.
func (c *Collector) Window() model.Window { return c.window }

// Collect returns the author's in-window posts in feed order. On error the
// posts gathered so far are returned alongside it.
func (c *Collector) Collect(ctx context.Context, author string) ([]model.Post, error) {
	if err := c.openProfile(ctx, author); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var posts []model.Post
	for i := 0; i < c.cfg.ScrollCount; i++ {
		articles, err := c.b.FindAll(ctx, postCSS)
		if err != nil {
			return posts, fmt.Errorf("list posts: %w", err)
		}
		skipped := 0
		for _, a := range articles {
			p, ok, inWindow := c.extract(ctx, a, seen)
			if !ok {
				continue
			}
			if !inWindow {
				skipped++
				continue
			}
			seen[p.URL] = struct{}{}
			posts = append(posts, p)
			slog.Info("collector: post", "author", author, "url", p.URL, "preview", preview(p.Text, 50))
		}
		if err := ctx.Err(); err != nil {
			return posts, err
		}
		if err := c.b.ScrollToBottom(ctx); err != nil {
			return posts, fmt.Errorf("scroll: %w", err)
		}
		if err := c.sleep(ctx, c.cfg.SettleInterval); err != nil {
			return posts, err
		}
		if skipped >= EarlyStopSkips {
			slog.Info("collector: window lower bound passed, stop scrolling", "author", author, "iteration", i+1, "skipped", skipped)
			break
		}
	}
	slog.Info("collector: done", "author", author, "posts", len(posts))
	return posts, nil
}

func (c *Collector) openProfile(ctx context.Context, author string) error {
	profile := c.base.JoinPath(author).String()
	if err := c.b.Navigate(ctx, profile); err != nil {
		return fmt.Errorf("open profile %s: %w", author, err)
	}
	if err := c.b.WaitFor(ctx, primaryColumn, c.cfg.WaitTimeout); err != nil {
		return fmt.Errorf("profile %s not rendered: %w", author, err)
	}
	if els, err := c.b.FindAll(ctx, userNameCSS); err == nil && len(els) > 0 {
		slog.Info("collector: profile", "author", author, "name", els[0].Text())
	}
	if els, err := c.b.FindAll(ctx, bioCSS); err == nil && len(els) > 0 {
		slog.Info("collector: profile bio", "author", author, "bio", els[0].Text())
	}
	if err := c.b.WaitFor(ctx, timelineCell, c.cfg.WaitTimeout); err != nil {
		return fmt.Errorf("timeline %s not rendered: %w", author, err)
	}
	return c.sleep(ctx, c.cfg.InitialSettle)
}

// extract reads one rendered post. ok is false when the post is already seen
// or lacks an expected element; inWindow is false when its timestamp falls
// outside the window or cannot be parsed.
func (c *Collector) extract(ctx context.Context, a browser.Element, seen map[string]struct{}) (p model.Post, ok, inWindow bool) {
	link, found := a.Find(linkCSS)
	if !found {
		slog.Warn("collector: post without permalink, skipped")
		return p, false, false
	}
	href, found := link.Attr("href")
	if !found || href == "" {
		slog.Warn("collector: permalink without href, skipped")
		return p, false, false
	}
	p.URL = c.resolve(href)
	if _, dup := seen[p.URL]; dup {
		return p, false, false
	}
	p.ID = model.IDFromURL(p.URL)

	ts, found := link.Find(timeCSS)
	if !found {
		slog.Warn("collector: post without timestamp, skipped", "url", p.URL)
		return p, false, false
	}
	p.CreatedAt, _ = ts.Attr("datetime")
	text, found := a.Find(textCSS)
	if !found {
		slog.Warn("collector: post without text, skipped", "url", p.URL)
		return p, false, false
	}
	p.Text = text.Text()

	created, err := model.ParseCreatedAt(p.CreatedAt)
	if err != nil {
		slog.Info("collector: unparseable timestamp treated as out of window", "url", p.URL, "created_at", p.CreatedAt)
		return p, true, false
	}
	if !c.window.Contains(created) {
		slog.Debug("collector: out of window", "url", p.URL, "created_at", p.CreatedAt)
		return p, true, false
	}

	if _, truncated := a.Find(showMoreCSS); truncated {
		p.Text = c.expand(ctx, p.URL, p.Text)
	}
	return p, true, true
}

// expand loads the post's detail view in a separate tab and returns its full
// text. A timeout yields ExpandTimeoutText; other failures keep fallback.
func (c *Collector) expand(ctx context.Context, postURL, fallback string) string {
	var full string
	err := browser.WithTab(ctx, c.b, func(tab browser.Page) error {
		if err := tab.Navigate(ctx, postURL); err != nil {
			return err
		}
		if err := tab.WaitFor(ctx, detailText, c.cfg.WaitTimeout); err != nil {
			return err
		}
		els, err := tab.FindAll(ctx, detailText.Query)
		if err != nil {
			return err
		}
		if len(els) == 0 {
			return browser.ErrTimeout
		}
		full = els[0].Text()
		return nil
	})
	switch {
	case errors.Is(err, browser.ErrTimeout):
		slog.Warn("collector: detail view timed out", "url", postURL)
		return ExpandTimeoutText
	case err != nil:
		slog.Warn("collector: detail view failed, keeping truncated text", "url", postURL, "err", err)
		return fallback
	}
	return full
}

func (c *Collector) resolve(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	return c.base.ResolveReference(u).String()
}

func preview(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
