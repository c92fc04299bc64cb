// Package browsertest provides a scripted, in-memory browser.Browser for tests.
package browsertest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"tweet-digest/internal/browser"
)

// Page is a scripted page. Frames holds the markup after 0, 1, 2, ...
// scrolls; the last frame repeats once scrolling runs past it. XPaths lists
// the XPath locators that resolve on this page.
type Page struct {
	Frames []string
	XPaths []string

	// OnClick maps a locator query to the page shown after clicking it.
	OnClick map[string]string

	// Stalled lists locator queries that render but never become
	// interactable: Type and Click on them block until their timeout or
	// the context ends.
	Stalled []string
}

// Typed records one Type call.
type Typed struct {
	Query string
	Text  string
}

// Browser is a fake browser.Browser driven by a map of pages keyed by URL
// (or any name reached through Page.OnClick).
type Browser struct {
	Pages map[string]*Page

	// FailTab makes OpenTab fail.
	FailTab bool

	mu         sync.Mutex
	state      *state
	Cookies    []browser.Cookie
	TabsOpened int
	TabsClosed int
}

type state struct {
	b         *Browser
	current   string
	step      int
	navigated []string
	typed     []Typed
	clicked   []string
	scrolls   int
}

func (b *Browser) main() *state {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == nil {
		b.state = &state{b: b}
	}
	return b.state
}

// Navigated returns the URLs the main window visited, in order.
func (b *Browser) Navigated() []string { return append([]string(nil), b.main().navigated...) }

// Typed returns what was typed into the main window, in order.
func (b *Browser) Typed() []Typed { return append([]Typed(nil), b.main().typed...) }

// Clicked returns the locator queries clicked in the main window.
func (b *Browser) Clicked() []string { return append([]string(nil), b.main().clicked...) }

// Scrolls returns how many times the main window scrolled.
func (b *Browser) Scrolls() int { return b.main().scrolls }

// Current returns the page currently shown in the main window.
func (b *Browser) Current() string { return b.main().current }

func (b *Browser) Navigate(ctx context.Context, url string) error {
	return b.main().navigate(ctx, url)
}

func (b *Browser) WaitFor(ctx context.Context, loc browser.Locator, timeout time.Duration) error {
	return b.main().waitFor(ctx, loc)
}

func (b *Browser) FindAll(ctx context.Context, css string) ([]browser.Element, error) {
	return b.main().findAll(ctx, css)
}

func (b *Browser) Type(ctx context.Context, loc browser.Locator, text string, timeout time.Duration) error {
	return b.main().typeText(ctx, loc, text, timeout)
}

func (b *Browser) Click(ctx context.Context, loc browser.Locator, timeout time.Duration) error {
	return b.main().click(ctx, loc, timeout)
}

func (b *Browser) ScrollToBottom(ctx context.Context) error {
	return b.main().scroll(ctx)
}

func (b *Browser) Source(ctx context.Context) (string, error) {
	return b.main().source(ctx)
}

func (b *Browser) SetCookies(ctx context.Context, cookies []browser.Cookie) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Cookies = append(b.Cookies, cookies...)
	return nil
}

func (b *Browser) OpenTab(ctx context.Context) (browser.Tab, error) {
	if b.FailTab {
		return nil, fmt.Errorf("browsertest: tab refused")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.TabsOpened++
	return &tab{state: &state{b: b}}, nil
}

// OpenTabs returns the number of tabs opened and not yet closed.
func (b *Browser) OpenTabs() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.TabsOpened - b.TabsClosed
}

type tab struct {
	*state
	closed bool
}

func (t *tab) Navigate(ctx context.Context, url string) error { return t.navigate(ctx, url) }
func (t *tab) WaitFor(ctx context.Context, loc browser.Locator, timeout time.Duration) error {
	return t.waitFor(ctx, loc)
}
func (t *tab) FindAll(ctx context.Context, css string) ([]browser.Element, error) {
	return t.findAll(ctx, css)
}
func (t *tab) Type(ctx context.Context, loc browser.Locator, text string, timeout time.Duration) error {
	return t.typeText(ctx, loc, text, timeout)
}
func (t *tab) Click(ctx context.Context, loc browser.Locator, timeout time.Duration) error {
	return t.click(ctx, loc, timeout)
}
func (t *tab) ScrollToBottom(ctx context.Context) error { return t.scroll(ctx) }
func (t *tab) Source(ctx context.Context) (string, error) { return t.source(ctx) }

func (t *tab) Close() error {
	if t.closed {
		return nil
	}
	t.closed = true
	t.b.mu.Lock()
	t.b.TabsClosed++
	t.b.mu.Unlock()
	return nil
}

func (s *state) page() (*Page, bool) {
	p, ok := s.b.Pages[s.current]
	return p, ok
}

func (s *state) html() string {
	p, ok := s.page()
	if !ok || len(p.Frames) == 0 {
		return "<html><body></body></html>"
	}
	i := s.step
	if i >= len(p.Frames) {
		i = len(p.Frames) - 1
	}
	return p.Frames[i]
}

func (s *state) show(name string) {
	s.current = name
	s.step = 0
}

func (s *state) navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.navigated = append(s.navigated, url)
	s.show(url)
	return nil
}

func (s *state) waitFor(ctx context.Context, loc browser.Locator) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if loc.XPath {
		if p, ok := s.page(); ok {
			for _, x := range p.XPaths {
				if x == loc.Query {
					return nil
				}
			}
		}
		return fmt.Errorf("%w: %s", browser.ErrTimeout, loc.Query)
	}
	els, err := browser.Snapshot(s.html(), loc.Query)
	if err != nil {
		return err
	}
	if len(els) == 0 {
		return fmt.Errorf("%w: %s", browser.ErrTimeout, loc.Query)
	}
	return nil
}

func (s *state) findAll(ctx context.Context, css string) ([]browser.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return browser.Snapshot(s.html(), css)
}

// interactable resolves loc like waitFor, then blocks on stalled locators
// until timeout (ErrTimeout) or ctx ends. A zero timeout blocks until ctx
// ends.
func (s *state) interactable(ctx context.Context, loc browser.Locator, timeout time.Duration) error {
	if err := s.waitFor(ctx, loc); err != nil {
		return err
	}
	p, ok := s.page()
	if !ok {
		return nil
	}
	for _, q := range p.Stalled {
		if q != loc.Query {
			continue
		}
		var expired <-chan time.Time
		if timeout > 0 {
			t := time.NewTimer(timeout)
			defer t.Stop()
			expired = t.C
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-expired:
			return fmt.Errorf("%w: %s", browser.ErrTimeout, loc.Query)
		}
	}
	return nil
}

func (s *state) typeText(ctx context.Context, loc browser.Locator, text string, timeout time.Duration) error {
	if err := s.interactable(ctx, loc, timeout); err != nil {
		return err
	}
	s.typed = append(s.typed, Typed{Query: loc.Query, Text: text})
	return nil
}

func (s *state) click(ctx context.Context, loc browser.Locator, timeout time.Duration) error {
	if err := s.interactable(ctx, loc, timeout); err != nil {
		return err
	}
	s.clicked = append(s.clicked, loc.Query)
	if p, ok := s.page(); ok {
		if next, ok := p.OnClick[loc.Query]; ok {
			s.show(next)
		}
	}
	return nil
}

func (s *state) scroll(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.scrolls++
	s.step++
	return nil
}

func (s *state) source(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return s.html(), nil
}
