// Package browser defines the browsing capability the collector drives and a
// chromedp-backed implementation of it.
package browser

import (
	"context"
	"errors"
	"time"
)

// ErrTimeout is returned when a wait does not match before its deadline.
var ErrTimeout = errors.New("browser: wait timed out")

// Locator addresses elements for waits and interactions. CSS locators are
// evaluated by the page; XPath locators are used where matching on visible
// text is required.
type Locator struct {
	Query string
	XPath bool
}

// CSS returns a CSS selector locator.
func CSS(q string) Locator { return Locator{Query: q} }

// XPath returns an XPath locator.
func XPath(q string) Locator { return Locator{Query: q, XPath: true} }

// Element is a read-only view of a rendered element.
type Element interface {
	// Find returns the first descendant matching css, if any.
	Find(css string) (Element, bool)
	// Attr returns the named attribute, if present.
	Attr(name string) (string, bool)
	// Text returns the element's text content, trimmed.
	Text() string
}

// Cookie is a session cookie to inject before navigating.
type Cookie struct {
	Name     string
	Value    string
	Domain   string
	Path     string
	Secure   bool
	HTTPOnly bool
	SameSite string
	Expires  time.Time
}

// Page is one browsing context (the main window or an isolated tab).
type Page interface {
	Navigate(ctx context.Context, url string) error
	// WaitFor blocks until loc matches or timeout elapses (ErrTimeout).
	WaitFor(ctx context.Context, loc Locator, timeout time.Duration) error
	// FindAll returns every element currently rendered that matches css.
	FindAll(ctx context.Context, css string) ([]Element, error)
	// Type and Click wait for loc to become interactable; they fail with
	// ErrTimeout once timeout elapses.
	Type(ctx context.Context, loc Locator, text string, timeout time.Duration) error
	Click(ctx context.Context, loc Locator, timeout time.Duration) error
	ScrollToBottom(ctx context.Context) error
	// Source returns the current page markup.
	Source(ctx context.Context) (string, error)
}

// Tab is an isolated browsing context that must be closed after use.
type Tab interface {
	Page
	Close() error
}

// Browser is the shared browsing context of one pipeline run.
type Browser interface {
	Page
	SetCookies(ctx context.Context, cookies []Cookie) error
	OpenTab(ctx context.Context) (Tab, error)
}

// WithTab opens an isolated tab, runs fn in it and always closes the tab
// before returning, even when fn fails.
func WithTab(ctx context.Context, b Browser, fn func(Page) error) (err error) {
	tab, err := b.OpenTab(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := tab.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(tab)
}
