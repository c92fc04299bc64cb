package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// Options configures the Chrome process.
type Options struct {
	Headless  bool
	UserAgent string
	ExecPath  string
}

// Chrome implements Browser on top of a chromedp-controlled Chrome instance.
type Chrome struct {
	chromePage
	allocCancel context.CancelFunc
	cancel      context.CancelFunc
}

// NewChrome launches Chrome and opens the main tab.
func NewChrome(ctx context.Context, opts Options) (*Chrome, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.WindowSize(1920, 1080),
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("enable-automation", false),
	)
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}
	actx, acancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	bctx, bcancel := chromedp.NewContext(actx)
	// first Run starts the browser
	if err := chromedp.Run(bctx); err != nil {
		bcancel()
		acancel()
		return nil, fmt.Errorf("start chrome: %w", err)
	}
	return &Chrome{chromePage: chromePage{ctx: bctx}, allocCancel: acancel, cancel: bcancel}, nil
}

// Close shuts the browser down.
func (c *Chrome) Close() error {
	err := chromedp.Cancel(c.ctx)
	c.cancel()
	c.allocCancel()
	return err
}

// SetCookies injects cookies into the browser's cookie jar.
func (c *Chrome) SetCookies(ctx context.Context, cookies []Cookie) error {
	params := make([]*network.CookieParam, 0, len(cookies))
	for _, ck := range cookies {
		p := &network.CookieParam{
			Name:     ck.Name,
			Value:    ck.Value,
			Domain:   ck.Domain,
			Path:     ck.Path,
			Secure:   ck.Secure,
			HTTPOnly: ck.HTTPOnly,
		}
		if ck.SameSite != "" {
			p.SameSite = network.CookieSameSite(ck.SameSite)
		}
		if !ck.Expires.IsZero() {
			exp := cdp.TimeSinceEpoch(ck.Expires)
			p.Expires = &exp
		}
		params = append(params, p)
	}
	return c.run(ctx, 0, network.SetCookies(params))
}

// OpenTab opens a new tab in the same browser.
func (c *Chrome) OpenTab(ctx context.Context) (Tab, error) {
	tctx, cancel := chromedp.NewContext(c.ctx)
	if err := chromedp.Run(tctx); err != nil {
		cancel()
		return nil, fmt.Errorf("open tab: %w", err)
	}
	return &chromeTab{chromePage: chromePage{ctx: tctx}, cancel: cancel}, nil
}

type chromeTab struct {
	chromePage
	cancel context.CancelFunc
}

func (t *chromeTab) Close() error {
	err := chromedp.Cancel(t.ctx)
	t.cancel()
	return err
}

type chromePage struct {
	ctx context.Context
}

// run executes actions on the page's target while honouring the caller's
// context and an optional timeout.
func (p chromePage) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	var (
		rctx   context.Context
		cancel context.CancelFunc
	)
	if timeout > 0 {
		rctx, cancel = context.WithTimeout(p.ctx, timeout)
	} else {
		rctx, cancel = context.WithCancel(p.ctx)
	}
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(rctx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	return err
}

func by(loc Locator) chromedp.QueryOption {
	if loc.XPath {
		return chromedp.BySearch
	}
	return chromedp.ByQuery
}

func (p chromePage) Navigate(ctx context.Context, url string) error {
	return p.run(ctx, 0, chromedp.Navigate(url))
}

func (p chromePage) WaitFor(ctx context.Context, loc Locator, timeout time.Duration) error {
	return p.query(ctx, loc, timeout, chromedp.WaitReady(loc.Query, by(loc)))
}

// query runs a locator-bound action. chromedp polls such actions until the
// node matches, so a zero timeout is not allowed.
func (p chromePage) query(ctx context.Context, loc Locator, timeout time.Duration, action chromedp.Action) error {
	if timeout <= 0 {
		return fmt.Errorf("browser: %s: a positive timeout is required", loc.Query)
	}
	err := p.run(ctx, timeout, action)
	if errors.Is(err, ErrTimeout) {
		return fmt.Errorf("%w: %s", ErrTimeout, loc.Query)
	}
	return err
}

func (p chromePage) FindAll(ctx context.Context, css string) ([]Element, error) {
	html, err := p.Source(ctx)
	if err != nil {
		return nil, err
	}
	return Snapshot(html, css)
}

func (p chromePage) Type(ctx context.Context, loc Locator, text string, timeout time.Duration) error {
	return p.query(ctx, loc, timeout, chromedp.SendKeys(loc.Query, text, by(loc)))
}

func (p chromePage) Click(ctx context.Context, loc Locator, timeout time.Duration) error {
	return p.query(ctx, loc, timeout, chromedp.Click(loc.Query, by(loc)))
}

func (p chromePage) ScrollToBottom(ctx context.Context) error {
	return p.run(ctx, 0, chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight);`, nil))
}

func (p chromePage) Source(ctx context.Context) (string, error) {
	var html string
	if err := p.run(ctx, 0, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return html, nil
}
