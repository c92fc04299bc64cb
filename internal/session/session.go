// Package session establishes an authenticated browsing context, either by
// replaying stored cookies or by driving the interactive login flow.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"time"

	"tweet-digest/internal/browser"
)

// ErrAuthFailed reports that no strategy produced an authenticated session.
var ErrAuthFailed = errors.New("session: authentication failed")

// Strategy selects how Authenticate obtains a session.
type Strategy string

const (
	StrategyCookie                Strategy = "cookie"
	StrategyInteractive           Strategy = "interactive"
	StrategyCookieThenInteractive Strategy = "cookie_then_interactive"
)

// ParseStrategy validates a configured strategy name.
func ParseStrategy(s string) (Strategy, error) {
	switch st := Strategy(s); st {
	case StrategyCookie, StrategyInteractive, StrategyCookieThenInteractive:
		return st, nil
	}
	return "", fmt.Errorf("unknown login strategy %q", s)
}

// Credentials are the interactive login inputs.
type Credentials struct {
	Identifier        string
	Password          string
	VerificationToken string
}

// Config configures a Manager.
type Config struct {
	BaseURL       string
	CookiesFile   string
	Credentials   Credentials
	Strategy      Strategy
	DiagnosticDir string
	WaitTimeout   time.Duration
}

// DiagnosticFile is the page capture written when interactive login times out.
const DiagnosticFile = "login_error_page.html"

var (
	identifierInput = browser.CSS(`input[name="text"]`)
	nextInput       = browser.CSS(`input[name="password"], input[name="text"]`)
	passwordInput   = browser.CSS(`input[name="password"]`)
	nextButton      = browser.XPath(`//span[contains(text(), 'Next')]`)
	loginButton     = browser.XPath(`//span[text()='Log in' or text()='로그인']/ancestor::button`)
	homeLandmark    = browser.CSS(`a[data-testid="AppTabBar_Home_Link"]`)
)

var challengeMarkers = []string{"unusual login activity", "phone number or email"}

// Manager authenticates the shared browser.
type Manager struct {
	b   browser.Browser
	cfg Config

	// sleep and jitter are replaced in tests.
	sleep  func(ctx context.Context, d time.Duration) error
	jitter func(lo, hi time.Duration) time.Duration
}

// New returns a Manager for b.
func New(b browser.Browser, cfg Config) *Manager {
	if cfg.Strategy == "" {
		cfg.Strategy = StrategyCookieThenInteractive
	}
	if cfg.WaitTimeout == 0 {
		cfg.WaitTimeout = 15 * time.Second
	}
	return &Manager{b: b, cfg: cfg, sleep: sleepCtx, jitter: randBetween}
}

// Authenticate runs the configured strategy and reports success.
func (m *Manager) Authenticate(ctx context.Context) bool {
	switch m.cfg.Strategy {
	case StrategyCookie:
		return m.ReplayCookies(ctx)
	case StrategyInteractive:
		return m.Login(ctx)
	default:
		if m.ReplayCookies(ctx) {
			return true
		}
		slog.Warn("session: cookie replay failed, falling back to interactive login")
		return m.Login(ctx)
	}
}

// ReplayCookies injects stored cookies and opens the home view. Any error
// yields false.
func (m *Manager) ReplayCookies(ctx context.Context) bool {
	if err := m.replayCookies(ctx); err != nil {
		slog.Error("session: cookie replay failed", "file", m.cfg.CookiesFile, "err", err)
		return false
	}
	slog.Info("session: cookies applied", "file", m.cfg.CookiesFile)
	return true
}

func (m *Manager) replayCookies(ctx context.Context) error {
	if err := m.b.Navigate(ctx, m.cfg.BaseURL); err != nil {
		return err
	}
	if err := m.sleep(ctx, 3*time.Second); err != nil {
		return err
	}
	cookies, err := LoadCookies(m.cfg.CookiesFile)
	if err != nil {
		return err
	}
	if err := m.b.SetCookies(ctx, cookies); err != nil {
		return err
	}
	if err := m.b.Navigate(ctx, strings.TrimRight(m.cfg.BaseURL, "/")+"/home"); err != nil {
		return err
	}
	return m.sleep(ctx, 5*time.Second)
}

type loginState int

const (
	stateEnterIdentifier loginState = iota
	stateChallenge
	statePassword
	stateSubmit
	stateConfirmed
)

func (s loginState) String() string {
	switch s {
	case stateEnterIdentifier:
		return "enter_identifier"
	case stateChallenge:
		return "challenge"
	case statePassword:
		return "password"
	case stateSubmit:
		return "submit"
	case stateConfirmed:
		return "confirmed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Login drives the interactive login flow. On a wait timeout the current page
// markup is saved to DiagnosticFile before returning false.
func (m *Manager) Login(ctx context.Context) bool {
	if err := m.b.Navigate(ctx, strings.TrimRight(m.cfg.BaseURL, "/")+"/i/flow/login"); err != nil {
		slog.Error("session: open login page", "err", err)
		return false
	}
	state := stateEnterIdentifier
	for state != stateConfirmed {
		next, err := m.step(ctx, state)
		if err != nil {
			slog.Error("session: login failed", "state", state.String(), "err", err)
			if errors.Is(err, browser.ErrTimeout) {
				m.captureDiagnostic(ctx)
			}
			return false
		}
		slog.Debug("session: login transition", "from", state.String(), "to", next.String())
		state = next
	}
	slog.Info("session: logged in")
	return true
}

func (m *Manager) step(ctx context.Context, s loginState) (loginState, error) {
	wait := m.cfg.WaitTimeout
	switch s {
	case stateEnterIdentifier:
		if err := m.b.WaitFor(ctx, identifierInput, wait); err != nil {
			return s, err
		}
		if err := m.typeSlowly(ctx, identifierInput, m.cfg.Credentials.Identifier); err != nil {
			return s, err
		}
		if err := m.click(ctx, nextButton); err != nil {
			return s, err
		}
		if err := m.sleep(ctx, m.jitter(time.Second, 2*time.Second)); err != nil {
			return s, err
		}
		name, err := m.nextFieldName(ctx)
		if err != nil {
			return s, err
		}
		if name == "password" {
			return statePassword, nil
		}
		return stateChallenge, nil

	case stateChallenge:
		challenged, err := m.challengeShown(ctx)
		if err != nil {
			return s, err
		}
		if !challenged {
			return s, errors.New("unexpected text field without a verification challenge")
		}
		token := m.cfg.Credentials.VerificationToken
		if token == "" {
			return s, errors.New("verification challenge shown but no verification token configured")
		}
		slog.Info("session: verification challenge detected")
		if err := m.typeSlowly(ctx, identifierInput, token); err != nil {
			return s, err
		}
		if err := m.click(ctx, nextButton); err != nil {
			return s, err
		}
		return statePassword, nil

	case statePassword:
		if err := m.b.WaitFor(ctx, passwordInput, wait); err != nil {
			return s, err
		}
		if err := m.typeSlowly(ctx, passwordInput, m.cfg.Credentials.Password); err != nil {
			return s, err
		}
		return stateSubmit, nil

	case stateSubmit:
		if err := m.click(ctx, loginButton); err != nil {
			return s, err
		}
		if err := m.b.WaitFor(ctx, homeLandmark, wait); err != nil {
			return s, err
		}
		return stateConfirmed, nil
	}
	return s, fmt.Errorf("unknown login state %v", s)
}

// nextFieldName returns the name attribute of the input shown after the
// identifier was submitted.
func (m *Manager) nextFieldName(ctx context.Context) (string, error) {
	if err := m.b.WaitFor(ctx, nextInput, m.cfg.WaitTimeout); err != nil {
		return "", err
	}
	els, err := m.b.FindAll(ctx, nextInput.Query)
	if err != nil {
		return "", err
	}
	for _, el := range els {
		if name, ok := el.Attr("name"); ok && name == "password" {
			return name, nil
		}
	}
	return "text", nil
}

func (m *Manager) challengeShown(ctx context.Context) (bool, error) {
	els, err := m.b.FindAll(ctx, "body")
	if err != nil {
		return false, err
	}
	if len(els) == 0 {
		return false, nil
	}
	body := strings.ToLower(els[0].Text())
	for _, marker := range challengeMarkers {
		if strings.Contains(body, marker) {
			return true, nil
		}
	}
	return false, nil
}

// click waits for loc to render, then clicks it. Both steps are bounded by
// WaitTimeout.
func (m *Manager) click(ctx context.Context, loc browser.Locator) error {
	if err := m.b.WaitFor(ctx, loc, m.cfg.WaitTimeout); err != nil {
		return err
	}
	return m.b.Click(ctx, loc, m.cfg.WaitTimeout)
}

func (m *Manager) typeSlowly(ctx context.Context, loc browser.Locator, text string) error {
	for _, r := range text {
		if err := m.b.Type(ctx, loc, string(r), m.cfg.WaitTimeout); err != nil {
			return err
		}
		if err := m.sleep(ctx, m.jitter(50*time.Millisecond, 150*time.Millisecond)); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) captureDiagnostic(ctx context.Context) {
	src, err := m.b.Source(ctx)
	if err != nil {
		slog.Error("session: capture page source", "err", err)
		return
	}
	if err := os.MkdirAll(m.cfg.DiagnosticDir, 0o755); err != nil {
		slog.Error("session: create diagnostic dir", "err", err)
		return
	}
	path := filepath.Join(m.cfg.DiagnosticDir, DiagnosticFile)
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		slog.Error("session: write diagnostic page", "err", err)
		return
	}
	slog.Info("session: saved login page for diagnosis", "path", path)
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

func randBetween(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + rand.N(hi-lo)
}
