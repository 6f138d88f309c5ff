// Package browser drives one Chrome page over a persistent profile, so that a
// login performed by a human survives between runs.
package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// ErrNotStarted is returned by page operations before Start.
var ErrNotStarted = errors.New("browser not started")

// Config holds browser configuration.
type Config struct {
	DebuggerURL         string `json:"debugger_url"`  // connect instead of launching
	Bin                 string `json:"bin"`           // Chrome binary, auto-detected when empty
	UserDataDir         string `json:"user_data_dir"` // persistent profile
	Headless            bool   `json:"headless"`
	NavigationTimeoutMs int    `json:"navigation_timeout_ms"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		UserDataDir:         "./user_session",
		Headless:            false,
		NavigationTimeoutMs: 30000,
	}
}

// NavigationTimeout returns the navigation timeout.
func (c Config) NavigationTimeout() time.Duration {
	if c.NavigationTimeoutMs == 0 {
		return 30 * time.Second
	}
	return time.Duration(c.NavigationTimeoutMs) * time.Millisecond
}

// Session owns the Chrome process (or connection) and its single page. It is
// not safe for concurrent use; callers drive it sequentially.
type Session struct {
	cfg        Config
	browser    *rod.Browser
	page       *rod.Page
	controlURL string
}

// NewSession creates a session; call Start before using it.
func NewSession(cfg Config) *Session {
	return &Session{cfg: cfg}
}

// Start connects to DebuggerURL or launches Chrome on the configured profile,
// then opens a blank page.
func (s *Session) Start(ctx context.Context) error {
	if s.browser != nil {
		if _, err := s.browser.Version(); err == nil {
			return nil
		}
		_ = s.browser.Close()
		s.browser, s.page = nil, nil
	}

	controlURL := s.cfg.DebuggerURL
	if controlURL == "" {
		l := launcher.New().Context(ctx).Headless(s.cfg.Headless)
		if s.cfg.Bin != "" {
			l = l.Bin(s.cfg.Bin)
		}
		if s.cfg.UserDataDir != "" {
			dir, err := filepath.Abs(s.cfg.UserDataDir)
			if err != nil {
				return fmt.Errorf("resolve user data dir: %w", err)
			}
			if err := os.MkdirAll(dir, 0o700); err != nil {
				return fmt.Errorf("create user data dir: %w", err)
			}
			l = l.UserDataDir(dir)
		}
		url, err := l.Launch()
		if err != nil {
			return fmt.Errorf("launch chrome: %w", err)
		}
		controlURL = url
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return fmt.Errorf("connect to chrome: %w", err)
	}

	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		_ = browser.Close()
		return fmt.Errorf("create page: %w", err)
	}

	s.browser = browser
	s.page = page
	s.controlURL = controlURL
	return nil
}

// ControlURL returns the WebSocket debugger URL.
func (s *Session) ControlURL() string {
	return s.controlURL
}

// Open navigates the page to url.
func (s *Session) Open(ctx context.Context, url string) error {
	if s.page == nil {
		return ErrNotStarted
	}
	p := s.page.Context(ctx).Timeout(s.cfg.NavigationTimeout())
	defer p.CancelTimeout()
	if err := p.Navigate(url); err != nil {
		return fmt.Errorf("navigate: %w", err)
	}
	return nil
}

// WaitVisible blocks until an element matching selector is visible or
// timeout elapses.
func (s *Session) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	if s.page == nil {
		return ErrNotStarted
	}
	p := s.page.Context(ctx).Timeout(timeout)
	defer p.CancelTimeout()

	el, err := p.Element(selector)
	if err != nil {
		return fmt.Errorf("wait for %s: %w", selector, err)
	}
	if err := el.WaitVisible(); err != nil {
		return fmt.Errorf("wait for %s to be visible: %w", selector, err)
	}
	return nil
}

// PressEnter sends an Enter key press to the focused element.
func (s *Session) PressEnter(ctx context.Context) error {
	if s.page == nil {
		return ErrNotStarted
	}
	if err := s.page.Context(ctx).KeyActions().Press(input.Enter).Do(); err != nil {
		return fmt.Errorf("press enter: %w", err)
	}
	return nil
}

// Shutdown closes the page and the browser. The profile directory is kept.
func (s *Session) Shutdown() error {
	if s.browser == nil {
		return nil
	}
	if s.page != nil {
		_ = s.page.Close()
	}
	err := s.browser.Close()
	s.browser, s.page = nil, nil
	s.controlURL = ""
	return err
}
