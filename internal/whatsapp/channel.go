// Package whatsapp delivers messages through WhatsApp Web: one deep link per
// destination, then a simulated Enter on the pre-filled composer.
package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"rollcall/internal/config"
	"rollcall/internal/logging"
	"rollcall/internal/textnorm"
)

// ErrDelivery matches every per-destination failure via errors.Is.
var ErrDelivery = errors.New("delivery failed")

// DeliveryError wraps a failure to submit one message. It is recoverable:
// the caller logs it and moves on to the next destination.
type DeliveryError struct {
	Phone string
	Step  string // open, wait, submit
	Err   error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver to +%s: %s: %v", e.Phone, e.Step, e.Err)
}

func (e *DeliveryError) Unwrap() []error {
	return []error{ErrDelivery, e.Err}
}

// Page is the browser surface the channel drives. *browser.Session
// implements it.
type Page interface {
	Open(ctx context.Context, url string) error
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error
	PressEnter(ctx context.Context) error
}

// Config holds the WhatsApp Web timings.
type Config struct {
	BaseURL       string
	ReadySelector string
	LoginTimeout  time.Duration
	ReadyTimeout  time.Duration
	SettleDelay   time.Duration
	SendDelay     time.Duration
}

// ConfigFrom extracts the channel settings from the run configuration.
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		BaseURL:       cfg.Browser.BaseURL,
		ReadySelector: cfg.Browser.ReadySelector,
		LoginTimeout:  cfg.LoginTimeout(),
		ReadyTimeout:  cfg.ReadyTimeout(),
		SettleDelay:   cfg.SettleDelay(),
		SendDelay:     cfg.SendDelay(),
	}
}

// Channel sends messages one at a time through a logged-in WhatsApp Web page.
type Channel struct {
	cfg   Config
	page  Page
	log   *logging.Logger
	sleep func(ctx context.Context, d time.Duration) error
}

// NewChannel creates a channel over page.
func NewChannel(page Page, cfg Config, log *logging.Logger) *Channel {
	if cfg.BaseURL == "" {
		cfg.BaseURL = config.DefaultBaseURL
	}
	if cfg.ReadySelector == "" {
		cfg.ReadySelector = config.DefaultReadySelector
	}
	if log == nil {
		log = logging.Nop()
	}
	return &Channel{cfg: cfg, page: page, log: log, sleep: sleep}
}

// WaitForLogin opens WhatsApp Web and waits for the operator to authenticate.
// A profile that is already logged in passes as soon as the chat list loads.
func (c *Channel) WaitForLogin(ctx context.Context) error {
	c.log.Event(logging.StatusBrowser, "Opening WhatsApp Web...")
	if err := c.page.Open(ctx, c.cfg.BaseURL); err != nil {
		return fmt.Errorf("open %s: %w", c.cfg.BaseURL, err)
	}
	c.log.Event(logging.StatusWaiting, "User authentication required...",
		zap.Duration("timeout", c.cfg.LoginTimeout))
	if err := c.page.WaitVisible(ctx, c.cfg.ReadySelector, c.cfg.LoginTimeout); err != nil {
		return fmt.Errorf("wait for login: %w", err)
	}
	return nil
}

// Send opens a chat with phone pre-filled with text and submits it. phone may
// contain formatting; only its digits are used.
func (c *Channel) Send(ctx context.Context, phone, text string) error {
	digits := textnorm.Phone(phone)
	if digits == "" {
		return &DeliveryError{Phone: phone, Step: "open", Err: fmt.Errorf("no digits in phone number %q", phone)}
	}

	if err := c.page.Open(ctx, ChatURL(c.cfg.BaseURL, digits, text)); err != nil {
		return &DeliveryError{Phone: digits, Step: "open", Err: err}
	}
	if err := c.page.WaitVisible(ctx, c.cfg.ReadySelector, c.cfg.ReadyTimeout); err != nil {
		return &DeliveryError{Phone: digits, Step: "wait", Err: err}
	}
	if err := c.sleep(ctx, c.cfg.SettleDelay); err != nil {
		return &DeliveryError{Phone: digits, Step: "wait", Err: err}
	}
	if err := c.page.PressEnter(ctx); err != nil {
		return &DeliveryError{Phone: digits, Step: "submit", Err: err}
	}
	// Throttle before the next destination; the message is already submitted.
	if err := c.sleep(ctx, c.cfg.SendDelay); err != nil {
		c.log.Debug("send delay interrupted", zap.Error(err))
	}
	return nil
}

// ChatURL builds the deep link that opens a chat with phone and text
// pre-filled. Spaces are encoded as %20.
func ChatURL(base, phone, text string) string {
	q := "phone=" + url.QueryEscape(phone) + "&text=" + strings.ReplaceAll(url.QueryEscape(text), "+", "%20")
	return strings.TrimRight(base, "/") + "/send?" + q
}

func sleep(ctx context.Context, d time.Duration) error {
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
