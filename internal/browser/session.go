// Package browser owns the headless-browser session lifecycle for one
// retailer scrape: launch, navigate with retry, wait for listings,
// settle lazy-loaded content, capture diagnostics, and release.
package browser

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/utkarshprasad2/FrugalTops/internal/retry"
	"github.com/utkarshprasad2/FrugalTops/internal/scraper"
)

// Resource types allowed through request interception. Everything else
// (images, fonts, stylesheets, media) is blocked to cut load time.
var allowedResourceTypes = map[string]bool{
	"document": true,
	"script":   true,
	"xhr":      true,
	"fetch":    true,
}

type Options struct {
	Headless       bool
	Timeout        time.Duration
	UserAgent      string
	ViewportWidth  int
	ViewportHeight int
	MaxRetries     int
	RetryDelay     time.Duration
	SettleDelay    time.Duration
	DiagnosticsDir string
}

func DefaultOptions() *Options {
	return &Options{
		Headless:       true,
		Timeout:        30 * time.Second,
		UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		ViewportWidth:  1280,
		ViewportHeight: 800,
		MaxRetries:     3,
		RetryDelay:     2 * time.Second,
		SettleDelay:    time.Second,
		DiagnosticsDir: "diagnostics",
	}
}

// Session drives one browser instance and one page for one search.
// Sessions are single-use: Open once, Close exactly once, never shared
// across concurrent scrapes.
type Session struct {
	opts       *Options
	logger     *slog.Logger
	pw         *playwright.Playwright
	browser    playwright.Browser
	browserCtx playwright.BrowserContext
	page       playwright.Page
}

// NewSession returns an unopened session.
func NewSession(opts *Options, logger *slog.Logger) *Session {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &Session{
		opts:   opts,
		logger: logger.With("component", "browser"),
	}
}

// Factory adapts NewSession to the orchestrator's session factory.
func Factory(opts *Options, logger *slog.Logger) scraper.SessionFactory {
	return func() scraper.Session {
		return NewSession(opts, logger)
	}
}

// Open launches the browser and prepares one page with the configured
// viewport, user agent, and resource blocking. On partial failure the
// already-acquired resources remain set so Close can release them.
func (s *Session) Open() error {
	pw, err := playwright.Run()
	if err != nil {
		return fmt.Errorf("failed to start playwright: %w", err)
	}
	s.pw = pw

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(s.opts.Headless),
		Args: []string{
			"--no-sandbox",
			"--disable-setuid-sandbox",
			"--disable-dev-shm-usage",
		},
	})
	if err != nil {
		return fmt.Errorf("failed to launch browser: %w", err)
	}
	s.browser = browser

	browserCtx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		UserAgent: playwright.String(s.opts.UserAgent),
		Viewport: &playwright.Size{
			Width:  s.opts.ViewportWidth,
			Height: s.opts.ViewportHeight,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create browser context: %w", err)
	}
	s.browserCtx = browserCtx

	page, err := browserCtx.NewPage()
	if err != nil {
		return fmt.Errorf("failed to create page: %w", err)
	}
	page.SetDefaultTimeout(float64(s.opts.Timeout.Milliseconds()))

	err = page.Route("**/*", func(route playwright.Route) {
		if allowedResourceTypes[route.Request().ResourceType()] {
			route.Continue()
			return
		}
		route.Abort()
	})
	if err != nil {
		return fmt.Errorf("failed to enable request interception: %w", err)
	}

	s.page = page
	return nil
}

// Navigate goes to url waiting for network idle, retrying with a fixed
// backoff before giving up.
func (s *Session) Navigate(ctx context.Context, url string) error {
	return retry.Do(ctx, s.opts.MaxRetries, s.opts.RetryDelay, s.logger, "navigate", func() error {
		_, err := s.page.Goto(url, playwright.PageGotoOptions{
			WaitUntil: playwright.WaitUntilStateNetworkidle,
			Timeout:   playwright.Float(float64(s.opts.Timeout.Milliseconds())),
		})
		return err
	})
}

// AwaitListings waits for at least one visible element matching the
// listing-container selector, with the same retry envelope as Navigate.
func (s *Session) AwaitListings(ctx context.Context, selector string) error {
	return retry.Do(ctx, s.opts.MaxRetries, s.opts.RetryDelay, s.logger, "await listings", func() error {
		return s.page.Locator(selector).First().WaitFor(playwright.LocatorWaitForOptions{
			State:   playwright.WaitForSelectorStateVisible,
			Timeout: playwright.Float(float64(s.opts.Timeout.Milliseconds())),
		})
	})
}

// Settle pauses, scrolls to the bottom of the page, and pauses again so
// lazy-loaded listing content has a chance to render.
func (s *Session) Settle(ctx context.Context) error {
	if err := sleepCtx(ctx, s.opts.SettleDelay); err != nil {
		return err
	}
	if _, err := s.page.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`); err != nil {
		s.logger.Warn("scroll failed", "error", err)
	}
	return sleepCtx(ctx, s.opts.SettleDelay)
}

// Listings returns one handle per listing container, in document order.
func (s *Session) Listings(selector string) ([]scraper.Listing, error) {
	containers := s.page.Locator(selector)
	count, err := containers.Count()
	if err != nil {
		return nil, fmt.Errorf("failed to count listings: %w", err)
	}

	listings := make([]scraper.Listing, 0, count)
	for i := 0; i < count; i++ {
		listings = append(listings, &listing{root: containers.Nth(i)})
	}
	return listings, nil
}

// DiagnosticCapture saves a screenshot and the page markup for offline
// debugging. Capture failures are logged and swallowed so they never
// mask the error that triggered the capture.
func (s *Session) DiagnosticCapture(label string) {
	if s.page == nil {
		return
	}
	if err := os.MkdirAll(s.opts.DiagnosticsDir, 0o755); err != nil {
		s.logger.Warn("diagnostic capture skipped", "error", err)
		return
	}

	stamp := time.Now().Format("20060102-150405")
	base := filepath.Join(s.opts.DiagnosticsDir, fmt.Sprintf("%s-%s", label, stamp))

	if _, err := s.page.Screenshot(playwright.PageScreenshotOptions{
		Path:     playwright.String(base + ".png"),
		FullPage: playwright.Bool(true),
	}); err != nil {
		s.logger.Warn("screenshot capture failed", "error", err)
	}

	content, err := s.page.Content()
	if err != nil {
		s.logger.Warn("markup capture failed", "error", err)
		return
	}
	if err := os.WriteFile(base+".html", []byte(content), 0o644); err != nil {
		s.logger.Warn("markup write failed", "error", err)
	}
}

// Close releases the page, context, browser, and playwright driver in
// order. Safe after a partial Open; errors are logged, not propagated,
// so cleanup never overrides an already-determined result.
func (s *Session) Close() {
	if s.page != nil {
		if err := s.page.Close(); err != nil {
			s.logger.Warn("failed to close page", "error", err)
		}
		s.page = nil
	}
	if s.browserCtx != nil {
		if err := s.browserCtx.Close(); err != nil {
			s.logger.Warn("failed to close browser context", "error", err)
		}
		s.browserCtx = nil
	}
	if s.browser != nil {
		if err := s.browser.Close(); err != nil {
			s.logger.Warn("failed to close browser", "error", err)
		}
		s.browser = nil
	}
	if s.pw != nil {
		if err := s.pw.Stop(); err != nil {
			s.logger.Warn("failed to stop playwright", "error", err)
		}
		s.pw = nil
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// listing adapts one playwright locator to the extractor's handle
// contract: every failure collapses to the empty string.
type listing struct {
	root playwright.Locator
}

func (l *listing) Text(selector string) string {
	if selector == "" {
		return ""
	}
	el := l.root.Locator(selector).First()
	count, err := el.Count()
	if err != nil || count == 0 {
		return ""
	}
	text, err := el.TextContent(playwright.LocatorTextContentOptions{
		Timeout: playwright.Float(1000),
	})
	if err != nil {
		return ""
	}
	return strings.TrimSpace(text)
}

func (l *listing) Attr(selector, attr string) string {
	if selector == "" {
		return ""
	}
	el := l.root.Locator(selector).First()
	count, err := el.Count()
	if err != nil || count == 0 {
		return ""
	}
	value, err := el.GetAttribute(attr, playwright.LocatorGetAttributeOptions{
		Timeout: playwright.Float(1000),
	})
	if err != nil {
		return ""
	}
	return value
}
