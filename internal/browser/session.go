// Package browser owns the process-wide headless Chrome session shared by
// every fetch in a run.
package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// Config controls the Chrome allocator.
type Config struct {
	// Headful runs a visible browser window instead of headless Chrome.
	// Product Hunt's bot checks pass more reliably against a real window
	// (the original deployment drove one inside a virtual display).
	Headful bool
	// ProxyURL is passed straight to Chrome; rotation, if any, is the
	// proxy service's concern.
	ProxyURL string
	// UserAgent overrides the browser default when set.
	UserAgent string
	// NavTimeout bounds one page load. Zero defaults to 45s.
	NavTimeout time.Duration
}

// Session is the single shared browser handle. It is acquired once at
// startup, used read-only by concurrent item tasks, and released exactly
// once through Close regardless of how the run ends.
type Session struct {
	cfg       Config
	allocator context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
	logger    *zap.Logger
}

// NewSession starts the Chrome exec allocator.
func NewSession(cfg Config, logger *zap.Logger) (*Session, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.NavTimeout <= 0 {
		cfg.NavTimeout = 45 * time.Second
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("enable-automation", false),
	)
	if cfg.Headful {
		opts = append(opts, chromedp.Flag("headless", false))
	} else {
		opts = append(opts, chromedp.Flag("headless", "new"))
	}
	if cfg.ProxyURL != "" {
		opts = append(opts, chromedp.ProxyServer(cfg.ProxyURL))
	}

	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)
	logger.Info("Browser session started",
		zap.Bool("headful", cfg.Headful),
		zap.Bool("proxied", cfg.ProxyURL != ""),
	)

	return &Session{
		cfg:       cfg,
		allocator: allocCtx,
		cancel:    cancel,
		logger:    logger,
	}, nil
}

// Render navigates to url in a fresh tab, waits for waitSelector to be
// ready, and returns the rendered DOM.
func (s *Session) Render(ctx context.Context, url, waitSelector string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("render %s: %w", url, err)
	}

	tabCtx, cancelTab := chromedp.NewContext(s.allocator)
	defer cancelTab()
	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, s.cfg.NavTimeout)
	defer cancelTimeout()

	// Stop waiting early if the caller's context finishes first.
	stop := context.AfterFunc(ctx, cancelTab)
	defer stop()

	var html string
	actions := []chromedp.Action{
		s.networkSetupAction(),
		chromedp.Navigate(url),
		chromedp.WaitReady(waitSelector, chromedp.ByQuery),
		chromedp.Sleep(500 * time.Millisecond),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	}
	if err := chromedp.Run(tabCtx, actions...); err != nil {
		return "", fmt.Errorf("render %s: %w", url, err)
	}
	return html, nil
}

func (s *Session) networkSetupAction() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := network.Enable().Do(ctx); err != nil {
			return fmt.Errorf("enable network domain: %w", err)
		}
		if s.cfg.UserAgent != "" {
			if err := emulation.SetUserAgentOverride(s.cfg.UserAgent).Do(ctx); err != nil {
				return fmt.Errorf("set user-agent: %w", err)
			}
		}
		return nil
	})
}

// Close tears down the allocator. Safe to call from multiple exit paths;
// only the first call does anything.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.logger.Info("Closing browser session")
		s.cancel()
	})
}
