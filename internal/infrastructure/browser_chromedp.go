package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/yourusername/destream-go/internal/domain"
)

// urlPollInterval is how often WaitURL samples the page location
const urlPollInterval = 250 * time.Millisecond

// ChromeLauncher implements domain.BrowserLauncher with a local Chrome
type ChromeLauncher struct {
	config *domain.BrowserConfig
	logger *zap.Logger
}

// NewChromeLauncher creates a new Chrome launcher
func NewChromeLauncher(config *domain.BrowserConfig, log *zap.Logger) *ChromeLauncher {
	if log == nil {
		log = zap.NewNop()
	}
	return &ChromeLauncher{config: config, logger: log}
}

// Launch starts Chrome with a single tab, giving up after the configured
// launch timeout. Once started the browser outlives ctx; it is torn down
// only by Close.
func (l *ChromeLauncher) Launch(ctx context.Context) (domain.Browser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.Flag("headless", l.config.Headless),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.WindowSize(1280, 800),
	)
	if l.config.UserDataDir != "" {
		opts = append(opts, chromedp.UserDataDir(l.config.UserDataDir))
	}
	if l.config.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(l.config.ExecPath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(format string, args ...interface{}) {
		l.logger.Debug(fmt.Sprintf(format, args...))
	}))

	b := &ChromeBrowser{ctx: tabCtx, cancel: tabCancel, allocCancel: allocCancel, logger: l.logger}

	// The first Run allocates the browser and binds its lifetime to the
	// context it is given, so it must be the tab context itself. It is
	// bounded by cancelling that context.
	timer := time.AfterFunc(l.config.LaunchTimeout, tabCancel)
	stop := context.AfterFunc(ctx, tabCancel)
	err := chromedp.Run(tabCtx)
	timerFired := !timer.Stop()
	cancelled := !stop()

	switch {
	case cancelled:
		b.Close()
		return nil, ctx.Err()
	case timerFired:
		b.Close()
		return nil, fmt.Errorf("failed to start browser within %s: %w", l.config.LaunchTimeout, domain.ErrWaitTimeout)
	case err != nil:
		b.Close()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	l.logger.Debug("Browser started",
		zap.Bool("headless", l.config.Headless),
		zap.String("user_data_dir", l.config.UserDataDir))
	return b, nil
}

// ChromeBrowser implements domain.Browser over one chromedp tab
type ChromeBrowser struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	logger      *zap.Logger
}

// run executes actions on the tab, bounded by timeout (0 means none) and by
// the caller's ctx
func (b *ChromeBrowser) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(b.ctx)
	defer cancel()
	if timeout > 0 {
		runCtx, cancel = context.WithTimeout(runCtx, timeout)
		defer cancel()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return domain.ErrWaitTimeout
	}
	return err
}

// Navigate loads url in the tab and waits for its load event
func (b *ChromeBrowser) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	return b.run(ctx, timeout, chromedp.Navigate(url))
}

// WaitVisible waits until selector matches a visible element
func (b *ChromeBrowser) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	return b.run(ctx, timeout, chromedp.WaitVisible(selector, chromedp.ByQuery))
}

// Type sends text to the element matching selector
func (b *ChromeBrowser) Type(ctx context.Context, selector, text string, timeout time.Duration) error {
	return b.run(ctx, timeout, chromedp.SendKeys(selector, text, chromedp.ByQuery))
}

// Click clicks the element matching selector
func (b *ChromeBrowser) Click(ctx context.Context, selector string, timeout time.Duration) error {
	return b.run(ctx, timeout, chromedp.Click(selector, chromedp.ByQuery))
}

// WaitURL polls the tab location until match accepts it
func (b *ChromeBrowser) WaitURL(ctx context.Context, match func(string) bool, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(urlPollInterval)
	defer ticker.Stop()

	for {
		var location string
		if err := b.run(ctx, urlPollInterval*4, chromedp.Location(&location)); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			// pages in the middle of a redirect cannot report their location
			b.logger.Debug("Location unavailable", zap.Error(err))
		}
		if location != "" && match(location) {
			return nil
		}
		if time.Now().After(deadline) {
			b.logger.Debug("Timed out waiting for location", zap.String("last_url", location))
			return domain.ErrWaitTimeout
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Evaluate runs a JavaScript expression in the page and decodes its result
// into out. A *[]byte out receives the raw JSON.
func (b *ChromeBrowser) Evaluate(ctx context.Context, expression string, out interface{}, timeout time.Duration) error {
	return b.run(ctx, timeout, chromedp.Evaluate(expression, out))
}

// Close shuts the browser down
func (b *ChromeBrowser) Close() error {
	err := chromedp.Cancel(b.ctx)
	b.cancel()
	b.allocCancel()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
