// Package surface provides browsing surfaces for handing diagnostic sessions
// to the customer portal: Chrome tabs driven through chromedp, and a printer
// for terminals without a browser.
package surface

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/spec-kit/diagnostic-login/internal/impersonation"
)

const blankPage = "about:blank"

// Browser opens tabs in one Chrome instance, started on first use.
type Browser struct {
	mu            sync.Mutex
	allocCtx      context.Context
	cancelAlloc   context.CancelFunc
	browserCtx    context.Context
	cancelBrowser context.CancelFunc
	logger        *zap.Logger
}

// NewBrowser prepares a Chrome allocator. Nothing is launched until the
// first tab is opened.
func NewBrowser(ctx context.Context, headless bool, logger *zap.Logger) *Browser {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts := append(chromedp.DefaultExecAllocatorOptions[:], chromedp.Flag("headless", headless))
	allocCtx, cancel := chromedp.NewExecAllocator(ctx, opts...)
	return &Browser{allocCtx: allocCtx, cancelAlloc: cancel, logger: logger}
}

// OpenBlank opens a new blank tab.
func (b *Browser) OpenBlank() (impersonation.Surface, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.start(); err != nil {
		return nil, err
	}
	tabCtx, cancel := chromedp.NewContext(b.browserCtx)
	if err := chromedp.Run(tabCtx, chromedp.Navigate(blankPage)); err != nil {
		cancel()
		return nil, fmt.Errorf("open tab: %w", err)
	}
	return &Tab{ctx: tabCtx, cancel: cancel, logger: b.logger}, nil
}

// Open opens a new tab showing rawURL.
func (b *Browser) Open(ctx context.Context, rawURL string) (impersonation.Surface, error) {
	tab, err := b.OpenBlank()
	if err != nil {
		return nil, err
	}
	if err := tab.Navigate(ctx, rawURL); err != nil {
		_ = tab.Close()
		return nil, err
	}
	return tab, nil
}

// Close shuts Chrome down, closing every tab.
func (b *Browser) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cancelBrowser != nil {
		b.cancelBrowser()
	}
	b.cancelAlloc()
}

func (b *Browser) start() error {
	if b.browserCtx != nil {
		return nil
	}
	browserCtx, cancel := chromedp.NewContext(b.allocCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		cancel()
		return fmt.Errorf("start browser: %w", err)
	}
	b.browserCtx, b.cancelBrowser = browserCtx, cancel
	b.logger.Debug("browser started")
	return nil
}

// Tab is one Chrome tab.
type Tab struct {
	ctx    context.Context
	cancel context.CancelFunc
	logger *zap.Logger

	mu     sync.Mutex
	closed bool
}

// Navigate loads rawURL in the tab. The tab's own context bounds the load;
// ctx only aborts a navigation that has not started yet.
func (t *Tab) Navigate(ctx context.Context, rawURL string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return errors.New("tab closed")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := chromedp.Run(t.ctx, chromedp.Navigate(rawURL)); err != nil {
		return fmt.Errorf("navigate: %w", err)
	}
	t.logger.Debug("tab navigated")
	return nil
}

// Close closes the tab. Closing twice is a no-op.
func (t *Tab) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.closed {
		t.closed = true
		t.cancel()
	}
	return nil
}
