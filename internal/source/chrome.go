package source

import (
	"context"
	"fmt"

	"github.com/chromedp/chromedp"
)

// ChromeBrowser opens chromedp sessions, either by launching a local
// headless Chrome or by attaching to a remote DevTools endpoint.
type ChromeBrowser struct {
	// RemoteURL is a DevTools websocket URL. Empty launches a local browser.
	RemoteURL string
	ExecPath  string
	UserAgent string
}

func (b ChromeBrowser) Open(ctx context.Context) (Session, error) {
	var (
		allocCtx    context.Context
		cancelAlloc context.CancelFunc
	)
	if b.RemoteURL != "" {
		allocCtx, cancelAlloc = chromedp.NewRemoteAllocator(ctx, b.RemoteURL)
	} else {
		opts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.DisableGPU,
			chromedp.NoSandbox,
		)
		if b.ExecPath != "" {
			opts = append(opts, chromedp.ExecPath(b.ExecPath))
		}
		ua := b.UserAgent
		if ua == "" {
			ua = userAgent
		}
		opts = append(opts, chromedp.UserAgent(ua))
		allocCtx, cancelAlloc = chromedp.NewExecAllocator(ctx, opts...)
	}

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	// An empty Run starts the browser so launch failures surface here.
	if err := chromedp.Run(browserCtx); err != nil {
		cancelBrowser()
		cancelAlloc()
		return nil, fmt.Errorf("start browser: %w", err)
	}
	return &chromeSession{ctx: browserCtx, cancelBrowser: cancelBrowser, cancelAlloc: cancelAlloc}, nil
}

type chromeSession struct {
	ctx           context.Context
	cancelBrowser context.CancelFunc
	cancelAlloc   context.CancelFunc
}

// Text runs in the session's own context, which already carries the
// deadline of the context the session was opened with.
func (s *chromeSession) Text(_ context.Context, url, selector string) (string, error) {
	var text string
	err := chromedp.Run(s.ctx,
		chromedp.Navigate(url),
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.Text(selector, &text, chromedp.ByQuery, chromedp.NodeVisible),
	)
	if err != nil {
		return "", err
	}
	return text, nil
}

func (s *chromeSession) Close() error {
	err := chromedp.Cancel(s.ctx)
	s.cancelBrowser()
	s.cancelAlloc()
	return err
}

var _ Browser = ChromeBrowser{}
