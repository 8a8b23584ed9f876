package source

import (
	"context"
	"fmt"
	"time"

	"github.com/notifyhub/pricewatch/internal/domain"
)

// Browser opens short-lived rendering sessions. The session inherits the
// deadline of the context passed to Open.
type Browser interface {
	Open(ctx context.Context) (Session, error)
}

// Session is one scoped headless-browser context. Close must be safe to
// call after any failure, including a fired deadline.
type Session interface {
	// Text navigates to url, waits until selector is visible and returns its text.
	Text(ctx context.Context, url, selector string) (string, error)
	Close() error
}

// RenderedConfig configures a page that needs script execution.
type RenderedConfig struct {
	Source   domain.SourceConfig
	URL      string
	Selector string // CSS selector
	Unit     domain.Unit
	Currency string
}

// RenderedSource scrapes a page through a headless browser. To the
// orchestrator it is an ordinary blocking Fetch bounded by AttemptTimeout.
type RenderedSource struct {
	cfg     RenderedConfig
	browser Browser
	now     func() time.Time
}

func NewRenderedSource(cfg RenderedConfig, browser Browser) *RenderedSource {
	return &RenderedSource{cfg: cfg, browser: browser, now: time.Now}
}

func (s *RenderedSource) ID() string                  { return s.cfg.Source.ID }
func (s *RenderedSource) Config() domain.SourceConfig { return s.cfg.Source }

func (s *RenderedSource) Fetch(ctx context.Context) (quote domain.PriceQuote, err error) {
	ctx, cancel := attemptContext(ctx, s.cfg.Source)
	defer cancel()

	session, err := s.browser.Open(ctx)
	if err != nil {
		return domain.PriceQuote{}, classify(ctx, s.ID(), fmt.Errorf("open session: %w", err))
	}
	// Torn down on every path: success, parse failure, timeout or panic.
	defer func() {
		_ = session.Close()
	}()

	text, err := session.Text(ctx, s.cfg.URL, s.cfg.Selector)
	if err != nil {
		return domain.PriceQuote{}, classify(ctx, s.ID(), fmt.Errorf("render %s: %w", s.cfg.URL, err))
	}
	if text == "" {
		return domain.PriceQuote{}, domain.NewFetchError(s.ID(), domain.KindParseFailure,
			fmt.Errorf("%w: selector %q", domain.ErrLocatorNoMatch, s.cfg.Selector))
	}

	value, err := ExtractNumber(text)
	if err != nil {
		return domain.PriceQuote{}, domain.NewFetchError(s.ID(), domain.KindParseFailure, err)
	}
	return newQuote(s.cfg.Source, value, 0, s.cfg.Unit, s.cfg.Currency, s.now)
}

var _ Source = (*RenderedSource)(nil)
