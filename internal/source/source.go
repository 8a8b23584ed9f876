// Package source holds the price source adapters. Every adapter makes exactly
// one outbound attempt per Fetch call and bounds it with its own timeout;
// retrying is left to the fallback orchestrator.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/notifyhub/pricewatch/internal/domain"
)

// Source fetches one price quote from one external source.
type Source interface {
	ID() string
	Config() domain.SourceConfig
	Fetch(ctx context.Context) (domain.PriceQuote, error)
}

// HTTPClient describes an HTTP client.
//
//go:generate mockgen -package=source_test -destination=mock_http_client_test.go -source=source.go HTTPClient
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

const (
	userAgent       = "pricewatch/1.0"
	maxBodyBytes    = 4 << 20
	maxErrBodyBytes = 2 << 10
)

// attemptContext bounds a single attempt by the source's own timeout.
func attemptContext(ctx context.Context, cfg domain.SourceConfig) (context.Context, context.CancelFunc) {
	if cfg.AttemptTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, cfg.AttemptTimeout)
}

// get performs a GET and returns the body of a 2xx response. Failures are
// returned as *domain.FetchError.
func get(ctx context.Context, hc HTTPClient, sourceID, url string, header http.Header) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, domain.NewFetchError(sourceID, domain.KindUnreachable, fmt.Errorf("create request: %w", err))
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", userAgent)
	}

	resp, err := hc.Do(req)
	if err != nil {
		return nil, classify(ctx, sourceID, fmt.Errorf("send request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrBodyBytes))
		return nil, domain.NewFetchError(sourceID, domain.KindForStatus(resp.StatusCode),
			fmt.Errorf("GET %s -> %d: %s", url, resp.StatusCode, strings.TrimSpace(string(b))))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, classify(ctx, sourceID, fmt.Errorf("read body: %w", err))
	}
	return body, nil
}

// Get is the shared single-attempt GET used by adapters outside this
// package, such as the exchange rate source.
func Get(ctx context.Context, hc HTTPClient, sourceID, url string, header http.Header) ([]byte, error) {
	return get(ctx, hc, sourceID, url, header)
}

// classify turns a transport error into a FetchError, preferring the
// context's own verdict when the attempt deadline fired.
func classify(ctx context.Context, sourceID string, err error) error {
	var fe *domain.FetchError
	if errors.As(err, &fe) {
		return err
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return domain.NewFetchError(sourceID, domain.KindTimeout, err)
	}
	return domain.NewFetchError(sourceID, domain.KindOf(err), err)
}

// ExtractNumber reduces located text to its digits and parses it. Group
// separators and currency symbols are dropped; the first '.' that is followed
// by a digit is kept as the decimal point.
func ExtractNumber(text string) (float64, error) {
	var b strings.Builder
	seenPoint := false
	runes := []rune(text)
	for i, r := range runes {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' && !seenPoint && b.Len() > 0 && i+1 < len(runes) && unicode.IsDigit(runes[i+1]):
			seenPoint = true
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return 0, fmt.Errorf("%w: no digits in %q", domain.ErrLocatorNoMatch, truncate(text, 64))
	}
	v, err := strconv.ParseFloat(b.String(), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: parse %q: %v", domain.ErrFieldMissing, b.String(), err)
	}
	return v, nil
}

func newQuote(cfg domain.SourceConfig, value, secondary float64, unit domain.Unit, currency string, now func() time.Time) (domain.PriceQuote, error) {
	q := domain.PriceQuote{
		SourceID:       cfg.ID,
		RawValue:       value,
		SecondaryValue: secondary,
		RawUnit:        unit,
		Currency:       currency,
		FetchedAt:      now().UTC(),
	}
	if err := q.Validate(); err != nil {
		return domain.PriceQuote{}, domain.NewFetchError(cfg.ID, domain.KindParseFailure, err)
	}
	return q, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
