// Package rates resolves the currency exchange rate applied to a quote.
package rates

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/notifyhub/pricewatch/internal/domain"
	"github.com/notifyhub/pricewatch/internal/fallback"
	"github.com/notifyhub/pricewatch/internal/source"
)

// RateSource fetches a live rate for converting base into quote.
type RateSource interface {
	Rate(ctx context.Context, base, quote string) (float64, error)
}

// HTTPRateSource reads an exchangerate-api style document:
//
//	{"base": "USD", "rates": {"PKR": 280.15, ...}}
//
// URL may contain a "{base}" placeholder.
type HTTPRateSource struct {
	ID      string
	URL     string
	Timeout time.Duration
	Client  source.HTTPClient
}

func (s *HTTPRateSource) Rate(ctx context.Context, base, quote string) (float64, error) {
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}
	hc := s.Client
	if hc == nil {
		hc = http.DefaultClient
	}

	header := http.Header{}
	header.Set("Accept", "application/json")
	url := strings.ReplaceAll(s.URL, "{base}", base)

	body, err := source.Get(ctx, hc, s.ID, url, header)
	if err != nil {
		return 0, err
	}

	var doc struct {
		Rates map[string]json.Number `json:"rates"`
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return 0, domain.NewFetchError(s.ID, domain.KindParseFailure, fmt.Errorf("decode: %w", err))
	}
	n, ok := doc.Rates[quote]
	if !ok {
		return 0, domain.NewFetchError(s.ID, domain.KindParseFailure,
			fmt.Errorf("%w: rates.%s", domain.ErrFieldMissing, quote))
	}
	v, err := n.Float64()
	if err != nil || !(v > 0) {
		return 0, domain.NewFetchError(s.ID, domain.KindParseFailure,
			fmt.Errorf("%w: rates.%s=%s", domain.ErrFieldMissing, quote, n))
	}
	return v, nil
}

// Config holds the resolver's policy.
type Config struct {
	Base     string
	Quote    string
	Fallback float64 // used when the live lookup fails
	Policy   domain.SourceConfig
}

// Hooks carries observation callbacks. Nil fields are no-ops.
type Hooks struct {
	OnResolved func(rate domain.ExchangeRate)
}

// Resolver produces the exchange rate for a run. It never fails: when the
// live source is exhausted it returns the configured constant flagged as
// low confidence.
type Resolver struct {
	cfg    Config
	src    RateSource
	logger *zap.Logger
	hooks  Hooks
	now    func() time.Time
}

func NewResolver(cfg Config, src RateSource, logger *zap.Logger, hooks Hooks) *Resolver {
	cfg.Base = strings.ToUpper(cfg.Base)
	cfg.Quote = strings.ToUpper(cfg.Quote)
	if cfg.Policy.ID == "" {
		cfg.Policy.ID = "exchange-rate"
	}
	return &Resolver{cfg: cfg, src: src, logger: logger, hooks: hooks, now: time.Now}
}

// Resolve returns the rate to apply to quotes priced in base currency.
func (r *Resolver) Resolve(ctx context.Context) domain.ExchangeRate {
	rate := r.resolve(ctx)
	if r.hooks.OnResolved != nil {
		r.hooks.OnResolved(rate)
	}
	return rate
}

// Matches reports whether rate converts quotes priced in currency.
func (r *Resolver) Matches(rate domain.ExchangeRate, currency string) bool {
	return strings.EqualFold(rate.Base, currency)
}

// Target is the currency every payload is expressed in.
func (r *Resolver) Target() string { return r.cfg.Quote }

func (r *Resolver) resolve(ctx context.Context) domain.ExchangeRate {
	if r.cfg.Base == r.cfg.Quote {
		return domain.IdentityRate(r.cfg.Quote, r.now().UTC())
	}

	log := r.logger.With(zap.String("base", r.cfg.Base), zap.String("quote", r.cfg.Quote))

	var live float64
	attempts, err := fallback.Retry(ctx, r.cfg.Policy, func(ctx context.Context, attempt int) error {
		v, err := r.src.Rate(ctx, r.cfg.Base, r.cfg.Quote)
		if err != nil {
			log.Warn("exchange rate attempt failed",
				zap.Int("attempt", attempt),
				zap.String("kind", string(domain.KindOf(err))),
				zap.Error(err),
			)
			return err
		}
		live = v
		return nil
	})
	if err == nil {
		log.Info("exchange rate resolved", zap.Float64("rate", live), zap.Int("attempt", attempts))
		return domain.ExchangeRate{Base: r.cfg.Base, Quote: r.cfg.Quote, Rate: live, FetchedAt: r.now().UTC()}
	}

	log.Warn("exchange rate unavailable, using fallback",
		zap.Float64("fallback_rate", r.cfg.Fallback),
		zap.Int("attempts", attempts),
		zap.Error(err),
	)
	return domain.ExchangeRate{
		Base:          r.cfg.Base,
		Quote:         r.cfg.Quote,
		Rate:          r.cfg.Fallback,
		FetchedAt:     r.now().UTC(),
		LowConfidence: true,
	}
}

var _ RateSource = (*HTTPRateSource)(nil)
