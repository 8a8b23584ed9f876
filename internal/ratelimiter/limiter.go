package ratelimiter

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/notifyhub/pricewatch/internal/domain"
	"github.com/notifyhub/pricewatch/internal/source"
)

// SourceLimiters holds one limiter per source id. Each limiter allows one
// request per configured interval with a burst of one, so a source is never
// hit faster than its interval no matter how retries are scheduled.
type SourceLimiters struct {
	limiters map[string]*rate.Limiter
}

// New creates limiters for every source with a positive interval.
// Sources missing from intervals, or with a zero interval, are not limited.
func New(intervals map[string]time.Duration) *SourceLimiters {
	limiters := make(map[string]*rate.Limiter, len(intervals))
	for id, every := range intervals {
		if every <= 0 {
			continue
		}
		limiters[id] = rate.NewLimiter(rate.Every(every), 1)
	}
	return &SourceLimiters{limiters: limiters}
}

// Wrap returns src gated by its limiter, or src unchanged when it has none.
func (sl *SourceLimiters) Wrap(src source.Source) source.Source {
	l, ok := sl.limiters[src.ID()]
	if !ok {
		return src
	}
	return &throttled{Source: src, limiter: l}
}

type throttled struct {
	source.Source
	limiter *rate.Limiter
}

// Fetch waits for a token within the attempt budget. A wait that cannot
// finish before the attempt timeout fails as rate limited instead of eating
// the orchestrator's time.
func (t *throttled) Fetch(ctx context.Context) (domain.PriceQuote, error) {
	cfg := t.Config()
	waitCtx := ctx
	if cfg.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, cfg.AttemptTimeout)
		defer cancel()
	}
	if err := t.limiter.Wait(waitCtx); err != nil {
		return domain.PriceQuote{}, domain.NewFetchError(cfg.ID, domain.KindRateLimited, fmt.Errorf("throttle: %w", err))
	}
	return t.Source.Fetch(ctx)
}
