// Package fallback drives an ordered chain of price sources. Sources are
// probed strictly one at a time: several of them rate-limit or fingerprint
// clients, so concurrent probing would raise the odds of being blocked.
package fallback

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/notifyhub/pricewatch/internal/domain"
	"github.com/notifyhub/pricewatch/internal/source"
)

// Hooks carries observation callbacks injected by main. Nil fields are no-ops.
type Hooks struct {
	OnAttempt func(sourceID string, attempt int, err error)
}

// Orchestrator returns the first successful quote from an ordered list of sources.
type Orchestrator struct {
	logger  *zap.Logger
	onTry   func(string, int, error)
	sleeper func(ctx context.Context, d time.Duration) error
}

func New(logger *zap.Logger, hooks Hooks) *Orchestrator {
	onTry := hooks.OnAttempt
	if onTry == nil {
		onTry = func(string, int, error) {}
	}
	return &Orchestrator{logger: logger, onTry: onTry, sleeper: Sleep}
}

// Acquire tries sources in ascending priority (stable for ties) and returns
// the first valid quote. It never merges quotes and never touches a source
// after the one that succeeded. When every source runs out of attempts it
// returns *domain.ExhaustedError.
func (o *Orchestrator) Acquire(ctx context.Context, sources []source.Source) (domain.PriceQuote, error) {
	if len(sources) == 0 {
		return domain.PriceQuote{}, fmt.Errorf("%w: %w", domain.ErrAllSourcesExhausted, domain.ErrNoSources)
	}

	ordered := make([]source.Source, len(sources))
	copy(ordered, sources)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Config().Priority < ordered[j].Config().Priority
	})

	exhausted := &domain.ExhaustedError{}
	for _, src := range ordered {
		cfg := src.Config()
		log := o.logger.With(zap.String("source_id", cfg.ID), zap.Int("priority", cfg.Priority))

		var quote domain.PriceQuote
		attempts, err := retry(ctx, cfg, o.sleeper, func(ctx context.Context, attempt int) error {
			q, err := src.Fetch(ctx)
			if err == nil {
				if verr := q.Validate(); verr != nil {
					err = domain.NewFetchError(cfg.ID, domain.KindParseFailure, verr)
				}
			}
			o.onTry(cfg.ID, attempt, err)
			if err != nil {
				log.Warn("fetch attempt failed",
					zap.Int("attempt", attempt),
					zap.Int("max_attempts", cfg.MaxAttempts),
					zap.String("kind", string(domain.KindOf(err))),
					zap.Error(err),
				)
				return err
			}
			quote = q
			return nil
		})
		if err == nil {
			log.Info("price acquired", zap.Int("attempt", attempts), zap.Float64("raw_value", quote.RawValue))
			return quote, nil
		}

		exhausted.Failures = append(exhausted.Failures, domain.SourceFailure{SourceID: cfg.ID, Attempts: attempts, Err: err})
		if ctx.Err() != nil {
			break
		}
		log.Warn("source exhausted, falling back", zap.Int("attempts", attempts), zap.Error(err))
	}
	return domain.PriceQuote{}, exhausted
}

// Retry runs fn up to cfg.MaxAttempts times, sleeping cfg.RetryDelay between
// attempts but not after the last one. It returns the number of attempts
// made and the last error, or nil on success. Cancellation of ctx stops the
// loop early, and so does a Blocked failure: an upstream that refused us
// once will refuse again.
func Retry(ctx context.Context, cfg domain.SourceConfig, fn func(ctx context.Context, attempt int) error) (int, error) {
	return retry(ctx, cfg, Sleep, fn)
}

func retry(
	ctx context.Context,
	cfg domain.SourceConfig,
	sleep func(context.Context, time.Duration) error,
	fn func(ctx context.Context, attempt int) error,
) (int, error) {
	maxAttempts := cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr == nil {
				lastErr = err
			}
			return attempt - 1, lastErr
		}
		lastErr = fn(ctx, attempt)
		if lastErr == nil {
			return attempt, nil
		}
		if domain.KindOf(lastErr) == domain.KindBlocked {
			return attempt, lastErr
		}
		if attempt < maxAttempts && cfg.RetryDelay > 0 {
			if err := sleep(ctx, cfg.RetryDelay); err != nil {
				return attempt, lastErr
			}
		}
	}
	return maxAttempts, lastErr
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// IsExhausted reports whether err means no source produced a quote.
func IsExhausted(err error) bool {
	return errors.Is(err, domain.ErrAllSourcesExhausted)
}
