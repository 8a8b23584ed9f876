// Package job composes one end-to-end run: resolve the exchange rate,
// acquire a quote, convert it and fan the payload out to the channels.
package job

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/notifyhub/pricewatch/internal/channel"
	"github.com/notifyhub/pricewatch/internal/conversion"
	"github.com/notifyhub/pricewatch/internal/dispatch"
	"github.com/notifyhub/pricewatch/internal/domain"
	"github.com/notifyhub/pricewatch/internal/source"
)

// Acquirer returns the first good quote from an ordered source chain.
type Acquirer interface {
	Acquire(ctx context.Context, sources []source.Source) (domain.PriceQuote, error)
}

// RateResolver yields the exchange rate for a run. It never fails.
type RateResolver interface {
	Resolve(ctx context.Context) domain.ExchangeRate
	Matches(rate domain.ExchangeRate, currency string) bool
	Target() string
}

// Dispatcher fans a payload out to channels.
type Dispatcher interface {
	Dispatch(ctx context.Context, p domain.NotificationPayload, channels []channel.Channel) []domain.Outcome
}

// Settings describe what is being reported.
type Settings struct {
	Commodity      string
	PrimaryLabel   string
	SecondaryLabel string
	Unit           domain.Unit
}

// Hooks carries observation callbacks injected by main. Nil fields are no-ops.
type Hooks struct {
	OnRun func(r Report)
}

// Controller runs the pipeline. Runs are expected to be serialized by the
// caller; the scheduler skips a tick while a run is still in flight.
type Controller struct {
	settings   Settings
	rates      RateResolver
	acquirer   Acquirer
	sources    []source.Source
	engine     conversion.Engine
	dispatcher Dispatcher
	channels   []channel.Channel
	logger     *zap.Logger
	onRun      func(Report)
	now        func() time.Time
}

// Deps are the collaborators of a Controller.
type Deps struct {
	Rates      RateResolver
	Acquirer   Acquirer
	Sources    []source.Source
	Engine     conversion.Engine
	Dispatcher Dispatcher
	Channels   []channel.Channel
}

func NewController(settings Settings, deps Deps, logger *zap.Logger, hooks Hooks) *Controller {
	onRun := hooks.OnRun
	if onRun == nil {
		onRun = func(Report) {}
	}
	return &Controller{
		settings:   settings,
		rates:      deps.Rates,
		acquirer:   deps.Acquirer,
		sources:    deps.Sources,
		engine:     deps.Engine,
		dispatcher: deps.Dispatcher,
		channels:   deps.Channels,
		logger:     logger,
		onRun:      onRun,
		now:        time.Now,
	}
}

// Run performs one run. It never returns an error and never panics: every
// failure is logged and recorded in the Report.
func (c *Controller) Run(ctx context.Context) (rep Report) {
	rep.RunID = uuid.NewString()
	rep.StartedAt = c.now()
	log := c.logger.With(zap.String("run_id", rep.RunID))
	log.Info("job started", zap.Int("sources", len(c.sources)), zap.Int("channels", len(c.channels)))

	defer func() {
		if r := recover(); r != nil {
			rep.Err = fmt.Errorf("job panicked: %v", r)
			rep.Dispatched = false
			log.Error("job panicked", zap.Any("panic", r), zap.Stack("stack"))
		}
		rep.Duration = c.now().Sub(rep.StartedAt)
		c.onRun(rep)
	}()

	rate := c.rates.Resolve(ctx)
	rep.Rate = rate

	quote, err := c.acquirer.Acquire(ctx, c.sources)
	if err != nil {
		rep.Err = err
		log.Error("no price acquired, skipping dispatch", zap.Error(err))
		return rep
	}
	rep.Quote = quote

	switch {
	case strings.EqualFold(quote.Currency, c.rates.Target()):
		rate = domain.IdentityRate(c.rates.Target(), c.now().UTC())
		rep.Rate = rate
	case !c.rates.Matches(rate, quote.Currency):
		rep.Err = fmt.Errorf("%w: quote in %s, rate %s/%s", domain.ErrRateMismatch, quote.Currency, rate.Base, rate.Quote)
		log.Error("cannot convert quote, skipping dispatch", zap.Error(rep.Err))
		return rep
	}

	primary, secondary := c.engine.Quote(quote, rate, c.settings.Unit)
	rep.Payload = domain.NotificationPayload{
		Commodity:      c.settings.Commodity,
		PrimaryLabel:   c.settings.PrimaryLabel,
		SecondaryLabel: c.settings.SecondaryLabel,
		PrimaryPrice:   primary,
		SecondaryPrice: secondary,
		Decimals:       int(c.engine.Precision),
		Currency:       c.rates.Target(),
		Unit:           c.settings.Unit,
		ExchangeRate:   rate,
		SourceName:     quote.SourceID,
		GeneratedAt:    c.now(),
	}

	log.Info("price computed",
		zap.String("source_id", quote.SourceID),
		zap.Float64("raw_value", quote.RawValue),
		zap.Float64("rate", rate.Rate),
		zap.Bool("low_confidence_rate", rate.LowConfidence),
		zap.Float64("primary", primary),
		zap.Float64("secondary", secondary),
	)

	if !rep.Payload.Notifiable() {
		rep.Err = domain.ErrPriceUnavailable
		log.Warn("converted price is zero, skipping dispatch")
		return rep
	}

	rep.Outcomes = c.dispatcher.Dispatch(ctx, rep.Payload, c.channels)
	rep.Dispatched = true

	counts := dispatch.Summary(rep.Outcomes)
	log.Info("job finished",
		zap.Int("sent", counts[domain.OutcomeSent]),
		zap.Int("skipped", counts[domain.OutcomeSkipped]),
		zap.Int("failed", counts[domain.OutcomeFailed]),
	)
	return rep
}
