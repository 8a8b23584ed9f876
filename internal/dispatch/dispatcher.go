// Package dispatch fans a finished payload out to every notification channel.
package dispatch

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/notifyhub/pricewatch/internal/channel"
	"github.com/notifyhub/pricewatch/internal/domain"
)

// Hooks carries observation callbacks injected by main. Nil fields are no-ops.
type Hooks struct {
	OnOutcome func(channel string, status domain.OutcomeStatus)
}

// Dispatcher delivers to channels one after another in the given order. A
// failing channel never stops the ones after it.
type Dispatcher struct {
	logger    *zap.Logger
	onOutcome func(string, domain.OutcomeStatus)
}

func New(logger *zap.Logger, hooks Hooks) *Dispatcher {
	onOutcome := hooks.OnOutcome
	if onOutcome == nil {
		onOutcome = func(string, domain.OutcomeStatus) {}
	}
	return &Dispatcher{logger: logger, onOutcome: onOutcome}
}

// Dispatch returns one outcome per channel, in channel order.
func (d *Dispatcher) Dispatch(ctx context.Context, p domain.NotificationPayload, channels []channel.Channel) []domain.Outcome {
	outcomes := make([]domain.Outcome, 0, len(channels))
	for _, ch := range channels {
		o := d.deliver(ctx, p, ch)
		d.onOutcome(o.Channel, o.Status)
		outcomes = append(outcomes, o)
	}
	return outcomes
}

func (d *Dispatcher) deliver(ctx context.Context, p domain.NotificationPayload, ch channel.Channel) (out domain.Outcome) {
	name := ch.Name()
	log := d.logger.With(zap.String("channel", name))

	if !ch.Configured() {
		log.Info("channel not configured, skipping")
		return domain.Outcome{Channel: name, Status: domain.OutcomeSkipped}
	}

	defer func() {
		if r := recover(); r != nil {
			err := &domain.DeliveryError{Channel: name, Err: fmt.Errorf("panic: %v", r)}
			log.Error("channel panicked", zap.Any("panic", r))
			out = domain.Outcome{Channel: name, Status: domain.OutcomeFailed, Err: err}
		}
	}()

	if err := ch.Deliver(ctx, p); err != nil {
		log.Warn("delivery failed", zap.Error(err))
		return domain.Outcome{Channel: name, Status: domain.OutcomeFailed, Err: &domain.DeliveryError{Channel: name, Err: err}}
	}

	log.Info("notification delivered")
	return domain.Outcome{Channel: name, Status: domain.OutcomeSent}
}

// Summary counts outcomes by status.
func Summary(outcomes []domain.Outcome) map[domain.OutcomeStatus]int {
	m := make(map[domain.OutcomeStatus]int, 3)
	for _, o := range outcomes {
		m[o.Status]++
	}
	return m
}
