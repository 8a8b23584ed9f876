package job

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/notifyhub/pricewatch/internal/domain"
)

// Report is what one run did. Err is nil only when the payload was dispatched.
type Report struct {
	RunID      string
	StartedAt  time.Time
	Duration   time.Duration
	Rate       domain.ExchangeRate
	Quote      domain.PriceQuote
	Payload    domain.NotificationPayload
	Outcomes   []domain.Outcome
	Dispatched bool
	Err        error
}

// Run outcome labels.
const (
	OutcomeDispatched  = "dispatched"
	OutcomeExhausted   = "exhausted"
	OutcomeUnavailable = "unavailable"
	OutcomeFailed      = "failed"
)

// Outcome classifies the run for metrics.
func (r Report) Outcome() string {
	switch {
	case r.Dispatched:
		return OutcomeDispatched
	case errors.Is(r.Err, domain.ErrAllSourcesExhausted):
		return OutcomeExhausted
	case errors.Is(r.Err, domain.ErrPriceUnavailable):
		return OutcomeUnavailable
	default:
		return OutcomeFailed
	}
}

// Summary is the one-screen console summary printed after a run.
func (r Report) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] run %s: %s\n", r.StartedAt.Format(time.DateTime), r.RunID, r.Outcome())
	if r.Rate.Rate > 0 {
		fmt.Fprintf(&b, "  rate %s/%s: %.4f", r.Rate.Base, r.Rate.Quote, r.Rate.Rate)
		if r.Rate.LowConfidence {
			b.WriteString(" (fallback)")
		}
		b.WriteString("\n")
	}
	if r.Quote.SourceID != "" {
		fmt.Fprintf(&b, "  source %s: %.4f %s per %s\n", r.Quote.SourceID, r.Quote.RawValue, r.Quote.Currency, r.Quote.RawUnit)
	}
	p := r.Payload
	if p.PrimaryPrice > 0 {
		fmt.Fprintf(&b, "  %s per %s: %.*f %s\n", p.PrimaryLabel, p.Unit, p.Decimals, p.PrimaryPrice, p.Currency)
		if p.SecondaryLabel != "" {
			if p.HasSecondary() {
				fmt.Fprintf(&b, "  %s per %s: %.*f %s\n", p.SecondaryLabel, p.Unit, p.Decimals, p.SecondaryPrice, p.Currency)
			} else {
				fmt.Fprintf(&b, "  %s per %s: N/A\n", p.SecondaryLabel, p.Unit)
			}
		}
	}
	for _, o := range r.Outcomes {
		fmt.Fprintf(&b, "  %s: %s", o.Channel, o.Status)
		if o.Err != nil {
			fmt.Fprintf(&b, " (%v)", o.Err)
		}
		b.WriteString("\n")
	}
	if r.Err != nil {
		fmt.Fprintf(&b, "  error: %v\n", r.Err)
	}
	return b.String()
}
