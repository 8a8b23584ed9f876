package domain

import "time"

// NotificationPayload is built once per run and consumed by every channel.
// A zero SecondaryPrice means it is unavailable. Decimals is the rounding
// the prices were computed with; every displayed price uses it.
type NotificationPayload struct {
	Commodity      string
	PrimaryLabel   string
	SecondaryLabel string
	PrimaryPrice   float64
	SecondaryPrice float64
	Decimals       int
	Currency       string
	Unit           Unit
	ExchangeRate   ExchangeRate
	SourceName     string
	GeneratedAt    time.Time
}

// Notifiable is false for the zero "unavailable" sentinel price.
func (p NotificationPayload) Notifiable() bool {
	return p.PrimaryPrice > 0
}

// HasSecondary reports whether a secondary price was computed.
func (p NotificationPayload) HasSecondary() bool {
	return p.SecondaryPrice > 0
}

// OutcomeStatus is the result of delivering to one channel.
type OutcomeStatus string

const (
	OutcomeSent    OutcomeStatus = "sent"
	OutcomeSkipped OutcomeStatus = "skipped"
	OutcomeFailed  OutcomeStatus = "failed"
)

// Outcome is the per-channel dispatch result. Err is set only for OutcomeFailed.
type Outcome struct {
	Channel string
	Status  OutcomeStatus
	Err     error
}
