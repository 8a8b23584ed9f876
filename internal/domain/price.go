package domain

import (
	"fmt"
	"time"
)

// SourceConfig is the retry policy and ordering key of one price source.
type SourceConfig struct {
	ID             string
	Priority       int // lower is tried first
	MaxAttempts    int
	AttemptTimeout time.Duration
	RetryDelay     time.Duration
}

// Unit is a mass unit a price can be quoted per.
type Unit string

const (
	UnitGram      Unit = "gram"
	UnitTola      Unit = "tola"
	UnitTroyOunce Unit = "troy_ounce"
	UnitKilogram  Unit = "kilogram"
)

func (u Unit) IsValid() bool {
	switch u {
	case UnitGram, UnitTola, UnitTroyOunce, UnitKilogram:
		return true
	}
	return false
}

// PriceQuote is one successful reading from one source.
// SecondaryValue is optional; zero means the source did not report it.
type PriceQuote struct {
	SourceID       string    `json:"source_id"`
	RawValue       float64   `json:"raw_value"`
	SecondaryValue float64   `json:"secondary_value,omitempty"`
	RawUnit        Unit      `json:"raw_unit"`
	Currency       string    `json:"currency"`
	FetchedAt      time.Time `json:"fetched_at"`
}

// Validate reports whether the quote is fully populated.
func (q PriceQuote) Validate() error {
	switch {
	case q.SourceID == "":
		return fmt.Errorf("%w: empty source id", ErrInvalidQuote)
	case !(q.RawValue > 0):
		return fmt.Errorf("%w: raw value %v is not positive", ErrInvalidQuote, q.RawValue)
	case q.SecondaryValue < 0:
		return fmt.Errorf("%w: secondary value %v is negative", ErrInvalidQuote, q.SecondaryValue)
	case !q.RawUnit.IsValid():
		return fmt.Errorf("%w: unit %q", ErrInvalidQuote, q.RawUnit)
	case q.Currency == "":
		return fmt.Errorf("%w: empty currency", ErrInvalidQuote)
	case q.FetchedAt.IsZero():
		return fmt.Errorf("%w: missing fetch time", ErrInvalidQuote)
	}
	return nil
}

// ExchangeRate converts one unit of Base into Rate units of Quote.
// LowConfidence marks a configured fallback constant rather than a live reading.
type ExchangeRate struct {
	Base          string    `json:"base_currency"`
	Quote         string    `json:"quote_currency"`
	Rate          float64   `json:"rate"`
	FetchedAt     time.Time `json:"fetched_at"`
	LowConfidence bool      `json:"low_confidence"`
}

// IdentityRate is used when the quote is already in the target currency.
func IdentityRate(currency string, at time.Time) ExchangeRate {
	return ExchangeRate{Base: currency, Quote: currency, Rate: 1, FetchedAt: at}
}
