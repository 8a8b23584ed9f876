// Package conversion turns a raw source quote into a price per target unit
// in the target currency.
package conversion

import (
	"github.com/shopspring/decimal"

	"github.com/notifyhub/pricewatch/internal/domain"
)

// Grams per unit.
var gramsPer = map[domain.Unit]decimal.Decimal{
	domain.UnitGram:      decimal.NewFromInt(1),
	domain.UnitTola:      decimal.RequireFromString("11.6638"),
	domain.UnitTroyOunce: decimal.RequireFromString("31.1034768"),
	domain.UnitKilogram:  decimal.NewFromInt(1000),
}

// UnitFactor returns how many from-units make one to-unit, e.g. 11.6638 for
// gram to tola. Unknown units yield 0.
func UnitFactor(from, to domain.Unit) float64 {
	f, t := gramsPer[from], gramsPer[to]
	if f.IsZero() || t.IsZero() {
		return 0
	}
	return t.DivRound(f, 10).InexactFloat64()
}

// Precision is the number of decimal places a converted price keeps.
type Precision int32

const (
	Whole      Precision = 0
	Hundredths Precision = 2
)

// Engine applies one rounding policy.
type Engine struct {
	Precision Precision
}

func New(p Precision) Engine { return Engine{Precision: p} }

// Convert computes round(raw * rate * factor). A non-positive raw value,
// rate or factor yields 0, which callers treat as "no price".
func (e Engine) Convert(raw, rate, factor float64) float64 {
	if !(raw > 0) || !(rate > 0) || !(factor > 0) {
		return 0
	}
	v := decimal.NewFromFloat(raw).
		Mul(decimal.NewFromFloat(rate)).
		Mul(decimal.NewFromFloat(factor)).
		Round(int32(e.Precision))
	return v.InexactFloat64()
}

// Quote converts the primary and secondary figures of q into target units.
// A missing secondary figure stays 0.
func (e Engine) Quote(q domain.PriceQuote, rate domain.ExchangeRate, target domain.Unit) (primary, secondary float64) {
	factor := UnitFactor(q.RawUnit, target)
	return e.Convert(q.RawValue, rate.Rate, factor), e.Convert(q.SecondaryValue, rate.Rate, factor)
}
