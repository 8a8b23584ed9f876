package conversion_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/notifyhub/pricewatch/internal/conversion"
	"github.com/notifyhub/pricewatch/internal/domain"
)

func TestEngine_Convert(t *testing.T) {
	tests := []struct {
		name              string
		raw, rate, factor float64
		precision         conversion.Precision
		want              float64
	}{
		{"gram to tola", 100, 280, 11.6638, conversion.Hundredths, 326586.40},
		{"half cent rounds up", 250, 278.5, 11.6638, conversion.Hundredths, 812092.08},
		{"whole rupees", 250, 278.5, 11.6638, conversion.Whole, 812092},
		{"identity", 42.5, 1, 1, conversion.Hundredths, 42.5},
		{"zero raw", 0, 280, 11.6638, conversion.Hundredths, 0},
		{"zero rate", 100, 0, 11.6638, conversion.Hundredths, 0},
		{"negative rate", 100, -1, 11.6638, conversion.Hundredths, 0},
		{"zero factor", 100, 280, 0, conversion.Hundredths, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := conversion.New(tt.precision).Convert(tt.raw, tt.rate, tt.factor)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestUnitFactor(t *testing.T) {
	assert.InDelta(t, 11.6638, conversion.UnitFactor(domain.UnitGram, domain.UnitTola), 1e-9)
	assert.InDelta(t, 1.0, conversion.UnitFactor(domain.UnitTola, domain.UnitTola), 1e-9)
	assert.InDelta(t, 1000.0, conversion.UnitFactor(domain.UnitGram, domain.UnitKilogram), 1e-9)
	assert.InDelta(t, 31.1034768/11.6638, conversion.UnitFactor(domain.UnitTola, domain.UnitTroyOunce), 1e-9)
	assert.Zero(t, conversion.UnitFactor("grain", domain.UnitTola))
}

func TestEngine_Quote(t *testing.T) {
	q := domain.PriceQuote{SourceID: "api", RawValue: 100, SecondaryValue: 91.67, RawUnit: domain.UnitGram, Currency: "USD"}
	rate := domain.ExchangeRate{Base: "USD", Quote: "PKR", Rate: 280}

	primary, secondary := conversion.New(conversion.Hundredths).Quote(q, rate, domain.UnitTola)
	assert.InDelta(t, 326586.40, primary, 1e-9)
	assert.InDelta(t, 299381.75, secondary, 1e-9)

	q.SecondaryValue = 0
	_, secondary = conversion.New(conversion.Hundredths).Quote(q, rate, domain.UnitTola)
	assert.Zero(t, secondary)
}
