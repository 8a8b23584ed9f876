package channel_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notifyhub/pricewatch/internal/channel"
	"github.com/notifyhub/pricewatch/internal/domain"
)

func samplePayload() domain.NotificationPayload {
	return domain.NotificationPayload{
		Commodity:      "Gold",
		PrimaryLabel:   "24K",
		SecondaryLabel: "22K",
		PrimaryPrice:   326586.40,
		SecondaryPrice: 299381.75,
		Decimals:       2,
		Currency:       "PKR",
		Unit:           domain.UnitTola,
		ExchangeRate:   domain.ExchangeRate{Base: "USD", Quote: "PKR", Rate: 280},
		SourceName:     "goldapi",
		GeneratedAt:    time.Date(2024, 3, 5, 14, 7, 0, 0, time.UTC),
	}
}

func TestRenderer_Text(t *testing.T) {
	r := channel.NewRenderer(time.UTC)

	want := "Gold Price Update (PKR)\n" +
		"📅 05 Mar 2024 | ⏰ 02:07 PM\n\n" +
		"24K per Tola: Rs. 326,586.40\n" +
		"22K per Tola: Rs. 299,381.75\n" +
		"\nSource: goldapi"
	assert.Equal(t, want, r.Text(samplePayload()))
}

func TestRenderer_TextMissingSecondaryAndFallbackRate(t *testing.T) {
	r := channel.NewRenderer(time.UTC)
	p := samplePayload()
	p.SecondaryPrice = 0
	p.ExchangeRate.LowConfidence = true

	got := r.Text(p)
	assert.Contains(t, got, "22K per Tola: N/A\n")
	assert.True(t, strings.HasSuffix(got, "Source: goldapi (fallback rate 280.00)"), got)
}

func TestRenderer_NoSecondaryLabelOmitsLine(t *testing.T) {
	r := channel.NewRenderer(time.UTC)
	p := samplePayload()
	p.SecondaryLabel = ""

	assert.NotContains(t, r.Text(p), "22K")
}

func TestRenderer_SubjectAndHTML(t *testing.T) {
	r := channel.NewRenderer(time.UTC)
	p := samplePayload()
	p.SourceName = "<script>"

	assert.Equal(t, "Gold Price Update - 05 Mar 2024", r.Subject(p))

	html, err := r.HTML(p)
	require.NoError(t, err)
	assert.Contains(t, html, "<h2>Gold Price Update (PKR)</h2>")
	assert.Contains(t, html, "<strong>Rs. 326,586.40</strong>")
	assert.Contains(t, html, "Source: &lt;script&gt;")
}

func TestRenderer_Money(t *testing.T) {
	r := channel.NewRenderer(nil)
	assert.Equal(t, "$ 1,234.50", r.Money("usd", 1234.5, 2))
	assert.Equal(t, "EUR 12.00", r.Money("EUR", 12, 2))
	assert.Equal(t, "Rs. 812,092", r.Money("PKR", 812092, 0))
	assert.Equal(t, "N/A", r.Money("PKR", 0, 2))
}

func TestRenderer_TextWholeUnits(t *testing.T) {
	r := channel.NewRenderer(time.UTC)
	p := samplePayload()
	p.PrimaryPrice = 812092
	p.SecondaryPrice = 0
	p.Decimals = 0

	got := r.Text(p)
	assert.Contains(t, got, "24K per Tola: Rs. 812,092\n")
	assert.Contains(t, got, "22K per Tola: N/A\n")
	assert.NotContains(t, got, ".00")
}
