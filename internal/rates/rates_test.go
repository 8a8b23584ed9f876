package rates_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/notifyhub/pricewatch/internal/domain"
	"github.com/notifyhub/pricewatch/internal/rates"
)

type stubRates struct {
	results []error
	rate    float64
	calls   int
}

func (s *stubRates) Rate(context.Context, string, string) (float64, error) {
	i := s.calls
	if i >= len(s.results) {
		i = len(s.results) - 1
	}
	s.calls++
	if err := s.results[i]; err != nil {
		return 0, err
	}
	return s.rate, nil
}

func policy() domain.SourceConfig {
	return domain.SourceConfig{ID: "fx", MaxAttempts: 3, RetryDelay: time.Millisecond}
}

func TestResolver_LiveRate(t *testing.T) {
	src := &stubRates{results: []error{errors.New("flaky"), nil}, rate: 278.5}
	var seen domain.ExchangeRate
	r := rates.NewResolver(rates.Config{Base: "usd", Quote: "pkr", Fallback: 280, Policy: policy()},
		src, zap.NewNop(), rates.Hooks{OnResolved: func(rate domain.ExchangeRate) { seen = rate }})

	got := r.Resolve(context.Background())
	assert.Equal(t, 278.5, got.Rate)
	assert.Equal(t, "USD", got.Base)
	assert.Equal(t, "PKR", got.Quote)
	assert.False(t, got.LowConfidence)
	assert.Equal(t, 2, src.calls)
	assert.Equal(t, got, seen)
}

func TestResolver_FallbackConstantOnExhaustion(t *testing.T) {
	src := &stubRates{results: []error{errors.New("down")}}
	r := rates.NewResolver(rates.Config{Base: "USD", Quote: "PKR", Fallback: 280, Policy: policy()},
		src, zap.NewNop(), rates.Hooks{})

	got := r.Resolve(context.Background())
	assert.Equal(t, 280.0, got.Rate)
	assert.True(t, got.LowConfidence)
	assert.Equal(t, 3, src.calls)
}

func TestResolver_SameCurrencyIsIdentity(t *testing.T) {
	src := &stubRates{results: []error{errors.New("must not be called")}}
	r := rates.NewResolver(rates.Config{Base: "PKR", Quote: "PKR", Fallback: 280, Policy: policy()},
		src, zap.NewNop(), rates.Hooks{})

	got := r.Resolve(context.Background())
	assert.Equal(t, 1.0, got.Rate)
	assert.Zero(t, src.calls)
	assert.True(t, r.Matches(got, "pkr"))
	assert.Equal(t, "PKR", r.Target())
}

func TestHTTPRateSource_Rate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v4/latest/USD", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"base":"USD","rates":{"EUR":0.92,"PKR":278.5}}`))
	}))
	defer srv.Close()

	src := &rates.HTTPRateSource{ID: "fx", URL: srv.URL + "/v4/latest/{base}", Timeout: time.Second}
	v, err := src.Rate(context.Background(), "USD", "PKR")
	require.NoError(t, err)
	assert.Equal(t, 278.5, v)

	_, err = src.Rate(context.Background(), "USD", "JPY")
	require.Error(t, err)
	assert.Equal(t, domain.KindParseFailure, domain.KindOf(err))
	assert.ErrorIs(t, err, domain.ErrFieldMissing)
}

func TestHTTPRateSource_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	src := &rates.HTTPRateSource{ID: "fx", URL: srv.URL}
	_, err := src.Rate(context.Background(), "USD", "PKR")
	require.Error(t, err)
	assert.Equal(t, domain.KindUnreachable, domain.KindOf(err))
}
