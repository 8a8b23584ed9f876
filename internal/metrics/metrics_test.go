package metrics_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notifyhub/pricewatch/internal/domain"
	"github.com/notifyhub/pricewatch/internal/job"
	"github.com/notifyhub/pricewatch/internal/metrics"
)

func TestMetrics_OnAttempt(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())

	m.OnAttempt("goldapi", 1, domain.NewFetchError("goldapi", domain.KindBlocked, errors.New("403")))
	m.OnAttempt("goldapi", 2, nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.SourceAttempts.WithLabelValues("goldapi", "blocked")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SourceAttempts.WithLabelValues("goldapi", "ok")))
}

func TestMetrics_OnRun(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())

	m.OnRun(job.Report{
		StartedAt:  time.Unix(1700000000, 0),
		Duration:   2 * time.Second,
		Rate:       domain.ExchangeRate{Rate: 280, LowConfidence: true},
		Payload:    domain.NotificationPayload{PrimaryPrice: 326586.40},
		Dispatched: true,
	})
	m.OnRun(job.Report{Err: domain.ErrAllSourcesExhausted})
	m.OnOutcome("email", domain.OutcomeSkipped)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.JobRuns.WithLabelValues(job.OutcomeDispatched)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.JobRuns.WithLabelValues(job.OutcomeExhausted)))
	assert.Equal(t, 326586.40, testutil.ToFloat64(m.Price.WithLabelValues("primary")))
	assert.Equal(t, 1700000002.0, testutil.ToFloat64(m.LastSuccessfulRun))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ChannelDeliveries.WithLabelValues("email", "skipped")))
}

func TestMetrics_OnResolved(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())

	m.OnResolved(domain.ExchangeRate{Base: "USD", Quote: "PKR", Rate: 280, LowConfidence: true})
	assert.Equal(t, 280.0, testutil.ToFloat64(m.ExchangeRate))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ExchangeRateFallback))

	m.OnResolved(domain.ExchangeRate{Base: "USD", Quote: "PKR", Rate: 278.5})
	assert.Equal(t, 278.5, testutil.ToFloat64(m.ExchangeRate))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.ExchangeRateFallback))
}

func TestPush(t *testing.T) {
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	m.OnAttempt("goldapi", 1, nil)

	require.NoError(t, metrics.Push(srv.URL, "pricewatch", reg, time.Second))
	assert.Equal(t, "/metrics/job/pricewatch", path)
	assert.NoError(t, metrics.Push("", "pricewatch", reg, time.Second))
}
