package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/notifyhub/pricewatch/internal/domain"
	"github.com/notifyhub/pricewatch/internal/job"
)

// Metrics groups all Prometheus instruments used across the application.
// Registered once at startup via New(); passed by pointer wherever needed.
type Metrics struct {
	SourceAttempts       *prometheus.CounterVec
	JobRuns              *prometheus.CounterVec
	JobDuration          prometheus.Histogram
	ChannelDeliveries    *prometheus.CounterVec
	Price                *prometheus.GaugeVec
	ExchangeRate         prometheus.Gauge
	ExchangeRateFallback prometheus.Gauge
	LastSuccessfulRun    prometheus.Gauge
}

// New registers all instruments with the given Prometheus registerer and
// returns the populated Metrics struct.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SourceAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pricewatch_source_attempts_total",
			Help: "Fetch attempts per price source, by outcome (ok or failure kind).",
		}, []string{"source", "outcome"}),

		JobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pricewatch_job_runs_total",
			Help: "Completed job runs by outcome.",
		}, []string{"outcome"}),

		JobDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pricewatch_job_duration_seconds",
			Help:    "Wall time of one job run.",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),

		ChannelDeliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pricewatch_channel_deliveries_total",
			Help: "Per-channel dispatch outcomes.",
		}, []string{"channel", "outcome"}),

		Price: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "pricewatch_price",
			Help: "Last converted price, by series (primary or secondary).",
		}, []string{"series"}),

		ExchangeRate: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pricewatch_exchange_rate",
			Help: "Last exchange rate applied.",
		}),
		ExchangeRateFallback: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pricewatch_exchange_rate_fallback",
			Help: "1 when the last run used the configured fallback rate.",
		}),
		LastSuccessfulRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pricewatch_last_dispatch_timestamp_seconds",
			Help: "Unix time of the last run that dispatched a payload.",
		}),
	}

	reg.MustRegister(
		m.SourceAttempts,
		m.JobRuns,
		m.JobDuration,
		m.ChannelDeliveries,
		m.Price,
		m.ExchangeRate,
		m.ExchangeRateFallback,
		m.LastSuccessfulRun,
	)

	return m
}

// OnAttempt matches fallback.Hooks.OnAttempt.
func (m *Metrics) OnAttempt(sourceID string, _ int, err error) {
	outcome := "ok"
	if err != nil {
		outcome = string(domain.KindOf(err))
	}
	m.SourceAttempts.WithLabelValues(sourceID, outcome).Inc()
}

// OnOutcome matches dispatch.Hooks.OnOutcome.
func (m *Metrics) OnOutcome(channel string, status domain.OutcomeStatus) {
	m.ChannelDeliveries.WithLabelValues(channel, string(status)).Inc()
}

// OnResolved matches rates.Hooks.OnResolved.
func (m *Metrics) OnResolved(rate domain.ExchangeRate) {
	m.ExchangeRate.Set(rate.Rate)
	if rate.LowConfidence {
		m.ExchangeRateFallback.Set(1)
	} else {
		m.ExchangeRateFallback.Set(0)
	}
}

// OnRun matches job.Hooks.OnRun.
func (m *Metrics) OnRun(r job.Report) {
	m.JobRuns.WithLabelValues(r.Outcome()).Inc()
	m.JobDuration.Observe(r.Duration.Seconds())

	if r.Dispatched {
		m.Price.WithLabelValues("primary").Set(r.Payload.PrimaryPrice)
		m.Price.WithLabelValues("secondary").Set(r.Payload.SecondaryPrice)
		m.LastSuccessfulRun.Set(float64(r.StartedAt.Add(r.Duration).Unix()))
	}
}

// Push sends everything gathered by g to a Pushgateway. One-shot runs use it
// since nothing stays up to be scraped.
func Push(url, jobName string, g prometheus.Gatherer, timeout time.Duration) error {
	if url == "" {
		return nil
	}
	p := push.New(url, jobName).Gatherer(g)
	if timeout > 0 {
		p = p.Client(&http.Client{Timeout: timeout})
	}
	return p.Push()
}
