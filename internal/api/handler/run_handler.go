package handler

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	apimw "github.com/notifyhub/pricewatch/internal/api/middleware"
	"github.com/notifyhub/pricewatch/internal/job"
)

// RunTracker is the slice of the scheduler the run endpoints need.
type RunTracker interface {
	Trigger() bool
	Running() bool
	Last() (job.Report, bool)
	Next() time.Time
}

// RunHandler exposes the last run and lets an operator trigger one.
type RunHandler struct {
	tracker RunTracker
	logger  *zap.Logger
}

func NewRunHandler(tracker RunTracker, logger *zap.Logger) *RunHandler {
	return &RunHandler{tracker: tracker, logger: logger}
}

// ChannelView is one dispatch outcome.
type ChannelView struct {
	Channel string `json:"channel"`
	Status  string `json:"status"`
	Error   string `json:"error,omitempty"`
}

// RunView is the JSON shape of a job.Report.
type RunView struct {
	RunID          string        `json:"run_id"`
	StartedAt      time.Time     `json:"started_at"`
	DurationMS     int64         `json:"duration_ms"`
	Outcome        string        `json:"outcome"`
	Source         string        `json:"source,omitempty"`
	Rate           float64       `json:"exchange_rate,omitempty"`
	RateFallback   bool          `json:"exchange_rate_fallback"`
	PrimaryPrice   float64       `json:"primary_price,omitempty"`
	SecondaryPrice float64       `json:"secondary_price,omitempty"`
	Currency       string        `json:"currency,omitempty"`
	Unit           string        `json:"unit,omitempty"`
	Channels       []ChannelView `json:"channels,omitempty"`
	Error          string        `json:"error,omitempty"`
}

// NewRunView flattens a report for JSON output.
func NewRunView(r job.Report) RunView {
	v := RunView{
		RunID:          r.RunID,
		StartedAt:      r.StartedAt,
		DurationMS:     r.Duration.Milliseconds(),
		Outcome:        r.Outcome(),
		Source:         r.Quote.SourceID,
		Rate:           r.Rate.Rate,
		RateFallback:   r.Rate.LowConfidence,
		PrimaryPrice:   r.Payload.PrimaryPrice,
		SecondaryPrice: r.Payload.SecondaryPrice,
		Currency:       r.Payload.Currency,
		Unit:           string(r.Payload.Unit),
	}
	for _, o := range r.Outcomes {
		cv := ChannelView{Channel: o.Channel, Status: string(o.Status)}
		if o.Err != nil {
			cv.Error = o.Err.Error()
		}
		v.Channels = append(v.Channels, cv)
	}
	if r.Err != nil {
		v.Error = r.Err.Error()
	}
	return v
}

// Last handles GET /api/v1/runs/last
func (h *RunHandler) Last(w http.ResponseWriter, r *http.Request) {
	rep, ok := h.tracker.Last()
	if !ok {
		respondError(w, http.StatusNotFound, "no run completed yet")
		return
	}
	respondJSON(w, http.StatusOK, NewRunView(rep))
}

// Status handles GET /api/v1/runs/status
func (h *RunHandler) Status(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{"running": h.tracker.Running()}
	if next := h.tracker.Next(); !next.IsZero() {
		body["next_run_at"] = next
	}
	respondJSON(w, http.StatusOK, body)
}

// Trigger handles POST /api/v1/runs
//
// Returns 202 when a run was started and 409 when one is already in flight
// or the service is shutting down.
func (h *RunHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	if !h.tracker.Trigger() {
		respondError(w, http.StatusConflict, "run not started: one is in progress or the service is stopping")
		return
	}
	h.logger.Info("manual run triggered",
		zap.String("correlation_id", apimw.GetCorrelationID(r.Context())),
	)
	respondJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}
