package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors used throughout the application.
var (
	ErrAllSourcesExhausted = errors.New("all price sources exhausted")
	ErrNoSources           = errors.New("no price sources configured")
	ErrInvalidQuote        = errors.New("invalid price quote")
	ErrLocatorNoMatch      = errors.New("locator matched nothing")
	ErrFieldMissing        = errors.New("expected field missing or non-numeric")
	ErrChannelNotReady     = errors.New("channel credentials not configured")
	ErrUnknownSourceKind   = errors.New("unknown source kind")
	ErrUnknownUnit         = errors.New("unknown unit")
	ErrPriceUnavailable    = errors.New("converted price unavailable")
	ErrRateMismatch        = errors.New("exchange rate does not match quote currency")
)

// FetchError is returned by a source for a single failed attempt.
type FetchError struct {
	SourceID string
	Kind     FetchKind
	Err      error
}

func (e *FetchError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("source %s: %s", e.SourceID, e.Kind)
	}
	return fmt.Sprintf("source %s: %s: %v", e.SourceID, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// NewFetchError wraps err with the given kind.
func NewFetchError(sourceID string, kind FetchKind, err error) *FetchError {
	return &FetchError{SourceID: sourceID, Kind: kind, Err: err}
}

// SourceFailure records the last error of a source whose attempts ran out.
type SourceFailure struct {
	SourceID string
	Attempts int
	Err      error
}

// ExhaustedError carries the last error of every source that was tried.
// errors.Is(err, ErrAllSourcesExhausted) reports true for it.
type ExhaustedError struct {
	Failures []SourceFailure
}

func (e *ExhaustedError) Error() string {
	if len(e.Failures) == 0 {
		return ErrAllSourcesExhausted.Error()
	}
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, fmt.Sprintf("%s after %d attempt(s): %v", f.SourceID, f.Attempts, f.Err))
	}
	return ErrAllSourcesExhausted.Error() + ": " + strings.Join(parts, "; ")
}

func (e *ExhaustedError) Is(target error) bool { return target == ErrAllSourcesExhausted }

// DeliveryError is scoped to one channel and is only ever reported inside an Outcome.
type DeliveryError struct {
	Channel string
	Err     error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver via %s: %v", e.Channel, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }
