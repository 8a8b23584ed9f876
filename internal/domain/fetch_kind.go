package domain

import (
	"context"
	"errors"
	"net"
	"net/http"
)

// FetchKind classifies why a single fetch attempt failed.
type FetchKind string

const (
	KindTimeout      FetchKind = "timeout"
	KindUnreachable  FetchKind = "unreachable"
	KindParseFailure FetchKind = "parse_failure"
	KindBlocked      FetchKind = "blocked"
	KindRateLimited  FetchKind = "rate_limited"
)

func (k FetchKind) IsValid() bool {
	switch k {
	case KindTimeout, KindUnreachable, KindParseFailure, KindBlocked, KindRateLimited:
		return true
	}
	return false
}

// KindForStatus maps a non-2xx HTTP status to a fetch kind.
func KindForStatus(status int) FetchKind {
	switch {
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return KindBlocked
	case status == http.StatusTooManyRequests:
		return KindRateLimited
	case status == http.StatusRequestTimeout, status == http.StatusGatewayTimeout:
		return KindTimeout
	case status >= 500:
		return KindUnreachable
	default:
		return KindParseFailure
	}
}

// KindOf classifies an arbitrary error. A *FetchError keeps its own kind.
func KindOf(err error) FetchKind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) {
		if ne.Timeout() {
			return KindTimeout
		}
		return KindUnreachable
	}
	if errors.Is(err, ErrLocatorNoMatch) || errors.Is(err, ErrFieldMissing) || errors.Is(err, ErrInvalidQuote) {
		return KindParseFailure
	}
	return KindUnreachable
}
