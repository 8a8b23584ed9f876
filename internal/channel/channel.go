// Package channel holds the notification channel adapters. Each adapter
// formats a payload and makes exactly one outbound call per Deliver; no
// retry logic lives here.
package channel

import (
	"context"
	"net/http"

	"github.com/notifyhub/pricewatch/internal/domain"
)

// Channel delivers a finished payload over one medium.
// Configured is false when credentials or the destination are missing, in
// which case the dispatcher skips the channel without calling Deliver.
type Channel interface {
	Name() string
	Configured() bool
	Deliver(ctx context.Context, p domain.NotificationPayload) error
}

// HTTPClient describes an HTTP client.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

const (
	NameMessaging = "messaging"
	NameEmail     = "email"
)
