package source_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notifyhub/pricewatch/internal/domain"
	"github.com/notifyhub/pricewatch/internal/source"
)

// fakeBrowser hands out fakeSessions and counts how many were closed.
type fakeBrowser struct {
	mu      sync.Mutex
	opened  int
	closed  int
	openErr error
	text    func(ctx context.Context) (string, error)
}

func (b *fakeBrowser) Open(ctx context.Context) (source.Session, error) {
	if b.openErr != nil {
		return nil, b.openErr
	}
	b.mu.Lock()
	b.opened++
	b.mu.Unlock()
	return &fakeSession{b: b}, nil
}

func (b *fakeBrowser) counts() (opened, closed int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.opened, b.closed
}

type fakeSession struct{ b *fakeBrowser }

func (s *fakeSession) Text(ctx context.Context, url, selector string) (string, error) {
	return s.b.text(ctx)
}

func (s *fakeSession) Close() error {
	s.b.mu.Lock()
	s.b.closed++
	s.b.mu.Unlock()
	return nil
}

func renderedConfig(timeout time.Duration) source.RenderedConfig {
	return source.RenderedConfig{
		Source:   domain.SourceConfig{ID: "rendered", MaxAttempts: 1, AttemptTimeout: timeout},
		URL:      "https://example.test/gold",
		Selector: "#gold-24k",
		Unit:     domain.UnitTola,
		Currency: "PKR",
	}
}

func TestRenderedSource_SessionClosedOnEveryPath(t *testing.T) {
	tests := []struct {
		name    string
		text    func(ctx context.Context) (string, error)
		kind    domain.FetchKind
		success bool
	}{
		{
			name:    "success",
			text:    func(context.Context) (string, error) { return "Rs 326,500", nil },
			success: true,
		},
		{
			name: "empty text",
			text: func(context.Context) (string, error) { return "", nil },
			kind: domain.KindParseFailure,
		},
		{
			name: "text without digits",
			text: func(context.Context) (string, error) { return "loading...", nil },
			kind: domain.KindParseFailure,
		},
		{
			name: "selector never appears",
			text: func(ctx context.Context) (string, error) {
				<-ctx.Done()
				return "", ctx.Err()
			},
			kind: domain.KindTimeout,
		},
		{
			name: "navigation error",
			text: func(context.Context) (string, error) { return "", errors.New("net::ERR_NAME_NOT_RESOLVED") },
			kind: domain.KindUnreachable,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			b := &fakeBrowser{text: tc.text}
			src := source.NewRenderedSource(renderedConfig(50*time.Millisecond), b)

			q, err := src.Fetch(context.Background())

			opened, closed := b.counts()
			assert.Equal(t, 1, opened)
			assert.Equal(t, 1, closed, "session must be closed")

			if tc.success {
				require.NoError(t, err)
				assert.InDelta(t, 326500.0, q.RawValue, 1e-9)
				return
			}
			var fe *domain.FetchError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, tc.kind, fe.Kind)
		})
	}
}

func TestRenderedSource_OpenFailure(t *testing.T) {
	b := &fakeBrowser{openErr: errors.New("chrome not found")}
	_, err := source.NewRenderedSource(renderedConfig(time.Second), b).Fetch(context.Background())

	var fe *domain.FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, domain.KindUnreachable, fe.Kind)
	opened, closed := b.counts()
	assert.Zero(t, opened)
	assert.Zero(t, closed)
}
