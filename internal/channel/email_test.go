package channel_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notifyhub/pricewatch/internal/channel"
	"github.com/notifyhub/pricewatch/internal/domain"
)

type recordingSender struct {
	sent []channel.Mail
	err  error
}

func (s *recordingSender) Send(_ context.Context, m channel.Mail) error {
	s.sent = append(s.sent, m)
	return s.err
}

func TestEmail_Deliver(t *testing.T) {
	sender := &recordingSender{}
	e := channel.NewEmail(channel.EmailConfig{From: "bot@example.com", To: []string{"me@example.com"}, Ready: true},
		sender, channel.NewRenderer(time.UTC))

	require.True(t, e.Configured())
	require.NoError(t, e.Deliver(context.Background(), samplePayload()))
	require.Len(t, sender.sent, 1)

	m := sender.sent[0]
	assert.Equal(t, "Gold Price Update - 05 Mar 2024", m.Subject)
	assert.Equal(t, []string{"me@example.com"}, m.To)
	assert.Contains(t, m.Text, "22K per Tola: Rs. 299,381.75")
	assert.Contains(t, m.HTML, "<strong>Rs. 299,381.75</strong>")
}

func TestEmail_DeliverSenderError(t *testing.T) {
	sender := &recordingSender{err: errors.New("535 auth failed")}
	e := channel.NewEmail(channel.EmailConfig{From: "bot@example.com", To: []string{"me@example.com"}, Ready: true},
		sender, channel.NewRenderer(time.UTC))

	err := e.Deliver(context.Background(), samplePayload())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "535 auth failed")
}

func TestEmail_NotConfigured(t *testing.T) {
	sender := &recordingSender{}
	e := channel.NewEmail(channel.EmailConfig{From: "bot@example.com", To: []string{"me@example.com"}},
		sender, channel.NewRenderer(time.UTC))

	assert.False(t, e.Configured())
	assert.ErrorIs(t, e.Deliver(context.Background(), samplePayload()), domain.ErrChannelNotReady)
	assert.Empty(t, sender.sent)
}
