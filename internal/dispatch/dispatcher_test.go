package dispatch_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/notifyhub/pricewatch/internal/channel"
	"github.com/notifyhub/pricewatch/internal/dispatch"
	"github.com/notifyhub/pricewatch/internal/domain"
)

type fakeChannel struct {
	name       string
	configured bool
	err        error
	panicWith  any
	calls      int
}

func (c *fakeChannel) Name() string     { return c.name }
func (c *fakeChannel) Configured() bool { return c.configured }
func (c *fakeChannel) Deliver(context.Context, domain.NotificationPayload) error {
	c.calls++
	if c.panicWith != nil {
		panic(c.panicWith)
	}
	return c.err
}

var payload = domain.NotificationPayload{Commodity: "Gold", PrimaryPrice: 326586.40, Currency: "PKR"}

func TestDispatcher_FailureDoesNotStopLaterChannels(t *testing.T) {
	msg := &fakeChannel{name: "messaging", configured: true, err: errors.New("gateway down")}
	email := &fakeChannel{name: "email", configured: true}

	out := dispatch.New(zap.NewNop(), dispatch.Hooks{}).
		Dispatch(context.Background(), payload, []channel.Channel{msg, email})

	require.Len(t, out, 2)
	assert.Equal(t, domain.OutcomeFailed, out[0].Status)
	assert.Equal(t, "messaging", out[0].Channel)
	var de *domain.DeliveryError
	require.ErrorAs(t, out[0].Err, &de)
	assert.Equal(t, "messaging", de.Channel)

	assert.Equal(t, domain.OutcomeSent, out[1].Status)
	assert.NoError(t, out[1].Err)
	assert.Equal(t, 1, email.calls)
}

func TestDispatcher_UnconfiguredChannelIsSkippedWithoutCall(t *testing.T) {
	msg := &fakeChannel{name: "messaging"}
	email := &fakeChannel{name: "email", configured: true}

	out := dispatch.New(zap.NewNop(), dispatch.Hooks{}).
		Dispatch(context.Background(), payload, []channel.Channel{msg, email})

	assert.Equal(t, domain.OutcomeSkipped, out[0].Status)
	assert.NoError(t, out[0].Err)
	assert.Zero(t, msg.calls)
	assert.Equal(t, domain.OutcomeSent, out[1].Status)
}

func TestDispatcher_PanickingChannelIsRecorded(t *testing.T) {
	bad := &fakeChannel{name: "messaging", configured: true, panicWith: "nil map"}
	email := &fakeChannel{name: "email", configured: true}

	var seen []domain.OutcomeStatus
	d := dispatch.New(zap.NewNop(), dispatch.Hooks{
		OnOutcome: func(_ string, s domain.OutcomeStatus) { seen = append(seen, s) },
	})
	out := d.Dispatch(context.Background(), payload, []channel.Channel{bad, email})

	require.Len(t, out, 2)
	assert.Equal(t, domain.OutcomeFailed, out[0].Status)
	assert.Contains(t, out[0].Err.Error(), "panic: nil map")
	assert.Equal(t, domain.OutcomeSent, out[1].Status)
	assert.Equal(t, []domain.OutcomeStatus{domain.OutcomeFailed, domain.OutcomeSent}, seen)
}

func TestSummary(t *testing.T) {
	got := dispatch.Summary([]domain.Outcome{
		{Status: domain.OutcomeSent}, {Status: domain.OutcomeSkipped}, {Status: domain.OutcomeSent},
	})
	assert.Equal(t, 2, got[domain.OutcomeSent])
	assert.Equal(t, 1, got[domain.OutcomeSkipped])
	assert.Zero(t, got[domain.OutcomeFailed])
}
