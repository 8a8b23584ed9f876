package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/notifyhub/pricewatch/internal/domain"
)

// MessagingConfig configures the messaging gateway channel.
type MessagingConfig struct {
	Endpoint    string
	Token       string
	Phone       string
	TrunkPrefix string // e.g. "0"
	CountryCode string // e.g. "92"
	Timeout     time.Duration
}

// SendRequest is the JSON body posted to the messaging gateway.
type SendRequest struct {
	To   string `json:"to"`
	Body string `json:"body"`
}

// Messaging posts the rendered text to a bearer-authorized gateway.
// The endpoint is injected from config so tests can point to a local mock.
type Messaging struct {
	cfg      MessagingConfig
	client   HTTPClient
	renderer *Renderer
}

func NewMessaging(cfg MessagingConfig, client HTTPClient, renderer *Renderer) *Messaging {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &Messaging{cfg: cfg, client: client, renderer: renderer}
}

func (m *Messaging) Name() string { return NameMessaging }

func (m *Messaging) Configured() bool {
	return m.cfg.Endpoint != "" && m.cfg.Token != "" &&
		NormalizePhone(m.cfg.Phone, m.cfg.TrunkPrefix, m.cfg.CountryCode) != ""
}

// Deliver posts the payload to the gateway and expects a 2xx response.
func (m *Messaging) Deliver(ctx context.Context, p domain.NotificationPayload) error {
	if !m.Configured() {
		return domain.ErrChannelNotReady
	}
	if m.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.cfg.Timeout)
		defer cancel()
	}

	body, err := json.Marshal(SendRequest{
		To:   NormalizePhone(m.cfg.Phone, m.cfg.TrunkPrefix, m.cfg.CountryCode),
		Body: m.renderer.Text(p),
	})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.cfg.Token)

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<10))
		return fmt.Errorf("unexpected gateway status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// NormalizePhone keeps only the digits of raw and rewrites a leading trunk
// prefix to the country code: "0300-1234567" becomes "923001234567".
func NormalizePhone(raw, trunk, countryCode string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if trunk != "" && countryCode != "" && strings.HasPrefix(digits, trunk) {
		return countryCode + strings.TrimPrefix(digits, trunk)
	}
	return digits
}

// compile-time check that Messaging implements Channel
var _ Channel = (*Messaging)(nil)
