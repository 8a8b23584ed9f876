package channel

import (
	"context"
	"fmt"

	"github.com/notifyhub/pricewatch/internal/domain"
)

// Mail is one outgoing multipart message.
type Mail struct {
	From    string
	To      []string
	Subject string
	Text    string
	HTML    string
}

// Sender submits a message to a mail server.
type Sender interface {
	Send(ctx context.Context, m Mail) error
}

// EmailConfig holds the addressing for the email channel. Credentials live
// in the Sender; Ready reports whether they were supplied.
type EmailConfig struct {
	From  string
	To    []string
	Ready bool
}

// Email renders a text body with an HTML alternative and hands it to a Sender.
type Email struct {
	cfg      EmailConfig
	sender   Sender
	renderer *Renderer
}

func NewEmail(cfg EmailConfig, sender Sender, renderer *Renderer) *Email {
	return &Email{cfg: cfg, sender: sender, renderer: renderer}
}

func (e *Email) Name() string { return NameEmail }

func (e *Email) Configured() bool {
	return e.cfg.Ready && e.sender != nil && e.cfg.From != "" && len(e.cfg.To) > 0
}

func (e *Email) Deliver(ctx context.Context, p domain.NotificationPayload) error {
	if !e.Configured() {
		return domain.ErrChannelNotReady
	}
	html, err := e.renderer.HTML(p)
	if err != nil {
		return err
	}
	m := Mail{
		From:    e.cfg.From,
		To:      e.cfg.To,
		Subject: e.renderer.Subject(p),
		Text:    e.renderer.Text(p),
		HTML:    html,
	}
	if err := e.sender.Send(ctx, m); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

// compile-time check that Email implements Channel
var _ Channel = (*Email)(nil)
