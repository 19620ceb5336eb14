package mailer

import (
	"context"
	"time"

	mg "github.com/mailgun/mailgun-go/v4"
)

// Mailgun delivers rendered emails through the Mailgun HTTP API.
type Mailgun struct {
	client  *mg.MailgunImpl
	Sender  string
	Timeout time.Duration
}

// NewMailgun builds a sender for domain. An empty apiBase keeps the US
// endpoint; pass mg.APIBaseEU for EU domains.
func NewMailgun(domain, apiKey, sender, apiBase string) *Mailgun {
	client := mg.NewMailgun(domain, apiKey)
	if apiBase != "" {
		client.SetAPIBase(apiBase)
	}
	return &Mailgun{client: client, Sender: sender, Timeout: 10 * time.Second}
}

func (m *Mailgun) Send(ctx context.Context, to, subject, text, html string) error {
	msg := m.client.NewMessage(m.Sender, subject, text, to)
	if html != "" {
		msg.SetHtml(html)
	}
	c, cancel := context.WithTimeout(ctx, m.Timeout)
	defer cancel()
	_, _, err := m.client.Send(c, msg)
	return err
}
