package notifications

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

const (
	sendGridHost     = "https://api.sendgrid.com"
	sendGridEndpoint = "/v3/mail/send"
)

// Sender delivers one email with its rendered attachments.
type Sender interface {
	Send(ctx context.Context, e Email, attachments []Attachment) error
}

// SendGridSender sends through the SendGrid v3 mail API.
type SendGridSender struct {
	key  string
	host string
	from *sgmail.Email
}

// NewSendGridSender creates a SendGrid sender. Returns nil when key is empty
// (email delivery disabled).
func NewSendGridSender(key, fromName, fromAddr string) *SendGridSender {
	if key == "" {
		return nil
	}
	return &SendGridSender{key: key, host: sendGridHost, from: sgmail.NewEmail(fromName, fromAddr)}
}

// Build assembles the SendGrid payload for an email.
func (s *SendGridSender) Build(e Email, attachments []Attachment) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.AddTos(sgmail.NewEmail(e.ToName, e.To))
	p.Subject = e.Subject

	m := sgmail.NewV3Mail()
	m.SetFrom(s.from)
	m.AddPersonalizations(p)
	m.AddContent(sgmail.NewContent("text/plain", e.Text))
	if e.HTML != "" {
		m.AddContent(sgmail.NewContent("text/html", e.HTML))
	}
	for _, a := range attachments {
		m.AddAttachment(&sgmail.Attachment{
			Content:     base64.StdEncoding.EncodeToString(a.Data),
			Type:        a.ContentType,
			Filename:    a.Filename,
			Disposition: "attachment",
		})
	}
	return m
}

// Send posts the message. Any non-2xx response is an error.
func (s *SendGridSender) Send(ctx context.Context, e Email, attachments []Attachment) error {
	req := sendgrid.GetRequest(s.key, sendGridEndpoint, s.host)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(s.Build(e, attachments))

	res, err := sendgrid.MakeRequestWithContext(ctx, req)
	if err != nil {
		return fmt.Errorf("sendgrid: %w", err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sendgrid: status %d: %s", res.StatusCode, res.Body)
	}
	return nil
}

// LogSender logs emails instead of sending them. Used when no SendGrid key
// is configured.
type LogSender struct {
	Logger *slog.Logger
}

func (s LogSender) Send(_ context.Context, e Email, attachments []Attachment) error {
	names := make([]string, len(attachments))
	for i, a := range attachments {
		names[i] = a.Filename
	}
	s.Logger.Info("Email (delivery disabled)",
		"to", e.To, "subject", e.Subject, "attachments", names)
	return nil
}
