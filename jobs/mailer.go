package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

// Mailer delivers a single transactional email.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SendgridMailer delivers email through the SendGrid v3 API.
type SendgridMailer struct {
	key        string
	from       *sgmail.Email
	subjPrefix string
}

// NewSendgridMailer constructs a SendgridMailer.
func NewSendgridMailer(apiKey, fromName, fromAddr string) *SendgridMailer {
	return &SendgridMailer{
		key:        apiKey,
		from:       sgmail.NewEmail(fromName, fromAddr),
		subjPrefix: "[" + fromName + "] ",
	}
}

// Send submits the message to SendGrid.
func (m *SendgridMailer) Send(ctx context.Context, to, subject, body string) error {
	p := sgmail.NewPersonalization()
	p.Subject = m.subjPrefix + subject
	p.AddTos(sgmail.NewEmail("", to))

	msg := sgmail.NewV3Mail()
	msg.SetFrom(m.from)
	msg.AddPersonalizations(p)
	msg.AddContent(sgmail.NewContent("text/plain", body))

	req := sendgrid.GetRequest(m.key, "/v3/mail/send", "https://api.sendgrid.com")
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(msg)

	res, err := sendgrid.API(req)
	if err != nil {
		return fmt.Errorf("jobs: sendgrid: %w", err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("jobs: sendgrid status %d: %s", res.StatusCode, res.Body)
	}
	return nil
}

// ConsoleMailer logs messages instead of delivering them. Used in development
// when no SendGrid key is configured.
type ConsoleMailer struct {
	Logger *slog.Logger
}

// Send logs the message.
func (m ConsoleMailer) Send(ctx context.Context, to, subject, body string) error {
	if m.Logger != nil {
		m.Logger.Info("mail (console)",
			slog.String("to", to),
			slog.String("subject", subject),
			slog.String("body", body))
	}
	return nil
}
