package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/classpoint/classpoint/internal/schools"
)

// Notifier turns lifecycle events into queued notification emails. Every
// method is fire-and-forget: enqueue failures are logged and swallowed so a
// broken queue never fails the triggering request.
type Notifier struct {
	client *Client
	logger *slog.Logger
}

// NewNotifier constructs a Notifier.
func NewNotifier(client *Client, logger *slog.Logger) *Notifier {
	return &Notifier{client: client, logger: logger}
}

// PasswordResetRequested mails a reset token to the account holder.
func (n *Notifier) PasswordResetRequested(ctx context.Context, email, name, token string) {
	n.enqueue(ctx, SendEmailPayload{
		To:      email,
		Subject: "Password reset",
		Body: fmt.Sprintf("Hello %s,\n\nA password reset was requested for your account. "+
			"Use the token below to choose a new password. It expires soon and works only once.\n\n%s\n\n"+
			"If you did not request this, you can ignore this message.", name, token),
	})
}

// SchoolApproved tells the school contact their registration was approved.
func (n *Notifier) SchoolApproved(ctx context.Context, school schools.School) {
	n.enqueue(ctx, SendEmailPayload{
		To:      school.ContactEmail,
		Subject: "Registration approved",
		Body: fmt.Sprintf("Hello %s,\n\nThe registration for %s has been approved. "+
			"You will receive account details once the school is activated.", school.ContactName, school.Name),
	})
}

// SchoolRejected tells the school contact their registration was rejected.
func (n *Notifier) SchoolRejected(ctx context.Context, school schools.School, reason string) {
	n.enqueue(ctx, SendEmailPayload{
		To:      school.ContactEmail,
		Subject: "Registration rejected",
		Body: fmt.Sprintf("Hello %s,\n\nThe registration for %s was rejected.\n\nReason: %s",
			school.ContactName, school.Name, reason),
	})
}

// AdminProvisioned mails temporary credentials to a newly provisioned admin.
func (n *Notifier) AdminProvisioned(ctx context.Context, email, name, tempPassword string) {
	n.enqueue(ctx, credentialsPayload(email, name, tempPassword))
}

// StaffProvisioned mails temporary credentials to a newly provisioned teacher.
func (n *Notifier) StaffProvisioned(ctx context.Context, email, name, tempPassword string) {
	n.enqueue(ctx, credentialsPayload(email, name, tempPassword))
}

func credentialsPayload(email, name, tempPassword string) SendEmailPayload {
	return SendEmailPayload{
		To:      email,
		Subject: "Your account is ready",
		Body: fmt.Sprintf("Hello %s,\n\nAn account has been created for you.\n\n"+
			"Email: %s\nTemporary password: %s\n\n"+
			"You will be asked to choose a new password on first login.", name, email, tempPassword),
	}
}

func (n *Notifier) enqueue(ctx context.Context, payload SendEmailPayload) {
	if n == nil || n.client == nil {
		return
	}
	if _, err := n.client.EnqueueSendEmail(ctx, payload); err != nil && n.logger != nil {
		n.logger.Warn("enqueue notification",
			slog.String("to", payload.To),
			slog.String("subject", payload.Subject),
			slog.Any("error", err))
	}
}
