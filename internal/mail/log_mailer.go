package mail

import (
	"context"
	"log/slog"
)

// LogMailer records messages in the log instead of sending them.
// It is used when no SMTP host is configured.
type LogMailer struct{}

var _ Mailer = LogMailer{}

func (LogMailer) Send(ctx context.Context, msg Message) error {
	slog.InfoContext(ctx, "mail delivery disabled, message logged only",
		"to", msg.To,
		"subject", msg.Subject,
	)
	return nil
}
