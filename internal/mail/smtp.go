package mail

import (
	"context"
	"fmt"
	"strings"

	"github.com/contactd/backend/internal/config"
	gomail "github.com/wneessen/go-mail"
)

// SMTPMailer delivers messages through an SMTP relay. A fresh client is dialled
// for every Send so concurrent sends never share a connection.
type SMTPMailer struct {
	host string
	from string
	opts []gomail.Option
}

var _ Mailer = (*SMTPMailer)(nil)

// NewSMTPMailer validates cfg and prepares the client options.
func NewSMTPMailer(cfg config.SMTPConfig) (*SMTPMailer, error) {
	policy, err := tlsPolicy(cfg.TLSPolicy)
	if err != nil {
		return nil, err
	}

	opts := []gomail.Option{
		gomail.WithPort(cfg.Port),
		gomail.WithTLSPolicy(policy),
	}
	if cfg.Port == 465 {
		opts = append(opts, gomail.WithSSL())
	}
	if cfg.DialTimeout > 0 {
		opts = append(opts, gomail.WithTimeout(cfg.DialTimeout))
	}
	if cfg.User != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthLogin),
			gomail.WithUsername(cfg.User),
			gomail.WithPassword(cfg.Password),
		)
	}

	// Fail at startup rather than on the first submission.
	if _, err := gomail.NewClient(cfg.Host, opts...); err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}

	return &SMTPMailer{host: cfg.Host, from: cfg.Sender(), opts: opts}, nil
}

// Send builds a MIME message and delivers it within ctx.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	gm, err := m.build(msg)
	if err != nil {
		return err
	}

	client, err := gomail.NewClient(m.host, m.opts...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, gm); err != nil {
		return fmt.Errorf("smtp send to %s: %w", msg.To, err)
	}
	return nil
}

func (m *SMTPMailer) build(msg Message) (*gomail.Msg, error) {
	gm := gomail.NewMsg()
	if err := gm.FromFormat(msg.FromName, m.from); err != nil {
		return nil, fmt.Errorf("from address: %w", err)
	}
	if err := gm.To(msg.To); err != nil {
		return nil, fmt.Errorf("to address: %w", err)
	}
	if msg.ReplyTo != "" {
		if err := gm.ReplyTo(msg.ReplyTo); err != nil {
			return nil, fmt.Errorf("reply-to address: %w", err)
		}
	}
	gm.Subject(msg.Subject)
	if msg.Text != "" {
		gm.SetBodyString(gomail.TypeTextPlain, msg.Text)
		gm.AddAlternativeString(gomail.TypeTextHTML, msg.HTML)
	} else {
		gm.SetBodyString(gomail.TypeTextHTML, msg.HTML)
	}
	return gm, nil
}

func tlsPolicy(s string) (gomail.TLSPolicy, error) {
	switch strings.ToLower(s) {
	case "", "opportunistic":
		return gomail.TLSOpportunistic, nil
	case "mandatory":
		return gomail.TLSMandatory, nil
	case "none":
		return gomail.NoTLS, nil
	default:
		return gomail.NoTLS, fmt.Errorf("unknown SMTP TLS policy %q", s)
	}
}
