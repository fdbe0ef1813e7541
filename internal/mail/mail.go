// Package mail composes and dispatches notification emails.
package mail

import "context"

// Message is one outbound email. HTML is the primary body; Text is the
// plain-text alternative.
type Message struct {
	FromName string
	To       string
	ReplyTo  string
	Subject  string
	HTML     string
	Text     string
}

// Mailer sends a single message. Implementations must be safe for concurrent use.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}
