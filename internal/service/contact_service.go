package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/contactd/backend/internal/model"
)

// Failure kinds returned by ContactService.Submit. Callers match them with errors.Is.
var (
	ErrSpamDetected = errors.New("spam detected")
	ErrValidation   = errors.New("validation failed")
	ErrPersistence  = errors.New("persistence failed")
	ErrNotification = errors.New("notification failed")
)

// Field length limits, counted in runes after trimming.
const (
	MaxNameLength    = 200
	MaxEmailLength   = 320
	MaxMessageLength = 5000
)

// FieldError describes which input field failed validation.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Submission is the raw form input plus the request metadata derived by the HTTP layer.
type Submission struct {
	Name    string
	Email   string
	Message string
	// Website is the honeypot field. Humans never see it, so any value means a bot.
	Website   string
	IP        string
	UserAgent string
}

// Outcome says how far an accepted submission got.
type Outcome int

const (
	// OutcomeDelivered means the record is stored and both emails were sent.
	OutcomeDelivered Outcome = iota
	// OutcomeStoredNotNotified means the record is stored but at least one email failed.
	OutcomeStoredNotNotified
)

func (o Outcome) String() string {
	switch o {
	case OutcomeDelivered:
		return "delivered"
	case OutcomeStoredNotNotified:
		return "stored_not_notified"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Receipt is returned once a submission has been stored.
type Receipt struct {
	Submission *model.ContactSubmission
	Outcome    Outcome
}

// ContactService defines the business logic for contact form submissions.
type ContactService interface {
	// Submit runs the whole pipeline: honeypot, validation, scoring, persistence
	// and notification. A non-nil Receipt.Submission means the record was stored,
	// even when the returned error is ErrNotification.
	Submit(ctx context.Context, in Submission) (Receipt, error)
}
