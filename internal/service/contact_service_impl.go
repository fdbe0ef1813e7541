package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/contactd/backend/internal/mail"
	"github.com/contactd/backend/internal/metrics"
	"github.com/contactd/backend/internal/model"
	"github.com/contactd/backend/internal/repository"
	"github.com/contactd/backend/internal/sentiment"
	"github.com/contactd/backend/internal/useragent"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"
)

const (
	defaultStoreTimeout = 5 * time.Second
	defaultMailTimeout  = 10 * time.Second

	mailKindOwner = "owner"
	mailKindAck   = "acknowledgement"
)

// Composer builds the two notification emails.
type Composer interface {
	OwnerNotification(n mail.Notification) (mail.Message, error)
	Acknowledgement(n mail.Notification) (mail.Message, error)
}

// ContactDeps holds the collaborators of the contact service.
// Metrics and Clock are optional.
type ContactDeps struct {
	Repo         repository.ContactRepository
	Scorer       sentiment.Scorer
	Mailer       mail.Mailer
	Composer     Composer
	Metrics      *metrics.Metrics
	Clock        clockwork.Clock
	StoreTimeout time.Duration
	MailTimeout  time.Duration
}

// contactServiceImpl is the production implementation of ContactService.
type contactServiceImpl struct {
	repo         repository.ContactRepository
	scorer       sentiment.Scorer
	mailer       mail.Mailer
	composer     Composer
	metrics      *metrics.Metrics
	clock        clockwork.Clock
	storeTimeout time.Duration
	mailTimeout  time.Duration
}

// NewContactService creates a ContactService from deps.
func NewContactService(deps ContactDeps) ContactService {
	s := &contactServiceImpl{
		repo:         deps.Repo,
		scorer:       deps.Scorer,
		mailer:       deps.Mailer,
		composer:     deps.Composer,
		metrics:      deps.Metrics,
		clock:        deps.Clock,
		storeTimeout: deps.StoreTimeout,
		mailTimeout:  deps.MailTimeout,
	}
	if s.clock == nil {
		s.clock = clockwork.NewRealClock()
	}
	if s.storeTimeout <= 0 {
		s.storeTimeout = defaultStoreTimeout
	}
	if s.mailTimeout <= 0 {
		s.mailTimeout = defaultMailTimeout
	}
	return s
}

func (s *contactServiceImpl) Submit(ctx context.Context, in Submission) (Receipt, error) {
	// Once accepted, a submission runs to completion even if the client goes away.
	ctx = context.WithoutCancel(ctx)

	if in.Website != "" {
		s.metrics.ObserveSubmission(metrics.OutcomeSpam)
		slog.InfoContext(ctx, "honeypot triggered", "ip", in.IP)
		return Receipt{}, ErrSpamDetected
	}

	rec, err := normalize(in)
	if err != nil {
		s.metrics.ObserveSubmission(metrics.OutcomeInvalid)
		return Receipt{}, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	rec.SentimentScore = s.score(ctx, rec.Message)
	rec.CreatedAt = s.clock.Now().UTC()

	if err := s.save(ctx, rec); err != nil {
		s.metrics.ObserveSubmission(metrics.OutcomePersistenceFailure)
		slog.ErrorContext(ctx, "failed to store contact submission", "error", err)
		return Receipt{}, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	s.metrics.ObserveSentiment(rec.SentimentScore)

	if err := s.notify(ctx, rec); err != nil {
		s.metrics.ObserveSubmission(metrics.OutcomeStoredNotNotified)
		return Receipt{Submission: rec, Outcome: OutcomeStoredNotNotified}, fmt.Errorf("%w: %w", ErrNotification, err)
	}

	s.metrics.ObserveSubmission(metrics.OutcomeDelivered)
	slog.InfoContext(ctx, "contact submission delivered",
		"id", rec.ID,
		"sentiment_score", rec.SentimentScore,
	)
	return Receipt{Submission: rec, Outcome: OutcomeDelivered}, nil
}

// normalize trims the required fields and checks them.
func normalize(in Submission) (*model.ContactSubmission, error) {
	rec := &model.ContactSubmission{
		Name:      strings.TrimSpace(in.Name),
		Email:     strings.TrimSpace(in.Email),
		Message:   strings.TrimSpace(in.Message),
		IP:        strings.TrimSpace(in.IP),
		UserAgent: in.UserAgent,
	}

	fields := []struct {
		name  string
		value string
		max   int
	}{
		{"name", rec.Name, MaxNameLength},
		{"email", rec.Email, MaxEmailLength},
		{"message", rec.Message, MaxMessageLength},
	}
	for _, f := range fields {
		if f.value == "" {
			return nil, &FieldError{Field: f.name, Reason: "required"}
		}
		if utf8.RuneCountInString(f.value) > f.max {
			return nil, &FieldError{Field: f.name, Reason: fmt.Sprintf("longer than %d characters", f.max)}
		}
	}
	return rec, nil
}

// score never fails the pipeline: a scorer error or panic yields 0.
func (s *contactServiceImpl) score(ctx context.Context, text string) (score int) {
	defer func() {
		if r := recover(); r != nil {
			slog.WarnContext(ctx, "sentiment scorer panicked, using 0", "panic", r)
			score = 0
		}
	}()
	v, err := s.scorer.Score(ctx, text)
	if err != nil {
		slog.WarnContext(ctx, "sentiment scoring failed, using 0", "error", err)
		return 0
	}
	return v
}

func (s *contactServiceImpl) save(ctx context.Context, rec *model.ContactSubmission) error {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	return s.repo.Save(ctx, rec)
}

// notify sends the owner notification and the acknowledgement concurrently
// and waits for both. It returns the first failure.
func (s *contactServiceImpl) notify(ctx context.Context, rec *model.ContactSubmission) error {
	n := mail.Notification{
		Name:           rec.Name,
		Email:          rec.Email,
		Message:        rec.Message,
		IP:             rec.IP,
		UserAgent:      rec.UserAgent,
		Client:         useragent.Parse(rec.UserAgent).String(),
		SentimentScore: rec.SentimentScore,
		ReceivedAt:     rec.CreatedAt,
	}

	owner, err := s.composer.OwnerNotification(n)
	if err != nil {
		return fmt.Errorf("compose owner notification: %w", err)
	}
	ack, err := s.composer.Acknowledgement(n)
	if err != nil {
		return fmt.Errorf("compose acknowledgement: %w", err)
	}

	var g errgroup.Group
	g.Go(func() error { return s.send(ctx, mailKindOwner, rec.ID, owner) })
	g.Go(func() error { return s.send(ctx, mailKindAck, rec.ID, ack) })
	return g.Wait()
}

func (s *contactServiceImpl) send(ctx context.Context, kind, id string, msg mail.Message) error {
	ctx, cancel := context.WithTimeout(ctx, s.mailTimeout)
	defer cancel()

	start := s.clock.Now()
	err := s.mailer.Send(ctx, msg)
	s.metrics.ObserveMailSend(kind, err, s.clock.Since(start))
	if err != nil {
		slog.ErrorContext(ctx, "failed to send email",
			"kind", kind,
			"submission_id", id,
			"error", err,
		)
		return fmt.Errorf("send %s email: %w", kind, err)
	}
	return nil
}
