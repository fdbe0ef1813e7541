package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/contactd/backend/internal/config"
	"github.com/contactd/backend/internal/mail"
	"github.com/contactd/backend/internal/model"
	"github.com/contactd/backend/internal/sentiment"
	"github.com/jonboulle/clockwork"
)

// ---------------------------------------------------------------------------
// Mocks
// ---------------------------------------------------------------------------

type mockContactRepository struct {
	mu       sync.Mutex
	saved    []*model.ContactSubmission
	saveFunc func(ctx context.Context, s *model.ContactSubmission) error
}

func (m *mockContactRepository) Save(ctx context.Context, s *model.ContactSubmission) error {
	if m.saveFunc != nil {
		if err := m.saveFunc(ctx, s); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.ID == "" {
		s.ID = "id-" + string(rune('a'+len(m.saved)))
	}
	m.saved = append(m.saved, s)
	return nil
}

func (m *mockContactRepository) List(ctx context.Context, opts model.ContactListOptions) ([]*model.ContactSubmission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saved, nil
}

type mockScorer struct {
	scoreFunc func(ctx context.Context, text string) (int, error)
}

func (m *mockScorer) Score(ctx context.Context, text string) (int, error) {
	if m.scoreFunc != nil {
		return m.scoreFunc(ctx, text)
	}
	return 0, nil
}

type mockMailer struct {
	mu       sync.Mutex
	sent     []mail.Message
	sendFunc func(ctx context.Context, msg mail.Message) error
}

func (m *mockMailer) Send(ctx context.Context, msg mail.Message) error {
	m.mu.Lock()
	m.sent = append(m.sent, msg)
	m.mu.Unlock()
	if m.sendFunc != nil {
		return m.sendFunc(ctx, msg)
	}
	return nil
}

func (m *mockMailer) messages() []mail.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mail.Message(nil), m.sent...)
}

type fixture struct {
	repo   *mockContactRepository
	scorer *mockScorer
	mailer *mockMailer
	clock  *clockwork.FakeClock
	svc    ContactService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	composer, err := mail.NewComposer(config.MailConfig{
		Receiver:  "owner@example.com",
		FromName:  "Portfolio Contact",
		Signature: "Portfolio Owner",
	})
	if err != nil {
		t.Fatalf("NewComposer: %v", err)
	}
	f := &fixture{
		repo:   &mockContactRepository{},
		scorer: &mockScorer{},
		mailer: &mockMailer{},
		clock:  clockwork.NewFakeClockAt(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)),
	}
	f.svc = NewContactService(ContactDeps{
		Repo:         f.repo,
		Scorer:       f.scorer,
		Mailer:       f.mailer,
		Composer:     composer,
		Clock:        f.clock,
		StoreTimeout: time.Second,
		MailTimeout:  time.Second,
	})
	return f
}

func validSubmission() Submission {
	return Submission{
		Name:      "Ann",
		Email:     "ann@example.com",
		Message:   "I love this!",
		IP:        "203.0.113.7",
		UserAgent: "Mozilla/5.0 (X11; Linux x86_64; rv:120.0) Gecko/20100101 Firefox/120.0",
	}
}

// ---------------------------------------------------------------------------
// Submit tests
// ---------------------------------------------------------------------------

func TestContactService_Submit_Delivered(t *testing.T) {
	f := newFixture(t)
	f.scorer.scoreFunc = func(ctx context.Context, text string) (int, error) { return 3, nil }

	receipt, err := f.svc.Submit(context.Background(), validSubmission())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if receipt.Outcome != OutcomeDelivered {
		t.Errorf("expected OutcomeDelivered, got %v", receipt.Outcome)
	}
	if len(f.repo.saved) != 1 {
		t.Fatalf("expected 1 saved record, got %d", len(f.repo.saved))
	}
	saved := f.repo.saved[0]
	if saved.SentimentScore != 3 {
		t.Errorf("expected sentiment score 3, got %d", saved.SentimentScore)
	}
	if !saved.CreatedAt.Equal(f.clock.Now()) {
		t.Errorf("expected CreatedAt=%v, got %v", f.clock.Now(), saved.CreatedAt)
	}
	if saved.IP != "203.0.113.7" {
		t.Errorf("expected ip to be stored, got %q", saved.IP)
	}
	if receipt.Submission != saved {
		t.Error("expected receipt to carry the stored record")
	}

	msgs := f.mailer.messages()
	if len(msgs) != 2 {
		t.Fatalf("expected 2 emails, got %d", len(msgs))
	}
	recipients := map[string]bool{}
	for _, m := range msgs {
		recipients[m.To] = true
	}
	if !recipients["owner@example.com"] || !recipients["ann@example.com"] {
		t.Errorf("expected emails to owner and submitter, got %v", recipients)
	}
}

func TestContactService_Submit_AnnScenarioWithRealScorer(t *testing.T) {
	f := newFixture(t)
	analyzer, err := sentiment.NewAnalyzer()
	if err != nil {
		t.Fatalf("NewAnalyzer: %v", err)
	}
	f.svc = NewContactService(ContactDeps{
		Repo:     f.repo,
		Scorer:   analyzer,
		Mailer:   f.mailer,
		Composer: mustComposer(t),
		Clock:    f.clock,
	})

	if _, err := f.svc.Submit(context.Background(), validSubmission()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := f.repo.saved[0].SentimentScore; got <= 0 {
		t.Errorf("expected positive score, got %d", got)
	}
	if len(f.mailer.messages()) != 2 {
		t.Errorf("expected 2 emails, got %d", len(f.mailer.messages()))
	}
}

func mustComposer(t *testing.T) *mail.Composer {
	t.Helper()
	c, err := mail.NewComposer(config.MailConfig{Receiver: "owner@example.com"})
	if err != nil {
		t.Fatalf("NewComposer: %v", err)
	}
	return c
}

func TestContactService_Submit_Honeypot(t *testing.T) {
	f := newFixture(t)
	in := validSubmission()
	in.Website = "http://spam.example"

	_, err := f.svc.Submit(context.Background(), in)
	if !errors.Is(err, ErrSpamDetected) {
		t.Fatalf("expected ErrSpamDetected, got %v", err)
	}
	if len(f.repo.saved) != 0 {
		t.Errorf("expected nothing stored, got %d records", len(f.repo.saved))
	}
	if len(f.mailer.messages()) != 0 {
		t.Errorf("expected no emails, got %d", len(f.mailer.messages()))
	}
}

func TestContactService_Submit_HoneypotWinsOverValidation(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Submit(context.Background(), Submission{Website: "x"})
	if !errors.Is(err, ErrSpamDetected) {
		t.Fatalf("expected ErrSpamDetected, got %v", err)
	}
}

func TestContactService_Submit_Validation(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Submission)
		wantField string
	}{
		{"missing name", func(s *Submission) { s.Name = "" }, "name"},
		{"whitespace name", func(s *Submission) { s.Name = "   " }, "name"},
		{"missing email", func(s *Submission) { s.Email = "" }, "email"},
		{"missing message", func(s *Submission) { s.Message = "\n\t" }, "message"},
		{"message too long", func(s *Submission) { s.Message = strings.Repeat("a", MaxMessageLength+1) }, "message"},
		{"name too long", func(s *Submission) { s.Name = strings.Repeat("é", MaxNameLength+1) }, "name"},
		{"email too long", func(s *Submission) { s.Email = strings.Repeat("e", MaxEmailLength+1) }, "email"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			in := validSubmission()
			tt.mutate(&in)

			_, err := f.svc.Submit(context.Background(), in)
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
			var fe *FieldError
			if !errors.As(err, &fe) {
				t.Fatalf("expected a FieldError in %v", err)
			}
			if fe.Field != tt.wantField {
				t.Errorf("expected field %q, got %q", tt.wantField, fe.Field)
			}
			if len(f.repo.saved) != 0 || len(f.mailer.messages()) != 0 {
				t.Error("expected no side effects on validation failure")
			}
		})
	}
}

func TestContactService_Submit_MaxLengthAccepted(t *testing.T) {
	f := newFixture(t)
	in := validSubmission()
	in.Message = strings.Repeat("ü", MaxMessageLength)

	if _, err := f.svc.Submit(context.Background(), in); err != nil {
		t.Fatalf("expected message of exactly %d runes to pass, got %v", MaxMessageLength, err)
	}
}

func TestContactService_Submit_TrimsFields(t *testing.T) {
	f := newFixture(t)
	in := validSubmission()
	in.Name = "  Ann  "
	in.Email = " ann@example.com\n"

	if _, err := f.svc.Submit(context.Background(), in); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	saved := f.repo.saved[0]
	if saved.Name != "Ann" || saved.Email != "ann@example.com" {
		t.Errorf("expected trimmed fields, got name=%q email=%q", saved.Name, saved.Email)
	}
}

func TestContactService_Submit_ScorerErrorFallsBackToZero(t *testing.T) {
	f := newFixture(t)
	f.scorer.scoreFunc = func(ctx context.Context, text string) (int, error) {
		return 7, errors.New("lexicon unavailable")
	}

	receipt, err := f.svc.Submit(context.Background(), validSubmission())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if receipt.Submission.SentimentScore != 0 {
		t.Errorf("expected score 0, got %d", receipt.Submission.SentimentScore)
	}
}

func TestContactService_Submit_ScorerPanicFallsBackToZero(t *testing.T) {
	f := newFixture(t)
	f.scorer.scoreFunc = func(ctx context.Context, text string) (int, error) {
		panic("boom")
	}

	receipt, err := f.svc.Submit(context.Background(), validSubmission())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if receipt.Submission.SentimentScore != 0 {
		t.Errorf("expected score 0, got %d", receipt.Submission.SentimentScore)
	}
}

func TestContactService_Submit_PersistenceFailure(t *testing.T) {
	f := newFixture(t)
	f.repo.saveFunc = func(ctx context.Context, s *model.ContactSubmission) error {
		return errors.New("db write failed")
	}

	receipt, err := f.svc.Submit(context.Background(), validSubmission())
	if !errors.Is(err, ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
	if receipt.Submission != nil {
		t.Error("expected empty receipt on persistence failure")
	}
	if len(f.mailer.messages()) != 0 {
		t.Errorf("expected no emails, got %d", len(f.mailer.messages()))
	}
}

func TestContactService_Submit_StoreTimeout(t *testing.T) {
	f := newFixture(t)
	f.svc = NewContactService(ContactDeps{
		Repo:         f.repo,
		Scorer:       f.scorer,
		Mailer:       f.mailer,
		Composer:     mustComposer(t),
		StoreTimeout: 10 * time.Millisecond,
	})
	f.repo.saveFunc = func(ctx context.Context, s *model.ContactSubmission) error {
		<-ctx.Done()
		return ctx.Err()
	}

	_, err := f.svc.Submit(context.Background(), validSubmission())
	if !errors.Is(err, ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded in chain, got %v", err)
	}
	if len(f.mailer.messages()) != 0 {
		t.Error("expected no emails after store timeout")
	}
}

func TestContactService_Submit_MailFailure(t *testing.T) {
	f := newFixture(t)
	f.mailer.sendFunc = func(ctx context.Context, msg mail.Message) error {
		if msg.To == "ann@example.com" {
			return errors.New("mailbox unavailable")
		}
		return nil
	}

	receipt, err := f.svc.Submit(context.Background(), validSubmission())
	if !errors.Is(err, ErrNotification) {
		t.Fatalf("expected ErrNotification, got %v", err)
	}
	if receipt.Outcome != OutcomeStoredNotNotified {
		t.Errorf("expected OutcomeStoredNotNotified, got %v", receipt.Outcome)
	}
	if receipt.Submission == nil || len(f.repo.saved) != 1 {
		t.Fatal("expected record to be stored despite mail failure")
	}
	// The other send still ran to completion.
	if len(f.mailer.messages()) != 2 {
		t.Errorf("expected both sends attempted, got %d", len(f.mailer.messages()))
	}
}

func TestContactService_Submit_MailTimeout(t *testing.T) {
	f := newFixture(t)
	f.svc = NewContactService(ContactDeps{
		Repo:        f.repo,
		Scorer:      f.scorer,
		Mailer:      f.mailer,
		Composer:    mustComposer(t),
		MailTimeout: 10 * time.Millisecond,
	})
	f.mailer.sendFunc = func(ctx context.Context, msg mail.Message) error {
		<-ctx.Done()
		return ctx.Err()
	}

	receipt, err := f.svc.Submit(context.Background(), validSubmission())
	if !errors.Is(err, ErrNotification) {
		t.Fatalf("expected ErrNotification, got %v", err)
	}
	if receipt.Outcome != OutcomeStoredNotNotified {
		t.Errorf("expected OutcomeStoredNotNotified, got %v", receipt.Outcome)
	}
}

func TestContactService_Submit_SendsConcurrently(t *testing.T) {
	f := newFixture(t)
	var wg sync.WaitGroup
	wg.Add(2)
	f.mailer.sendFunc = func(ctx context.Context, msg mail.Message) error {
		wg.Done()
		done := make(chan struct{})
		go func() { wg.Wait(); close(done) }()
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if _, err := f.svc.Submit(context.Background(), validSubmission()); err != nil {
		t.Fatalf("expected both sends to be in flight at once, got %v", err)
	}
}

func TestContactService_Submit_IgnoresClientCancellation(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := f.svc.Submit(ctx, validSubmission()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.repo.saved) != 1 {
		t.Errorf("expected record stored, got %d", len(f.repo.saved))
	}
}

func TestContactService_Submit_RepeatedSubmissionsAreDistinct(t *testing.T) {
	f := newFixture(t)

	for range 2 {
		if _, err := f.svc.Submit(context.Background(), validSubmission()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if len(f.repo.saved) != 2 {
		t.Fatalf("expected 2 records, got %d", len(f.repo.saved))
	}
	if f.repo.saved[0] == f.repo.saved[1] || f.repo.saved[0].ID == f.repo.saved[1].ID {
		t.Error("expected distinct records")
	}
}

func TestOutcome_String(t *testing.T) {
	if OutcomeDelivered.String() != "delivered" {
		t.Errorf("got %q", OutcomeDelivered.String())
	}
	if OutcomeStoredNotNotified.String() != "stored_not_notified" {
		t.Errorf("got %q", OutcomeStoredNotNotified.String())
	}
}
