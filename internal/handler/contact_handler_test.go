package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/contactd/backend/internal/model"
	"github.com/contactd/backend/internal/service"
)

// ---------------------------------------------------------------------------
// Mock ContactService
// ---------------------------------------------------------------------------

type mockContactService struct {
	calls      int
	submitFunc func(ctx context.Context, in service.Submission) (service.Receipt, error)
}

func (m *mockContactService) Submit(ctx context.Context, in service.Submission) (service.Receipt, error) {
	m.calls++
	if m.submitFunc != nil {
		return m.submitFunc(ctx, in)
	}
	return service.Receipt{Submission: &model.ContactSubmission{ID: "c-1"}}, nil
}

func postContact(t *testing.T, h *ContactHandler, body string, mutate ...func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/contact", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for _, m := range mutate {
		m(req)
	}
	rec := httptest.NewRecorder()
	h.Submit(rec, req)
	return rec
}

func decodeMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return resp["message"]
}

// ---------------------------------------------------------------------------
// POST /api/contact tests
// ---------------------------------------------------------------------------

func TestContactHandler_Submit_Success(t *testing.T) {
	var captured service.Submission
	mock := &mockContactService{
		submitFunc: func(ctx context.Context, in service.Submission) (service.Receipt, error) {
			captured = in
			return service.Receipt{Outcome: service.OutcomeDelivered}, nil
		},
	}
	h := NewContactHandler(mock)

	rec := postContact(t, h, `{"name":"Ann","email":"ann@example.com","message":"I love this!"}`, func(r *http.Request) {
		r.RemoteAddr = "198.51.100.4:5555"
		r.Header.Set("User-Agent", "Mozilla/5.0")
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := decodeMessage(t, rec); got != "Message sent successfully" {
		t.Errorf("unexpected message %q", got)
	}
	if captured.Name != "Ann" || captured.Email != "ann@example.com" || captured.Message != "I love this!" {
		t.Errorf("fields not passed through: %+v", captured)
	}
	if captured.IP != "198.51.100.4" {
		t.Errorf("expected ip from remote addr, got %q", captured.IP)
	}
	if captured.UserAgent != "Mozilla/5.0" {
		t.Errorf("expected user agent, got %q", captured.UserAgent)
	}
}

func TestContactHandler_Submit_ForwardedForFirstEntry(t *testing.T) {
	var captured service.Submission
	mock := &mockContactService{
		submitFunc: func(ctx context.Context, in service.Submission) (service.Receipt, error) {
			captured = in
			return service.Receipt{}, nil
		},
	}
	h := NewContactHandler(mock)

	postContact(t, h, `{"name":"a","email":"b","message":"c"}`, func(r *http.Request) {
		r.Header.Set("X-Forwarded-For", " , 203.0.113.9, 10.0.0.1")
	})

	if captured.IP != "203.0.113.9" {
		t.Errorf("expected first non-empty forwarded entry, got %q", captured.IP)
	}
}

func TestContactHandler_Submit_HoneypotPassedToService(t *testing.T) {
	mock := &mockContactService{
		submitFunc: func(ctx context.Context, in service.Submission) (service.Receipt, error) {
			if in.Website == "" {
				t.Error("expected website field to reach the service")
			}
			return service.Receipt{}, service.ErrSpamDetected
		},
	}
	h := NewContactHandler(mock)

	rec := postContact(t, h, `{"name":"Bot","email":"bot@x.io","message":"hi","website":"http://spam"}`)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
	if got := decodeMessage(t, rec); got != "Spam detected." {
		t.Errorf("unexpected message %q", got)
	}
}

func TestContactHandler_Submit_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{"spam", service.ErrSpamDetected, http.StatusBadRequest, "Spam detected."},
		{"validation", fmt.Errorf("%w: %w", service.ErrValidation, &service.FieldError{Field: "name", Reason: "required"}), http.StatusBadRequest, "Name, email and message are required."},
		{"persistence", fmt.Errorf("%w: db down", service.ErrPersistence), http.StatusInternalServerError, "Failed to send message."},
		{"notification", fmt.Errorf("%w: smtp down", service.ErrNotification), http.StatusInternalServerError, "Failed to send message."},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, "Failed to send message."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockContactService{
				submitFunc: func(ctx context.Context, in service.Submission) (service.Receipt, error) {
					return service.Receipt{}, tt.err
				},
			}
			rec := postContact(t, NewContactHandler(mock), `{"name":"a","email":"b","message":"c"}`)

			if rec.Code != tt.wantStatus {
				t.Errorf("expected %d, got %d", tt.wantStatus, rec.Code)
			}
			if got := decodeMessage(t, rec); got != tt.wantMsg {
				t.Errorf("expected %q, got %q", tt.wantMsg, got)
			}
		})
	}
}

func TestContactHandler_Submit_NotificationFailureHidesDetails(t *testing.T) {
	mock := &mockContactService{
		submitFunc: func(ctx context.Context, in service.Submission) (service.Receipt, error) {
			return service.Receipt{
				Submission: &model.ContactSubmission{ID: "c-9"},
				Outcome:    service.OutcomeStoredNotNotified,
			}, fmt.Errorf("%w: 550 mailbox unavailable", service.ErrNotification)
		},
	}
	rec := postContact(t, NewContactHandler(mock), `{"name":"a","email":"b","message":"c"}`)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "550") {
		t.Errorf("internal error leaked into response: %s", rec.Body.String())
	}
}

func TestContactHandler_Submit_InvalidJSON(t *testing.T) {
	mock := &mockContactService{}
	rec := postContact(t, NewContactHandler(mock), `{not json`)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
	if got := decodeMessage(t, rec); got != "Invalid request body." {
		t.Errorf("unexpected message %q", got)
	}
	if mock.calls != 0 {
		t.Error("service must not be called for an invalid body")
	}
}

func TestContactHandler_Submit_BodyTooLarge(t *testing.T) {
	mock := &mockContactService{}
	big := `{"name":"a","email":"b","message":"` + strings.Repeat("x", maxBodyBytes) + `"}`
	rec := postContact(t, NewContactHandler(mock), big)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
	if mock.calls != 0 {
		t.Error("service must not be called for an oversized body")
	}
}

func TestContactHandler_Submit_ContentType(t *testing.T) {
	rec := postContact(t, NewContactHandler(&mockContactService{}), `{"name":"a","email":"b","message":"c"}`)
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected application/json, got %q", ct)
	}
}
