package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/contactd/backend/internal/service"
)

// maxBodyBytes caps the request body; the message itself is limited to 5000 runes.
const maxBodyBytes = 64 << 10

// Fixed response messages. Internal error details only go to the log.
const (
	msgSuccess        = "Message sent successfully"
	msgSpam           = "Spam detected."
	msgFieldsRequired = "Name, email and message are required."
	msgSendFailed     = "Failed to send message."
	msgInvalidBody    = "Invalid request body."
)

// ContactHandler handles contact form submissions.
type ContactHandler struct {
	contactService service.ContactService
}

// NewContactHandler creates a ContactHandler with the given service.
func NewContactHandler(contactService service.ContactService) *ContactHandler {
	return &ContactHandler{contactService: contactService}
}

// submitRequest is the expected JSON body for POST /api/contact.
type submitRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
	Website string `json:"website"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// Submit handles POST /api/contact.
func (h *ContactHandler) Submit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	receipt, err := h.contactService.Submit(r.Context(), service.Submission{
		Name:      req.Name,
		Email:     req.Email,
		Message:   req.Message,
		Website:   req.Website,
		IP:        sourceAddress(r),
		UserAgent: r.UserAgent(),
	})
	switch {
	case err == nil:
		writeMessage(w, http.StatusOK, msgSuccess)
	case errors.Is(err, service.ErrSpamDetected):
		writeMessage(w, http.StatusBadRequest, msgSpam)
	case errors.Is(err, service.ErrValidation):
		slog.InfoContext(r.Context(), "contact submission rejected", "reason", err.Error())
		writeMessage(w, http.StatusBadRequest, msgFieldsRequired)
	case errors.Is(err, service.ErrNotification):
		// The record is stored; the response contract still reports a failure.
		var id string
		if receipt.Submission != nil {
			id = receipt.Submission.ID
		}
		slog.ErrorContext(r.Context(), "contact submission stored but not notified",
			"id", id,
			"outcome", receipt.Outcome.String(),
			"error", err,
		)
		writeMessage(w, http.StatusInternalServerError, msgSendFailed)
	default:
		slog.ErrorContext(r.Context(), "contact submission failed", "error", err)
		writeMessage(w, http.StatusInternalServerError, msgSendFailed)
	}
}

// sourceAddress is the address recorded with the submission: the first
// X-Forwarded-For entry when present, otherwise the connection's remote host.
// It is informational only; the rate limiter derives its key separately.
func sourceAddress(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		for _, part := range strings.Split(xff, ",") {
			if ip := strings.TrimSpace(part); ip != "" {
				return ip
			}
		}
	}
	return remoteHost(r)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(messageResponse{Message: msg}); err != nil {
		slog.Error("failed to write response", "error", err)
	}
}
