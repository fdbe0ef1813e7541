package handler

import (
	"net/http"

	"github.com/contactd/backend/internal/repository"
)

type Handler struct {
	db            repository.DB
	allowedOrigin string
}

func New(db repository.DB, allowedOrigin string) *Handler {
	if allowedOrigin == "" {
		allowedOrigin = "*"
	}
	return &Handler{db: db, allowedOrigin: allowedOrigin}
}

func (h *Handler) CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", h.allowedOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
		w.Header().Set("Access-Control-Expose-Headers", "Retry-After, RateLimit-Limit, RateLimit-Remaining, X-Request-ID")
		// Browsers reject credentials with a wildcard origin.
		if h.allowedOrigin != "*" {
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Add("Vary", "Origin")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
