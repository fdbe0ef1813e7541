package handler

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/contactd/backend/internal/metrics"
	"github.com/contactd/backend/internal/ratelimit"
)

const msgTooManyRequests = "Too many requests from this IP, please try again after an hour."

// SecurityHeaders adds security response headers (CSP, X-Frame-Options, etc.)
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("X-XSS-Protection", "0")
		h.Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
		h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		h.Set("Strict-Transport-Security", "max-age=63072000; includeSubDomains")
		next.ServeHTTP(w, r)
	})
}

// RateLimiter enforces a per-client quota backed by a ratelimit.Store.
type RateLimiter struct {
	store             ratelimit.Store
	trustedProxyCount int
	metrics           *metrics.Metrics
}

// NewRateLimiter creates a rate limiter over store. trustedProxyCount is the number
// of reverse proxies in front of the service that append to X-Forwarded-For;
// zero means the connection's remote address is the client.
func NewRateLimiter(store ratelimit.Store, trustedProxyCount int, m *metrics.Metrics) *RateLimiter {
	return &RateLimiter{
		store:             store,
		trustedProxyCount: max(trustedProxyCount, 0),
		metrics:           m,
	}
}

// Middleware returns an http.Handler that enforces rate limits.
// Denied requests never reach next. A store failure lets the request through.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := rl.clientIP(r)

		d, err := rl.store.Allow(r.Context(), ip)
		if err != nil {
			rl.metrics.ObserveRateLimitError()
			slog.ErrorContext(r.Context(), "rate limit store failed, allowing request",
				"ip", ip,
				"error", err,
			)
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("RateLimit-Limit", strconv.Itoa(d.Limit))
		w.Header().Set("RateLimit-Remaining", strconv.Itoa(d.Remaining))

		if !d.Allowed {
			rl.metrics.ObserveRateLimited()
			slog.WarnContext(r.Context(), "rate limit exceeded", "ip", ip)
			w.Header().Set("Retry-After", retryAfterSeconds(d.RetryAfter))
			writeMessage(w, http.StatusTooManyRequests, msgTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func retryAfterSeconds(d time.Duration) string {
	secs := int(d.Seconds()) + 1
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}

// clientIP extracts the real client IP, reading from the rightmost trusted
// proxy position in X-Forwarded-For to prevent spoofing.
func (rl *RateLimiter) clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" && rl.trustedProxyCount > 0 {
		parts := strings.Split(xff, ",")
		// The rightmost entry added by our infrastructure is at
		// index len(parts) - trustedProxyCount.
		idx := len(parts) - rl.trustedProxyCount
		if idx >= 0 && idx < len(parts) {
			return strings.TrimSpace(parts[idx])
		}
	}
	return remoteHost(r)
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
