package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/contactd/backend/internal/config"
	"github.com/contactd/backend/internal/handler"
	"github.com/contactd/backend/internal/logging"
	"github.com/contactd/backend/internal/mail"
	"github.com/contactd/backend/internal/metrics"
	"github.com/contactd/backend/internal/ratelimit"
	"github.com/contactd/backend/internal/repository"
	"github.com/contactd/backend/internal/sentiment"
	"github.com/contactd/backend/internal/service"
	"github.com/jonboulle/clockwork"
)

const limiterSweepInterval = 5 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal("failed to load config", "error", err)
	}
	logging.Setup(cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := repository.NewPool(ctx, cfg.Database)
	if err != nil {
		logging.Fatal("failed to connect to database", "error", err)
	}
	defer pool.Close()

	reg := metrics.NewRegistry()
	m := metrics.New(reg)
	clock := clockwork.NewRealClock()

	analyzer, err := sentiment.NewAnalyzer()
	if err != nil {
		logging.Fatal("failed to load sentiment lexicon", "error", err)
	}

	mailer, err := newMailer(cfg, m)
	if err != nil {
		logging.Fatal("failed to configure mailer", "error", err)
	}
	composer, err := mail.NewComposer(cfg.Mail)
	if err != nil {
		logging.Fatal("failed to parse mail templates", "error", err)
	}

	store, closeStore, err := newLimiterStore(ctx, cfg.RateLimit, clock)
	if err != nil {
		logging.Fatal("failed to configure rate limiter", "error", err)
	}
	defer closeStore()

	contactService := service.NewContactService(service.ContactDeps{
		Repo:         repository.NewPgContactRepository(pool),
		Scorer:       analyzer,
		Mailer:       mailer,
		Composer:     composer,
		Metrics:      m,
		Clock:        clock,
		StoreTimeout: cfg.Server.StoreTimeout,
		MailTimeout:  cfg.Mail.Timeout,
	})

	h := handler.New(pool, cfg.CORS.AllowedOrigin)
	contactHandler := handler.NewContactHandler(contactService)
	limiter := handler.NewRateLimiter(store, cfg.RateLimit.TrustedProxies, m)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", h.Health)
	mux.Handle("POST /api/contact", limiter.Middleware(http.HandlerFunc(contactHandler.Submit)))
	mux.Handle("GET /metrics", metrics.Handler(reg))

	// Instrument sits directly on the mux so it sees the matched pattern.
	var root http.Handler = handler.Instrument(m)(mux)
	root = handler.RequestLogger(root)
	root = handler.RequestID(root)
	root = h.CORS(root)
	root = handler.SecurityHeaders(root)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      root,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		slog.Info("server listening",
			"addr", server.Addr,
			"rate_limit_store", cfg.RateLimit.Store,
			"smtp_enabled", cfg.SMTP.Enabled(),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal("server error", "error", err)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}

// newMailer returns the SMTP transport behind a circuit breaker, or a
// log-only mailer when no SMTP host is configured.
func newMailer(cfg *config.Config, m *metrics.Metrics) (mail.Mailer, error) {
	if !cfg.SMTP.Enabled() {
		slog.Warn("SMTP_HOST not set, emails will only be logged")
		return mail.LogMailer{}, nil
	}
	smtp, err := mail.NewSMTPMailer(cfg.SMTP)
	if err != nil {
		return nil, err
	}
	return mail.NewBreakerMailer(smtp, cfg.Mail.BreakerThreshold, cfg.Mail.BreakerDelay, m.SetMailBreakerState), nil
}

func newLimiterStore(ctx context.Context, cfg config.RateLimitConfig, clock clockwork.Clock) (ratelimit.Store, func(), error) {
	switch cfg.Store {
	case "redis":
		rdb, err := ratelimit.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		return ratelimit.NewRedisStore(rdb, clock, cfg.Max, cfg.Window), func() { _ = rdb.Close() }, nil
	default:
		store := ratelimit.NewMemoryStore(cfg.Max, cfg.Window, clock)
		go store.Run(ctx, limiterSweepInterval)
		return store, func() {}, nil
	}
}
