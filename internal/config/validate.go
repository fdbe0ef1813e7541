package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks cross-field constraints that struct tags cannot express.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Server.StoreTimeout <= 0 {
		errs = append(errs, errors.New("STORE_TIMEOUT must be positive"))
	}

	if c.SMTP.Enabled() {
		if c.SMTP.Sender() == "" {
			errs = append(errs, errors.New("SMTP_USER or SMTP_FROM is required when SMTP_HOST is set"))
		}
		if c.Mail.Receiver == "" {
			errs = append(errs, errors.New("MAIL_RECEIVER is required when SMTP_HOST is set"))
		}
		switch strings.ToLower(c.SMTP.TLSPolicy) {
		case "opportunistic", "mandatory", "none":
		default:
			errs = append(errs, fmt.Errorf("SMTP_TLS must be one of opportunistic, mandatory, none; got %q", c.SMTP.TLSPolicy))
		}
	}
	if c.Mail.Timeout <= 0 {
		errs = append(errs, errors.New("MAIL_TIMEOUT must be positive"))
	}

	if c.RateLimit.Max <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_MAX must be positive"))
	}
	if c.RateLimit.Window <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_WINDOW must be positive"))
	}
	if c.RateLimit.TrustedProxies < 0 {
		errs = append(errs, errors.New("RATE_LIMIT_TRUSTED_PROXIES must not be negative"))
	}
	switch c.RateLimit.Store {
	case "memory":
	case "redis":
		if c.RateLimit.RedisURL == "" {
			errs = append(errs, errors.New("REDIS_URL is required when RATE_LIMIT_STORE=redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("RATE_LIMIT_STORE must be memory or redis, got %q", c.RateLimit.Store))
	}

	return errors.Join(errs...)
}
