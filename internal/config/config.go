package config

import (
	"time"
)

// Config is the root application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	SMTP      SMTPConfig      `yaml:"smtp"`
	Mail      MailConfig      `yaml:"mail"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	CORS      CORSConfig      `yaml:"cors"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"             env:"PORT"                    env-default:"5000"`
	ReadTimeout     time.Duration `yaml:"read_timeout"     env:"SERVER_READ_TIMEOUT"     env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout"    env:"SERVER_WRITE_TIMEOUT"    env-default:"30s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"     env:"SERVER_IDLE_TIMEOUT"     env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"10s"`
	// StoreTimeout bounds a single persistence call made while handling a submission.
	StoreTimeout time.Duration `yaml:"store_timeout" env:"STORE_TIMEOUT" env-default:"5s"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL             string        `yaml:"url"                env:"DATABASE_URL"                env-required:"true"`
	MaxConns        int32         `yaml:"max_conns"          env:"DATABASE_MAX_CONNS"          env-default:"10"`
	MinConns        int32         `yaml:"min_conns"          env:"DATABASE_MIN_CONNS"          env-default:"1"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"  env:"DATABASE_MAX_CONN_LIFETIME"  env-default:"1h"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time" env:"DATABASE_MAX_CONN_IDLE_TIME" env-default:"30m"`
}

// SMTPConfig holds outbound mail transport settings.
// An empty Host disables SMTP and mail is only logged.
type SMTPConfig struct {
	Host        string        `yaml:"host"         env:"SMTP_HOST"`
	Port        int           `yaml:"port"         env:"SMTP_PORT"         env-default:"587"`
	User        string        `yaml:"user"         env:"SMTP_USER"`
	Password    string        `yaml:"password"     env:"SMTP_PASS"`
	From        string        `yaml:"from"         env:"SMTP_FROM"`
	TLSPolicy   string        `yaml:"tls_policy"   env:"SMTP_TLS"          env-default:"opportunistic"`
	DialTimeout time.Duration `yaml:"dial_timeout" env:"SMTP_DIAL_TIMEOUT" env-default:"10s"`
}

// Enabled reports whether a real SMTP transport is configured.
func (c SMTPConfig) Enabled() bool {
	return c.Host != ""
}

// Sender returns the envelope From address. SMTP_FROM wins over SMTP_USER.
func (c SMTPConfig) Sender() string {
	if c.From != "" {
		return c.From
	}
	return c.User
}

// MailConfig holds notification content settings.
type MailConfig struct {
	Receiver  string        `yaml:"receiver"  env:"MAIL_RECEIVER"`
	FromName  string        `yaml:"from_name" env:"MAIL_FROM_NAME" env-default:"Portfolio Contact"`
	Signature string        `yaml:"signature" env:"MAIL_SIGNATURE" env-default:"Portfolio Owner"`
	Timeout   time.Duration `yaml:"timeout"   env:"MAIL_TIMEOUT"   env-default:"10s"`
	// BreakerThreshold is the number of consecutive send failures that opens the breaker.
	BreakerThreshold uint          `yaml:"breaker_threshold" env:"MAIL_BREAKER_THRESHOLD" env-default:"5"`
	BreakerDelay     time.Duration `yaml:"breaker_delay"     env:"MAIL_BREAKER_DELAY"     env-default:"30s"`
}

// RateLimitConfig holds settings for the contact route limiter.
type RateLimitConfig struct {
	Max    int           `yaml:"max"    env:"RATE_LIMIT_MAX"    env-default:"5"`
	Window time.Duration `yaml:"window" env:"RATE_LIMIT_WINDOW" env-default:"1h"`
	// Store selects the counter backend: "memory" or "redis".
	Store          string `yaml:"store"           env:"RATE_LIMIT_STORE"           env-default:"memory"`
	RedisURL       string `yaml:"redis_url"       env:"REDIS_URL"`
	TrustedProxies int    `yaml:"trusted_proxies" env:"RATE_LIMIT_TRUSTED_PROXIES" env-default:"0"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigin string `yaml:"allowed_origin" env:"CORS_ALLOWED_ORIGIN" env-default:"*"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
}
