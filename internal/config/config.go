// Package config loads service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the full service configuration.
type Config struct {
	Env      string `env:"APP_ENV" envDefault:"dev"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	HTTP       HTTP       `envPrefix:"HTTP_"`
	Gateway    Gateway    `envPrefix:"GATEWAY_"`
	Submission Submission `envPrefix:"SUBMISSION_"`
	Statuses   Statuses   `envPrefix:"STATUS_"`

	JournalPath  string `env:"JOURNAL_PATH"`
	OTelEndpoint string `env:"OTEL_ENDPOINT"`
}

// HTTP configures the inbound server.
type HTTP struct {
	Addr              string        `env:"ADDR" envDefault:":8080"`
	ReadTimeout       time.Duration `env:"READ_TIMEOUT" envDefault:"15s"`
	ReadHeaderTimeout time.Duration `env:"READ_HEADER_TIMEOUT" envDefault:"3s"`
	WriteTimeout      time.Duration `env:"WRITE_TIMEOUT" envDefault:"2m"`
	IdleTimeout       time.Duration `env:"IDLE_TIMEOUT" envDefault:"60s"`
	MaxBodyBytes      int64         `env:"MAX_BODY_BYTES" envDefault:"10485760"`
	// RequestTimeout bounds event lookups and single ticket creation.
	RequestTimeout    time.Duration `env:"REQUEST_TIMEOUT" envDefault:"10s"`
}

// Gateway configures the remote resource API client.
type Gateway struct {
	BaseURL     string        `env:"BASE_URL" envDefault:"http://localhost:3333/api"`
	Token       string        `env:"TOKEN"`
	Timeout     time.Duration `env:"TIMEOUT" envDefault:"10s"`
	MaxInFlight int           `env:"MAX_IN_FLIGHT" envDefault:"16"`

	BreakerFailures uint32        `env:"BREAKER_FAILURES" envDefault:"5"`
	BreakerCooldown time.Duration `env:"BREAKER_COOLDOWN" envDefault:"30s"`
}

// Submission configures one orchestration run.
type Submission struct {
	Timeout    time.Duration `env:"TIMEOUT" envDefault:"90s"`
	Compensate bool          `env:"COMPENSATE" envDefault:"false"`
}

// Statuses names the status records resolved per module.
type Statuses struct {
	EventDraft      string `env:"EVENT_DRAFT" envDefault:"Rascunho"`
	TicketAvailable string `env:"TICKET_AVAILABLE" envDefault:"Disponível"`
	CouponAvailable string `env:"COUPON_AVAILABLE" envDefault:"Disponível"`
}

// Load parses the environment into a Config and validates it.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the service cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.Gateway.BaseURL == "" {
		errs = append(errs, errors.New("GATEWAY_BASE_URL is required"))
	}
	if c.HTTP.RequestTimeout <= 0 {
		errs = append(errs, errors.New("HTTP_REQUEST_TIMEOUT must be positive"))
	}
	if c.Submission.Timeout <= 0 {
		errs = append(errs, errors.New("SUBMISSION_TIMEOUT must be positive"))
	}
	if c.Statuses.EventDraft == "" || c.Statuses.TicketAvailable == "" || c.Statuses.CouponAvailable == "" {
		errs = append(errs, errors.New("STATUS_* names must not be empty"))
	}
	return errors.Join(errs...)
}
