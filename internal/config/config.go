package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Hedging holds the single documented tuning value the core consumes
// directly (spec §6): the liability floor below which the position is
// closed instead of resized.
type Hedging struct {
	MinimumPositiveLiabilityUSD float64 `yaml:"minimum_positive_liability_usd"`
}

// Wallet selects and configures the WalletClient implementation.
type Wallet struct {
	Adapter         string  `yaml:"adapter"` // "http" | "mock"
	BaseURL         string  `yaml:"base_url"`
	TimeoutSeconds  int     `yaml:"timeout_seconds"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
}

// Strategy selects the HedgingStrategy implementation. Real spot/futures
// math is out of scope (spec §1 Non-goals); "mock" is the only shipped
// implementation and doubles as the dry-run path.
type Strategy struct {
	Adapter string `yaml:"adapter"` // "mock"
	Name    string `yaml:"name"`
}

// Database configures the TransferLedger's persistence backend.
type Database struct {
	Driver string `yaml:"driver"` // "postgres" | "memory"
	DSN    string `yaml:"dsn"`
}

// Server configures the outward-facing query surface.
type Server struct {
	Addr string `yaml:"addr"`
}

// Alerting configures the webhook alerter.
type Alerting struct {
	Enabled         bool   `yaml:"enabled"`
	WebhookURL      string `yaml:"webhook_url"`
	RateLimitPerMin int    `yaml:"rate_limit_per_min"`
}

type Root struct {
	Hedging             Hedging  `yaml:"hedging"`
	Wallet              Wallet   `yaml:"wallet"`
	Strategy            Strategy `yaml:"strategy"`
	Database            Database `yaml:"database"`
	Server              Server   `yaml:"server"`
	Alerting            Alerting `yaml:"alerting"`
	TickIntervalSeconds int      `yaml:"tick_interval_seconds"`
}

// ErrMissingSelector is a ConfigurationError (spec §7): absent wallet or
// strategy selectors are fatal at construction, never surfaced from tick().
type ErrMissingSelector struct {
	Field string
}

func (e *ErrMissingSelector) Error() string {
	return fmt.Sprintf("configuration error: %s selector is required", e.Field)
}

func Load(path string) (Root, error) {
	var c Root
	b, err := os.ReadFile(path)
	if err != nil {
		return c, err
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return c, err
	}

	if c.Hedging.MinimumPositiveLiabilityUSD < 0 {
		return c, fmt.Errorf("hedging.minimum_positive_liability_usd must be non-negative, got %v", c.Hedging.MinimumPositiveLiabilityUSD)
	}
	if c.Wallet.Adapter == "" {
		return c, &ErrMissingSelector{Field: "wallet.adapter"}
	}
	if c.Strategy.Adapter == "" {
		return c, &ErrMissingSelector{Field: "strategy.adapter"}
	}

	if c.Wallet.TimeoutSeconds == 0 {
		c.Wallet.TimeoutSeconds = 10
	}
	if c.Wallet.RateLimitPerSec == 0 {
		c.Wallet.RateLimitPerSec = 5
	}
	if c.Wallet.RateLimitBurst == 0 {
		c.Wallet.RateLimitBurst = 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "memory"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8090"
	}
	if c.TickIntervalSeconds == 0 {
		c.TickIntervalSeconds = 15
	}
	if c.Alerting.RateLimitPerMin == 0 {
		c.Alerting.RateLimitPerMin = 10
	}

	return c, nil
}
