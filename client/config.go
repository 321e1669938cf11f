package client

import (
	"fmt"
	"net/url"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/storynest/storynest/client/internal/shardqueue"
)

// EnvPrefix is the environment prefix read by LoadConfig.
const EnvPrefix = "STORYNEST"

// Config holds the environment-driven settings of a Client.
// Example: STORYNEST_BASE_URL=https://api.example.com STORYNEST_CACHE_TTL=2m.
type Config struct {
	BaseURL            string        `envconfig:"BASE_URL" default:"http://127.0.0.1:8000"`
	APIKey             string        `envconfig:"API_KEY"`
	HTTPTimeout        time.Duration `envconfig:"HTTP_TIMEOUT" default:"30s"`
	CacheTTL           time.Duration `envconfig:"CACHE_TTL" default:"5m"`
	Debug              bool          `envconfig:"DEBUG" default:"false"`
	LogLevel           string        `envconfig:"LOG_LEVEL" default:"info"`
	ParentUnlockWindow time.Duration `envconfig:"PARENT_UNLOCK_WINDOW" default:"5m"`

	// Queue is read separately under STORYNEST_QUEUE_.
	Queue shardqueue.Config `ignored:"true"`
}

// LoadConfig reads Config from STORYNEST_* environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	q, err := shardqueue.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load queue config: %w", err)
	}
	cfg.Queue = q
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the client cannot start with.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("STORYNEST_BASE_URL must not be empty")
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("STORYNEST_BASE_URL %q is not an absolute URL", c.BaseURL)
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("STORYNEST_HTTP_TIMEOUT must be positive")
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("STORYNEST_CACHE_TTL must be positive")
	}
	if c.ParentUnlockWindow <= 0 {
		return fmt.Errorf("STORYNEST_PARENT_UNLOCK_WINDOW must be positive")
	}
	return nil
}

// Options converts the configuration into client options.
func (c *Config) Options() []Option {
	opts := []Option{
		WithHTTPTimeout(c.HTTPTimeout),
		WithCacheTTL(c.CacheTTL),
		WithParentUnlockWindow(c.ParentUnlockWindow),
		WithQueueConfig(c.Queue),
		WithDebugLogging(c.Debug),
	}
	if c.APIKey != "" {
		opts = append(opts, WithAPIKey(c.APIKey))
	}
	return opts
}
