package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/lexiqai/voice-catalog/internal/voices"
)

// Config holds all configuration for the voice catalog service
type Config struct {
	// Server configuration
	Port     string `envconfig:"PORT" default:"8080"`
	GRPCPort string `envconfig:"GRPC_PORT" default:"9090"`

	// Voice catalog configuration
	RegistrationMode string `envconfig:"REGISTRATION_MODE" default:"single"` // single (one voice loaded at a time) or all
	VoiceManifest    string `envconfig:"VOICE_MANIFEST" required:"true"`     // YAML list of voices
	VoiceDir         string `envconfig:"VOICE_DIR" default:"./voices"`       // Base directory for relative voice paths
	DefaultLocale    string `envconfig:"DEFAULT_LOCALE" default:""`          // Locale loaded at startup, e.g. en-US
	EngineMaxLoaded  int    `envconfig:"ENGINE_MAX_LOADED" default:"0"`      // Upper bound on loaded voices, 0 = unlimited

	// Resilience configuration
	CircuitBreakerMaxFailures  int `envconfig:"CIRCUIT_BREAKER_MAX_FAILURES" default:"5"`   // Failures before opening circuit
	CircuitBreakerResetTimeout int `envconfig:"CIRCUIT_BREAKER_RESET_TIMEOUT" default:"30"` // Seconds before attempting recovery
	RetryMaxAttempts           int `envconfig:"RETRY_MAX_ATTEMPTS" default:"3"`             // Maximum load attempts
	RetryInitialBackoff        int `envconfig:"RETRY_INITIAL_BACKOFF" default:"100"`        // Initial backoff in milliseconds

	// Observability configuration
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`       // Log level: debug, info, warn, error
	LogPretty      bool   `envconfig:"LOG_PRETTY" default:"false"`     // Pretty print logs (for development)
	MetricsEnabled bool   `envconfig:"METRICS_ENABLED" default:"true"` // Enable Prometheus metrics
	EventsEnabled  bool   `envconfig:"EVENTS_ENABLED" default:"true"`  // Enable the /events websocket feed
}

// Load reads configuration from environment variables
// It first attempts to load from .env file if it exists, then from environment
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	return LoadFromEnv()
}

// LoadFromEnv loads configuration directly from environment variables
// without attempting to load .env file (useful for containerized deployments)
func LoadFromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks values envconfig cannot
func (c *Config) Validate() error {
	if c.VoiceManifest == "" {
		return fmt.Errorf("VOICE_MANIFEST is required")
	}
	if _, err := voices.ParsePolicy(c.RegistrationMode); err != nil {
		return fmt.Errorf("REGISTRATION_MODE: %w", err)
	}
	if c.DefaultLocale != "" {
		if _, err := voices.ParseLocale(c.DefaultLocale); err != nil {
			return fmt.Errorf("DEFAULT_LOCALE: %w", err)
		}
	}
	if c.EngineMaxLoaded < 0 {
		return fmt.Errorf("ENGINE_MAX_LOADED must not be negative")
	}
	if c.RetryMaxAttempts < 1 {
		return fmt.Errorf("RETRY_MAX_ATTEMPTS must be at least 1")
	}
	return nil
}

// Policy returns the catalog registration policy for RegistrationMode
func (c *Config) Policy() voices.Policy {
	p, err := voices.ParsePolicy(c.RegistrationMode)
	if err != nil {
		return voices.ExclusiveSingle
	}
	return p
}

// CircuitBreakerTimeout returns the reset timeout as a duration
func (c *Config) CircuitBreakerTimeout() time.Duration {
	return time.Duration(c.CircuitBreakerResetTimeout) * time.Second
}

// RetryBackoff returns the initial retry backoff as a duration
func (c *Config) RetryBackoff() time.Duration {
	return time.Duration(c.RetryInitialBackoff) * time.Millisecond
}
