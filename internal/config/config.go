// Package config handles configuration management with validation
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"strategy_rebalancer/pkg/tradingutils"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultBaseURL          = "https://alphainsider.com/api"
	DefaultBaseCurrency     = "USD"
	DefaultCashInstrumentID = "ubfhvYUsgvMIuJPwr76My"
	DefaultCashLookupKey    = "USD:ALPHAINSIDER"
	DefaultCryptoVenue      = "COINBASE"
	DefaultTimeoutSeconds   = 5
	DefaultRateLimit        = 5.0
	DefaultRateBurst        = 5
)

// Config represents the complete configuration structure
type Config struct {
	App       AppConfig       `yaml:"app"`
	API       APIConfig       `yaml:"api"`
	Rebalance RebalanceConfig `yaml:"rebalance"`
	System    SystemConfig    `yaml:"system"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// AppConfig contains application-level settings
type AppConfig struct {
	Name   string `yaml:"name"`
	DryRun bool   `yaml:"dry_run"`
}

// APIConfig contains the trading API connection settings
type APIConfig struct {
	BaseURL        string  `yaml:"base_url"`
	APIKey         Secret  `yaml:"api_key" validate:"required"`
	StrategyID     string  `yaml:"strategy_id" validate:"required"`
	TimeoutSeconds int     `yaml:"timeout_seconds" validate:"min=1,max=120"`
	RateLimit      float64 `yaml:"rate_limit" validate:"min=0"`
	RateBurst      int     `yaml:"rate_burst" validate:"min=0"`
}

// Timeout returns the per-request timeout
func (a APIConfig) Timeout() time.Duration {
	return time.Duration(a.TimeoutSeconds) * time.Second
}

// PositionConfig is one desired holding. Amount stays a string so no float ever touches it.
type PositionConfig struct {
	Symbol string `yaml:"symbol" validate:"required"`
	Amount string `yaml:"amount" validate:"required"`
}

// RebalanceConfig contains the target portfolio and cash/venue conventions
type RebalanceConfig struct {
	BaseCurrency         string           `yaml:"base_currency"`
	CashInstrumentID     string           `yaml:"cash_instrument_id"`
	CashLookupKey        string           `yaml:"cash_lookup_key"`
	CryptoVenue          string           `yaml:"crypto_venue"`
	AbortOnCancelFailure *bool            `yaml:"abort_on_cancel_failure"`
	Positions            []PositionConfig `yaml:"positions" validate:"required,min=1"`
}

// ShouldAbortOnCancelFailure defaults to true when unset
func (r RebalanceConfig) ShouldAbortOnCancelFailure() bool {
	return r.AbortOnCancelFailure == nil || *r.AbortOnCancelFailure
}

// SystemConfig contains system settings
type SystemConfig struct {
	LogLevel  string `yaml:"log_level" validate:"required,oneof=DEBUG INFO WARN ERROR FATAL"`
	LogFormat string `yaml:"log_format" validate:"oneof=console json"`
}

// TelemetryConfig contains telemetry settings
type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	MetricsFile string `yaml:"metrics_file"`
	// TraceFile receives spans and OTel log records as JSON lines; empty disables tracing
	TraceFile string `yaml:"trace_file"`
}

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s' (value: %v): %s", e.Field, e.Value, e.Message)
}

// LoadDotEnv loads KEY=VALUE pairs from the given files into the process environment
// without overriding variables that are already set. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// LoadConfig loads configuration from a YAML file with environment variable expansion
func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes, defaults and validates raw YAML
func Parse(data []byte) (*Config, error) {
	expandedData := expandEnvVars(string(data))

	var config Config
	if err := yaml.Unmarshal([]byte(expandedData), &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.ApplyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// ApplyDefaults fills zero values with the platform conventions
func (c *Config) ApplyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "strategy_rebalancer"
	}
	if c.API.BaseURL == "" {
		c.API.BaseURL = DefaultBaseURL
	}
	c.API.BaseURL = strings.TrimRight(c.API.BaseURL, "/")
	if c.API.TimeoutSeconds == 0 {
		c.API.TimeoutSeconds = DefaultTimeoutSeconds
	}
	if c.API.RateLimit == 0 {
		c.API.RateLimit = DefaultRateLimit
	}
	if c.API.RateBurst == 0 {
		c.API.RateBurst = DefaultRateBurst
	}
	if c.Rebalance.BaseCurrency == "" {
		c.Rebalance.BaseCurrency = DefaultBaseCurrency
	}
	if c.Rebalance.CashInstrumentID == "" {
		c.Rebalance.CashInstrumentID = DefaultCashInstrumentID
	}
	if c.Rebalance.CashLookupKey == "" {
		c.Rebalance.CashLookupKey = DefaultCashLookupKey
	}
	if c.Rebalance.CryptoVenue == "" {
		c.Rebalance.CryptoVenue = DefaultCryptoVenue
	}
	if c.System.LogLevel == "" {
		c.System.LogLevel = "INFO"
	}
	if c.System.LogFormat == "" {
		c.System.LogFormat = "console"
	}
}

// Validate performs comprehensive validation of the configuration
func (c *Config) Validate() error {
	var errs []string

	if err := c.validateAPIConfig(); err != nil {
		errs = append(errs, err.Error())
	}

	if err := c.validateRebalanceConfig(); err != nil {
		errs = append(errs, err.Error())
	}

	if err := c.validateSystemConfig(); err != nil {
		errs = append(errs, err.Error())
	}

	if err := c.validateTelemetryConfig(); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n%s", strings.Join(errs, "\n"))
	}

	return nil
}

func (c *Config) validateAPIConfig() error {
	if c.API.APIKey == "" {
		return ValidationError{
			Field:   "api.api_key",
			Message: "API key is required",
		}
	}
	if c.API.StrategyID == "" {
		return ValidationError{
			Field:   "api.strategy_id",
			Message: "strategy id is required",
		}
	}
	if c.API.TimeoutSeconds < 1 || c.API.TimeoutSeconds > 120 {
		return ValidationError{
			Field:   "api.timeout_seconds",
			Value:   c.API.TimeoutSeconds,
			Message: "must be between 1 and 120",
		}
	}
	if c.API.RateLimit < 0 {
		return ValidationError{
			Field:   "api.rate_limit",
			Value:   c.API.RateLimit,
			Message: "must not be negative",
		}
	}
	return nil
}

func (c *Config) validateRebalanceConfig() error {
	if len(c.Rebalance.Positions) == 0 {
		return ValidationError{
			Field:   "rebalance.positions",
			Message: "at least one desired position is required",
		}
	}

	seen := make(map[string]bool, len(c.Rebalance.Positions))
	for i, p := range c.Rebalance.Positions {
		field := fmt.Sprintf("rebalance.positions[%d]", i)
		if strings.TrimSpace(p.Symbol) == "" {
			return ValidationError{
				Field:   field + ".symbol",
				Message: "symbol is required",
			}
		}
		if seen[p.Symbol] {
			return ValidationError{
				Field:   field + ".symbol",
				Value:   p.Symbol,
				Message: "duplicate symbol",
			}
		}
		seen[p.Symbol] = true

		amount, err := tradingutils.ParseDecimal(p.Amount)
		if err != nil {
			return ValidationError{
				Field:   field + ".amount",
				Value:   p.Amount,
				Message: err.Error(),
			}
		}
		if amount.IsNegative() {
			return ValidationError{
				Field:   field + ".amount",
				Value:   p.Amount,
				Message: "amount must not be negative",
			}
		}
	}
	return nil
}

func (c *Config) validateSystemConfig() error {
	validLevels := []string{"DEBUG", "INFO", "WARN", "ERROR", "FATAL"}
	if !contains(validLevels, strings.ToUpper(c.System.LogLevel)) {
		return ValidationError{
			Field:   "system.log_level",
			Value:   c.System.LogLevel,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(validLevels, ", ")),
		}
	}
	if !contains([]string{"console", "json"}, strings.ToLower(c.System.LogFormat)) {
		return ValidationError{
			Field:   "system.log_format",
			Value:   c.System.LogFormat,
			Message: "must be console or json",
		}
	}
	return nil
}

func (c *Config) validateTelemetryConfig() error {
	if c.Telemetry.MetricsFile != "" && !c.Telemetry.Enabled {
		return ValidationError{
			Field:   "telemetry.metrics_file",
			Value:   c.Telemetry.MetricsFile,
			Message: "requires telemetry.enabled",
		}
	}
	if c.Telemetry.TraceFile != "" && !c.Telemetry.Enabled {
		return ValidationError{
			Field:   "telemetry.trace_file",
			Value:   c.Telemetry.TraceFile,
			Message: "requires telemetry.enabled",
		}
	}
	return nil
}

// String returns a string representation of the configuration (with sensitive data masked)
func (c *Config) String() string {
	data, _ := yaml.Marshal(c)
	return string(data)
}

// Helper functions

func expandEnvVars(s string) string {
	return os.Expand(s, os.Getenv)
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

// DefaultConfig returns a default configuration for testing
func DefaultConfig() *Config {
	cfg := &Config{
		API: APIConfig{
			APIKey:     "test_api_key",
			StrategyID: "test_strategy",
		},
		Rebalance: RebalanceConfig{
			Positions: []PositionConfig{
				{Symbol: "USD", Amount: "1000"},
				{Symbol: "BTC", Amount: "0.1"},
			},
		},
		System: SystemConfig{
			LogLevel: "INFO",
		},
	}
	cfg.ApplyDefaults()
	return cfg
}
