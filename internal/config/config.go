package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/jparks/lexledger/internal/domain"
)

type Config struct {
	// Database settings
	Database DatabaseConfig `yaml:"database"`

	// Firm-wide billing policy
	Billing BillingConfig `yaml:"billing"`

	// Invoice settings
	Invoice InvoiceConfig `yaml:"invoice"`

	// Logging settings
	Logging LoggingConfig `yaml:"logging"`

	// Firm info for invoices
	Firm FirmConfig `yaml:"firm"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"` // Path to SQLite database
}

type BillingConfig struct {
	RoundingIncrement int    `yaml:"rounding_increment"`  // Billing increment in minutes (6, 15, 30, 60)
	RoundingMethod    string `yaml:"rounding_method"`     // nearest, up, or down
	IdleThresholdMin  int    `yaml:"idle_threshold_mins"` // Inactivity minutes before the timer suspends
}

type InvoiceConfig struct {
	DefaultDueDays int     `yaml:"default_due_days"` // Days until invoice due
	DefaultTaxRate float64 `yaml:"default_tax_rate"` // Tax rate as percent (8.25 = 8.25%)
	NumberPrefix   string  `yaml:"number_prefix"`    // Invoice number prefix (e.g., "INV")
}

type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
	Path  string `yaml:"path"`  // Log file path; empty disables file logging
}

type FirmConfig struct {
	Name    string `yaml:"name"`
	Email   string `yaml:"email"`
	Address string `yaml:"address"`
	Phone   string `yaml:"phone"`
}

// RoundingPolicy converts the billing section into the domain policy
func (c *Config) RoundingPolicy() (domain.RoundingPolicy, error) {
	policy := domain.RoundingPolicy{
		IncrementMinutes: int64(c.Billing.RoundingIncrement),
		Method:           domain.RoundingMethod(c.Billing.RoundingMethod),
	}
	if err := policy.Validate(); err != nil {
		return domain.RoundingPolicy{}, fmt.Errorf("invalid billing config: %w", err)
	}
	return policy, nil
}

// DefaultConfigPath returns ~/.config/lexledger/config.yaml
func DefaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home dir unavailable
		return filepath.Join(".", ".config", "lexledger", "config.yaml")
	}
	return filepath.Join(homeDir, ".config", "lexledger", "config.yaml")
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}

	return &Config{
		Database: DatabaseConfig{
			Path: filepath.Join(homeDir, ".config", "lexledger", "lexledger.db"),
		},
		Billing: BillingConfig{
			RoundingIncrement: 6,
			RoundingMethod:    string(domain.RoundNearest),
			IdleThresholdMin:  10,
		},
		Invoice: InvoiceConfig{
			DefaultDueDays: 30,
			DefaultTaxRate: 0.0,
			NumberPrefix:   "INV",
		},
		Logging: LoggingConfig{
			Level: "info",
			Path:  filepath.Join(homeDir, ".config", "lexledger", "lexledger.log"),
		},
		Firm: FirmConfig{},
	}
}

// Load loads config from the given path, or returns defaults if file doesn't exist
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	if _, err := cfg.RoundingPolicy(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadDefault loads from the default config path
func LoadDefault() (*Config, error) {
	return Load(DefaultConfigPath())
}

// Save writes the config to the given path
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// EnsureDirectories creates the directories the app writes to
func (c *Config) EnsureDirectories() error {
	dbDir := filepath.Dir(c.Database.Path)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return err
	}

	if c.Logging.Path != "" {
		if err := os.MkdirAll(filepath.Dir(c.Logging.Path), 0755); err != nil {
			return err
		}
	}

	return nil
}
