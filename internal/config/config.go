// Package config provides configuration management.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"pricing-calculator/internal/logging"
)

// EnvPrefix prefixes every environment override
const EnvPrefix = "PRICECALC_"

// Config is the main application configuration
type Config struct {
	// Version is the configuration version
	Version string `json:"version"`

	// Pricing contains pricing engine configuration
	Pricing PricingConfig `json:"pricing"`

	// Server contains HTTP API configuration
	Server ServerConfig `json:"server"`

	// Output contains output configuration
	Output OutputConfig `json:"output"`

	// Logging contains logging configuration
	Logging logging.Config `json:"logging"`
}

// PricingConfig contains pricing-related settings
type PricingConfig struct {
	// FormulaCacheSize bounds the parsed formula cache; 0 disables it
	FormulaCacheSize int `json:"formula_cache_size"`

	// StrictMinorUnits rounds prices to the currency's minor units instead of 2 places
	StrictMinorUnits bool `json:"strict_minor_units"`

	// DefaultCurrency is used when a catalog declares none
	DefaultCurrency string `json:"default_currency"`
}

// ServerConfig contains HTTP API settings
type ServerConfig struct {
	// Addr is the listen address
	Addr string `json:"addr"`
}

// OutputConfig contains output-related settings
type OutputConfig struct {
	// DefaultFormat is the default output format
	DefaultFormat string `json:"default_format"`
}

// DefaultPath returns the default config file location
func DefaultPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".pricecalc.json"
	}
	return filepath.Join(homeDir, ".pricecalc.json")
}

// Default returns a default configuration
func Default() *Config {
	return &Config{
		Version: "1.0",
		Pricing: PricingConfig{
			FormulaCacheSize: 256,
			StrictMinorUnits: false,
			DefaultCurrency:  "USD",
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Output: OutputConfig{
			DefaultFormat: "cli",
		},
		Logging: logging.DefaultConfig(),
	}
}

// Load loads configuration from a file.
// A missing file yields the defaults. Environment overrides are applied last.
func Load(path string) (*Config, error) {
	config := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case !os.IsNotExist(err):
		return nil, err
	}

	if err := config.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// LoadDotEnv loads KEY=value pairs from the given files into the process
// environment without overriding variables that are already set.
// Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); os.IsNotExist(err) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// ApplyEnv overrides settings from PRICECALC_* environment variables
func (c *Config) ApplyEnv() error {
	if v, ok := lookup("LOG_LEVEL"); ok {
		c.Logging.Level = v
	}
	if v, ok := lookup("LOG_FORMAT"); ok {
		c.Logging.Format = v
	}
	if v, ok := lookup("ADDR"); ok {
		c.Server.Addr = v
	}
	if v, ok := lookup("FORMAT"); ok {
		c.Output.DefaultFormat = v
	}
	if v, ok := lookup("CURRENCY"); ok {
		c.Pricing.DefaultCurrency = strings.ToUpper(v)
	}
	if v, ok := lookup("CACHE_SIZE"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sCACHE_SIZE: %w", EnvPrefix, err)
		}
		c.Pricing.FormulaCacheSize = n
	}
	if v, ok := lookup("STRICT_MINOR_UNITS"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sSTRICT_MINOR_UNITS: %w", EnvPrefix, err)
		}
		c.Pricing.StrictMinorUnits = b
	}
	return nil
}

// Validate checks settings that would otherwise fail late
func (c *Config) Validate() error {
	if c.Pricing.FormulaCacheSize < 0 {
		return fmt.Errorf("pricing.formula_cache_size must be >= 0, got %d", c.Pricing.FormulaCacheSize)
	}
	switch c.Output.DefaultFormat {
	case "cli", "json", "markdown":
	default:
		return fmt.Errorf("output.default_format must be cli, json or markdown, got %q", c.Output.DefaultFormat)
	}
	return nil
}

func lookup(name string) (string, bool) {
	v, ok := os.LookupEnv(EnvPrefix + name)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return strings.TrimSpace(v), true
}

// Save saves configuration to a file
func (c *Config) Save(path string) error {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Global configuration instance
var globalConfig = Default()

// Get returns the global configuration
func Get() *Config {
	return globalConfig
}

// Set sets the global configuration
func Set(config *Config) {
	globalConfig = config
}
