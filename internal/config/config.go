// Package config reads process configuration from the environment.
package config

import (
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"ledgerbook/internal/log"
)

// Backends lists the accepted LEDGER_BACKEND values.
var Backends = []string{"memory", "sqlite", "pebble", "remote"}

type Config struct {
	// Ledger
	Backend     string `env:"LEDGER_BACKEND" envDefault:"sqlite"`
	SettingsKey string `env:"LEDGER_SETTINGS_KEY" envDefault:"data"`
	AsyncWrites bool   `env:"LEDGER_ASYNC_WRITES"`

	// Local storage
	SQLiteDBPath string `env:"SQLITE_DB_PATH" envDefault:"./data/ledger.db"`
	PebbleDir    string `env:"PEBBLE_DIR" envDefault:"./data/ledger.pebble"`

	// Remote backend
	RemoteBaseURL    string        `env:"REMOTE_BASE_URL"`
	RemoteToken      string        `env:"REMOTE_TOKEN"`
	RemoteTimeout    time.Duration `env:"REMOTE_TIMEOUT" envDefault:"10s"`
	RemoteMaxRetries uint          `env:"REMOTE_MAX_RETRIES" envDefault:"3"`

	// HTTP server
	Port               string `env:"PORT" envDefault:"8081"`
	APIToken           string `env:"API_TOKEN"`
	RateLimitPerMinute int    `env:"RATE_LIMIT_PER_MINUTE" envDefault:"60"`

	// AMQP, disabled when AMQPURL is empty
	AMQPURL        string `env:"AMQP_URL"`
	AMQPExchange   string `env:"AMQP_EXCHANGE" envDefault:"ledger"`
	AMQPRoutingKey string `env:"AMQP_ROUTING_KEY" envDefault:"ledger.changed"`

	// Google Sheets export, disabled when GoogleSpreadsheetID is empty
	GoogleSpreadsheetID      string `env:"GOOGLE_SPREADSHEET_ID"`
	GoogleSheetName          string `env:"GOOGLE_SHEET_NAME" envDefault:"Ledger"`
	GoogleServiceAccountJSON string `env:"GOOGLE_SERVICE_ACCOUNT_JSON"`
	GoogleServiceAccountFile string `env:"GOOGLE_SERVICE_ACCOUNT_FILE"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
}

// Load reads an optional .env file, then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &cfg, nil
}

// Parse builds a Config from environ instead of the process environment.
func Parse(environ map[string]string) (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environ}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &cfg, nil
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.RateLimitPerMinute < 0 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be zero or positive", c.RateLimitPerMinute))
	}

	if !slices.Contains(Backends, c.Backend) {
		errors = append(errors, fmt.Sprintf("invalid ledger backend '%s': must be one of %v", c.Backend, Backends))
	}
	if strings.TrimSpace(c.SettingsKey) == "" {
		errors = append(errors, "settings key cannot be empty")
	}

	switch c.Backend {
	case "sqlite":
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		}
	case "pebble":
		if c.PebbleDir == "" {
			errors = append(errors, "Pebble directory cannot be empty when using pebble backend")
		}
	case "remote":
		if c.RemoteBaseURL == "" {
			errors = append(errors, "REMOTE_BASE_URL is required when using remote backend")
		} else if u, err := url.Parse(c.RemoteBaseURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid remote URL '%s': %v", c.RemoteBaseURL, err))
		} else if u.Scheme != "http" && u.Scheme != "https" {
			errors = append(errors, fmt.Sprintf("invalid remote URL scheme '%s': must be 'http' or 'https'", u.Scheme))
		}
		if c.RemoteTimeout <= 0 {
			errors = append(errors, fmt.Sprintf("invalid remote timeout %v: must be positive", c.RemoteTimeout))
		}
		if c.RemoteMaxRetries < 1 {
			errors = append(errors, "remote max retries must be at least 1")
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPRoutingKey == "" {
			errors = append(errors, "AMQP routing key cannot be empty when AMQP URL is provided")
		}
	}

	if c.GoogleSpreadsheetID != "" && c.GoogleSheetName == "" {
		errors = append(errors, "Google sheet name cannot be empty when a spreadsheet ID is provided")
	}

	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errors = append(errors, fmt.Sprintf("invalid log level '%s'", c.LogLevel))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// SheetsEnabled reports whether ledger changes should be exported.
func (c *Config) SheetsEnabled() bool { return c.GoogleSpreadsheetID != "" }

// AMQPEnabled reports whether change notifications should be published.
func (c *Config) AMQPEnabled() bool { return c.AMQPURL != "" }

// LogConfig maps LOG_LEVEL and LOG_FORMAT onto a logger configuration.
func (c *Config) LogConfig(component string) log.Config {
	cfg := log.DefaultConfig()
	if level, err := log.ParseLevel(c.LogLevel); err == nil {
		cfg.Level = level
	}
	cfg.Format = c.LogFormat
	cfg.Component = component
	return cfg
}
