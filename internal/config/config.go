package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port        string
	HTTPTimeout time.Duration

	// Database
	SQLiteDBPath string

	// Remote sheet API
	APIBaseURL      string
	APIToken        string
	LedgerSheet     string
	InvestmentSheet string
	SetupSheet      string
	AccountSheet    string

	// Background account refresh
	RefreshInterval time.Duration
}

func Load() *Config {
	cfg := &Config{
		Port:        getEnv("PORT", "8081"),
		HTTPTimeout: getEnvDuration("HTTP_TIMEOUT", 30*time.Second),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/fintrack.db"),

		APIBaseURL:      getEnv("SHEETDB_API_URL", ""),
		APIToken:        getEnv("SHEETDB_TOKEN", ""),
		LedgerSheet:     getEnv("LEDGER_SHEET", "Giao Dịch"),
		InvestmentSheet: getEnv("INVESTMENT_SHEET", "Giao Dich Investment"),
		SetupSheet:      getEnv("SETUP_SHEET", "Setup Finanace"),
		AccountSheet:    getEnv("ACCOUNT_SHEET", "Investment Account"),

		RefreshInterval: getEnvDuration("REFRESH_INTERVAL", 15*time.Minute),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	// Validate remote API URL
	if c.APIBaseURL == "" {
		errors = append(errors, "SHEETDB_API_URL is required")
	} else if parsedURL, err := url.Parse(c.APIBaseURL); err != nil {
		errors = append(errors, fmt.Sprintf("invalid API URL '%s': %v", c.APIBaseURL, err))
	} else if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		errors = append(errors, fmt.Sprintf("invalid API URL scheme '%s': must be 'http' or 'https'", parsedURL.Scheme))
	}

	// Validate sheet names
	if c.LedgerSheet == "" {
		errors = append(errors, "ledger sheet name cannot be empty")
	}
	if c.InvestmentSheet == "" {
		errors = append(errors, "investment sheet name cannot be empty")
	}
	if c.SetupSheet == "" {
		errors = append(errors, "setup sheet name cannot be empty")
	}
	if c.AccountSheet == "" {
		errors = append(errors, "account sheet name cannot be empty")
	}

	// Validate timeouts
	if c.HTTPTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid HTTP timeout %v: must be at least 1 second", c.HTTPTimeout))
	} else if c.HTTPTimeout > 5*time.Minute {
		errors = append(errors, fmt.Sprintf("invalid HTTP timeout %v: must be at most 5 minutes", c.HTTPTimeout))
	}

	if c.RefreshInterval < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid refresh interval %v: must be at least 1 minute", c.RefreshInterval))
	} else if c.RefreshInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid refresh interval %v: must be at most 24 hours", c.RefreshInterval))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
