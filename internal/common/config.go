// Package common provides shared utilities for Fleece
package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for Fleece
type Config struct {
	Environment string        `toml:"environment"`
	Server      ServerConfig  `toml:"server"`
	Storage     StorageConfig `toml:"storage"`
	Clients     ClientsConfig `toml:"clients"`
	Market      MarketConfig  `toml:"market"`
	Logging     LoggingConfig `toml:"logging"`
	Auth        AuthConfig    `toml:"auth"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// StorageConfig holds the two storage areas. Prediction tables live in the
// managed relational store and are only ever read; accounts and watchlists
// live in SurrealDB.
type StorageConfig struct {
	Predictions PredictionsConfig `toml:"predictions"`
	Accounts    AccountsConfig    `toml:"accounts"`
}

// PredictionsConfig holds the relational prediction store connection.
type PredictionsConfig struct {
	Driver       string `toml:"driver"` // "postgres" or "sqlite"
	DSN          string `toml:"dsn"`
	MaxOpenConns int    `toml:"max_open_conns"`
}

// AccountsConfig holds the SurrealDB connection for users and watchlists.
type AccountsConfig struct {
	Address   string `toml:"address"`
	Namespace string `toml:"namespace"`
	Database  string `toml:"database"`
	Username  string `toml:"username"`
	Password  string `toml:"password"`
}

// ClientsConfig holds API client configurations
type ClientsConfig struct {
	EODHD EODHDConfig `toml:"eodhd"`
}

// EODHDConfig holds EODHD API configuration
type EODHDConfig struct {
	BaseURL         string `toml:"base_url"`
	APIKey          string `toml:"api_key"`
	RateLimit       int    `toml:"rate_limit"`
	Timeout         string `toml:"timeout"`
	MaxRetries      int    `toml:"max_retries"`
	DefaultExchange string `toml:"default_exchange"`
	FanoutLimit     int    `toml:"fanout_limit"`
	ItemTimeout     string `toml:"item_timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *EODHDConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// GetItemTimeout parses and returns the per-item fan-out timeout.
func (c *EODHDConfig) GetItemTimeout() time.Duration {
	d, err := time.ParseDuration(c.ItemTimeout)
	if err != nil || d <= 0 {
		return 10 * time.Second
	}
	return d
}

// MarketConfig holds the ticker sets behind the market overview endpoints.
type MarketConfig struct {
	Indices    []IndexTicker  `toml:"indices"`
	HotStocks  []string       `toml:"hot_stocks"`
	SectorETFs []SectorTicker `toml:"sector_etfs"`
}

// IndexTicker maps a response key ("dow") to a provider ticker ("DJI.INDX").
type IndexTicker struct {
	Key    string `toml:"key"`
	Ticker string `toml:"ticker"`
}

// SectorTicker maps a sector label to the ETF that tracks it.
type SectorTicker struct {
	Sector string `toml:"sector"`
	Ticker string `toml:"ticker"`
}

// AuthConfig holds JWT configuration.
type AuthConfig struct {
	JWTSecret          string `toml:"jwt_secret"`
	AccessTokenExpiry  string `toml:"access_token_expiry"`  // duration string, default "5m"
	RefreshTokenExpiry string `toml:"refresh_token_expiry"` // duration string, default "24h"
}

// GetAccessTokenExpiry parses and returns the access token lifetime.
func (c *AuthConfig) GetAccessTokenExpiry() time.Duration {
	d, err := time.ParseDuration(c.AccessTokenExpiry)
	if err != nil || d <= 0 {
		return 5 * time.Minute
	}
	return d
}

// GetRefreshTokenExpiry parses and returns the refresh token lifetime.
func (c *AuthConfig) GetRefreshTokenExpiry() time.Duration {
	d, err := time.ParseDuration(c.RefreshTokenExpiry)
	if err != nil || d <= 0 {
		return 24 * time.Hour
	}
	return d
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level    string   `toml:"level"`
	Format   string   `toml:"format"`
	Outputs  []string `toml:"outputs"`
	FilePath string   `toml:"file_path"`
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Storage: StorageConfig{
			Predictions: PredictionsConfig{
				Driver:       "sqlite",
				DSN:          "data/predictions.db",
				MaxOpenConns: 10,
			},
			Accounts: AccountsConfig{
				Address:   "ws://localhost:8000/rpc",
				Namespace: "fleece",
				Database:  "fleece",
				Username:  "root",
				Password:  "root",
			},
		},
		Clients: ClientsConfig{
			EODHD: EODHDConfig{
				BaseURL:         "https://eodhd.com/api",
				RateLimit:       10,
				Timeout:         "30s",
				MaxRetries:      2,
				DefaultExchange: "US",
				FanoutLimit:     4,
				ItemTimeout:     "10s",
			},
		},
		Market: MarketConfig{
			Indices: []IndexTicker{
				{Key: "dow", Ticker: "DJI.INDX"},
				{Key: "snp", Ticker: "GSPC.INDX"},
				{Key: "nasdaq", Ticker: "IXIC.INDX"},
			},
			HotStocks: []string{"AAPL", "MSFT", "NVDA", "AMZN", "GOOGL", "META", "TSLA", "AMD"},
			SectorETFs: []SectorTicker{
				{Sector: "Technology", Ticker: "XLK"},
				{Sector: "Health Care", Ticker: "XLV"},
				{Sector: "Financials", Ticker: "XLF"},
				{Sector: "Consumer Discretionary", Ticker: "XLY"},
				{Sector: "Consumer Staples", Ticker: "XLP"},
				{Sector: "Energy", Ticker: "XLE"},
				{Sector: "Industrials", Ticker: "XLI"},
				{Sector: "Materials", Ticker: "XLB"},
				{Sector: "Utilities", Ticker: "XLU"},
				{Sector: "Real Estate", Ticker: "XLRE"},
			},
		},
		Auth: AuthConfig{
			JWTSecret:          "dev-jwt-secret-change-in-production",
			AccessTokenExpiry:  "5m",
			RefreshTokenExpiry: "24h",
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "console",
			Outputs:  []string{"console"},
			FilePath: "./logs/fleece.log",
		},
	}
}

// LoadConfig loads configuration from files with environment overrides.
// A .env file in the working directory is loaded first when present; values
// already set in the process environment win.
func LoadConfig(paths ...string) (*Config, error) {
	_ = godotenv.Load()

	config := NewDefaultConfig()

	// Load and merge each config file in order (later files override earlier)
	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue // Skip missing files
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("FLEECE_ENV"); env != "" {
		config.Environment = env
	}

	if host := os.Getenv("FLEECE_HOST"); host != "" {
		config.Server.Host = host
	}

	if port := os.Getenv("FLEECE_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if level := os.Getenv("FLEECE_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	// Prediction store
	if v := os.Getenv("FLEECE_PREDICTIONS_DRIVER"); v != "" {
		config.Storage.Predictions.Driver = v
	}
	if v := os.Getenv("FLEECE_PREDICTIONS_DSN"); v != "" {
		config.Storage.Predictions.DSN = v
	}

	// Account store
	if v := os.Getenv("FLEECE_SURREAL_ADDRESS"); v != "" {
		config.Storage.Accounts.Address = v
	}
	if v := os.Getenv("FLEECE_SURREAL_NAMESPACE"); v != "" {
		config.Storage.Accounts.Namespace = v
	}
	if v := os.Getenv("FLEECE_SURREAL_DATABASE"); v != "" {
		config.Storage.Accounts.Database = v
	}
	if v := os.Getenv("FLEECE_SURREAL_USERNAME"); v != "" {
		config.Storage.Accounts.Username = v
	}
	if v := os.Getenv("FLEECE_SURREAL_PASSWORD"); v != "" {
		config.Storage.Accounts.Password = v
	}

	// Provider
	for _, name := range []string{"EODHD_API_KEY", "FLEECE_EODHD_API_KEY"} {
		if v := os.Getenv(name); v != "" {
			config.Clients.EODHD.APIKey = v
			break
		}
	}

	// Auth overrides
	if v := os.Getenv("FLEECE_AUTH_JWT_SECRET"); v != "" {
		config.Auth.JWTSecret = v
	}
	if v := os.Getenv("FLEECE_AUTH_ACCESS_TOKEN_EXPIRY"); v != "" {
		config.Auth.AccessTokenExpiry = v
	}
	if v := os.Getenv("FLEECE_AUTH_REFRESH_TOKEN_EXPIRY"); v != "" {
		config.Auth.RefreshTokenExpiry = v
	}
}

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	driver := strings.ToLower(strings.TrimSpace(c.Storage.Predictions.Driver))
	if driver != "postgres" && driver != "sqlite" {
		return fmt.Errorf("storage.predictions.driver must be \"postgres\" or \"sqlite\", got %q", c.Storage.Predictions.Driver)
	}
	c.Storage.Predictions.Driver = driver

	if c.IsProduction() && c.Auth.JWTSecret == NewDefaultConfig().Auth.JWTSecret {
		return fmt.Errorf("auth.jwt_secret must be set in production")
	}
	return nil
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}
