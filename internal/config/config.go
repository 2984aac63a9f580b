package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the tripline server.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Backend  BackendConfig
	Gateway  GatewayConfig
	Polling  PollingConfig
	Drafts   DraftConfig
	Web      WebConfig
}

type ServerConfig struct {
	Port    int
	Env     string
	BaseURL string
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL string
}

// BackendConfig points at the travel platform's core backend (itinerary job
// executor, reservation service, payment-session service).
type BackendConfig struct {
	BaseURL string
	Timeout time.Duration
}

// GatewayConfig identifies this service to the external payment gateway.
// Provider "mock" swaps in an in-process gateway for local development.
type GatewayConfig struct {
	Provider  string
	BaseURL   string
	ClientKey string
	SecretKey string
	Timeout   time.Duration
}

// PollingConfig bounds the itinerary-job polling loop.
type PollingConfig struct {
	Interval    time.Duration
	MaxAttempts int
}

// DraftConfig governs durable draft retention.
type DraftConfig struct {
	TTL time.Duration
}

// WebConfig points at the traveler-facing web frontend. Gateway callbacks
// redirect the browser back to it, and the auth-interrupt flow sends
// logged-out travelers to its login page.
type WebConfig struct {
	BaseURL  string
	LoginURL string
}

// Load reads configuration from environment variables and returns a validated Config.
// Returns an error with a descriptive message if any required value is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:    envInt("TRIPLINE_PORT", 8080),
			Env:     envString("TRIPLINE_ENV", "development"),
			BaseURL: envString("TRIPLINE_BASE_URL", "http://localhost:8080"),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Backend: BackendConfig{
			BaseURL: os.Getenv("BACKEND_BASE_URL"),
			Timeout: envDuration("BACKEND_TIMEOUT", 30*time.Second),
		},
		Gateway: GatewayConfig{
			Provider:  envString("GATEWAY_PROVIDER", "http"),
			BaseURL:   os.Getenv("GATEWAY_BASE_URL"),
			ClientKey: os.Getenv("GATEWAY_CLIENT_KEY"),
			SecretKey: os.Getenv("GATEWAY_SECRET_KEY"),
			Timeout:   envDuration("GATEWAY_TIMEOUT", 30*time.Second),
		},
		Polling: PollingConfig{
			Interval:    envDuration("POLL_INTERVAL", time.Second),
			MaxAttempts: envInt("POLL_MAX_ATTEMPTS", 60),
		},
		Drafts: DraftConfig{
			TTL: envDuration("DRAFT_TTL", 7*24*time.Hour),
		},
	}
	cfg.Web.BaseURL = envString("WEB_BASE_URL", "http://localhost:3000")
	cfg.Web.LoginURL = envString("WEB_LOGIN_URL", cfg.Web.BaseURL+"/login")

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if c.Backend.BaseURL == "" {
		return fmt.Errorf("BACKEND_BASE_URL is required")
	}
	if !strings.HasPrefix(c.Backend.BaseURL, "http://") && !strings.HasPrefix(c.Backend.BaseURL, "https://") {
		return fmt.Errorf("BACKEND_BASE_URL must start with http:// or https://, got %q", c.Backend.BaseURL)
	}

	// The mock gateway needs no credentials.
	if c.Gateway.Provider == "http" {
		if c.Gateway.BaseURL == "" {
			return fmt.Errorf("GATEWAY_BASE_URL is required")
		}
		if c.Gateway.ClientKey == "" {
			return fmt.Errorf("GATEWAY_CLIENT_KEY is required")
		}
		if c.Gateway.SecretKey == "" {
			return fmt.Errorf("GATEWAY_SECRET_KEY is required")
		}
	}

	if c.Polling.Interval <= 0 {
		return fmt.Errorf("POLL_INTERVAL must be positive, got %s", c.Polling.Interval)
	}
	if c.Polling.MaxAttempts <= 0 {
		return fmt.Errorf("POLL_MAX_ATTEMPTS must be positive, got %d", c.Polling.MaxAttempts)
	}

	if c.Drafts.TTL <= 0 {
		return fmt.Errorf("DRAFT_TTL must be positive, got %s", c.Drafts.TTL)
	}

	if !strings.HasPrefix(c.Web.BaseURL, "http://") && !strings.HasPrefix(c.Web.BaseURL, "https://") {
		return fmt.Errorf("WEB_BASE_URL must start with http:// or https://, got %q", c.Web.BaseURL)
	}

	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
