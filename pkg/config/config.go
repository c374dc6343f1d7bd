package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Metadata holds the stream metadata forwarded to Icecast
type Metadata struct {
	Name        string `toml:"name"`
	Description string `toml:"description"`
	URL         string `toml:"url"`
	Genre       string `toml:"genre"`
}

// Config holds all application configuration
type Config struct {
	// Stream
	IcecastURL    string   `toml:"icecast_url"`
	Metadata      Metadata `toml:"metadata"`
	FallbackTrack string   `toml:"fallback_track"`
	SampleRate    uint32   `toml:"sample_rate"`
	QueueSize     int      `toml:"queue_size"`
	HistorySize   int      `toml:"history_size"`

	// Control surfaces
	ControlBind string `toml:"control_bind"`
	HTTPBind    string `toml:"http_bind"`
	BusEnabled  bool   `toml:"bus_enabled"`

	// App
	Env string `toml:"env"`
}

// Load reads the configuration file and applies environment overrides
func Load(path string) (*Config, error) {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()

	cfg := &Config{
		SampleRate:  48000,
		QueueSize:   100,
		HistorySize: 16,
		ControlBind: "0.0.0.0:3001",
		Env:         "development",
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config file %s: %w", path, err)
	}

	// Environment overrides for deployment-specific values
	cfg.ControlBind = getEnv("IREUL_CONTROL_BIND", cfg.ControlBind)
	cfg.HTTPBind = getEnv("IREUL_HTTP_BIND", cfg.HTTPBind)
	cfg.Env = getEnv("IREUL_ENV", cfg.Env)
	cfg.BusEnabled = getEnvAsBool("IREUL_BUS_ENABLED", cfg.BusEnabled)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration values are set
func (c *Config) Validate() error {
	if c.IcecastURL == "" {
		return fmt.Errorf("icecast_url is required")
	}
	if _, err := url.Parse(c.IcecastURL); err != nil {
		return fmt.Errorf("icecast_url is malformed: %w", err)
	}
	if c.SampleRate == 0 {
		return fmt.Errorf("sample_rate must be positive")
	}
	if c.QueueSize <= 0 {
		return fmt.Errorf("queue_size must be positive")
	}
	if c.HistorySize <= 0 {
		return fmt.Errorf("history_size must be positive")
	}
	if c.ControlBind == "" {
		return fmt.Errorf("control_bind is required")
	}
	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}
