package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// ConfigFileEnv names the optional TOML file whose values act as defaults
const ConfigFileEnv = "AGENDA_CONFIG_FILE"

const defaultSnapshotCacheTTL = 2 * time.Minute

// Config holds application configuration
type Config struct {
	DatabaseURL      string
	ServerPort       string
	FrontendURL      string
	EnableHSTS       bool
	RedisURL         string
	RabbitMQURL      string
	RabbitMQPrefetch int
	WorkerDebugMode  bool
	ServerDebugMode  bool
	LogLevel         string
	OTELEnabled      bool
	OTELEndpoint     string
	Timezone         string
	SnapshotCacheTTL time.Duration

	// ConfigFile is the TOML file the config was layered on, if any
	ConfigFile string

	location *time.Location
}

// fileConfig mirrors Config in the TOML file. Pointers distinguish absent keys.
type fileConfig struct {
	DatabaseURL      string `toml:"database_url"`
	ServerPort       string `toml:"server_port"`
	FrontendURL      string `toml:"frontend_url"`
	EnableHSTS       *bool  `toml:"enable_hsts"`
	RedisURL         string `toml:"redis_url"`
	RabbitMQURL      string `toml:"rabbitmq_url"`
	RabbitMQPrefetch int    `toml:"rabbitmq_prefetch"`
	WorkerDebugMode  *bool  `toml:"worker_debug_mode"`
	ServerDebugMode  *bool  `toml:"server_debug_mode"`
	LogLevel         string `toml:"log_level"`
	OTELEnabled      *bool  `toml:"otel_enabled"`
	OTELEndpoint     string `toml:"otel_endpoint"`
	Timezone         string `toml:"timezone"`
	SnapshotCacheTTL string `toml:"snapshot_cache_ttl"`
}

// Load loads configuration from the file named by AGENDA_CONFIG_FILE (if set)
// and then from environment variables, which take precedence.
func Load() (*Config, error) {
	return LoadFile(os.Getenv(ConfigFileEnv))
}

// LoadFile is Load with an explicit config file path. An empty path skips the file.
func LoadFile(path string) (*Config, error) {
	cfg := defaults()
	if path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
		cfg.ConfigFile = path
	}

	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	cfg.ServerPort = getEnv("SERVER_PORT", cfg.ServerPort)
	cfg.FrontendURL = getEnv("FRONTEND_URL", cfg.FrontendURL)
	cfg.EnableHSTS = getEnvBool("ENABLE_HSTS", cfg.EnableHSTS)
	cfg.RedisURL = getEnv("REDIS_URL", cfg.RedisURL)
	cfg.RabbitMQURL = getEnv("RABBITMQ_URL", cfg.RabbitMQURL)
	cfg.RabbitMQPrefetch = getEnvInt("RABBITMQ_PREFETCH", cfg.RabbitMQPrefetch)
	cfg.WorkerDebugMode = getEnvBool("WORKER_DEBUG_MODE", cfg.WorkerDebugMode)
	cfg.ServerDebugMode = getEnvBool("SERVER_DEBUG_MODE", cfg.ServerDebugMode)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.OTELEnabled = getEnvBool("OTEL_ENABLED", cfg.OTELEnabled)
	cfg.OTELEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.OTELEndpoint)
	cfg.Timezone = getEnv("AGENDA_TIMEZONE", cfg.Timezone)
	cfg.SnapshotCacheTTL = getEnvDuration("SNAPSHOT_CACHE_TTL", cfg.SnapshotCacheTTL)

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.RabbitMQPrefetch < 1 {
		cfg.RabbitMQPrefetch = 1
	}
	if cfg.SnapshotCacheTTL <= 0 {
		cfg.SnapshotCacheTTL = defaultSnapshotCacheTTL
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid AGENDA_TIMEZONE %q: %w", cfg.Timezone, err)
	}
	cfg.location = loc

	return cfg, nil
}

// RequireQueue reports an error when no RabbitMQ URL is configured.
// The server and worker need one; the configure CLI does not.
func (c *Config) RequireQueue() error {
	if c.RabbitMQURL == "" {
		return errors.New("RABBITMQ_URL is required for job queueing")
	}
	return nil
}

// Location is the timezone calendar days are computed in
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.Local
	}
	return c.location
}

func defaults() *Config {
	return &Config{
		ServerPort:       "8080",
		FrontendURL:      "http://localhost:3000",
		RedisURL:         "redis://localhost:6379/0",
		RabbitMQPrefetch: 1,
		LogLevel:         "info",
		Timezone:         "Local",
		SnapshotCacheTTL: defaultSnapshotCacheTTL,
	}
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	var fc fileConfig
	if err := toml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	setString(&c.DatabaseURL, fc.DatabaseURL)
	setString(&c.ServerPort, fc.ServerPort)
	setString(&c.FrontendURL, fc.FrontendURL)
	setBool(&c.EnableHSTS, fc.EnableHSTS)
	setString(&c.RedisURL, fc.RedisURL)
	setString(&c.RabbitMQURL, fc.RabbitMQURL)
	if fc.RabbitMQPrefetch > 0 {
		c.RabbitMQPrefetch = fc.RabbitMQPrefetch
	}
	setBool(&c.WorkerDebugMode, fc.WorkerDebugMode)
	setBool(&c.ServerDebugMode, fc.ServerDebugMode)
	setString(&c.LogLevel, fc.LogLevel)
	setBool(&c.OTELEnabled, fc.OTELEnabled)
	setString(&c.OTELEndpoint, fc.OTELEndpoint)
	setString(&c.Timezone, fc.Timezone)
	if fc.SnapshotCacheTTL != "" {
		ttl, err := time.ParseDuration(fc.SnapshotCacheTTL)
		if err != nil {
			return fmt.Errorf("invalid snapshot_cache_ttl in %s: %w", path, err)
		}
		c.SnapshotCacheTTL = ttl
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
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
