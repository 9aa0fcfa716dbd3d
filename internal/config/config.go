package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	JWT       JWTConfig       `yaml:"jwt"`
	Backend   BackendConfig   `yaml:"backend"`
	SendGrid  SendGridConfig  `yaml:"sendgrid"`
	SES       SESConfig       `yaml:"ses"`
	Log       LogConfig       `yaml:"log"`
	Realtime  RealtimeConfig  `yaml:"realtime"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatabaseConfig contains PostgreSQL connection settings
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode"`
	Migrate  bool   `yaml:"migrate"`
}

// RedisConfig configures the profile cache. An empty address disables it.
type RedisConfig struct {
	Addr              string `yaml:"addr"`
	Password          string `yaml:"password"`
	DB                int    `yaml:"db"`
	ProfileTTLSeconds int    `yaml:"profile_ttl_seconds"`
}

// JWTConfig contains the secret shared with the auth service that issues
// access tokens.
type JWTConfig struct {
	Secret   string `yaml:"secret"`
	Audience string `yaml:"audience"`
}

// BackendConfig holds the two values written by `portalctl setup`.
type BackendConfig struct {
	URL     string `yaml:"url"`
	AnonKey string `yaml:"anon_key"`
}

// SendGridConfig contains email settings. An empty API key disables email.
type SendGridConfig struct {
	APIKey    string `yaml:"api_key"`
	FromEmail string `yaml:"from_email"`
	FromName  string `yaml:"from_name"`
}

// SESConfig selects Amazon SES when no SendGrid key is set. An empty region
// disables it. Credentials come from the default AWS chain.
type SESConfig struct {
	Region    string `yaml:"region"`
	FromEmail string `yaml:"from_email"`
	FromName  string `yaml:"from_name"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "text"
}

// RealtimeConfig tunes the Postgres change listener.
type RealtimeConfig struct {
	Channel             string `yaml:"channel"`
	MinReconnectSeconds int    `yaml:"min_reconnect_seconds"`
	MaxReconnectSeconds int    `yaml:"max_reconnect_seconds"`
	SubscriptionBuffer  int    `yaml:"subscription_buffer"`
}

// SchedulerConfig contains cron schedule settings
type SchedulerConfig struct {
	ReviewerDigest   string `yaml:"reviewer_digest"`
	UnassignedReport string `yaml:"unassigned_report"`
}

// Load reads the .env file next to the working directory (if any), then the
// YAML file, then environment overrides.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes YAML, applies environment overrides and validates.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.overrideWithEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// overrideWithEnv overrides config values with environment variables
func (c *Config) overrideWithEnv() {
	// Database
	if val := os.Getenv("DB_HOST"); val != "" {
		c.Database.Host = val
	}
	if val := os.Getenv("DB_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Database.Port)
	}
	if val := os.Getenv("DB_USER"); val != "" {
		c.Database.User = val
	}
	if val := os.Getenv("DB_PASSWORD"); val != "" {
		c.Database.Password = val
	}
	if val := os.Getenv("DB_NAME"); val != "" {
		c.Database.Database = val
	}
	if val := os.Getenv("DB_SSL_MODE"); val != "" {
		c.Database.SSLMode = val
	}

	// Server
	if val := os.Getenv("SERVER_HOST"); val != "" {
		c.Server.Host = val
	}
	if val := os.Getenv("SERVER_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Server.Port)
	}

	// Redis
	if val := os.Getenv("REDIS_ADDR"); val != "" {
		c.Redis.Addr = val
	}
	if val := os.Getenv("REDIS_PASSWORD"); val != "" {
		c.Redis.Password = val
	}

	// JWT
	if val := os.Getenv("JWT_SECRET"); val != "" {
		c.JWT.Secret = val
	}

	// Backend (written by portalctl setup)
	if val := os.Getenv(EnvBackendURL); val != "" {
		c.Backend.URL = val
	}
	if val := os.Getenv(EnvBackendAnonKey); val != "" {
		c.Backend.AnonKey = val
	}

	// SendGrid
	if val := os.Getenv("SENDGRID_API_KEY"); val != "" {
		c.SendGrid.APIKey = val
	}

	// SES
	if val := os.Getenv("SES_REGION"); val != "" {
		c.SES.Region = val
	}

	// Log
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.Log.Level = val
	}
	if val := os.Getenv("LOG_FORMAT"); val != "" {
		c.Log.Format = val
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// EmailProvider reports which email backend is configured: "sendgrid",
// "ses" or "" when email is disabled. SendGrid wins when both are set.
func (c *Config) EmailProvider() string {
	switch {
	case c.SendGrid.APIKey != "":
		return "sendgrid"
	case c.SES.Region != "":
		return "ses"
	default:
		return ""
	}
}

// Validate checks if the configuration is valid and fills defaults.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("database user is required")
	}
	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}
	if c.Database.Port == 0 {
		c.Database.Port = 5432
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}

	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}
	if len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT secret must be at least 32 characters")
	}
	if c.JWT.Audience == "" {
		c.JWT.Audience = "authenticated"
	}

	if c.Redis.ProfileTTLSeconds <= 0 {
		c.Redis.ProfileTTLSeconds = 300
	}

	if c.SendGrid.APIKey != "" && c.SendGrid.FromEmail == "" {
		return fmt.Errorf("sendgrid from_email is required when api_key is set")
	}
	if c.SendGrid.FromName == "" {
		c.SendGrid.FromName = "Review Portal"
	}
	if c.SES.Region != "" && c.SES.FromEmail == "" {
		return fmt.Errorf("ses from_email is required when region is set")
	}

	if c.Realtime.Channel == "" {
		c.Realtime.Channel = "portal_changes"
	}
	if c.Realtime.MinReconnectSeconds <= 0 {
		c.Realtime.MinReconnectSeconds = 10
	}
	if c.Realtime.MaxReconnectSeconds < c.Realtime.MinReconnectSeconds {
		c.Realtime.MaxReconnectSeconds = max(60, c.Realtime.MinReconnectSeconds)
	}
	if c.Realtime.SubscriptionBuffer <= 0 {
		c.Realtime.SubscriptionBuffer = 16
	}

	if c.Scheduler.ReviewerDigest == "" {
		c.Scheduler.ReviewerDigest = "0 0 8 * * *" // 8 AM UTC
	}
	if c.Scheduler.UnassignedReport == "" {
		c.Scheduler.UnassignedReport = "0 0 9 * * *" // 9 AM UTC
	}

	return nil
}

// GetDatabaseConnectionString returns a PostgreSQL connection string
func (c *Config) GetDatabaseConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
		c.Database.SSLMode,
	)
}

// GetServerAddress returns the HTTP server address
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// ProfileTTL is the profile cache entry lifetime.
func (c *Config) ProfileTTL() time.Duration {
	return time.Duration(c.Redis.ProfileTTLSeconds) * time.Second
}
