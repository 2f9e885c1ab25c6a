package config

import (
	"fmt"
	"time"
)

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`

	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`

	DBDriver string `mapstructure:"db_driver" yaml:"db_driver"`
	DBDSN    string `mapstructure:"db_dsn" yaml:"db_dsn"`

	AllowedOrigins []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`

	PingInterval         time.Duration `mapstructure:"ping_interval" yaml:"ping_interval"`
	PingTimeout          time.Duration `mapstructure:"ping_timeout" yaml:"ping_timeout"`
	MaxMessageBytes      int64         `mapstructure:"max_message_bytes" yaml:"max_message_bytes"`
	MaxMessagesPerMinute int           `mapstructure:"max_messages_per_minute" yaml:"max_messages_per_minute"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:                 ":8080",
		ReadHeaderTimeout:    5 * time.Second,
		ShutdownTimeout:      5 * time.Second,
		LogLevel:             "info",
		LogFormat:            "console",
		DBDriver:             "sqlite",
		DBDSN:                "retro.db",
		AllowedOrigins:       []string{"http://localhost:5173"},
		PingInterval:         30 * time.Second,
		PingTimeout:          10 * time.Second,
		MaxMessageBytes:      1 << 16,
		MaxMessagesPerMinute: 120,
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.LogFormat != "" {
		c.LogFormat = other.LogFormat
	}
	if other.DBDriver != "" {
		c.DBDriver = other.DBDriver
	}
	if other.DBDSN != "" {
		c.DBDSN = other.DBDSN
	}
	if len(other.AllowedOrigins) > 0 {
		c.AllowedOrigins = other.AllowedOrigins
	}
	if other.PingInterval != 0 {
		c.PingInterval = other.PingInterval
	}
	if other.PingTimeout != 0 {
		c.PingTimeout = other.PingTimeout
	}
	if other.MaxMessageBytes != 0 {
		c.MaxMessageBytes = other.MaxMessageBytes
	}
	if other.MaxMessagesPerMinute != 0 {
		c.MaxMessagesPerMinute = other.MaxMessagesPerMinute
	}
}

// Validate rejects values the server cannot start with.
func (c Config) Validate() error {
	switch c.DBDriver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("config: unsupported db_driver %q", c.DBDriver)
	}
	if c.DBDSN == "" {
		return fmt.Errorf("config: db_dsn is required")
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("config: unsupported log_format %q", c.LogFormat)
	}
	if c.PingInterval > 0 && c.PingTimeout <= 0 {
		return fmt.Errorf("config: ping_timeout must be positive when ping_interval is set")
	}
	if c.MaxMessageBytes < 0 || c.MaxMessagesPerMinute < 0 {
		return fmt.Errorf("config: message limits must not be negative")
	}
	return nil
}
