// Package config loads the migration settings from environment variables.
// Defaults are applied for unset values and everything is validated on
// startup so a misconfigured run fails before touching either database.
package config

import (
	"net"
	"net/url"
	"strconv"
	"time"
)

// Config holds all migration configuration.
type Config struct {
	Database DatabaseConfig
	Source   SourceConfig
	Migrate  MigrateConfig
	Status   StatusConfig
	Logging  LoggingConfig
}

// DatabaseConfig holds the destination PostgreSQL settings.
type DatabaseConfig struct {
	// URL is a full connection string. When set it wins over the parts below.
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	Host     string `env:"POSTGRES_HOST" default:"127.0.0.1"`
	Port     int    `env:"POSTGRES_PORT" default:"5432"`
	Name     string `env:"POSTGRES_DB" default:"movies_database"`
	User     string `env:"POSTGRES_USER" default:"app"`
	Password string `env:"POSTGRES_PASSWORD"`

	// Schema holds the destination tables (default: content)
	Schema string `env:"POSTGRES_SCHEMA" default:"content"`

	// MaxConns is the maximum number of connections in the pool (default: 4)
	MaxConns int `env:"DB_MAX_CONNS" default:"4"`

	// MinConns is the minimum number of connections to keep open (default: 1)
	MinConns int `env:"DB_MIN_CONNS" default:"1"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// SourceConfig locates the legacy SQLite database.
type SourceConfig struct {
	Path string `env:"SQLITE_PATH" default:"db.sqlite"`
}

// MigrateConfig controls the pipeline.
type MigrateConfig struct {
	// BatchSize is the number of rows per batch for every stage (default: 100)
	BatchSize int `env:"MIGRATE_BATCH_SIZE" default:"100"`

	// Tables is an optional comma-separated subset; empty migrates all
	Tables []string `env:"MIGRATE_TABLES"`

	// SkipVerify stops after writing (default: false)
	SkipVerify bool `env:"MIGRATE_SKIP_VERIFY" default:"false"`
}

// StatusConfig holds the optional status server settings.
type StatusConfig struct {
	// Addr is the listen address; empty disables the server
	Addr string `env:"STATUS_ADDR"`

	// ShutdownTimeout bounds the graceful shutdown (default: 5s)
	ShutdownTimeout time.Duration `env:"STATUS_SHUTDOWN_TIMEOUT" default:"5s"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// DSN returns the PostgreSQL connection string, built from the parts
// when URL is empty.
func (c *DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:   "/" + c.Name,
	}
	if c.Password != "" {
		u.User = url.UserPassword(c.User, c.Password)
	} else if c.User != "" {
		u.User = url.User(c.User)
	}
	return u.String()
}

// Enabled reports whether the status server should run.
func (c *StatusConfig) Enabled() bool { return c.Addr != "" }
