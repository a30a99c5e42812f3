// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Parse    ParseConfig
	Security SecurityConfig
	Rate     RateLimitConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 30s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"30s"`

	// WriteTimeout is the maximum duration for writing response (default: 60s)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"60s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`

	// MaxConcurrent is the number of files parsed at once (default: 5)
	MaxConcurrent int `env:"SERVER_MAX_CONCURRENT" default:"5"`

	// MaxWait is how long a request waits for a parse slot (default: 30s)
	MaxWait time.Duration `env:"SERVER_MAX_WAIT" default:"30s"`
}

// DatabaseConfig holds database connection settings.
// The database is only needed for imports, so URL may be empty.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string.
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// MaxConns is the maximum number of connections in the pool (default: 10)
	MaxConns int `env:"DB_MAX_CONNS" default:"10"`

	// MinConns is the minimum number of connections to keep open (default: 0)
	MinConns int `env:"DB_MIN_CONNS" default:"0"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`

	// AutoMigrate creates the import tables on startup (default: true)
	AutoMigrate bool `env:"DB_AUTO_MIGRATE" default:"true"`
}

// ParseConfig holds defaults for reading and writing FLR files.
// Schema files may override Encoding and LineBreak.
type ParseConfig struct {
	// Encoding is the IANA charset of input and output files (default: UTF-8)
	Encoding string `env:"FLR_ENCODING"`

	// LineBreak forces the line break: lf, crlf, cr or a literal token.
	// Empty means detect on read.
	LineBreak string `env:"FLR_LINE_BREAK"`

	// IgnoreUnique logs unique violations as warnings instead of failing (default: false)
	IgnoreUnique bool `env:"FLR_IGNORE_UNIQUE" default:"false"`

	// RejectAmbiguous fails on lines matching more than one body type (default: false)
	RejectAmbiguous bool `env:"FLR_REJECT_AMBIGUOUS" default:"false"`

	// MaxLines bounds the number of lines per file, 0 for no limit (default: 0)
	MaxLines int `env:"FLR_MAX_LINES" default:"0"`

	// MaxLineSize bounds one line in bytes (default: 1MB)
	MaxLineSize int `env:"FLR_MAX_LINE_SIZE" default:"1048576"`

	// MaxFileSize bounds uploaded files in bytes (default: 100MB)
	MaxFileSize int64 `env:"FLR_MAX_FILE_SIZE" default:"104857600"`

	// SchemaDirs lists extra directories of YAML schemas, comma-separated
	SchemaDirs []string `env:"FLR_SCHEMA_DIRS" envAlt:"FLR_SCHEMA_DIR"`
}

// RateLimitConfig holds per-IP rate limiting settings for the HTTP API.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the limit per client IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`
}

// SecurityConfig holds settings for the HTTP API.
type SecurityConfig struct {
	// TrustedProxies lists proxy CIDRs whose X-Real-IP and X-Forwarded-For
	// headers are believed, comma-separated
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// RequireAPIKey protects the import endpoint with X-API-Key (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys lists the accepted keys, comma-separated
	APIKeys []string `env:"API_KEYS"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
