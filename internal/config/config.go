// Package config provides centralized configuration management for the application.
// It loads configuration from defaults, an optional YAML file and environment
// variables, and validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Storage    StorageConfig    `yaml:"storage"`
	Upload     UploadConfig     `yaml:"upload"`
	Identifier IdentifierConfig `yaml:"identifier"`
	Rate       RateLimitConfig  `yaml:"rate"`
	Security   SecurityConfig   `yaml:"security"`
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0" yaml:"host"`

	// Port is the port to listen on (default: 8000, the original service port)
	Port int `env:"SERVER_PORT" envAlt:"PORT" default:"8000" yaml:"port"`

	// ReadTimeout is the maximum duration for reading request body (default: 30s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"30s" yaml:"read_timeout"`

	// WriteTimeout is the maximum duration for writing response (default: 2m)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"2m" yaml:"write_timeout"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s" yaml:"idle_timeout"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s" yaml:"shutdown_timeout"`

	// RequestTimeout is the middleware timeout for requests (default: 90s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"90s" yaml:"request_timeout"`
}

// StorageConfig holds the filesystem locations artifacts move through.
type StorageConfig struct {
	// UploadsDir receives spooled identifier files (default: uploads)
	UploadsDir string `env:"UPLOADS_DIR" envAlt:"UPLOAD_DIR" default:"uploads" yaml:"uploads_dir"`

	// StorageDir receives finished archives (default: storage)
	StorageDir string `env:"STORAGE_DIR" default:"storage" yaml:"storage_dir"`

	// WorkDir is where per-session artifact directories are generated (default: .)
	WorkDir string `env:"WORK_DIR" default:"." yaml:"work_dir"`

	// Retention is how long archives and spool files are kept (default: 30 days)
	Retention time.Duration `env:"STORAGE_RETENTION" default:"720h" yaml:"retention"`

	// SweepInterval is how often the janitor runs (default: 1h)
	SweepInterval time.Duration `env:"STORAGE_SWEEP_INTERVAL" default:"1h" yaml:"sweep_interval"`

	// SweepEnabled controls whether the janitor runs at all (default: true)
	SweepEnabled bool `env:"STORAGE_SWEEP_ENABLED" default:"true" yaml:"sweep_enabled"`
}

// UploadConfig holds identifier upload settings.
type UploadConfig struct {
	// MaxFileSize is the maximum allowed file size in bytes (default: 100MB)
	MaxFileSize int64 `env:"UPLOAD_MAX_FILE_SIZE" default:"104857600" yaml:"max_file_size"`

	// MaxWaitTime is how long a request waits for the session gate (default: 30s)
	MaxWaitTime time.Duration `env:"UPLOAD_MAX_WAIT_TIME" default:"30s" yaml:"max_wait_time"`

	// Timeout bounds a single upload, select or download step (default: 10m)
	Timeout time.Duration `env:"UPLOAD_TIMEOUT" default:"10m" yaml:"timeout"`
}

// IdentifierConfig describes how the identifier column is found and checked.
type IdentifierConfig struct {
	// Column is the canonical identifier column name (default: Uid)
	Column string `env:"IDENTIFIER_COLUMN" default:"Uid" yaml:"column"`

	// Aliases are accepted alternative header names, matched case-insensitively
	Aliases []string `env:"IDENTIFIER_ALIASES" default:"uid,uids,user_id,userid,client_id,clientid,identifier" yaml:"aliases"`

	// Separator must appear in every sampled identifier (default: -)
	Separator string `env:"IDENTIFIER_SEPARATOR" default:"-" yaml:"separator"`

	// Pattern, when set, replaces the separator check with a regular expression
	Pattern string `env:"IDENTIFIER_PATTERN" yaml:"pattern"`

	// SampleSize is how many leading identifiers are checked (default: 5)
	SampleSize int `env:"IDENTIFIER_SAMPLE_SIZE" default:"5" yaml:"sample_size"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true" yaml:"enabled"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100" yaml:"requests_per_minute"`

	// UploadLimit is requests per minute for upload endpoints (default: 10)
	UploadLimit int `env:"RATE_LIMIT_UPLOAD" default:"10" yaml:"upload_limit"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES" yaml:"trusted_proxies"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true" yaml:"enable_csp"`

	// CORSAllowedOrigins lists origins allowed to call the API from a browser
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" default:"http://localhost:3000" yaml:"cors_allowed_origins"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info" yaml:"level"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text" yaml:"format"`
}

// MetricsConfig holds Prometheus exposition settings.
type MetricsConfig struct {
	Enabled bool   `env:"METRICS_ENABLED" default:"true" yaml:"enabled"`
	Path    string `env:"METRICS_PATH" default:"/metrics" yaml:"path"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
