// Package config loads application settings from environment variables with
// defaults, and validates them on startup so misconfiguration fails fast.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Upload   UploadConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
	Compare  CompareConfig
	Report   ReportConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" envAlt:"PORT" default:"8080"`

	ReadTimeout  time.Duration `env:"SERVER_READ_TIMEOUT" default:"30s"`
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"5m"`
	IdleTimeout  time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout bounds graceful shutdown, including draining runs (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 5m)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"5m"`
}

// UploadConfig holds file intake and run settings.
type UploadConfig struct {
	// MaxFileSize caps each uploaded file in bytes (default: 50MB)
	MaxFileSize int64 `env:"UPLOAD_MAX_FILE_SIZE" default:"52428800"`

	// MaxConcurrentRuns is the number of runs processed at once (default: 4)
	MaxConcurrentRuns int `env:"UPLOAD_MAX_CONCURRENT" default:"4"`

	// MaxWaitTime is how long a run waits for a slot (default: 30s)
	MaxWaitTime time.Duration `env:"UPLOAD_MAX_WAIT_TIME" default:"30s"`

	// RunTimeout caps a single Clear & Match or Compare run (default: 2m)
	RunTimeout time.Duration `env:"RUN_TIMEOUT" envAlt:"UPLOAD_TIMEOUT" default:"2m"`

	// Workers bounds concurrent tier scans and table comparisons within a run (default: 4)
	Workers int `env:"RUN_WORKERS" default:"4"`
}

// RateLimitConfig holds per-IP rate limiting settings.
type RateLimitConfig struct {
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute applies to page and health requests (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`

	// RunLimit applies to the run endpoints (default: 10)
	RunLimit int `env:"RATE_LIMIT_RUNS" envAlt:"RATE_LIMIT_UPLOAD" default:"10"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`

	// RequireAPIKey protects the run endpoints with X-API-Key (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted keys
	APIKeys []string `env:"API_KEYS"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// CompareConfig holds Compare defaults.
type CompareConfig struct {
	// DefaultThreshold is the wrong count a tier may reach before it is flagged (default: 5)
	DefaultThreshold int `env:"COMPARE_DEFAULT_THRESHOLD" default:"5"`

	// CorrectOnlyWhenWrong leaves Full Correct cells empty for tiers without wrong entries
	CorrectOnlyWhenWrong bool `env:"COMPARE_CORRECT_ONLY_WHEN_WRONG" default:"false"`
}

// ReportConfig holds comparison workbook presentation.
type ReportConfig struct {
	ColumnWidth float64 `env:"REPORT_COLUMN_WIDTH" default:"17"`

	// FlagColor is the hex RGB fill of flagged cells (default: F4CCCC)
	FlagColor string `env:"REPORT_FLAG_COLOR" default:"F4CCCC"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
