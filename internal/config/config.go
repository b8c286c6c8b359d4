// Package config loads application settings from environment variables.
// Defaults apply to unset values and every setting is validated on startup.
package config

import (
	"strconv"
	"time"
)

// Parser backends.
const (
	BackendInProcess = "inprocess"
	BackendExternal  = "external"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Upload   UploadConfig
	Parser   ParserConfig
	Merge    MergeConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"60s"`

	// WriteTimeout covers building the merged workbook (default: 3m)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"3m"`

	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout bounds graceful shutdown, including in-flight parses (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 2m)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"2m"`
}

// DatabaseConfig holds the optional history database.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string. Empty keeps history in memory.
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// HistoryCapacity is how many merges the in-memory history keeps (default: 100)
	HistoryCapacity int `env:"HISTORY_CAPACITY" default:"100"`
}

// UploadConfig holds file ingestion settings.
type UploadConfig struct {
	// MaxFileSize is the maximum allowed file size in bytes (default: 100MB)
	MaxFileSize int64 `env:"UPLOAD_MAX_FILE_SIZE" default:"104857600"`

	// MaxConcurrent is the maximum number of parallel parses (default: 4)
	MaxConcurrent int `env:"UPLOAD_MAX_CONCURRENT" default:"4"`

	// MaxWaitTime is how long to wait for a parse slot (default: 30s)
	MaxWaitTime time.Duration `env:"UPLOAD_MAX_WAIT_TIME" default:"30s"`

	// MaxFiles caps the files accepted by one upload request (default: 50)
	MaxFiles int `env:"UPLOAD_MAX_FILES" default:"50"`
}

// ParserConfig selects and configures the spreadsheet backend.
type ParserConfig struct {
	// Backend is inprocess or external (default: inprocess)
	Backend string `env:"PARSER_BACKEND" default:"inprocess"`

	// Command is the external parser executable, e.g. python3
	Command string `env:"PARSER_COMMAND"`

	// Args precede the file path on the external command line
	Args []string `env:"PARSER_ARGS"`

	// Timeout bounds a single external parse (default: 60s)
	Timeout time.Duration `env:"PARSER_TIMEOUT" default:"60s"`

	// Codepage is the hint for legacy files (default: 950, Big5)
	Codepage int `env:"PARSER_CODEPAGE" default:"950"`

	// DatesAsValues types date-formatted cells as dates (default: true)
	DatesAsValues bool `env:"PARSER_DATES_AS_VALUES" default:"true"`
}

// MergeConfig holds merge defaults.
type MergeConfig struct {
	// Collation is the BCP 47 tag used for text ordering (default: zh-Hant)
	Collation string `env:"MERGE_COLLATION" default:"zh-Hant"`

	// SortKey is the default sort column (default: 單號)
	SortKey string `env:"MERGE_SORT_KEY" default:"單號"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`

	// UploadLimit is requests per minute for upload and merge endpoints (default: 20)
	UploadLimit int `env:"RATE_LIMIT_UPLOAD" default:"20"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`

	// RequireAPIKey enables X-API-Key authentication on /api routes
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

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// HasDatabase reports whether history should be persisted in PostgreSQL.
func (c *DatabaseConfig) HasDatabase() bool {
	return c.URL != ""
}
