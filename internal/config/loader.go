package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
)

// Load builds the configuration from the environment and validates it.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := loadStruct(reflect.ValueOf(cfg).Elem()); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// loadStruct fills the fields of v that carry an env tag, descending into
// the section structs. A blank variable counts as unset.
func loadStruct(v reflect.Value) error {
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field, dst := t.Field(i), v.Field(i)
		if !dst.CanSet() {
			continue
		}
		if field.Type.Kind() == reflect.Struct {
			if err := loadStruct(dst); err != nil {
				return err
			}
			continue
		}

		name := field.Tag.Get("env")
		if name == "" {
			continue
		}
		value := lookup(name, field.Tag.Get("envAlt"), field.Tag.Get("default"))
		if value == "" {
			continue
		}
		if err := assign(dst.Addr().Interface(), value); err != nil {
			return fmt.Errorf("invalid value for %s=%q: %w", name, value, err)
		}
	}

	return nil
}

// lookup returns the first non-blank of the named variable, its legacy
// alias and the default.
func lookup(name, alias, def string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	if alias != "" {
		if v := os.Getenv(alias); v != "" {
			return v
		}
	}
	return def
}

// assign parses value into the field dst points to.
func assign(dst any, value string) error {
	var err error
	switch p := dst.(type) {
	case *string:
		*p = value
	case *int:
		*p, err = strconv.Atoi(value)
	case *int64:
		*p, err = strconv.ParseInt(value, 10, 64)
	case *bool:
		*p, err = strconv.ParseBool(value)
	case *time.Duration:
		*p, err = time.ParseDuration(value)
	case *[]string:
		*p = splitList(value)
	default:
		return fmt.Errorf("unsupported field type %T", dst)
	}
	return err
}

// splitList splits a comma-separated list, dropping blank entries.
func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	errs := errors.Join(
		c.Server.validate(),
		c.Database.validate(),
		c.Upload.validate(),
		c.Parser.validate(),
		c.Merge.validate(),
		c.Rate.validate(),
		c.Security.validate(),
		c.Logging.validate(),
	)
	if errs != nil {
		return fmt.Errorf("validation failed:\n%w", errs)
	}
	return nil
}

func (c *ServerConfig) validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("SERVER_PORT (%d) must be 1-65535", c.Port))
	}
	if c.ReadTimeout < 0 {
		errs = append(errs, errors.New("SERVER_READ_TIMEOUT must be non-negative"))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("SERVER_SHUTDOWN_TIMEOUT must be positive"))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, errors.New("SERVER_REQUEST_TIMEOUT must be positive"))
	}
	return errors.Join(errs...)
}

func (c *DatabaseConfig) validate() error {
	if c.HistoryCapacity <= 0 {
		return errors.New("HISTORY_CAPACITY must be positive")
	}
	return nil
}

func (c *UploadConfig) validate() error {
	var errs []error
	if c.MaxFileSize <= 0 {
		errs = append(errs, errors.New("UPLOAD_MAX_FILE_SIZE must be positive"))
	}
	if c.MaxConcurrent <= 0 {
		errs = append(errs, errors.New("UPLOAD_MAX_CONCURRENT must be positive"))
	}
	if c.MaxWaitTime <= 0 {
		errs = append(errs, errors.New("UPLOAD_MAX_WAIT_TIME must be positive"))
	}
	if c.MaxFiles <= 0 {
		errs = append(errs, errors.New("UPLOAD_MAX_FILES must be positive"))
	}
	return errors.Join(errs...)
}

func (c *ParserConfig) validate() error {
	var errs []error
	switch strings.ToLower(c.Backend) {
	case BackendInProcess:
	case BackendExternal:
		if c.Command == "" {
			errs = append(errs, errors.New("PARSER_COMMAND is required when PARSER_BACKEND is external"))
		}
	default:
		errs = append(errs, fmt.Errorf("PARSER_BACKEND (%q) must be one of: inprocess, external", c.Backend))
	}
	if c.Timeout <= 0 {
		errs = append(errs, errors.New("PARSER_TIMEOUT must be positive"))
	}
	return errors.Join(errs...)
}

func (c *MergeConfig) validate() error {
	var errs []error
	if _, err := language.Parse(c.Collation); err != nil {
		errs = append(errs, fmt.Errorf("MERGE_COLLATION (%q) is not a valid language tag", c.Collation))
	}
	if strings.TrimSpace(c.SortKey) == "" {
		errs = append(errs, errors.New("MERGE_SORT_KEY must not be blank"))
	}
	return errors.Join(errs...)
}

func (c *RateLimitConfig) validate() error {
	if !c.Enabled {
		return nil
	}
	var errs []error
	if c.RequestsPerMinute <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_REQUESTS_PER_MINUTE must be positive when rate limiting is enabled"))
	}
	if c.UploadLimit <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_UPLOAD must be positive when rate limiting is enabled"))
	}
	return errors.Join(errs...)
}

func (c *SecurityConfig) validate() error {
	if c.RequireAPIKey && len(c.APIKeys) == 0 {
		return errors.New("REQUIRE_API_KEY is true but API_KEYS is empty")
	}
	return nil
}

func (c *LoggingConfig) validate() error {
	var errs []error
	switch strings.ToLower(c.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Level))
	}
	switch strings.ToLower(c.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMAT (%q) must be one of: text, json", c.Format))
	}
	return errors.Join(errs...)
}

// String renders the settings for the startup log with the database URL
// and API keys masked.
func (c *Config) String() string {
	dbURL := "[none]"
	if c.Database.HasDatabase() {
		dbURL = "[MASKED]"
	}
	return fmt.Sprintf("Config{Server: {Addr: %q}, Database: {URL: %s, HistoryCapacity: %d}, "+
		"Upload: {MaxFileSize: %d, MaxConcurrent: %d, MaxFiles: %d}, "+
		"Parser: {Backend: %q, Codepage: %d, DatesAsValues: %v}, "+
		"Merge: {Collation: %q, SortKey: %q}, Rate: {Enabled: %v, RequestsPerMinute: %d}, "+
		"Security: {RequireAPIKey: %v, APIKeys: %d}, Logging: {Level: %q, Format: %q}}",
		c.Server.Addr(), dbURL, c.Database.HistoryCapacity,
		c.Upload.MaxFileSize, c.Upload.MaxConcurrent, c.Upload.MaxFiles,
		c.Parser.Backend, c.Parser.Codepage, c.Parser.DatesAsValues,
		c.Merge.Collation, c.Merge.SortKey, c.Rate.Enabled, c.Rate.RequestsPerMinute,
		c.Security.RequireAPIKey, len(c.Security.APIKeys), c.Logging.Level, c.Logging.Format)
}
