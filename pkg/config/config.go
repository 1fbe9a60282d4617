package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix shared by every environment variable the tool reads
const EnvPrefix = "INSTANON_"

// Config holds all configuration options for instanon
type Config struct {
	// Mirror site selection and transport
	Mirror MirrorConfig `yaml:"mirror" json:"mirror"`

	// Output layout
	Output OutputConfig `yaml:"output" json:"output"`

	// Download behaviour
	Download DownloadConfig `yaml:"download" json:"download"`

	// Retry configuration for mirror and media requests
	Retry RetryConfig `yaml:"retry" json:"retry"`

	// Optional client-side request throttle
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Notification preferences
	Notifications NotificationConfig `yaml:"notifications" json:"notifications"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// MirrorConfig selects the proxy site that mirrors profile content
type MirrorConfig struct {
	// Variant is the name of a built-in mirror definition
	Variant string `yaml:"variant" json:"variant"`
	// BaseURL overrides the variant's base URL when set
	BaseURL string `yaml:"base_url" json:"base_url"`
	// InsecureSkipVerify disables TLS certificate verification for the mirror
	// and media hosts. The mirrors serve certificates that do not verify.
	InsecureSkipVerify bool   `yaml:"insecure_skip_verify" json:"insecure_skip_verify"`
	UserAgent          string `yaml:"user_agent" json:"user_agent"`
	// OriginCheck confirms "not found" pages against the origin platform
	OriginCheck bool `yaml:"origin_check" json:"origin_check"`
}

// OutputConfig holds output directory configuration
type OutputConfig struct {
	BaseDirectory string `yaml:"base_directory" json:"base_directory"`
	// Chaos stores all stories in one directory instead of one per day
	Chaos      bool   `yaml:"chaos" json:"chaos"`
	DateFormat string `yaml:"date_format" json:"date_format"`
}

// DownloadConfig holds download-specific configuration
type DownloadConfig struct {
	// Timeout applies per request; zero means no timeout
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
	// KeepGoing continues with the next username after a failure
	KeepGoing bool `yaml:"keep_going" json:"keep_going"`
}

// RetryConfig holds retry configuration
type RetryConfig struct {
	// MaxAttempts counts the first try; 1 disables retrying
	MaxAttempts int `yaml:"max_attempts" json:"max_attempts"`
	// Backoff is "exponential" or "constant"; constant waits BaseDelay
	Backoff   string        `yaml:"backoff" json:"backoff"`
	BaseDelay time.Duration `yaml:"base_delay" json:"base_delay"`
	MaxDelay  time.Duration `yaml:"max_delay" json:"max_delay"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	// RequestsPerMinute of zero disables throttling
	RequestsPerMinute int `yaml:"requests_per_minute" json:"requests_per_minute"`
}

// NotificationConfig holds notification preferences
type NotificationConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Mirror: MirrorConfig{
			Variant:            "insta-stories",
			InsecureSkipVerify: true,
			UserAgent:          "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
			OriginCheck:        false,
		},
		Output: OutputConfig{
			BaseDirectory: "users",
			Chaos:         false,
			DateFormat:    "02-January-2006",
		},
		Download: DownloadConfig{
			Timeout:   0,
			KeepGoing: false,
		},
		Retry: RetryConfig{
			MaxAttempts: 1,
			Backoff:     "exponential",
			BaseDelay:   time.Second,
			MaxDelay:    30 * time.Second,
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 0,
		},
		Notifications: NotificationConfig{
			Enabled: false,
		},
		Logging: LoggingConfig{
			Level: "error",
			File:  "",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	if v := os.Getenv(EnvPrefix + "VARIANT"); v != "" {
		c.Mirror.Variant = v
	}
	if v := os.Getenv(EnvPrefix + "BASE_URL"); v != "" {
		c.Mirror.BaseURL = v
	}
	if v := os.Getenv(EnvPrefix + "USER_AGENT"); v != "" {
		c.Mirror.UserAgent = v
	}
	if v := os.Getenv(EnvPrefix + "INSECURE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sINSECURE: %w", EnvPrefix, err))
		} else {
			c.Mirror.InsecureSkipVerify = b
		}
	}
	if v := os.Getenv(EnvPrefix + "ORIGIN_CHECK"); v != "" {
		c.Mirror.OriginCheck = strings.ToLower(v) == "true"
	}

	if v := os.Getenv(EnvPrefix + "OUTPUT_DIR"); v != "" {
		c.Output.BaseDirectory = v
	}
	if v := os.Getenv(EnvPrefix + "CHAOS"); v != "" {
		c.Output.Chaos = strings.ToLower(v) == "true"
	}

	if v := os.Getenv(EnvPrefix + "TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sTIMEOUT: %w", EnvPrefix, err))
		} else {
			c.Download.Timeout = d
		}
	}

	if v := os.Getenv(EnvPrefix + "MAX_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sMAX_ATTEMPTS: %w", EnvPrefix, err))
		} else {
			c.Retry.MaxAttempts = n
		}
	}
	if v := os.Getenv(EnvPrefix + "BACKOFF"); v != "" {
		c.Retry.Backoff = v
	}

	if v := os.Getenv(EnvPrefix + "REQUESTS_PER_MINUTE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sREQUESTS_PER_MINUTE: %w", EnvPrefix, err))
		} else {
			c.RateLimit.RequestsPerMinute = n
		}
	}

	if v := os.Getenv(EnvPrefix + "NOTIFICATIONS_ENABLED"); v != "" {
		c.Notifications.Enabled = strings.ToLower(v) == "true"
	}

	if v := os.Getenv(EnvPrefix + "LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv(EnvPrefix + "LOG_FILE"); v != "" {
		c.Logging.File = v
	}

	return errors.Join(errs...)
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	home, _ := os.UserHomeDir()
	locations := []string{
		".instanon.yaml",
		".instanon.yml",
	}
	if home != "" {
		locations = append(locations,
			filepath.Join(home, ".config", "instanon", "config.yaml"),
			filepath.Join(home, ".config", "instanon", "config.yml"),
			filepath.Join(home, ".instanon.yaml"),
		)
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Mirror.Variant) == "" {
		errs = append(errs, errors.New("mirror variant is required"))
	}
	if c.Mirror.BaseURL != "" {
		u, err := url.Parse(c.Mirror.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("mirror base URL %q must be an absolute URL", c.Mirror.BaseURL))
		}
	}

	if c.Output.BaseDirectory == "" {
		errs = append(errs, errors.New("output directory is required"))
	}
	if c.Output.DateFormat == "" {
		errs = append(errs, errors.New("date format is required"))
	} else if strings.ContainsAny(time.Date(2024, time.March, 7, 0, 0, 0, 0, time.UTC).Format(c.Output.DateFormat), `/\`) {
		errs = append(errs, errors.New("date format must not produce path separators"))
	}

	if c.Download.Timeout < 0 {
		errs = append(errs, errors.New("download timeout cannot be negative"))
	}

	if c.Retry.MaxAttempts < 1 {
		errs = append(errs, errors.New("retry max attempts must be at least 1"))
	}
	switch strings.ToLower(c.Retry.Backoff) {
	case "exponential", "constant":
	default:
		errs = append(errs, fmt.Errorf("unknown retry backoff %q (want exponential or constant)", c.Retry.Backoff))
	}
	if c.Retry.BaseDelay < 0 || c.Retry.MaxDelay < 0 {
		errs = append(errs, errors.New("retry delays cannot be negative"))
	}

	if c.RateLimit.RequestsPerMinute < 0 {
		errs = append(errs, errors.New("requests per minute cannot be negative"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "disabled": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration.
// Only keys present in the map are applied.
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if v, ok := flags["variant"].(string); ok && v != "" {
		c.Mirror.Variant = v
	}
	if v, ok := flags["base-url"].(string); ok && v != "" {
		c.Mirror.BaseURL = v
	}
	if v, ok := flags["insecure"].(bool); ok {
		c.Mirror.InsecureSkipVerify = v
	}
	if v, ok := flags["origin-check"].(bool); ok {
		c.Mirror.OriginCheck = v
	}
	if v, ok := flags["output"].(string); ok && v != "" {
		c.Output.BaseDirectory = v
	}
	if v, ok := flags["chaos"].(bool); ok {
		c.Output.Chaos = v
	}
	if v, ok := flags["timeout"].(time.Duration); ok {
		c.Download.Timeout = v
	}
	if v, ok := flags["keep-going"].(bool); ok {
		c.Download.KeepGoing = v
	}
	if v, ok := flags["max-attempts"].(int); ok && v > 0 {
		c.Retry.MaxAttempts = v
	}
	if v, ok := flags["rate-limit"].(int); ok && v >= 0 {
		c.RateLimit.RequestsPerMinute = v
	}
	if v, ok := flags["notifications"].(bool); ok {
		c.Notifications.Enabled = v
	}
	if v, ok := flags["log-level"].(string); ok && v != "" {
		c.Logging.Level = v
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// .env files are optional
	_ = godotenv.Load(".env")
	if home, err := os.UserHomeDir(); err == nil {
		_ = godotenv.Load(filepath.Join(home, ".instanon.env"))
	}

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
