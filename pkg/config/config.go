package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for the Lofter crawler
type Config struct {
	// Lofter credentials
	Lofter LofterConfig `yaml:"lofter" json:"lofter"`

	// Rate limiting configuration
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Output settings
	Output OutputConfig `yaml:"output" json:"output"`

	// Download settings
	Download DownloadConfig `yaml:"download" json:"download"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// LofterConfig holds Lofter-specific configuration
type LofterConfig struct {
	// Cookies maps credential kind names (e.g. LOFTER-PHONE-LOGIN-AUTH,
	// NTES_SESS) to their values.
	Cookies map[string]string `yaml:"cookies" json:"cookies"`

	// ActiveCookie is the credential kind used as the primary identity
	// on endpoints that require one (subscriptions).
	ActiveCookie string `yaml:"active_cookie" json:"active_cookie"`

	UserAgent string `yaml:"user_agent" json:"user_agent"`
	Product   string `yaml:"product" json:"product"`
}

// RateLimitConfig holds per-endpoint-class minimum request intervals
// and the retry policy applied on top of them.
type RateLimitConfig struct {
	GenericInterval        time.Duration `yaml:"generic_interval" json:"generic_interval"`
	TagListInterval        time.Duration `yaml:"tag_list_interval" json:"tag_list_interval"`
	CollectionListInterval time.Duration `yaml:"collection_list_interval" json:"collection_list_interval"`
	PostDetailInterval     time.Duration `yaml:"post_detail_interval" json:"post_detail_interval"`
	CommentL1Interval      time.Duration `yaml:"comment_l1_interval" json:"comment_l1_interval"`
	CommentL2Interval      time.Duration `yaml:"comment_l2_interval" json:"comment_l2_interval"`

	// BetweenPagesDelay is awaited between consecutive pagination requests,
	// on top of the per-class budget.
	BetweenPagesDelay time.Duration `yaml:"between_pages_delay" json:"between_pages_delay"`

	// BetweenBatchesDelay is awaited between successive download batches.
	BetweenBatchesDelay time.Duration `yaml:"between_batches_delay" json:"between_batches_delay"`

	MaxRetries int           `yaml:"max_retries" json:"max_retries"`
	RetryDelay time.Duration `yaml:"retry_delay" json:"retry_delay"`
}

// OutputConfig holds output directory configuration
type OutputConfig struct {
	BaseDirectory string `yaml:"base_directory" json:"base_directory"`
	PhotoDirName  string `yaml:"photo_dir_name" json:"photo_dir_name"`
	JSONDirName   string `yaml:"json_dir_name" json:"json_dir_name"`
}

// DownloadConfig holds the per-category worker pool sizes
type DownloadConfig struct {
	PhotoWorkers    int           `yaml:"photo_workers" json:"photo_workers"`
	TextWorkers     int           `yaml:"text_workers" json:"text_workers"`
	CommentWorkers  int           `yaml:"comment_workers" json:"comment_workers"`
	RequestTimeout  time.Duration `yaml:"request_timeout" json:"request_timeout"`
	DownloadTimeout time.Duration `yaml:"download_timeout" json:"download_timeout"`
	SkipComments    bool          `yaml:"skip_comments" json:"skip_comments"`
	SkipPhotos      bool          `yaml:"skip_photos" json:"skip_photos"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults.
// The interval defaults follow what the Lofter API tolerates without
// tripping abuse detection; L2 comments are the most sensitive endpoint.
func DefaultConfig() *Config {
	return &Config{
		Lofter: LofterConfig{
			Cookies:      map[string]string{},
			ActiveCookie: "LOFTER-PHONE-LOGIN-AUTH",
			UserAgent:    "LOFTER-Android 8.0.12 (LM-V409N; Android 15; null) WIFI",
			Product:      "lofter-android-8.0.12",
		},
		RateLimit: RateLimitConfig{
			GenericInterval:        time.Second,
			TagListInterval:        50 * time.Millisecond,
			CollectionListInterval: 10 * time.Millisecond,
			PostDetailInterval:     5 * time.Millisecond,
			CommentL1Interval:      50 * time.Millisecond,
			CommentL2Interval:      time.Second,
			BetweenPagesDelay:      500 * time.Millisecond,
			BetweenBatchesDelay:    time.Second,
			MaxRetries:             3,
			RetryDelay:             2 * time.Second,
		},
		Output: OutputConfig{
			BaseDirectory: "./output",
			PhotoDirName:  "photo",
			JSONDirName:   "json",
		},
		Download: DownloadConfig{
			PhotoWorkers:    5,
			TextWorkers:     10,
			CommentWorkers:  5,
			RequestTimeout:  15 * time.Second,
			DownloadTimeout: 20 * time.Second,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	for _, kind := range []string{"Authorization", "LOFTER-PHONE-LOGIN-AUTH", "LOFTER_SESS", "NTES_SESS"} {
		envKey := "LOFTER_COOKIE_" + strings.NewReplacer("-", "_").Replace(kind)
		if v := os.Getenv(envKey); v != "" {
			if c.Lofter.Cookies == nil {
				c.Lofter.Cookies = map[string]string{}
			}
			c.Lofter.Cookies[kind] = v
		}
	}
	if active := os.Getenv("LOFTER_ACTIVE_COOKIE"); active != "" {
		c.Lofter.ActiveCookie = active
	}
	if ua := os.Getenv("LOFTER_USER_AGENT"); ua != "" {
		c.Lofter.UserAgent = ua
	}
	if outputDir := os.Getenv("LOFTER_OUTPUT_DIR"); outputDir != "" {
		c.Output.BaseDirectory = outputDir
	}
	if workers := os.Getenv("LOFTER_PHOTO_WORKERS"); workers != "" {
		if val, err := strconv.Atoi(workers); err == nil && val > 0 {
			c.Download.PhotoWorkers = val
		}
	}
	if retries := os.Getenv("LOFTER_MAX_RETRIES"); retries != "" {
		if val, err := strconv.Atoi(retries); err == nil && val > 0 {
			c.RateLimit.MaxRetries = val
		}
	}
	if logLevel := os.Getenv("LOFTER_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
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
	locations := []string{
		".lofterscraper.yaml",
		".lofterscraper.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "lofterscraper", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".lofterscraper.yaml"),
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

	if c.RateLimit.MaxRetries < 1 {
		errs = append(errs, errors.New("max retries must be at least 1"))
	}
	for name, iv := range map[string]time.Duration{
		"generic_interval":         c.RateLimit.GenericInterval,
		"tag_list_interval":        c.RateLimit.TagListInterval,
		"collection_list_interval": c.RateLimit.CollectionListInterval,
		"post_detail_interval":     c.RateLimit.PostDetailInterval,
		"comment_l1_interval":      c.RateLimit.CommentL1Interval,
		"comment_l2_interval":      c.RateLimit.CommentL2Interval,
	} {
		if iv < 0 {
			errs = append(errs, fmt.Errorf("%s cannot be negative", name))
		}
	}

	if c.Download.PhotoWorkers <= 0 {
		errs = append(errs, errors.New("photo workers must be positive"))
	}
	if c.Download.TextWorkers <= 0 {
		errs = append(errs, errors.New("text workers must be positive"))
	}
	if c.Download.CommentWorkers <= 0 {
		errs = append(errs, errors.New("comment workers must be positive"))
	}
	if c.Download.RequestTimeout <= 0 {
		errs = append(errs, errors.New("request timeout must be positive"))
	}

	if c.Output.BaseDirectory == "" {
		errs = append(errs, errors.New("output directory is required"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
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

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Load loads configuration from all sources with proper precedence.
// Precedence order: Environment variables > .env file > Config file > Defaults
func Load(configPath string) (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".lofterscraper.env"))

	cfg := DefaultConfig()

	if err := cfg.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := cfg.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}
