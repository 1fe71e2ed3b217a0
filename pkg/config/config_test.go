package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.RateLimit.GenericInterval != time.Second {
		t.Errorf("Expected default generic interval to be 1s, got %v", config.RateLimit.GenericInterval)
	}

	if config.RateLimit.CommentL2Interval != time.Second {
		t.Errorf("Expected default L2 comment interval to be 1s, got %v", config.RateLimit.CommentL2Interval)
	}

	if config.Download.TextWorkers != 10 {
		t.Errorf("Expected default text workers to be 10, got %d", config.Download.TextWorkers)
	}

	if config.Output.BaseDirectory != "./output" {
		t.Errorf("Expected default output directory to be ./output, got %s", config.Output.BaseDirectory)
	}

	if err := config.Validate(); err != nil {
		t.Errorf("Expected default config to validate, got %v", err)
	}
}

func TestLoadFromEnv(t *testing.T) {
	os.Setenv("LOFTER_COOKIE_LOFTER_PHONE_LOGIN_AUTH", "test-token")
	os.Setenv("LOFTER_ACTIVE_COOKIE", "NTES_SESS")
	os.Setenv("LOFTER_OUTPUT_DIR", "/tmp/test-output")
	os.Setenv("LOFTER_PHOTO_WORKERS", "8")
	os.Setenv("LOFTER_MAX_RETRIES", "5")
	os.Setenv("LOFTER_LOG_LEVEL", "debug")

	defer func() {
		os.Unsetenv("LOFTER_COOKIE_LOFTER_PHONE_LOGIN_AUTH")
		os.Unsetenv("LOFTER_ACTIVE_COOKIE")
		os.Unsetenv("LOFTER_OUTPUT_DIR")
		os.Unsetenv("LOFTER_PHOTO_WORKERS")
		os.Unsetenv("LOFTER_MAX_RETRIES")
		os.Unsetenv("LOFTER_LOG_LEVEL")
	}()

	config := DefaultConfig()
	err := config.LoadFromEnv()
	if err != nil {
		t.Fatalf("Failed to load from environment: %v", err)
	}

	if config.Lofter.Cookies["LOFTER-PHONE-LOGIN-AUTH"] != "test-token" {
		t.Errorf("Expected phone login cookie to be test-token, got %s", config.Lofter.Cookies["LOFTER-PHONE-LOGIN-AUTH"])
	}

	if config.Lofter.ActiveCookie != "NTES_SESS" {
		t.Errorf("Expected active cookie to be NTES_SESS, got %s", config.Lofter.ActiveCookie)
	}

	if config.Output.BaseDirectory != "/tmp/test-output" {
		t.Errorf("Expected output directory to be /tmp/test-output, got %s", config.Output.BaseDirectory)
	}

	if config.Download.PhotoWorkers != 8 {
		t.Errorf("Expected photo workers to be 8, got %d", config.Download.PhotoWorkers)
	}

	if config.RateLimit.MaxRetries != 5 {
		t.Errorf("Expected max retries to be 5, got %d", config.RateLimit.MaxRetries)
	}

	if config.Logging.Level != "debug" {
		t.Errorf("Expected log level to be debug, got %s", config.Logging.Level)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `
lofter:
  cookies:
    NTES_SESS: file-session
  active_cookie: NTES_SESS
rate_limit:
  tag_list_interval: 200ms
  max_retries: 4
output:
  base_directory: /tmp/from-file
download:
  photo_workers: 2
  skip_comments: true
logging:
  level: warn
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	config := DefaultConfig()
	if err := config.LoadFromFile(path); err != nil {
		t.Fatalf("Failed to load config file: %v", err)
	}

	if config.Lofter.Cookies["NTES_SESS"] != "file-session" {
		t.Errorf("Expected NTES_SESS cookie from file, got %s", config.Lofter.Cookies["NTES_SESS"])
	}

	if config.RateLimit.TagListInterval != 200*time.Millisecond {
		t.Errorf("Expected tag list interval to be 200ms, got %v", config.RateLimit.TagListInterval)
	}

	if config.RateLimit.MaxRetries != 4 {
		t.Errorf("Expected max retries to be 4, got %d", config.RateLimit.MaxRetries)
	}

	if config.Output.BaseDirectory != "/tmp/from-file" {
		t.Errorf("Expected output directory to be /tmp/from-file, got %s", config.Output.BaseDirectory)
	}

	if !config.Download.SkipComments {
		t.Errorf("Expected skip_comments to be true")
	}

	// Values absent from the file keep their defaults
	if config.Download.TextWorkers != 10 {
		t.Errorf("Expected text workers to keep default 10, got %d", config.Download.TextWorkers)
	}
}

func TestLoadFromFileMissingPath(t *testing.T) {
	config := DefaultConfig()

	// An explicit path that does not exist is an error
	if err := config.LoadFromFile("/nonexistent/config.yaml"); err == nil {
		t.Error("Expected error for explicit missing file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid defaults",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "zero retries",
			mutate:  func(c *Config) { c.RateLimit.MaxRetries = 0 },
			wantErr: true,
		},
		{
			name:    "negative interval",
			mutate:  func(c *Config) { c.RateLimit.CommentL2Interval = -time.Second },
			wantErr: true,
		},
		{
			name:    "no photo workers",
			mutate:  func(c *Config) { c.Download.PhotoWorkers = 0 },
			wantErr: true,
		},
		{
			name:    "empty output directory",
			mutate:  func(c *Config) { c.Output.BaseDirectory = "" },
			wantErr: true,
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(config)
			err := config.Validate()
			if tt.wantErr && err == nil {
				t.Error("Expected validation error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Expected no validation error, got %v", err)
			}
		})
	}
}

func TestSaveAndReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.yaml")

	config := DefaultConfig()
	config.Output.BaseDirectory = "/tmp/saved"
	config.Download.CommentWorkers = 7

	if err := config.Save(path); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}

	reloaded := DefaultConfig()
	if err := reloaded.LoadFromFile(path); err != nil {
		t.Fatalf("Failed to reload config: %v", err)
	}

	if reloaded.Output.BaseDirectory != "/tmp/saved" {
		t.Errorf("Expected reloaded output directory /tmp/saved, got %s", reloaded.Output.BaseDirectory)
	}

	if reloaded.Download.CommentWorkers != 7 {
		t.Errorf("Expected reloaded comment workers 7, got %d", reloaded.Download.CommentWorkers)
	}
}
