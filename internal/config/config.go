// Package config contains everything related to configuration
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
)

// ErrMissingBaseURL is returned when DIFY_BASE_URL is not configured.
var ErrMissingBaseURL = errors.New("DIFY_BASE_URL is required")

// Config holds the application configuration. It is loaded once and passed by value
// into every service; nothing mutates it after Load returns.
type Config struct {
	BaseURL     string
	AccessToken string
	CSRFToken   string
	CookiesPath string

	DatabasePath string
	OutputDir    string
	LogPath      string
	LogLevel     string

	FilePrefix           string
	IncludeSecrets       bool
	IncludeWorkflowDraft bool

	AppPageLimit  int
	UsagePageSize int
	PageDelay     time.Duration
	AppDelay      time.Duration
	BackupDelay   time.Duration
	RunTimeout    time.Duration

	// StatsStart and StatsEnd are local "YYYY-MM-DD HH:MM" values; empty means unbounded.
	StatsStart string
	StatsEnd   string
}

// Load reads configuration from .env files and environment variables.
func Load() (*Config, error) {
	// Try loading .env from multiple locations
	envPaths := getEnvPaths()
	for _, path := range envPaths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			break
		}
	}

	cfg := &Config{
		BaseURL:     strings.TrimRight(getEnvString("DIFY_BASE_URL", ""), "/"),
		AccessToken: getEnvString("DIFY_ACCESS_TOKEN", ""),
		CSRFToken:   getEnvString("DIFY_CSRF_TOKEN", ""),
		CookiesPath: getEnvString("DIFY_COOKIES_PATH", getDefaultCookiesPath()),

		DatabasePath: getEnvString("DATABASE_PATH", getDefaultDatabasePath()),
		OutputDir:    getEnvString("OUTPUT_DIR", getDefaultOutputDir()),
		LogPath:      getEnvString("DBT_LOG_PATH", getDefaultLogPath()),
		LogLevel:     getEnvString("DBT_LOG_LEVEL", "info"),

		FilePrefix:           getEnvString("BACKUP_FILE_PREFIX", DefaultFilePrefix),
		IncludeSecrets:       getEnvBool("BACKUP_INCLUDE_SECRETS", false),
		IncludeWorkflowDraft: getEnvBool("BACKUP_INCLUDE_WORKFLOW_DRAFT", false),

		AppPageLimit:  getEnvInt("APP_PAGE_LIMIT", DefaultAppPageLimit),
		UsagePageSize: getEnvInt("USAGE_PAGE_SIZE", DefaultUsagePageSize),
		PageDelay:     getEnvDuration("USAGE_PAGE_DELAY", DefaultPageDelay),
		AppDelay:      getEnvDuration("USAGE_APP_DELAY", DefaultAppDelay),
		BackupDelay:   getEnvDuration("BACKUP_APP_DELAY", DefaultBackupDelay),
		RunTimeout:    getEnvDuration("RUN_TIMEOUT", DefaultRunTimeout),

		StatsStart: getEnvString("STATS_START", ""),
		StatsEnd:   getEnvString("STATS_END", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Ensure database directory exists
	if err := ensureDir(filepath.Dir(cfg.DatabasePath)); err != nil {
		return nil, err
	}

	// Ensure output directory exists
	if err := ensureDir(cfg.OutputDir); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks required values and the optional stats window.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return ErrMissingBaseURL
	}
	if !strings.HasPrefix(c.BaseURL, "http://") && !strings.HasPrefix(c.BaseURL, "https://") {
		return fmt.Errorf("DIFY_BASE_URL must start with http:// or https://, got %q", c.BaseURL)
	}
	if c.StatsStart != "" && !IsLocalWindowValue(c.StatsStart) {
		return fmt.Errorf("STATS_START must look like %q, got %q", LocalWindowLayout, c.StatsStart)
	}
	if c.StatsEnd != "" && !IsLocalWindowValue(c.StatsEnd) {
		return fmt.Errorf("STATS_END must look like %q, got %q", LocalWindowLayout, c.StatsEnd)
	}
	if c.UsagePageSize <= 0 {
		c.UsagePageSize = DefaultUsagePageSize
	}
	if c.AppPageLimit <= 0 {
		c.AppPageLimit = DefaultAppPageLimit
	}
	return nil
}

// getEnvPaths returns a list of paths to check for .env files.
func getEnvPaths() []string {
	var paths []string

	// Current directory
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, ".env"))
	}

	// Home directory locations
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			filepath.Join(home, ".config", "dbt", ".env"),
			filepath.Join(home, ".dbt", ".env"),
		)
	}

	// Parent directories (useful for development)
	if cwd, err := os.Getwd(); err == nil {
		parent := filepath.Dir(cwd)
		paths = append(paths, filepath.Join(parent, ".env"))
		grandparent := filepath.Dir(parent)
		paths = append(paths, filepath.Join(grandparent, ".env"))
	}

	return paths
}

// configDir returns ~/.config/dbt, or "" when the home directory is unknown.
func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "dbt")
}

// getDefaultDatabasePath returns the default path for the SQLite database.
func getDefaultDatabasePath() string {
	dir := configDir()
	if dir == "" {
		return "history.db"
	}
	return filepath.Join(dir, "history.db")
}

// getDefaultCookiesPath returns the default path for the exported browser cookies.
func getDefaultCookiesPath() string {
	dir := configDir()
	if dir == "" {
		return "cookies.txt"
	}
	return filepath.Join(dir, "cookies.txt")
}

func getDefaultLogPath() string {
	dir := configDir()
	if dir == "" {
		return "dbt.log"
	}
	return filepath.Join(dir, "dbt.log")
}

func getDefaultOutputDir() string {
	if cwd, err := os.Getwd(); err == nil {
		return cwd
	}
	return "."
}

// getEnvString retrieves a string environment variable or returns the default.
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns the default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

// getEnvBool retrieves a boolean environment variable or returns the default.
// Accepts the forms understood by strconv.ParseBool plus "yes"/"no".
func getEnvBool(key string, defaultValue bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch value {
	case "":
		return defaultValue
	case "yes", "y", "on":
		return true
	case "no", "n", "off":
		return false
	}
	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}
	return defaultValue
}

// getEnvDuration retrieves a duration environment variable or returns the default.
// Accepts values like "30s", "1m", "500ms".
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		// Try parsing as seconds if no unit specified
		if secs, err := strconv.Atoi(value); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultValue
}

// ensureDir creates a directory and all parent directories if they don't exist.
func ensureDir(path string) error {
	if path == "" || path == "." {
		return nil
	}
	return os.MkdirAll(path, 0o750)
}
