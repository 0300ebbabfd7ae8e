package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for the exporter
type Config struct {
	// Discord API access
	Discord DiscordConfig `yaml:"discord" json:"discord"`

	// Export behavior
	Export ExportConfig `yaml:"export" json:"export"`

	// Output settings
	Output OutputConfig `yaml:"output" json:"output"`

	// Request pacing configuration
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Transient failure handling
	Retry RetryConfig `yaml:"retry" json:"retry"`

	// Notification preferences
	Notifications NotificationConfig `yaml:"notifications" json:"notifications"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// DiscordConfig holds Discord-specific configuration
type DiscordConfig struct {
	Token      string `yaml:"token" json:"token"`
	UserAgent  string `yaml:"user_agent" json:"user_agent"`
	APIBaseURL string `yaml:"api_base_url" json:"api_base_url"`
}

// ExportConfig holds export loop configuration
type ExportConfig struct {
	// PageSize is the number of messages requested per API call (1-100)
	PageSize int `yaml:"page_size" json:"page_size"`
	// SaveInterval is the number of fetched messages between flushes
	SaveInterval int `yaml:"save_interval" json:"save_interval"`
	// RequestTimeout bounds a single HTTP request
	RequestTimeout time.Duration `yaml:"request_timeout" json:"request_timeout"`
}

// OutputConfig holds output file configuration
type OutputConfig struct {
	Directory       string `yaml:"directory" json:"directory"`
	FileNamePattern string `yaml:"file_name_pattern" json:"file_name_pattern"`
}

// RateLimitConfig holds request pacing configuration
type RateLimitConfig struct {
	// InitialDelay is the starting gap between successive requests
	InitialDelay time.Duration `yaml:"initial_delay" json:"initial_delay"`
	// MinDelay is the floor the gap decays toward while requests succeed
	MinDelay time.Duration `yaml:"min_delay" json:"min_delay"`
	// MaxDelay is the ceiling the gap grows toward after 429s
	MaxDelay time.Duration `yaml:"max_delay" json:"max_delay"`
	// DefaultRetryAfter is used when a 429 carries no Retry-After value
	DefaultRetryAfter time.Duration `yaml:"default_retry_after" json:"default_retry_after"`
}

// RetryConfig holds transient failure retry configuration
type RetryConfig struct {
	// MaxRetries bounds retries per page after the first attempt
	MaxRetries int `yaml:"max_retries" json:"max_retries"`
	// BaseDelay is the first backoff delay
	BaseDelay time.Duration `yaml:"base_delay" json:"base_delay"`
	// MaxBackoff caps the computed backoff delay
	MaxBackoff time.Duration `yaml:"max_backoff" json:"max_backoff"`
	// Multiplier is the exponential growth factor
	Multiplier float64 `yaml:"multiplier" json:"multiplier"`
	// JitterFactor randomizes delays (0.0 to 1.0)
	JitterFactor float64 `yaml:"jitter_factor" json:"jitter_factor"`
}

// NotificationConfig holds desktop notification preferences
type NotificationConfig struct {
	Enabled     bool `yaml:"enabled" json:"enabled"`
	OnComplete  bool `yaml:"on_complete" json:"on_complete"`
	OnError     bool `yaml:"on_error" json:"on_error"`
	OnRateLimit bool `yaml:"on_rate_limit" json:"on_rate_limit"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Discord: DiscordConfig{
			UserAgent:  "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			APIBaseURL: "https://discord.com/api/v9",
		},
		Export: ExportConfig{
			PageSize:       100,
			SaveInterval:   50,
			RequestTimeout: 30 * time.Second,
		},
		Output: OutputConfig{
			Directory:       "./exports",
			FileNamePattern: "{channel_id}.json",
		},
		RateLimit: RateLimitConfig{
			InitialDelay:      1 * time.Second,
			MinDelay:          500 * time.Millisecond,
			MaxDelay:          10 * time.Second,
			DefaultRetryAfter: 5 * time.Second,
		},
		Retry: RetryConfig{
			MaxRetries:   3,
			BaseDelay:    1 * time.Second,
			MaxBackoff:   30 * time.Second,
			Multiplier:   2.0,
			JitterFactor: 0.1,
		},
		Notifications: NotificationConfig{
			Enabled:     false,
			OnComplete:  true,
			OnError:     true,
			OnRateLimit: false,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	// Credentials: DCEXPORT_TOKEN preferred, DISCORD_TOKEN accepted
	if token := os.Getenv("DCEXPORT_TOKEN"); token != "" {
		c.Discord.Token = token
	} else if token := os.Getenv("DISCORD_TOKEN"); token != "" {
		c.Discord.Token = token
	}
	if userAgent := os.Getenv("DCEXPORT_USER_AGENT"); userAgent != "" {
		c.Discord.UserAgent = userAgent
	}
	if baseURL := os.Getenv("DCEXPORT_API_BASE_URL"); baseURL != "" {
		c.Discord.APIBaseURL = baseURL
	}

	// Export behavior
	if pageSize := os.Getenv("DCEXPORT_PAGE_SIZE"); pageSize != "" {
		var val int
		fmt.Sscanf(pageSize, "%d", &val)
		if val > 0 {
			c.Export.PageSize = val
		}
	}
	if interval := os.Getenv("DCEXPORT_SAVE_INTERVAL"); interval != "" {
		var val int
		fmt.Sscanf(interval, "%d", &val)
		if val > 0 {
			c.Export.SaveInterval = val
		}
	}

	// Output directory
	if outputDir := os.Getenv("DCEXPORT_OUTPUT_DIR"); outputDir != "" {
		c.Output.Directory = outputDir
	}

	// Retry budget
	if retries := os.Getenv("DCEXPORT_MAX_RETRIES"); retries != "" {
		var val int
		fmt.Sscanf(retries, "%d", &val)
		if val >= 0 {
			c.Retry.MaxRetries = val
		}
	}

	// Notifications
	if notifEnabled := os.Getenv("DCEXPORT_NOTIFICATIONS_ENABLED"); notifEnabled != "" {
		c.Notifications.Enabled = strings.ToLower(notifEnabled) == "true"
	}

	// Logging level
	if logLevel := os.Getenv("DCEXPORT_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}

	return nil
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
	locations := []string{
		".dcexport.yaml",
		".dcexport.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "dcexport", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".config", "dcexport", "config.yml"),
		filepath.Join(os.Getenv("HOME"), ".dcexport.yaml"),
		filepath.Join(os.Getenv("HOME"), ".dcexport.yml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid.
// The token is deliberately not required here: it may come from a stored
// account resolved later in the command layer.
func (c *Config) Validate() error {
	var errs []error

	if c.Discord.APIBaseURL == "" {
		errs = append(errs, errors.New("API base URL is required"))
	}
	if c.Discord.UserAgent == "" {
		errs = append(errs, errors.New("user agent is required"))
	}

	if c.Export.PageSize < 1 || c.Export.PageSize > 100 {
		errs = append(errs, errors.New("page size must be between 1 and 100"))
	}
	if c.Export.SaveInterval <= 0 {
		errs = append(errs, errors.New("save interval must be positive"))
	}
	if c.Export.RequestTimeout <= 0 {
		errs = append(errs, errors.New("request timeout must be positive"))
	}

	if c.Output.Directory == "" {
		errs = append(errs, errors.New("output directory is required"))
	}
	if c.Output.FileNamePattern == "" {
		errs = append(errs, errors.New("file name pattern is required"))
	}

	if c.RateLimit.MinDelay <= 0 {
		errs = append(errs, errors.New("minimum request delay must be positive"))
	}
	if c.RateLimit.InitialDelay < c.RateLimit.MinDelay {
		errs = append(errs, errors.New("initial request delay cannot be below the minimum delay"))
	}
	if c.RateLimit.MaxDelay < c.RateLimit.InitialDelay {
		errs = append(errs, errors.New("maximum request delay cannot be below the initial delay"))
	}
	if c.RateLimit.DefaultRetryAfter <= 0 {
		errs = append(errs, errors.New("default retry-after must be positive"))
	}

	if c.Retry.MaxRetries < 0 {
		errs = append(errs, errors.New("max retries cannot be negative"))
	}
	if c.Retry.BaseDelay <= 0 {
		errs = append(errs, errors.New("retry base delay must be positive"))
	}
	if c.Retry.MaxBackoff < c.Retry.BaseDelay {
		errs = append(errs, errors.New("max backoff cannot be below the base delay"))
	}
	if c.Retry.Multiplier < 1.0 {
		errs = append(errs, errors.New("retry multiplier must be at least 1"))
	}
	if c.Retry.JitterFactor < 0 || c.Retry.JitterFactor > 1 {
		errs = append(errs, errors.New("jitter factor must be between 0 and 1"))
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

// OutputFileName resolves the configured file name pattern for a channel.
// The result is a bare file name; joining it onto the output directory is
// the storage manager's job.
func (c *Config) OutputFileName(channelID string) string {
	return strings.ReplaceAll(c.Output.FileNamePattern, "{channel_id}", channelID)
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

	// The file may hold a token, keep it owner-readable only
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if token, ok := flags["token"].(string); ok && token != "" {
		c.Discord.Token = token
	}
	if userAgent, ok := flags["user-agent"].(string); ok && userAgent != "" {
		c.Discord.UserAgent = userAgent
	}
	if outputDir, ok := flags["output-dir"].(string); ok && outputDir != "" {
		c.Output.Directory = outputDir
	}
	if pageSize, ok := flags["page-size"].(int); ok && pageSize > 0 {
		c.Export.PageSize = pageSize
	}
	if interval, ok := flags["save-interval"].(int); ok && interval > 0 {
		c.Export.SaveInterval = interval
	}
	if timeout, ok := flags["timeout"].(time.Duration); ok && timeout > 0 {
		c.Export.RequestTimeout = timeout
	}
	if retries, ok := flags["max-retries"].(int); ok && retries >= 0 {
		c.Retry.MaxRetries = retries
	}
	if notify, ok := flags["notify"].(bool); ok && notify {
		c.Notifications.Enabled = true
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".env"))
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".dcexport.env"))

	// Start with defaults
	config := DefaultConfig()

	// Load from config file
	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	// Override with environment variables (includes values from .env)
	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Override with command line flags
	config.MergeCommandLineFlags(flags)

	// Validate final configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
