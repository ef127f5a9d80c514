// Package config provides configuration management for the nameplate CLI.
// Configuration is loaded from a YAML file and overlaid with environment
// variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/quorumhq/nameplate/pkg/db"
	"github.com/quorumhq/nameplate/pkg/inference"
	"github.com/quorumhq/nameplate/pkg/resolve"
	"github.com/quorumhq/nameplate/pkg/review"
)

// OutputFormat defines the supported output formats for CLI results.
type OutputFormat string

const (
	// OutputFormatText is human-readable plain text output.
	OutputFormatText OutputFormat = "text"
	// OutputFormatJSON is JSON-formatted output for machine processing.
	OutputFormatJSON OutputFormat = "json"
)

// Default configuration values.
const (
	DefaultConfigDir    = ".nameplate"
	DefaultConfigFile   = "config.yaml"
	DefaultOutputFormat = OutputFormatText
	DefaultProjectID    = "default"
)

// RedisConfig holds Redis pub/sub settings for review events.
type RedisConfig struct {
	// Enabled turns on event publishing. Off by default; the CLI works
	// without Redis.
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// InferenceConfig holds generative inference settings.
type InferenceConfig struct {
	// Enabled turns on the generative stage. Off by default; resolution
	// degrades to the deterministic stages without it.
	Enabled    bool          `yaml:"enabled"`
	BaseURL    string        `yaml:"base_url"`
	Model      string        `yaml:"model"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// ReviewConfig holds review workflow settings.
type ReviewConfig struct {
	// ExpiryWindow is how long a pending item waits for a decision before
	// the sweep expires it.
	ExpiryWindow time.Duration `yaml:"expiry_window"`
}

// Config is the root CLI configuration.
type Config struct {
	// ProjectID scopes rosters, learned mappings, and review items.
	ProjectID string `yaml:"project_id"`

	// RosterPath is the default roster file (JSON or CSV).
	RosterPath string `yaml:"roster_path"`

	// OutputFormat specifies the default output format for commands.
	OutputFormat OutputFormat `yaml:"output_format"`

	// Debug enables verbose debug logging.
	Debug bool `yaml:"debug,omitempty"`

	Database  db.Config       `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Inference InferenceConfig `yaml:"inference"`
	Resolver  resolve.Config  `yaml:"resolver"`
	Review    ReviewConfig    `yaml:"review"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// DefaultConfig returns a Config with default values. The database section
// defaults are filled but persistence stays optional; commands fall back to
// in-memory stores when no database is reachable.
func DefaultConfig() *Config {
	return &Config{
		ProjectID:    DefaultProjectID,
		OutputFormat: DefaultOutputFormat,
		Database:     *db.DefaultConfig(),
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		Inference: InferenceConfig{
			Model:      inference.DefaultModel,
			Timeout:    inference.DefaultTimeout,
			MaxRetries: inference.DefaultMaxRetries,
		},
		Resolver: resolve.DefaultConfig(),
		Review: ReviewConfig{
			ExpiryWindow: review.DefaultExpiryWindow,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// ConfigDir returns the configuration directory path. Uses
// $NAMEPLATE_CONFIG_DIR if set, otherwise ~/.nameplate.
func ConfigDir() (string, error) {
	if dir := os.Getenv("NAMEPLATE_CONFIG_DIR"); dir != "" {
		return dir, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}

	return filepath.Join(home, DefaultConfigDir), nil
}

// ConfigPath returns the full path to the configuration file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, DefaultConfigFile), nil
}

// Load builds the configuration from defaults, the config file if present,
// and environment variables, in that order.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	configPath, err := ConfigPath()
	if err != nil {
		return nil, fmt.Errorf("getting config path: %w", err)
	}

	if _, err := os.Stat(configPath); err == nil {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	loadFromEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays configuration from a YAML file. Durations appear in
// the file as strings ("30s", "168h"), so they go through an intermediate
// struct.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	type dbSection struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Database string `yaml:"database"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		SSLMode  string `yaml:"sslmode"`
		MaxConns int32  `yaml:"max_conns"`
		MinConns int32  `yaml:"min_conns"`
	}
	type inferenceSection struct {
		Enabled    bool   `yaml:"enabled"`
		BaseURL    string `yaml:"base_url"`
		Model      string `yaml:"model"`
		Timeout    string `yaml:"timeout"`
		MaxRetries int    `yaml:"max_retries"`
	}
	type resolverSection struct {
		FuzzyThreshold  int    `yaml:"fuzzy_threshold"`
		AmbiguityMargin int    `yaml:"ambiguity_margin"`
		MaxAlternatives int    `yaml:"max_alternatives"`
		MaxConcurrent   int    `yaml:"max_concurrent"`
		VerifyTimeout   string `yaml:"verify_timeout"`
	}
	type reviewSection struct {
		ExpiryWindow string `yaml:"expiry_window"`
	}
	type configFile struct {
		ProjectID    string            `yaml:"project_id"`
		RosterPath   string            `yaml:"roster_path"`
		OutputFormat OutputFormat      `yaml:"output_format"`
		Debug        bool              `yaml:"debug"`
		Database     *dbSection        `yaml:"database"`
		Redis        *RedisConfig      `yaml:"redis"`
		Inference    *inferenceSection `yaml:"inference"`
		Resolver     *resolverSection  `yaml:"resolver"`
		Review       *reviewSection    `yaml:"review"`
		Logging      *LoggingConfig    `yaml:"logging"`
	}

	var fileCfg configFile
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}

	if fileCfg.ProjectID != "" {
		cfg.ProjectID = fileCfg.ProjectID
	}
	if fileCfg.RosterPath != "" {
		cfg.RosterPath = fileCfg.RosterPath
	}
	if fileCfg.OutputFormat != "" {
		cfg.OutputFormat = fileCfg.OutputFormat
	}
	cfg.Debug = fileCfg.Debug

	if s := fileCfg.Database; s != nil {
		if s.Host != "" {
			cfg.Database.Host = s.Host
		}
		if s.Port != 0 {
			cfg.Database.Port = s.Port
		}
		if s.Database != "" {
			cfg.Database.Database = s.Database
		}
		if s.User != "" {
			cfg.Database.User = s.User
		}
		if s.Password != "" {
			cfg.Database.Password = s.Password
		}
		if s.SSLMode != "" {
			cfg.Database.SSLMode = s.SSLMode
		}
		if s.MaxConns != 0 {
			cfg.Database.MaxConns = s.MaxConns
		}
		if s.MinConns != 0 {
			cfg.Database.MinConns = s.MinConns
		}
	}

	if s := fileCfg.Redis; s != nil {
		cfg.Redis.Enabled = s.Enabled
		if s.Addr != "" {
			cfg.Redis.Addr = s.Addr
		}
		if s.Password != "" {
			cfg.Redis.Password = s.Password
		}
		cfg.Redis.DB = s.DB
	}

	if s := fileCfg.Inference; s != nil {
		cfg.Inference.Enabled = s.Enabled
		if s.BaseURL != "" {
			cfg.Inference.BaseURL = s.BaseURL
		}
		if s.Model != "" {
			cfg.Inference.Model = s.Model
		}
		if s.Timeout != "" {
			d, err := time.ParseDuration(s.Timeout)
			if err != nil {
				return fmt.Errorf("parsing inference timeout: %w", err)
			}
			cfg.Inference.Timeout = d
		}
		if s.MaxRetries != 0 {
			cfg.Inference.MaxRetries = s.MaxRetries
		}
	}

	if s := fileCfg.Resolver; s != nil {
		if s.FuzzyThreshold != 0 {
			cfg.Resolver.FuzzyThreshold = s.FuzzyThreshold
		}
		if s.AmbiguityMargin != 0 {
			cfg.Resolver.AmbiguityMargin = s.AmbiguityMargin
		}
		if s.MaxAlternatives != 0 {
			cfg.Resolver.MaxAlternatives = s.MaxAlternatives
		}
		if s.MaxConcurrent != 0 {
			cfg.Resolver.MaxConcurrent = s.MaxConcurrent
		}
		if s.VerifyTimeout != "" {
			d, err := time.ParseDuration(s.VerifyTimeout)
			if err != nil {
				return fmt.Errorf("parsing verify timeout: %w", err)
			}
			cfg.Resolver.VerifyTimeout = d
		}
	}

	if s := fileCfg.Review; s != nil && s.ExpiryWindow != "" {
		d, err := time.ParseDuration(s.ExpiryWindow)
		if err != nil {
			return fmt.Errorf("parsing review expiry window: %w", err)
		}
		cfg.Review.ExpiryWindow = d
	}

	if s := fileCfg.Logging; s != nil {
		if s.Level != "" {
			cfg.Logging.Level = s.Level
		}
		cfg.Logging.JSON = s.JSON
	}

	return nil
}

// loadFromEnv overlays NAMEPLATE_* environment variables.
func loadFromEnv(cfg *Config) {
	if v := os.Getenv("NAMEPLATE_PROJECT_ID"); v != "" {
		cfg.ProjectID = v
	}
	if v := os.Getenv("NAMEPLATE_ROSTER"); v != "" {
		cfg.RosterPath = v
	}
	if v := os.Getenv("NAMEPLATE_OUTPUT_FORMAT"); v != "" {
		cfg.OutputFormat = OutputFormat(v)
	}
	if v := os.Getenv("NAMEPLATE_DEBUG"); v == "true" || v == "1" {
		cfg.Debug = true
	}

	if v := os.Getenv("NAMEPLATE_REDIS_ENABLED"); v == "true" || v == "1" {
		cfg.Redis.Enabled = true
	}
	if v := os.Getenv("NAMEPLATE_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}

	if v := os.Getenv("NAMEPLATE_INFERENCE_ENABLED"); v == "true" || v == "1" {
		cfg.Inference.Enabled = true
	}
	if v := os.Getenv("NAMEPLATE_INFERENCE_BASE_URL"); v != "" {
		cfg.Inference.BaseURL = v
	}
	if v := os.Getenv("NAMEPLATE_INFERENCE_MODEL"); v != "" {
		cfg.Inference.Model = v
	}

	if v := os.Getenv("NAMEPLATE_FUZZY_THRESHOLD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Resolver.FuzzyThreshold = n
		}
	}
	if v := os.Getenv("NAMEPLATE_REVIEW_EXPIRY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Review.ExpiryWindow = d
		}
	}
	if v := os.Getenv("NAMEPLATE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate checks that the configuration is consistent.
func (c *Config) Validate() error {
	if c.ProjectID == "" {
		return fmt.Errorf("project_id is required")
	}
	if !c.OutputFormat.IsValid() {
		return fmt.Errorf("invalid output_format: %q (must be text or json)", c.OutputFormat)
	}
	if err := c.Resolver.Validate(); err != nil {
		return fmt.Errorf("resolver: %w", err)
	}
	if c.Review.ExpiryWindow <= 0 {
		return fmt.Errorf("review expiry_window must be positive")
	}
	return nil
}

// IsValid reports whether the output format is supported.
func (f OutputFormat) IsValid() bool {
	switch f {
	case OutputFormatText, OutputFormatJSON:
		return true
	default:
		return false
	}
}

// String returns the string representation of the output format.
func (f OutputFormat) String() string {
	return string(f)
}

// Save writes the configuration to the config file.
func Save(cfg *Config) error {
	configDir, err := ConfigDir()
	if err != nil {
		return fmt.Errorf("getting config directory: %w", err)
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	type configFile struct {
		ProjectID    string       `yaml:"project_id"`
		RosterPath   string       `yaml:"roster_path,omitempty"`
		OutputFormat OutputFormat `yaml:"output_format"`
		Debug        bool         `yaml:"debug,omitempty"`
		Database     struct {
			Host     string `yaml:"host"`
			Port     int    `yaml:"port"`
			Database string `yaml:"database"`
			User     string `yaml:"user"`
			SSLMode  string `yaml:"sslmode"`
		} `yaml:"database"`
		Redis     RedisConfig `yaml:"redis"`
		Inference struct {
			Enabled    bool   `yaml:"enabled"`
			BaseURL    string `yaml:"base_url"`
			Model      string `yaml:"model"`
			Timeout    string `yaml:"timeout"`
			MaxRetries int    `yaml:"max_retries"`
		} `yaml:"inference"`
		Resolver struct {
			FuzzyThreshold  int    `yaml:"fuzzy_threshold"`
			AmbiguityMargin int    `yaml:"ambiguity_margin"`
			MaxAlternatives int    `yaml:"max_alternatives"`
			MaxConcurrent   int    `yaml:"max_concurrent"`
			VerifyTimeout   string `yaml:"verify_timeout"`
		} `yaml:"resolver"`
		Review struct {
			ExpiryWindow string `yaml:"expiry_window"`
		} `yaml:"review"`
		Logging LoggingConfig `yaml:"logging"`
	}

	var fileCfg configFile
	fileCfg.ProjectID = cfg.ProjectID
	fileCfg.RosterPath = cfg.RosterPath
	fileCfg.OutputFormat = cfg.OutputFormat
	fileCfg.Debug = cfg.Debug
	fileCfg.Database.Host = cfg.Database.Host
	fileCfg.Database.Port = cfg.Database.Port
	fileCfg.Database.Database = cfg.Database.Database
	fileCfg.Database.User = cfg.Database.User
	fileCfg.Database.SSLMode = cfg.Database.SSLMode
	fileCfg.Redis = cfg.Redis
	fileCfg.Inference.Enabled = cfg.Inference.Enabled
	fileCfg.Inference.BaseURL = cfg.Inference.BaseURL
	fileCfg.Inference.Model = cfg.Inference.Model
	fileCfg.Inference.Timeout = cfg.Inference.Timeout.String()
	fileCfg.Inference.MaxRetries = cfg.Inference.MaxRetries
	fileCfg.Resolver.FuzzyThreshold = cfg.Resolver.FuzzyThreshold
	fileCfg.Resolver.AmbiguityMargin = cfg.Resolver.AmbiguityMargin
	fileCfg.Resolver.MaxAlternatives = cfg.Resolver.MaxAlternatives
	fileCfg.Resolver.MaxConcurrent = cfg.Resolver.MaxConcurrent
	fileCfg.Resolver.VerifyTimeout = cfg.Resolver.VerifyTimeout.String()
	fileCfg.Review.ExpiryWindow = cfg.Review.ExpiryWindow.String()
	fileCfg.Logging = cfg.Logging

	data, err := yaml.Marshal(&fileCfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	configPath := filepath.Join(configDir, DefaultConfigFile)
	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}
