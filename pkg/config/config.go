// Package config loads and validates the Pignio storage configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete configuration of the Pignio storage
// engine.
//
// Configuration sources (in order of precedence):
//  1. Environment variables (PIGNIO_*)
//  2. Configuration file (YAML)
//  3. Default values (lowest priority)
//
// The engine owns no network listener itself; everything here describes
// where data lives on disk and how external capabilities (remote
// fetches, OCR, transcoding probes) are invoked.
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging"`

	// Storage describes the on-disk layout roots
	Storage StorageConfig `mapstructure:"storage"`

	// Media controls ingestion of uploads and remote media
	Media MediaConfig `mapstructure:"media"`

	// Identifier configures ID generation
	Identifier IdentifierConfig `mapstructure:"identifier"`

	// Moderation configures the append-only moderation log
	Moderation ModerationConfig `mapstructure:"moderation"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required"`
}

// StorageConfig describes the on-disk layout.
//
// All paths other than DataRoot are resolved relative to DataRoot
// unless absolute.
type StorageConfig struct {
	// DataRoot is the directory holding all persistent state
	DataRoot string `mapstructure:"data_root" validate:"required"`

	// ItemsDir holds item metadata and media files, sharded by
	// year/month
	ItemsDir string `mapstructure:"items_dir" validate:"required"`

	// UsersDir holds user records and per-user collection files
	UsersDir string `mapstructure:"users_dir" validate:"required"`

	// CacheDir holds derived artifacts (thumbnails, renders, proxied
	// remote media)
	CacheDir string `mapstructure:"cache_dir" validate:"required"`

	// BackupOnWrite copies the previous metadata file contents to a
	// .bak sibling before overwriting. This is the only durability
	// safeguard; no atomic rename or journaling is performed.
	BackupOnWrite bool `mapstructure:"backup_on_write"`
}

// MediaConfig controls media ingestion and derived-media caching.
type MediaConfig struct {
	// FetchTimeout bounds every remote media download
	FetchTimeout time.Duration `mapstructure:"fetch_timeout" validate:"required,gt=0"`

	// FetchRate limits sustained remote fetches per second
	// (0 = unlimited)
	FetchRate uint `mapstructure:"fetch_rate"`

	// FetchBurst is the burst capacity of the fetch limiter
	FetchBurst uint `mapstructure:"fetch_burst"`

	// ProxyCache enables persisting proxied remote media under the
	// cache directory instead of re-fetching on every read
	ProxyCache bool `mapstructure:"proxy_cache"`

	// OCRCommand is the tesseract binary invoked to synthesize
	// alt-text. A missing binary is a tolerated degraded mode.
	OCRCommand string `mapstructure:"ocr_command" validate:"required"`

	// FFprobeCommand is the ffprobe binary used to detect whether
	// video processing is available
	FFprobeCommand string `mapstructure:"ffprobe_command" validate:"required"`
}

// IdentifierConfig configures the snowflake ID generator.
type IdentifierConfig struct {
	// Node discriminates concurrent generator instances
	// (0-1023)
	Node int64 `mapstructure:"node" validate:"min=0,max=1023"`
}

// ModerationConfig configures the moderation event log.
type ModerationConfig struct {
	// LogPath is the append-only event file, relative to DataRoot
	// unless absolute
	LogPath string `mapstructure:"log_path" validate:"required"`

	// QueueSize bounds the in-process producer queue
	QueueSize int `mapstructure:"queue_size" validate:"required,gt=0"`
}

// ItemsRoot returns the absolute items directory.
func (c *Config) ItemsRoot() string {
	return resolveUnder(c.Storage.DataRoot, c.Storage.ItemsDir)
}

// UsersRoot returns the absolute users directory.
func (c *Config) UsersRoot() string {
	return resolveUnder(c.Storage.DataRoot, c.Storage.UsersDir)
}

// CacheRoot returns the absolute derived-cache directory.
func (c *Config) CacheRoot() string {
	return resolveUnder(c.Storage.DataRoot, c.Storage.CacheDir)
}

// ModerationLogPath returns the absolute moderation log path.
func (c *Config) ModerationLogPath() string {
	return resolveUnder(c.Storage.DataRoot, c.Moderation.LogPath)
}

func resolveUnder(root, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}

// Load reads configuration from the given file path (empty string uses
// the default location), applies environment overrides and defaults,
// and validates the result.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// setupViper configures environment variable support and the config
// file location.
//
// Environment variables use the PIGNIO_ prefix with underscores, e.g.
// PIGNIO_LOGGING_LEVEL=DEBUG or PIGNIO_STORAGE_DATA_ROOT=/srv/pignio.
func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("PIGNIO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(getConfigDir())
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists. A missing
// file is acceptable; defaults apply.
func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	return nil
}

// getConfigDir returns the default configuration directory, following
// XDG conventions.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "pignio")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "pignio")
}
