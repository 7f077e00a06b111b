package config

import (
	"strings"
	"time"
)

// ApplyDefaults sets default values for any unspecified configuration
// fields.
//
// Zero values (0, "") are replaced with defaults; explicit values are
// preserved. Boolean knobs (BackupOnWrite, ProxyCache) default to
// false and must be enabled explicitly.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyStorageDefaults(&cfg.Storage)
	applyMediaDefaults(&cfg.Media)
	applyModerationDefaults(&cfg.Moderation)
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	// Normalize log level to uppercase for consistent internal representation
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyStorageDefaults(cfg *StorageConfig) {
	if cfg.DataRoot == "" {
		cfg.DataRoot = "data"
	}
	if cfg.ItemsDir == "" {
		cfg.ItemsDir = "items"
	}
	if cfg.UsersDir == "" {
		cfg.UsersDir = "users"
	}
	if cfg.CacheDir == "" {
		cfg.CacheDir = "cache"
	}
}

func applyMediaDefaults(cfg *MediaConfig) {
	if cfg.FetchTimeout == 0 {
		cfg.FetchTimeout = 15 * time.Second
	}
	if cfg.FetchBurst == 0 && cfg.FetchRate > 0 {
		cfg.FetchBurst = cfg.FetchRate
	}
	if cfg.OCRCommand == "" {
		cfg.OCRCommand = "tesseract"
	}
	if cfg.FFprobeCommand == "" {
		cfg.FFprobeCommand = "ffprobe"
	}
}

func applyModerationDefaults(cfg *ModerationConfig) {
	if cfg.LogPath == "" {
		cfg.LogPath = "moderation.wsv"
	}
	if cfg.QueueSize == 0 {
		cfg.QueueSize = 64
	}
}
