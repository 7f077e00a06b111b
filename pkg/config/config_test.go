package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_DefaultConfig(t *testing.T) {
	// Create a temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	// Write minimal config
	configContent := `
logging:
  level: "INFO"

storage:
  data_root: "/srv/pignio"
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	// Load config
	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	// Verify defaults were applied
	if cfg.Logging.Output != "stdout" {
		t.Errorf("Expected default output 'stdout', got %q", cfg.Logging.Output)
	}
	if cfg.Storage.ItemsDir != "items" {
		t.Errorf("Expected default items_dir 'items', got %q", cfg.Storage.ItemsDir)
	}
	if cfg.Media.FetchTimeout != 15*time.Second {
		t.Errorf("Expected default fetch_timeout 15s, got %v", cfg.Media.FetchTimeout)
	}
	if cfg.Media.OCRCommand != "tesseract" {
		t.Errorf("Expected default ocr_command 'tesseract', got %q", cfg.Media.OCRCommand)
	}
	if cfg.Moderation.QueueSize != 64 {
		t.Errorf("Expected default queue_size 64, got %d", cfg.Moderation.QueueSize)
	}

	// Explicit value preserved
	if cfg.Storage.DataRoot != "/srv/pignio" {
		t.Errorf("Expected data_root '/srv/pignio', got %q", cfg.Storage.DataRoot)
	}
}

func TestLoad_NoConfigFile(t *testing.T) {
	// Use a temporary directory with a non-existent config file path
	tmpDir := t.TempDir()
	nonExistentPath := filepath.Join(tmpDir, "nonexistent.yaml")

	cfg, err := Load(nonExistentPath)
	if err != nil {
		t.Fatalf("Expected no error with missing config file, got: %v", err)
	}

	// Verify defaults
	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected default level 'INFO', got %q", cfg.Logging.Level)
	}
	if cfg.Storage.DataRoot != "data" {
		t.Errorf("Expected default data_root 'data', got %q", cfg.Storage.DataRoot)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	configContent := `
logging:
  level: INFO
  invalid yaml here [[[
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	// Should return error
	_, err := Load(configPath)
	if err == nil {
		t.Fatal("Expected error with invalid YAML, got nil")
	}
}

func TestLoad_InvalidLogLevel(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
logging:
  level: "LOUD"
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Fatal("Expected validation error for invalid log level, got nil")
	}
}

func TestLoad_LowercaseLevelNormalized(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
logging:
  level: "debug"
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("Expected normalized level 'DEBUG', got %q", cfg.Logging.Level)
	}
}

func TestLoad_CollidingStorageDirs(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
storage:
  items_dir: "shared"
  cache_dir: "shared"
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Fatal("Expected validation error for colliding storage dirs, got nil")
	}
}

func TestLoad_BurstWithoutRate(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
media:
  fetch_burst: 10
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Fatal("Expected validation error for fetch_burst without fetch_rate, got nil")
	}
}

func TestLoad_InvalidIdentifierNode(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
identifier:
  node: 4096
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Fatal("Expected validation error for out-of-range node, got nil")
	}
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	// Set environment variables
	_ = os.Setenv("PIGNIO_LOGGING_LEVEL", "ERROR")
	_ = os.Setenv("PIGNIO_MEDIA_FETCH_TIMEOUT", "30s")
	defer func() {
		_ = os.Unsetenv("PIGNIO_LOGGING_LEVEL")
		_ = os.Unsetenv("PIGNIO_MEDIA_FETCH_TIMEOUT")
	}()

	// Create minimal config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
logging:
  level: "INFO"

media:
  fetch_timeout: "15s"
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	// Verify environment variables override config file
	if cfg.Logging.Level != "ERROR" {
		t.Errorf("Expected level 'ERROR' from env var, got %q", cfg.Logging.Level)
	}
	if cfg.Media.FetchTimeout != 30*time.Second {
		t.Errorf("Expected fetch_timeout 30s from env var, got %v", cfg.Media.FetchTimeout)
	}
}

func TestPathResolution(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	cfg.Storage.DataRoot = "/srv/pignio"

	if got := cfg.ItemsRoot(); got != filepath.Join("/srv/pignio", "items") {
		t.Errorf("Unexpected items root: %q", got)
	}
	if got := cfg.UsersRoot(); got != filepath.Join("/srv/pignio", "users") {
		t.Errorf("Unexpected users root: %q", got)
	}
	if got := cfg.ModerationLogPath(); got != filepath.Join("/srv/pignio", "moderation.wsv") {
		t.Errorf("Unexpected moderation log path: %q", got)
	}

	// Absolute subpaths bypass the data root
	cfg.Storage.CacheDir = "/var/cache/pignio"
	if got := cfg.CacheRoot(); got != "/var/cache/pignio" {
		t.Errorf("Unexpected cache root: %q", got)
	}
}
