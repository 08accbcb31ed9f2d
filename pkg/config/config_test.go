package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// TestDefaultConfig_Companion verifies engine tuning defaults
func TestDefaultConfig_Companion(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Companion.MaxHistoryMessages == 0 {
		t.Error("MaxHistoryMessages should not be zero")
	}
	if cfg.Companion.MaxTokens == 0 {
		t.Error("MaxTokens should not be zero")
	}
	if cfg.Companion.Temperature == 0 {
		t.Error("Temperature should have default value")
	}
	if cfg.Companion.ProviderTimeoutSec == 0 {
		t.Error("ProviderTimeoutSec should not be zero")
	}
}

// TestDefaultConfig_Providers verifies provider structure
func TestDefaultConfig_Providers(t *testing.T) {
	cfg := DefaultConfig()

	// Verify provider credentials are empty by default.
	if cfg.Providers.OpenAI.APIKey != "" {
		t.Error("OpenAI API key should be empty by default")
	}
	if cfg.Providers.TextModel.APIKey != "" {
		t.Error("Text model API key should be empty by default")
	}
	if cfg.Providers.OpenAI.Model == "" {
		t.Error("OpenAI model should have a default")
	}
	if cfg.Providers.TextModel.Model == "" {
		t.Error("Text model should have a default")
	}
}

// TestDefaultConfig_Channels verifies Discord config defaults
func TestDefaultConfig_Channels(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Channels.Discord.Token != "" {
		t.Error("Discord token should be empty by default")
	}
}

// TestDefaultConfig_Storage verifies storage defaults
func TestDefaultConfig_Storage(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Storage.Driver != "sqlite" {
		t.Errorf("Storage driver = %q, want %q", cfg.Storage.Driver, "sqlite")
	}
	if cfg.Storage.SQLitePath == "" {
		t.Error("SQLite path should not be empty")
	}
}

// TestDefaultConfig_CheckIn verifies check-in schedule defaults
func TestDefaultConfig_CheckIn(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.CheckIn.Enabled {
		t.Error("Check-in should be disabled by default")
	}
	if cfg.CheckIn.Schedule == "" {
		t.Error("Check-in schedule should have a default")
	}
	if cfg.CheckIn.Message == "" {
		t.Error("Check-in message should have a default")
	}
}

func TestSaveConfig_FilePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("file permission bits are not enforced on Windows")
	}

	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.json")

	cfg := DefaultConfig()
	if err := SaveConfig(path, cfg); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}

	perm := info.Mode().Perm()
	if perm != 0600 {
		t.Errorf("config file has permission %04o, want 0600", perm)
	}
}

func TestLoadConfig_EnvOverridesWithoutFile(t *testing.T) {
	t.Setenv("HAVEN_PROVIDERS_OPENAI_MODEL", "env/model")
	path := filepath.Join(t.TempDir(), "missing-config.json")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if got := cfg.Providers.OpenAI.Model; got != "env/model" {
		t.Fatalf("expected env override model, got %q", got)
	}
}

func TestLoadConfig_StorageEnvOverrides(t *testing.T) {
	t.Setenv("HAVEN_STORAGE_DRIVER", "postgres")
	t.Setenv("HAVEN_STORAGE_POSTGRES_DSN", "host=localhost user=haven dbname=haven")
	path := filepath.Join(t.TempDir(), "missing-config.json")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if got := cfg.Storage.Driver; got != "postgres" {
		t.Fatalf("expected postgres driver, got %q", got)
	}
	if cfg.Storage.PostgresDSN == "" {
		t.Fatal("expected postgres DSN from env")
	}
}

func TestLoadConfig_FileThenEnvPrecedence(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.json")
	data := []byte(`{"providers":{"openai":{"api_key":"file-key","model":"file-model"}}}`)
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("HAVEN_PROVIDERS_OPENAI_MODEL", "env-model")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if got := cfg.Providers.OpenAI.APIKey; got != "file-key" {
		t.Fatalf("expected api key from file, got %q", got)
	}
	if got := cfg.Providers.OpenAI.Model; got != "env-model" {
		t.Fatalf("expected env to override file model, got %q", got)
	}
}
