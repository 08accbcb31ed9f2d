package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/caarlos0/env/v11"
)

// FlexibleStringSlice is a []string that also accepts JSON numbers,
// so allow_from can contain both "123" and 123.
type FlexibleStringSlice []string

func (f *FlexibleStringSlice) UnmarshalJSON(data []byte) error {
	var ss []string
	if err := json.Unmarshal(data, &ss); err == nil {
		*f = ss
		return nil
	}

	var raw []interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	result := make([]string, 0, len(raw))
	for _, v := range raw {
		switch val := v.(type) {
		case string:
			result = append(result, val)
		case float64:
			result = append(result, fmt.Sprintf("%.0f", val))
		default:
			result = append(result, fmt.Sprintf("%v", val))
		}
	}
	*f = result
	return nil
}

type Config struct {
	Companion Companion       `json:"companion"`
	Providers ProvidersConfig `json:"providers"`
	Channels  ChannelsConfig  `json:"channels"`
	Storage   StorageConfig   `json:"storage"`
	CheckIn   CheckInConfig   `json:"checkin"`
	mu        sync.RWMutex
}

// Companion holds per-turn engine tuning.
type Companion struct {
	MaxHistoryMessages int     `json:"max_history_messages" env:"HAVEN_COMPANION_MAX_HISTORY_MESSAGES"`
	MaxTokens          int     `json:"max_tokens" env:"HAVEN_COMPANION_MAX_TOKENS"`
	Temperature        float64 `json:"temperature" env:"HAVEN_COMPANION_TEMPERATURE"`
	ProviderTimeoutSec int     `json:"provider_timeout_seconds" env:"HAVEN_COMPANION_PROVIDER_TIMEOUT_SECONDS"`
}

type ProvidersConfig struct {
	OpenAI    OpenAIConfig    `json:"openai"`
	TextModel TextModelConfig `json:"text_model"`
}

// OpenAIConfig configures the primary chat-completions provider.
type OpenAIConfig struct {
	APIKey  string `json:"api_key" env:"HAVEN_PROVIDERS_OPENAI_API_KEY"`
	APIBase string `json:"api_base" env:"HAVEN_PROVIDERS_OPENAI_API_BASE"`
	Model   string `json:"model" env:"HAVEN_PROVIDERS_OPENAI_MODEL"`
}

// TextModelConfig configures the secondary single-prompt completion provider.
type TextModelConfig struct {
	APIKey  string `json:"api_key" env:"HAVEN_PROVIDERS_TEXT_MODEL_API_KEY"`
	APIBase string `json:"api_base" env:"HAVEN_PROVIDERS_TEXT_MODEL_API_BASE"`
	Model   string `json:"model" env:"HAVEN_PROVIDERS_TEXT_MODEL_MODEL"`
	Proxy   string `json:"proxy,omitempty" env:"HAVEN_PROVIDERS_TEXT_MODEL_PROXY"`
}

type ChannelsConfig struct {
	Discord DiscordConfig `json:"discord"`
}

type DiscordConfig struct {
	Token     string              `json:"token" env:"HAVEN_CHANNELS_DISCORD_TOKEN"`
	AllowFrom FlexibleStringSlice `json:"allow_from" env:"HAVEN_CHANNELS_DISCORD_ALLOW_FROM"`
}

// StorageConfig selects and configures the durable per-user record store.
// Anonymous sessions always use the in-process store regardless of driver.
type StorageConfig struct {
	Driver      string `json:"driver" env:"HAVEN_STORAGE_DRIVER"` // "sqlite" or "postgres"
	SQLitePath  string `json:"sqlite_path" env:"HAVEN_STORAGE_SQLITE_PATH"`
	PostgresDSN string `json:"postgres_dsn" env:"HAVEN_STORAGE_POSTGRES_DSN"`
}

// CheckInConfig drives proactive check-in messages. ChannelID is the
// Discord channel the check-in is delivered to.
type CheckInConfig struct {
	Enabled   bool   `json:"enabled" env:"HAVEN_CHECKIN_ENABLED"`
	Schedule  string `json:"schedule" env:"HAVEN_CHECKIN_SCHEDULE"`
	Message   string `json:"message" env:"HAVEN_CHECKIN_MESSAGE"`
	ChannelID string `json:"channel_id" env:"HAVEN_CHECKIN_CHANNEL_ID"`
}

func DefaultConfig() *Config {
	return &Config{
		Companion: Companion{
			MaxHistoryMessages: 10,
			MaxTokens:          1024,
			Temperature:        0.7,
			ProviderTimeoutSec: 30,
		},
		Providers: ProvidersConfig{
			OpenAI: OpenAIConfig{
				Model: "gpt-4o-mini",
			},
			TextModel: TextModelConfig{
				Model: "haven-relay-1",
			},
		},
		Channels: ChannelsConfig{
			Discord: DiscordConfig{
				Token:     "",
				AllowFrom: FlexibleStringSlice{},
			},
		},
		Storage: StorageConfig{
			Driver:     "sqlite",
			SQLitePath: "~/.haven/haven.db",
		},
		CheckIn: CheckInConfig{
			Enabled:  false,
			Schedule: "0 9 * * *",
			Message:  "Hey, just checking in. How are you feeling today?",
		},
	}
}

func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			if err := env.Parse(cfg); err != nil {
				return nil, err
			}
			return cfg, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func SaveConfig(path string, cfg *Config) error {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

// DefaultConfigPath returns ~/.haven/config.json.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.json"
	}
	return filepath.Join(home, ".haven", "config.json")
}

// DatabasePath returns the configured sqlite path with ~ expanded.
func (c *Config) DatabasePath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return expandHome(c.Storage.SQLitePath)
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(strings.TrimPrefix(path, "~"), "/"))
	}
	return path
}
