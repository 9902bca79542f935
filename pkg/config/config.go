package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Agent     AgentConfig     `json:"agent"`
	Channels  ChannelsConfig  `json:"channels"`
	Provider  ProviderConfig  `json:"provider"`
	Storage   StorageConfig   `json:"storage"`
	Gateway   GatewayConfig   `json:"gateway"`
	Scheduler SchedulerConfig `json:"scheduler"`
	Debug     bool            `json:"debug" env:"MIKA_DEBUG"`
}

// AgentConfig holds the identity and gating knobs of the companion.
type AgentConfig struct {
	// BotName is the platform account the agent posts under. Messages
	// authored by this account are never responded to.
	BotName string `json:"bot_name" env:"MIKA_AGENT_BOT_NAME"`
	// Aliases are the names the agent answers to, comma separated in the
	// environment. Matching is case-insensitive.
	Aliases         []string `json:"aliases" env:"MIKA_AGENT_ALIASES"`
	ContextSize     int      `json:"context_size" env:"MIKA_AGENT_CONTEXT_SIZE"`
	CooldownSeconds float64  `json:"cooldown_seconds" env:"MIKA_AGENT_COOLDOWN_SECONDS"`
	MaxPerMinute    int      `json:"max_per_minute" env:"MIKA_AGENT_MAX_PER_MINUTE"`
	Admins          []string `json:"admins" env:"MIKA_AGENT_ADMINS"`
	// SpecialUsers maps normalized usernames to a persona category
	// ("creator", "friend", ...). Unlisted users are plain viewers.
	SpecialUsers map[string]string `json:"special_users"`
}

type ChannelsConfig struct {
	Twitch  TwitchConfig  `json:"twitch"`
	Discord DiscordConfig `json:"discord"`
}

type TwitchConfig struct {
	Token   string `json:"token" env:"MIKA_CHANNELS_TWITCH_TOKEN"`
	Nick    string `json:"nick" env:"MIKA_CHANNELS_TWITCH_NICK"`
	Channel string `json:"channel" env:"MIKA_CHANNELS_TWITCH_CHANNEL"`
}

type DiscordConfig struct {
	Token     string `json:"token" env:"MIKA_CHANNELS_DISCORD_TOKEN"`
	ChannelID string `json:"channel_id" env:"MIKA_CHANNELS_DISCORD_CHANNEL_ID"`
}

type ProviderConfig struct {
	APIKey      string  `json:"api_key" env:"MIKA_PROVIDER_API_KEY"`
	APIBase     string  `json:"api_base" env:"MIKA_PROVIDER_API_BASE"`
	Model       string  `json:"model" env:"MIKA_PROVIDER_MODEL"`
	Temperature float64 `json:"temperature" env:"MIKA_PROVIDER_TEMPERATURE"`
	MaxTokens   int     `json:"max_tokens" env:"MIKA_PROVIDER_MAX_TOKENS"`
	TimeoutSecs int     `json:"timeout_seconds" env:"MIKA_PROVIDER_TIMEOUT_SECONDS"`
}

type StorageConfig struct {
	// Backend selects the document store: "json" or "sqlite".
	Backend string `json:"backend" env:"MIKA_STORAGE_BACKEND"`
	DataDir string `json:"data_dir" env:"MIKA_STORAGE_DATA_DIR"`
}

type GatewayConfig struct {
	Host string `json:"host" env:"MIKA_GATEWAY_HOST"`
	Port int    `json:"port" env:"MIKA_GATEWAY_PORT"`
}

type SchedulerConfig struct {
	// ResetCron optionally clears the conversation context on a cron
	// schedule, e.g. "0 5 * * *" between streams. Empty disables it.
	ResetCron string `json:"reset_cron" env:"MIKA_SCHEDULER_RESET_CRON"`
	// StatusCron optionally logs an engine status line on a schedule.
	StatusCron string `json:"status_cron" env:"MIKA_SCHEDULER_STATUS_CRON"`
}

func DefaultConfig() *Config {
	return &Config{
		Agent: AgentConfig{
			BotName:         "mika_ai",
			Aliases:         []string{"mika", "mika-chan"},
			ContextSize:     10,
			CooldownSeconds: 2.0,
			MaxPerMinute:    10,
			Admins:          []string{},
			SpecialUsers:    map[string]string{},
		},
		Channels: ChannelsConfig{
			Twitch:  TwitchConfig{Nick: "mika_ai"},
			Discord: DiscordConfig{},
		},
		Provider: ProviderConfig{
			APIBase:     "https://api.groq.com/openai/v1",
			Model:       "llama-3.1-8b-instant",
			Temperature: 0.7,
			MaxTokens:   150,
			TimeoutSecs: 30,
		},
		Storage: StorageConfig{
			Backend: "json",
			DataDir: "~/.mika/data",
		},
		Gateway: GatewayConfig{
			Host: "127.0.0.1",
			Port: 18820,
		},
		Scheduler: SchedulerConfig{},
	}
}

// LoadConfig reads the JSON config at path and overlays MIKA_* environment
// variables. A missing file is not an error; defaults apply.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	} else if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, cfg.Validate()
}

func SaveConfig(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Agent.BotName) == "" {
		return fmt.Errorf("agent.bot_name is required")
	}
	if len(c.Agent.Aliases) == 0 {
		return fmt.Errorf("agent.aliases must list at least one trigger name")
	}
	if c.Agent.ContextSize <= 0 {
		return fmt.Errorf("agent.context_size must be positive, got %d", c.Agent.ContextSize)
	}
	if c.Agent.CooldownSeconds < 0 {
		return fmt.Errorf("agent.cooldown_seconds must not be negative")
	}
	if c.Agent.MaxPerMinute <= 0 {
		return fmt.Errorf("agent.max_per_minute must be positive, got %d", c.Agent.MaxPerMinute)
	}
	switch c.Storage.Backend {
	case "json", "sqlite":
	default:
		return fmt.Errorf("storage.backend must be %q or %q, got %q", "json", "sqlite", c.Storage.Backend)
	}
	return nil
}

// DataDirPath returns the storage directory with ~ expanded.
func (c *Config) DataDirPath() string {
	return expandHome(c.Storage.DataDir)
}

// DefaultPath returns the canonical config file location.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.json"
	}
	return filepath.Join(home, ".mika", "config.json")
}

func expandHome(path string) string {
	if path == "" {
		return path
	}
	if path[0] == '~' {
		home, _ := os.UserHomeDir()
		if len(path) > 1 && path[1] == '/' {
			return home + path[1:]
		}
		return home
	}
	return path
}
