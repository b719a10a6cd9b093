package config

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	configPathEnv    = "NEWSASSIST_CONFIG"
	databaseDSNEnv   = "DATABASE_DSN"
	chatAPIKeyEnv    = "CHAT_API_KEY"
	chatModelEnv     = "CHAT_MODEL"
	telegramTokenEnv = "TELEGRAM_BOT_TOKEN"
	telegramChatEnv  = "TELEGRAM_CHAT_ID"
	listenAddrEnv    = "NEWSASSIST_ADDR"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	Server        ServerConfig       `yaml:"server"`
	Cache         CacheConfig        `yaml:"cache"`
	Filter        FilterConfig       `yaml:"filter"`
	Chat          ChatConfig         `yaml:"chat"`
	Database      DatabaseConfig     `yaml:"database"`
	Notifications NotificationConfig `yaml:"notifications"`
	Sections      []SectionConfig    `yaml:"sections"`
}

// LoggingConfig controls the slog handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// CacheConfig tunes the section cache freshness window.
type CacheConfig struct {
	TTLMinutes int `yaml:"ttlMinutes"`
}

// TTL resolves the configured freshness window.
func (c CacheConfig) TTL() time.Duration {
	if c.TTLMinutes <= 0 {
		return 30 * time.Minute
	}
	return time.Duration(c.TTLMinutes) * time.Minute
}

// FilterConfig bounds the streaming sanitizer and message post-processing.
type FilterConfig struct {
	MaxBufferChars       int `yaml:"maxBufferChars"`
	KeepTailChars        int `yaml:"keepTailChars"`
	MaxMessageChars      int `yaml:"maxMessageChars"`
	MaxConversationChars int `yaml:"maxConversationChars"`
}

// ChatConfig defines how to contact the OpenAI-compatible chat API.
type ChatConfig struct {
	Endpoint     string `yaml:"endpoint"`
	Model        string `yaml:"model"`
	APIKey       string `yaml:"apiKey"`
	SystemPrompt string `yaml:"systemPrompt"`
}

// DatabaseConfig describes the optional feed-item archive connection.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// NotificationConfig encapsulates outbound alert channels.
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send alerts.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// SectionConfig maps a named content section to its feed endpoint. Source
// selects the registered fetch strategy ("rss" by default).
type SectionConfig struct {
	Name    string `yaml:"name"`
	Source  string `yaml:"source"`
	FeedURL string `yaml:"feedUrl"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()

	if len(cfg.Sections) == 0 {
		cfg.Sections = defaultConfig().Sections
	}

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}

	if v := os.Getenv(chatAPIKeyEnv); v != "" {
		c.Chat.APIKey = v
	}

	if v := os.Getenv(chatModelEnv); v != "" {
		c.Chat.Model = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}

	if v := os.Getenv(telegramChatEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}

	if v := os.Getenv(listenAddrEnv); v != "" {
		c.Server.Addr = v
	}
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if override.Logging.Format != "" {
		base.Logging.Format = override.Logging.Format
	}

	if override.Server.Addr != "" {
		base.Server.Addr = override.Server.Addr
	}

	if override.Cache.TTLMinutes > 0 {
		base.Cache.TTLMinutes = override.Cache.TTLMinutes
	}

	if override.Filter.MaxBufferChars > 0 {
		base.Filter.MaxBufferChars = override.Filter.MaxBufferChars
	}
	if override.Filter.KeepTailChars > 0 {
		base.Filter.KeepTailChars = override.Filter.KeepTailChars
	}
	if override.Filter.MaxMessageChars > 0 {
		base.Filter.MaxMessageChars = override.Filter.MaxMessageChars
	}
	if override.Filter.MaxConversationChars > 0 {
		base.Filter.MaxConversationChars = override.Filter.MaxConversationChars
	}

	if override.Chat.Endpoint != "" {
		base.Chat.Endpoint = override.Chat.Endpoint
	}
	if override.Chat.Model != "" {
		base.Chat.Model = override.Chat.Model
	}
	if override.Chat.APIKey != "" {
		base.Chat.APIKey = override.Chat.APIKey
	}
	if override.Chat.SystemPrompt != "" {
		base.Chat.SystemPrompt = override.Chat.SystemPrompt
	}

	if override.Database.DSN != "" {
		base.Database = override.Database
	}

	if override.Notifications.Telegram.BotToken != "" {
		base.Notifications.Telegram.BotToken = override.Notifications.Telegram.BotToken
	}
	if override.Notifications.Telegram.ChatID != "" {
		base.Notifications.Telegram.ChatID = override.Notifications.Telegram.ChatID
	}

	if len(override.Sections) > 0 {
		base.Sections = override.Sections
	}

	return base
}

func defaultConfig() Config {
	return Config{
		Logging: LoggingConfig{Level: "info", Format: "text"},
		Server:  ServerConfig{Addr: ":8080"},
		Cache:   CacheConfig{TTLMinutes: 30},
		Filter: FilterConfig{
			MaxBufferChars:       10000,
			KeepTailChars:        1000,
			MaxMessageChars:      2000,
			MaxConversationChars: 2500,
		},
		Chat: ChatConfig{
			Endpoint:     "https://api.openai.com/v1/chat/completions",
			Model:        "gpt-4o-mini",
			APIKey:       "",
			SystemPrompt: "You are a helpful assistant that answers questions about site content.",
		},
		Database: DatabaseConfig{DSN: ""},
		Notifications: NotificationConfig{
			Telegram: TelegramConfig{BotToken: "", ChatID: ""},
		},
		Sections: []SectionConfig{
			{Name: "blog", Source: "rss", FeedURL: "https://example.org/blog/rss.xml"},
			{Name: "news", Source: "rss", FeedURL: "https://example.org/news/rss.xml"},
		},
	}
}
