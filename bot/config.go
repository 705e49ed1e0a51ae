// Package bot wires the conversation engine, storage, transport, and HTTP
// intake API into the shared core runtime.
package bot

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	coreconfig "contactbot/core/config"
	coredatabase "contactbot/core/database"
)

// BotConfig holds conversation-engine settings.
type BotConfig struct {
	FollowUpDelaySeconds   int    `yaml:"follow_up_delay_seconds" envconfig:"BOT_FOLLOW_UP_DELAY_SECONDS"`
	SuppressStaleFollowUps bool   `yaml:"suppress_stale_follow_ups" envconfig:"BOT_SUPPRESS_STALE_FOLLOW_UPS"`
	ContactsFile           string `yaml:"contacts_file" envconfig:"BOT_CONTACTS_FILE"`
	ChatIDsFile            string `yaml:"chat_ids_file" envconfig:"BOT_CHAT_IDS_FILE"`
	MediaDir               string `yaml:"media_dir" envconfig:"BOT_MEDIA_DIR"`
}

// FollowUpDelay returns the configured delay as a duration.
func (c BotConfig) FollowUpDelay() time.Duration {
	return time.Duration(c.FollowUpDelaySeconds) * time.Second
}

// HTTPConfig holds settings for the intake API listener.
type HTTPConfig struct {
	Listen string `yaml:"listen" envconfig:"HTTP_LISTEN"`
	Port   int    `yaml:"port" envconfig:"HTTP_PORT"`
}

// Addr formats the listener address.
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Listen, c.Port)
}

// Config aggregates core and application configuration.
type Config struct {
	Core     coreconfig.Config   `yaml:",inline"`
	Bot      BotConfig           `yaml:"bot"`
	HTTP     HTTPConfig          `yaml:"http"`
	Database coredatabase.Config `yaml:"database"`
}

// CoreConfig satisfies the core cmd.ConfigCarrier contract.
func (c *Config) CoreConfig() *coreconfig.Config {
	return &c.Core
}

// LoadConfig reads YAML configuration, overlays environment variables, and
// applies defaults and validation.
func LoadConfig(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := coreconfig.Normalize(&cfg.Core); err != nil {
		return nil, err
	}
	if err := normalizeApp(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func normalizeApp(cfg *Config) error {
	if cfg.Bot.FollowUpDelaySeconds < 0 {
		return fmt.Errorf("bot.follow_up_delay_seconds must be >= 0")
	}
	if cfg.Bot.FollowUpDelaySeconds == 0 {
		cfg.Bot.FollowUpDelaySeconds = 3
	}
	if strings.TrimSpace(cfg.Bot.ContactsFile) == "" {
		cfg.Bot.ContactsFile = "data/contacts.json"
	}
	if strings.TrimSpace(cfg.Bot.ChatIDsFile) == "" {
		cfg.Bot.ChatIDsFile = "data/chat_ids.json"
	}
	if strings.TrimSpace(cfg.Bot.MediaDir) == "" {
		cfg.Bot.MediaDir = "media"
	}
	if strings.TrimSpace(cfg.HTTP.Listen) == "" {
		cfg.HTTP.Listen = "0.0.0.0"
	}
	if cfg.HTTP.Port <= 0 {
		cfg.HTTP.Port = 8080
	}
	return nil
}
