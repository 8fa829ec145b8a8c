// Package config loads the daemon's YAML configuration file. This sits
// outside the monitoring engine's core: the engine receives plain Go values
// at construction and never reads this package's types itself.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the on-disk shape of sessionwatchd.yaml.
type Config struct {
	PollIntervalMS int  `yaml:"pollIntervalMs"`
	MaxRetries     int  `yaml:"maxRetries"`
	AutoRestart    bool `yaml:"autoRestart"`

	RegistryDir string `yaml:"registryDir"`

	Notify NotifyConfig `yaml:"notify"`

	Sessions []SessionConfig `yaml:"sessions"`
}

// NotifyConfig configures the outbound notification channels.
type NotifyConfig struct {
	ToastAppID  string `yaml:"toastAppId"`
	SlackURL    string `yaml:"slackWebhookUrl"`
	DiscordURL  string `yaml:"discordWebhookUrl"`
}

// SessionConfig describes one session to seed into the registry at startup.
type SessionConfig struct {
	ID     string `yaml:"id"`
	Name   string `yaml:"name"`
	PaneID string `yaml:"paneId"`

	QuotaTimeOfDay string `yaml:"quotaTimeOfDay,omitempty"`
	QuotaCommand   string `yaml:"quotaCommand,omitempty"`
}

// PollInterval returns PollIntervalMS as a time.Duration.
func (c Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}

// Load reads and parses path into a Config with defaults applied.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := Config{
		PollIntervalMS: 2000,
		MaxRetries:     3,
		AutoRestart:    true,
		RegistryDir:    "sessions",
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}
