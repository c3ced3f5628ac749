package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	RunOnce bool `mapstructure:"run_once"`

	Tautulli struct {
		URL              string `mapstructure:"url"`
		APIKey           string `mapstructure:"apikey"`
		TimeoutSeconds   int    `mapstructure:"timeout_seconds"`
		RetryCount       int    `mapstructure:"retry_count"`
		RetryBaseSeconds int    `mapstructure:"retry_base_seconds"`
	} `mapstructure:"tautulli"`

	Discord struct {
		WebhookURL     string `mapstructure:"webhook_url"`
		TimeoutSeconds int    `mapstructure:"timeout_seconds"`
		RetryCount     int    `mapstructure:"retry_count"`
	} `mapstructure:"discord"`

	Plex struct {
		URL      string `mapstructure:"url"`
		ServerID string `mapstructure:"server_id"`
	} `mapstructure:"plex"`

	Summary struct {
		DaysBack         int `mapstructure:"days_back"`
		InitialBatchSize int `mapstructure:"initial_batch_size"`
	} `mapstructure:"summary"`

	Schedule struct {
		CronSpec string `mapstructure:"cron_spec"`
	} `mapstructure:"schedule"`
}

// DefaultPath is where the config is looked up unless CONFIG_PATH overrides
// it.
const DefaultPath = "./config.yaml"

func Path() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return DefaultPath
}

func LoadConfig(path string) (Config, error) {
	var cfg Config

	v := viper.New()
	v.SetConfigFile(path)

	v.SetDefault("tautulli.timeout_seconds", 10)
	v.SetDefault("tautulli.retry_count", 3)
	v.SetDefault("tautulli.retry_base_seconds", 1)
	v.SetDefault("discord.timeout_seconds", 15)
	v.SetDefault("discord.retry_count", 3)
	v.SetDefault("plex.url", "https://app.plex.tv")

	if err := v.ReadInConfig(); err != nil {
		return cfg, fmt.Errorf("reading config file %s: %w", path, err)
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decoding config: %w", err)
	}

	cfg.Tautulli.URL = os.ExpandEnv(cfg.Tautulli.URL)
	cfg.Plex.URL = os.ExpandEnv(cfg.Plex.URL)
	cfg.Tautulli.APIKey = resolveSecret(cfg.Tautulli.APIKey)
	cfg.Discord.WebhookURL = resolveSecret(cfg.Discord.WebhookURL)

	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Tautulli.URL == "" {
		return fmt.Errorf("critical config: tautulli.url is not set")
	}
	if c.Tautulli.APIKey == "" {
		return fmt.Errorf("critical config: tautulli.apikey is not set")
	}
	if c.Summary.DaysBack < 1 {
		return fmt.Errorf("critical config: summary.days_back must be at least 1")
	}
	if c.Summary.InitialBatchSize < 0 || c.Summary.InitialBatchSize > 10000 {
		return fmt.Errorf("critical config: summary.initial_batch_size must be between 1 and 10000")
	}
	if !c.RunOnce && c.Schedule.CronSpec == "" {
		return fmt.Errorf("critical config: schedule.cron_spec is required unless run_once is true")
	}
	return nil
}

// resolveSecret expands ${VAR} references and, when the result is an
// absolute path to a readable file, substitutes the file's trimmed contents
// (Docker secrets pattern). Anything else is returned as-is.
func resolveSecret(value string) string {
	value = os.ExpandEnv(value)
	if !strings.HasPrefix(value, "/") {
		return value
	}
	info, err := os.Stat(value)
	if err != nil || info.IsDir() {
		return value
	}
	content, err := os.ReadFile(value)
	if err != nil {
		return value
	}
	return strings.TrimSpace(string(content))
}
