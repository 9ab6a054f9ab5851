// Package config loads runnerwatch configuration from file and
// environment and builds the process logger.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/HerbHall/runnerwatch/internal/notify"
)

// Config is the full runnerwatch configuration tree.
type Config struct {
	Logging LoggingConfig `mapstructure:"logging"`
	Fleet   FleetConfig   `mapstructure:"fleet"`
	Monitor MonitorConfig `mapstructure:"monitor"`
	Archive ArchiveConfig `mapstructure:"archive"`
	Notify  NotifyConfig  `mapstructure:"notify"`
	Server  ServerConfig  `mapstructure:"server"`
}

// LoggingConfig controls the process logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// FleetConfig points at the runners API.
type FleetConfig struct {
	URL     string        `mapstructure:"url"`
	Token   string        `mapstructure:"token"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// MonitorConfig controls run processing.
type MonitorConfig struct {
	Hosts      []string      `mapstructure:"hosts"`
	Interval   time.Duration `mapstructure:"interval"`
	Retention  time.Duration `mapstructure:"retention"`
	StateFile  string        `mapstructure:"state_file"`
	StatsFile  string        `mapstructure:"stats_file"`
	RunnersURL string        `mapstructure:"runners_url"`
}

// ArchiveConfig controls the SQLite run archive.
type ArchiveConfig struct {
	Path string `mapstructure:"path"`
}

// NotifyConfig selects and configures the alert channel.
type NotifyConfig struct {
	// Channel is "zulip", "discord", "webhook", or "" for alerts to
	// log only.
	Channel string               `mapstructure:"channel"`
	Zulip   notify.ZulipConfig   `mapstructure:"zulip"`
	Discord notify.DiscordConfig `mapstructure:"discord"`
	Webhook notify.WebhookConfig `mapstructure:"webhook"`
}

// ServerConfig controls the daemon's status HTTP server.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// Load reads configuration from file and environment variables. An
// empty configPath falls back to searching for runnerwatch.yaml in the
// usual locations; a missing file is fine, defaults apply.
func Load(configPath string) (*viper.Viper, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("fleet.timeout", "30s")
	v.SetDefault("monitor.interval", "15m")
	v.SetDefault("monitor.retention", "168h")
	v.SetDefault("monitor.state_file", "./data/runner_state.json")
	v.SetDefault("monitor.stats_file", "./data/runner_stats.json")
	v.SetDefault("archive.path", "./data/runnerwatch.db")
	v.SetDefault("notify.channel", "")
	v.SetDefault("server.addr", ":8090")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("runnerwatch")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/runnerwatch")
	}

	// Environment variable support: RW_FLEET_TOKEN=...
	v.SetEnvPrefix("RW")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		// Config file not found is fine -- use defaults
	}

	return v, nil
}

// Parse unmarshals and validates the configuration tree.
func Parse(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if len(c.Monitor.Hosts) == 0 {
		return fmt.Errorf("monitor.hosts must list at least one canonical host")
	}
	if c.Monitor.Interval <= 0 {
		return fmt.Errorf("monitor.interval must be positive")
	}
	switch c.Notify.Channel {
	case "", "zulip", "discord", "webhook":
	default:
		return fmt.Errorf("notify.channel %q: must be \"zulip\", \"discord\", \"webhook\", or empty", c.Notify.Channel)
	}
	return nil
}
