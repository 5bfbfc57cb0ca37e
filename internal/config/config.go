// Package config provides application configuration for the desktop backend.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config is the full backend configuration, loaded from an optional yaml file
// with environment overrides (FACTURO_SERVER_PORT, FACTURO_DATA_DIR, ...).
// Remote sync credentials are deliberately not part of this file: they come
// from the process environment only (see the sync/remote package).
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Data    DataConfig    `mapstructure:"data"`
	Sync    SyncConfig    `mapstructure:"sync"`
	Logging LoggingConfig `mapstructure:"logging"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type DataConfig struct {
	Dir          string `mapstructure:"dir"`
	TemplatePath string `mapstructure:"template_path"`
}

type SyncConfig struct {
	// Schedule is a robfig/cron spec for background sessions, e.g. "@every 5m".
	Schedule  string `mapstructure:"schedule"`
	BatchSize int    `mapstructure:"batch_size"`
	Enabled   bool   `mapstructure:"enabled"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Addr returns the listen address for the localhost API server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoadConfig reads configuration from path (optional) and the environment.
// A missing config file is not an error; defaults apply.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8090)
	v.SetDefault("data.dir", "./data")
	v.SetDefault("data.template_path", "")
	v.SetDefault("sync.schedule", "@every 5m")
	v.SetDefault("sync.batch_size", 50)
	v.SetDefault("sync.enabled", true)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetEnvPrefix("FACTURO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !isNotExist(err) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// viper wraps fs errors for explicit config files, so match on the message.
func isNotExist(err error) bool {
	return strings.Contains(err.Error(), "no such file")
}
