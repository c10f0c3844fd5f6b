package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config represents the complete huolto configuration.
type Config struct {
	Storage   StorageConfig   `mapstructure:"storage"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Output    OutputConfig    `mapstructure:"output"`
	Redaction RedactionConfig `mapstructure:"redaction"`
}

// StorageConfig contains snapshot and automation store configuration.
type StorageConfig struct {
	BaseDir string   `mapstructure:"base_dir"`
	Backend string   `mapstructure:"backend"` // "local" or "s3"
	S3      S3Config `mapstructure:"s3"`
}

// S3Config contains the object-store backend configuration.
type S3Config struct {
	Bucket string `mapstructure:"bucket"`
	Prefix string `mapstructure:"prefix"`
	Region string `mapstructure:"region"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// OutputConfig contains output formatting configuration.
type OutputConfig struct {
	Format  string `mapstructure:"format"`
	NoColor bool   `mapstructure:"no_color"`
}

// RedactionConfig contains the sensitive-key heuristics.
type RedactionConfig struct {
	SensitiveKeys []string `mapstructure:"sensitive_keys"`
}

// Load reads configuration from the config file (if present), environment
// variables, and defaults.
func Load() (*Config, error) {
	v := viper.GetViper()

	setDefaults(v)

	v.SetEnvPrefix("HUOLTO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if v.ConfigFileUsed() == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".huolto"))
			v.SetConfigName("config")
			v.SetConfigType("yaml")
		}
	}

	if err := v.ReadInConfig(); err != nil {
		// Missing config file is fine; anything else is a real failure.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.ExpandPaths(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("storage.base_dir", "~/.huolto")
	v.SetDefault("storage.backend", "local")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("output.format", "table")
	v.SetDefault("output.no_color", false)
	v.SetDefault("redaction.sensitive_keys", []string{
		"password", "secret", "key", "token", "credential", "private",
	})
}

// ExpandPaths expands ~ in configured paths to the user home directory.
func (c *Config) ExpandPaths() error {
	if strings.HasPrefix(c.Storage.BaseDir, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to expand storage path: %w", err)
		}
		c.Storage.BaseDir = filepath.Join(home, strings.TrimPrefix(c.Storage.BaseDir, "~"))
	}
	return nil
}
