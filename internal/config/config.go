// Package config loads tcfzarr settings from an optional YAML file and
// TCFZARR_* environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/viper"
)

// Config holds the settings shared by the CLI commands.
type Config struct {
	ChunkSize    []int              `mapstructure:"chunk_size"`
	LogLevel     string             `mapstructure:"log_level"`
	Export       ExportConfig       `mapstructure:"export"`
	Fluorescence FluorescenceConfig `mapstructure:"fluorescence"`
}

// ExportConfig controls store exports.
type ExportConfig struct {
	Compression string `mapstructure:"compression"`
	Workers     int    `mapstructure:"workers"`
}

// FluorescenceConfig controls how fluorescence series are decoded.
type FluorescenceConfig struct {
	// CorrectedInterval reads the TimeInterval attribute instead of
	// reporting the frame count as the interval.
	CorrectedInterval bool `mapstructure:"corrected_interval"`
}

// Load reads the configuration. When file is empty, tcfzarr.yaml is looked
// up in the working directory, $HOME/.tcfzarr and /etc/tcfzarr, and a
// missing file is not an error.
func Load(file string) (*Config, error) {
	v := viper.New()
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("tcfzarr")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.tcfzarr")
		v.AddConfigPath("/etc/tcfzarr")
	}

	v.SetDefault("chunk_size", []int{1, 64, 256, 256})
	v.SetDefault("log_level", "info")
	v.SetDefault("export.compression", "none")
	v.SetDefault("export.workers", 4)
	v.SetDefault("fluorescence.corrected_interval", false)

	v.SetEnvPrefix("TCFZARR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return &cfg, nil
}

// Chunks returns the configured (T, Z, Y, X) chunk size.
func (c *Config) Chunks() ([4]int, error) {
	var out [4]int
	if len(c.ChunkSize) != len(out) {
		return out, fmt.Errorf("chunk_size needs 4 values (t, z, y, x), got %d", len(c.ChunkSize))
	}
	for i, n := range c.ChunkSize {
		if n <= 0 {
			return out, fmt.Errorf("chunk_size must be positive, got %d on axis %d", n, i)
		}
		out[i] = n
	}
	return out, nil
}

// Level parses LogLevel ("debug", "info", "warn", "error").
func (c *Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log_level %q: %w", c.LogLevel, err)
	}
	return l, nil
}
