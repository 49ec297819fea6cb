// Package config handles configuration loading and validation for archaeo.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/viper"

	"github.com/imyousuf/archaeo/internal/serialize"
)

const (
	// DefaultConfigFile is the default configuration file name (without extension).
	DefaultConfigFile = ".archaeo"
	// DefaultConfigType is the file type written by init.
	DefaultConfigType = "yaml"
	// EnvPrefix prefixes environment overrides, e.g. ARCHAEO_SOURCE_WORKERS.
	EnvPrefix = "ARCHAEO"
)

// Config holds all configuration for archaeo.
type Config struct {
	// Source controls metric extraction runs.
	Source SourceConfig `mapstructure:"source" yaml:"source" toml:"source"`
	// Cache controls the analysis result cache.
	Cache CacheConfig `mapstructure:"cache" yaml:"cache" toml:"cache"`
	// Log controls diagnostic output.
	Log LogConfig `mapstructure:"log" yaml:"log" toml:"log"`
}

// SourceConfig holds the settings of the source command.
type SourceConfig struct {
	// Format is tabular, hierarchical, or one of the csv, json and yaml aliases.
	Format string `mapstructure:"format" yaml:"format" toml:"format"`
	// Output is the directory receiving artifacts.
	Output   string `mapstructure:"output" yaml:"output" toml:"output"`
	Split    bool   `mapstructure:"split" yaml:"split" toml:"split"`
	Extended bool   `mapstructure:"extended" yaml:"extended" toml:"extended"`
	// Workers bounds concurrent analyses; 0 uses every CPU.
	Workers int `mapstructure:"workers" yaml:"workers" toml:"workers"`
	// Timeout bounds the analysis of one file, e.g. "30s". "0s" disables it.
	Timeout string `mapstructure:"timeout" yaml:"timeout" toml:"timeout"`
	// MaxFileSize skips larger files, e.g. "8MiB". "0" disables the limit.
	MaxFileSize string `mapstructure:"max_file_size" yaml:"max_file_size" toml:"max_file_size"`
	// Exclude lists gitignore-style patterns relative to the input directory.
	Exclude []string `mapstructure:"exclude" yaml:"exclude" toml:"exclude"`
	// Debounce is the quiet period before watch mode re-runs.
	Debounce string `mapstructure:"debounce" yaml:"debounce" toml:"debounce"`
}

// CacheConfig holds result cache settings.
type CacheConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled" toml:"enabled"`
	Dir     string `mapstructure:"dir" yaml:"dir" toml:"dir"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	// Format is text or json.
	Format  string `mapstructure:"format" yaml:"format" toml:"format"`
	Verbose bool   `mapstructure:"verbose" yaml:"verbose" toml:"verbose"`
}

// Load loads configuration from file, environment variables, and defaults.
// When configFile is empty, .archaeo.yaml (or another supported extension) in
// the working directory is used if present.
func Load(configFile string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		// The file type follows the extension, so .archaeo.toml works too.
		v.SetConfigName(DefaultConfigFile)
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	return &cfg, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if _, _, err := serialize.ParseFormat(c.Source.Format); err != nil {
		return fmt.Errorf("source format must be tabular, hierarchical, csv, json or yaml, got %q", c.Source.Format)
	}
	if c.Source.Output == "" {
		return fmt.Errorf("source output directory is required")
	}
	if c.Source.Workers < 0 {
		return fmt.Errorf("source workers must not be negative, got %d", c.Source.Workers)
	}
	if _, err := c.Source.TimeoutDuration(); err != nil {
		return err
	}
	if _, err := c.Source.DebounceDuration(); err != nil {
		return err
	}
	if _, err := c.Source.MaxFileSizeBytes(); err != nil {
		return err
	}
	if c.Cache.Enabled && c.Cache.Dir == "" {
		return fmt.Errorf("cache dir is required when the cache is enabled")
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("log format must be 'text' or 'json', got %q", c.Log.Format)
	}
	return nil
}

// TimeoutDuration parses Timeout. An empty value means no timeout.
func (s SourceConfig) TimeoutDuration() (time.Duration, error) {
	return parseDuration("timeout", s.Timeout)
}

// DebounceDuration parses Debounce. An empty value means the watcher default.
func (s SourceConfig) DebounceDuration() (time.Duration, error) {
	return parseDuration("debounce", s.Debounce)
}

// MaxFileSizeBytes parses MaxFileSize. An empty value disables the limit.
func (s SourceConfig) MaxFileSizeBytes() (int64, error) {
	if s.MaxFileSize == "" {
		return 0, nil
	}
	n, err := humanize.ParseBytes(s.MaxFileSize)
	if err != nil {
		return 0, fmt.Errorf("source max_file_size %q: %w", s.MaxFileSize, err)
	}
	return int64(n), nil
}

func parseDuration(key, value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("source %s %q: %w", key, value, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("source %s must not be negative, got %s", key, value)
	}
	return d, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("source.format", "tabular")
	v.SetDefault("source.output", "archaeo-out")
	v.SetDefault("source.split", false)
	v.SetDefault("source.extended", false)
	v.SetDefault("source.workers", 0)
	v.SetDefault("source.timeout", "0s")
	v.SetDefault("source.max_file_size", "8MiB")
	v.SetDefault("source.exclude", []string{
		"**/build/**",
		"**/third_party/**",
		"**/CMakeFiles/**",
	})
	v.SetDefault("source.debounce", "250ms")

	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.dir", ".archaeo-cache")

	v.SetDefault("log.format", "text")
	v.SetDefault("log.verbose", false)
}
