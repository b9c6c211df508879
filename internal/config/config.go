// Package config loads slack-purge settings from defaults, an optional YAML
// file and SLACK_PURGE_* environment variables.
package config

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	// EnvPrefix is prepended to every environment override, e.g. SLACK_PURGE_TOKEN.
	EnvPrefix = "SLACK_PURGE"

	// PlaceholderToken is the value shipped in sample configs. Running with
	// it is allowed but almost certainly a mistake.
	PlaceholderToken = "SLACK TOKEN"

	// MaxPageSize is the largest history page Slack will return.
	MaxPageSize = 1000

	configName = "slack-purge"
)

// Config holds application configuration loaded from YAML.
type Config struct {
	Token          string        `yaml:"token" mapstructure:"token"`
	BaseURL        string        `yaml:"base_url" mapstructure:"base_url"`
	Delay          time.Duration `yaml:"delay" mapstructure:"delay"`
	RateLimitPause time.Duration `yaml:"rate_limit_pause" mapstructure:"rate_limit_pause"`
	DelayStep      time.Duration `yaml:"delay_step" mapstructure:"delay_step"`
	PageSize       int           `yaml:"page_size" mapstructure:"page_size"`
	LogLevel       string        `yaml:"log_level" mapstructure:"log_level"`

	configFile string
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Token:          PlaceholderToken,
		BaseURL:        "https://slack.com/api",
		Delay:          300 * time.Millisecond,
		RateLimitPause: time.Second,
		DelayStep:      100 * time.Millisecond,
		PageSize:       MaxPageSize,
		LogLevel:       "info",
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("token", d.Token)
	v.SetDefault("base_url", d.BaseURL)
	v.SetDefault("delay", d.Delay)
	v.SetDefault("rate_limit_pause", d.RateLimitPause)
	v.SetDefault("delay_step", d.DelayStep)
	v.SetDefault("page_size", d.PageSize)
	v.SetDefault("log_level", d.LogLevel)
}

// DefaultConfigPath returns ~/.config/slack-purge/slack-purge.yaml.
func DefaultConfigPath() string {
	return filepath.Join(defaultConfigDir(), configName+".yaml")
}

func defaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = "."
	}
	dir, err := filepath.Abs(filepath.Join(home, ".config", configName))
	if err != nil {
		return filepath.Join(home, ".config", configName)
	}
	return dir
}

// Load reads configuration. An explicit path must exist; with an empty
// path the default location is tried and silently skipped when absent.
// Environment variables override file values.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "reading config %s", path)
		}
	} else {
		v.SetConfigName(configName)
		v.AddConfigPath(defaultConfigDir())
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, errors.Wrap(err, "reading config")
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "decoding config")
	}
	cfg.configFile = v.ConfigFileUsed()
	return &cfg, nil
}

// ConfigFile returns the file the configuration was read from, or "" when
// only defaults and environment were used.
func (c *Config) ConfigFile() string {
	return c.configFile
}

// Save writes the configuration as YAML, creating parent directories.
// The file holds a credential, so it is only readable by the owner.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return errors.Wrap(err, "creating config dir")
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "encoding config")
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return errors.Wrap(err, "writing config")
	}
	return os.Chmod(path, 0600)
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Delay < 0 {
		return errors.Errorf("delay must not be negative, got %s", c.Delay)
	}
	if c.RateLimitPause < 0 {
		return errors.Errorf("rate_limit_pause must not be negative, got %s", c.RateLimitPause)
	}
	if c.DelayStep < 0 {
		return errors.Errorf("delay_step must not be negative, got %s", c.DelayStep)
	}
	if c.PageSize < 1 || c.PageSize > MaxPageSize {
		return errors.Errorf("page_size must be between 1 and %d, got %d", MaxPageSize, c.PageSize)
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return errors.Errorf("base_url must be an absolute URL, got %q", c.BaseURL)
	}
	if _, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel)); err != nil {
		return errors.Wrapf(err, "log_level")
	}
	return nil
}

// TokenIsPlaceholder reports whether no real token has been configured.
func (c *Config) TokenIsPlaceholder() bool {
	t := strings.TrimSpace(c.Token)
	return t == "" || t == PlaceholderToken
}

// RedactedToken returns the token with everything but its type prefix
// and last four characters masked.
func (c *Config) RedactedToken() string {
	if c.TokenIsPlaceholder() {
		return "(not set)"
	}
	t := c.Token
	prefix := ""
	if i := strings.Index(t, "-"); i > 0 && i <= 5 {
		prefix = t[:i+1]
	}
	if len(t) <= len(prefix)+4 {
		return prefix + "****"
	}
	return prefix + "****" + t[len(t)-4:]
}
