// Package config loads client settings from defaults, an optional YAML
// file, a .env file, TEMPMAIL_* environment variables and command-line
// flags, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	tempmail "github.com/Dimuthnilanjana/email-alias-generator"
)

// EnvPrefix is prepended to every environment variable key.
const EnvPrefix = "TEMPMAIL"

// DefaultEnvFile is loaded when present and no other file is requested.
const DefaultEnvFile = ".env"

// Config is the resolved client configuration.
type Config struct {
	BaseURL        string        `mapstructure:"base_url"`
	Domain         string        `mapstructure:"domain"`
	SessionTTL     time.Duration `mapstructure:"session_ttl"`
	PollInterval   time.Duration `mapstructure:"poll_interval"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	AutoRefresh    bool          `mapstructure:"auto_refresh"`
	RateLimit      float64       `mapstructure:"rate_limit"`
	LogLevel       string        `mapstructure:"log_level"`
	LogFormat      string        `mapstructure:"log_format"`
	UserAgent      string        `mapstructure:"user_agent"`
}

// LoadOptions selects the sources Load reads.
type LoadOptions struct {
	// ConfigFile is an optional YAML file. A missing file is an error.
	ConfigFile string

	// EnvFile is a dotenv file. If empty, DefaultEnvFile is tried and
	// silently skipped when absent.
	EnvFile string

	// Flags are bound by their dashed names, e.g. --poll-interval binds
	// poll_interval.
	Flags *pflag.FlagSet
}

var defaults = map[string]any{
	"base_url":        tempmail.DefaultBaseURL,
	"domain":          "",
	"session_ttl":     tempmail.DefaultSessionTTL,
	"poll_interval":   tempmail.DefaultPollInterval,
	"request_timeout": tempmail.DefaultTimeout,
	"auto_refresh":    true,
	"rate_limit":      tempmail.DefaultRateLimit,
	"log_level":       "info",
	"log_format":      "text",
	"user_agent":      tempmail.DefaultUserAgent,
}

// Load resolves the configuration.
func Load(opts LoadOptions) (*Config, error) {
	if err := loadEnvFile(opts.EnvFile); err != nil {
		return nil, err
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", opts.ConfigFile, err)
		}
	}

	if opts.Flags != nil {
		for key := range defaults {
			flag := opts.Flags.Lookup(strings.ReplaceAll(key, "_", "-"))
			if flag == nil {
				continue
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return nil, fmt.Errorf("binding flag %s: %w", flag.Name, err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadEnvFile(path string) error {
	if path == "" {
		if err := godotenv.Load(DefaultEnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", DefaultEnvFile, err)
		}
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.BaseURL) == "" {
		errs = append(errs, errors.New("base_url is required"))
	}
	if c.SessionTTL < time.Minute {
		errs = append(errs, fmt.Errorf("session_ttl must be at least 1m, got %v", c.SessionTTL))
	}
	if c.PollInterval < time.Second {
		errs = append(errs, fmt.Errorf("poll_interval must be at least 1s, got %v", c.PollInterval))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, fmt.Errorf("request_timeout must be positive, got %v", c.RequestTimeout))
	}
	if c.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("rate_limit must not be negative, got %v", c.RateLimit))
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log_format must be text or json, got %q", c.LogFormat))
	}
	return errors.Join(errs...)
}

// Options converts the configuration into client options.
func (c *Config) Options() []tempmail.Option {
	burst := int(c.RateLimit)
	if burst < 1 {
		burst = 1
	}
	return []tempmail.Option{
		tempmail.WithBaseURL(c.BaseURL),
		tempmail.WithDomain(c.Domain),
		tempmail.WithSessionTTL(c.SessionTTL),
		tempmail.WithPollInterval(c.PollInterval),
		tempmail.WithTimeout(c.RequestTimeout),
		tempmail.WithAutoRefresh(c.AutoRefresh),
		tempmail.WithRateLimit(c.RateLimit, burst),
		tempmail.WithUserAgent(c.UserAgent),
	}
}

// Logger builds a slog.Logger writing to w in the configured format.
func (c *Config) Logger(w io.Writer) (*slog.Logger, error) {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}
	if w == nil {
		w = os.Stderr
	}
	handlerOpts := &slog.HandlerOptions{Level: level}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, handlerOpts)), nil
	}
	return slog.New(slog.NewTextHandler(w, handlerOpts)), nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log_level %q", s)
	}
	return level, nil
}
