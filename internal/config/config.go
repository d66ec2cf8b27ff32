// Package config loads uispec settings.
//
// Settings are layered, later layers winning:
//
//  1. built-in defaults (NewDefault)
//  2. a TOML file, usually uispec.toml
//  3. a .env file
//  4. UISPEC_* environment variables
//
// Command-line flags are applied on top by the CLI.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/roach88/uispec/internal/poll"
)

// EnvPrefix prefixes every environment variable the config reads.
const EnvPrefix = "UISPEC_"

// Config holds run settings.
type Config struct {
	// BaseURL is prepended to every navigated path.
	BaseURL string `toml:"base_url" validate:"required,url"`

	Browser BrowserConfig `toml:"browser"`

	// Poll budget defaults for every step.
	TimeoutMs  int `toml:"timeout_ms" validate:"gt=0"`
	IntervalMs int `toml:"interval_ms" validate:"gt=0,ltefield=TimeoutMs"`

	// SuiteTimeoutMs bounds each suite run. Zero means no bound.
	SuiteTimeoutMs int `toml:"suite_timeout_ms" validate:"gte=0"`

	// DBPath is the run history database. Empty disables recording.
	DBPath string `toml:"db_path"`

	LogLevel  string `toml:"log_level" validate:"oneof=trace debug info warn error"`
	LogFormat string `toml:"log_format" validate:"oneof=console json"`
}

// BrowserConfig configures the Chrome page.
type BrowserConfig struct {
	Headless     bool   `toml:"headless"`
	NoSandbox    bool   `toml:"no_sandbox"`
	ChromePath   string `toml:"chrome_path"`
	WindowWidth  int    `toml:"window_width" validate:"gte=320,lte=7680"`
	WindowHeight int    `toml:"window_height" validate:"gte=240,lte=4320"`
}

// NewDefault returns the built-in defaults.
func NewDefault() *Config {
	return &Config{
		BaseURL: "http://localhost:8000",
		Browser: BrowserConfig{
			Headless:     true,
			WindowWidth:  1280,
			WindowHeight: 800,
		},
		TimeoutMs:  int(poll.DefaultTimeout / time.Millisecond),
		IntervalMs: int(poll.DefaultInterval / time.Millisecond),
		LogLevel:   "info",
		LogFormat:  "console",
	}
}

// Load builds a Config from defaults, the TOML file at configPath and the
// .env file at envPath, then the process environment. Empty paths are
// skipped; a named file that does not exist is an error only for the TOML
// file.
func Load(configPath, envPath string) (*Config, error) {
	cfg := NewDefault()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
		}
	}

	dotenv := map[string]string{}
	if envPath != "" {
		vars, err := godotenv.Read(envPath)
		switch {
		case err == nil:
			dotenv = vars
		case errors.Is(err, os.ErrNotExist):
			// .env is optional
		default:
			return nil, fmt.Errorf("failed to read env file %s: %w", envPath, err)
		}
	}

	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}
	if err := cfg.applyEnv(lookup); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides fields from UISPEC_* variables.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = v
		}
	}
	num := func(name string, dst *int) error {
		v, ok := lookup(EnvPrefix + name)
		if !ok {
			return nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
		}
		*dst = n
		return nil
	}
	flag := func(name string, dst *bool) error {
		v, ok := lookup(EnvPrefix + name)
		if !ok {
			return nil
		}
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
		}
		*dst = b
		return nil
	}

	str("BASE_URL", &c.BaseURL)
	str("DB_PATH", &c.DBPath)
	str("LOG_LEVEL", &c.LogLevel)
	str("LOG_FORMAT", &c.LogFormat)
	str("CHROME_PATH", &c.Browser.ChromePath)

	for _, err := range []error{
		num("TIMEOUT_MS", &c.TimeoutMs),
		num("INTERVAL_MS", &c.IntervalMs),
		num("SUITE_TIMEOUT_MS", &c.SuiteTimeoutMs),
		num("WINDOW_WIDTH", &c.Browser.WindowWidth),
		num("WINDOW_HEIGHT", &c.Browser.WindowHeight),
		flag("HEADLESS", &c.Browser.Headless),
		flag("NO_SANDBOX", &c.Browser.NoSandbox),
	} {
		if err != nil {
			return err
		}
	}
	return nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks every field against its constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, len(verrs))
			for i, fe := range verrs {
				msgs[i] = fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag())
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// PollOptions returns the default poll budget.
func (c *Config) PollOptions() poll.Options {
	return poll.FromMillis(c.TimeoutMs, c.IntervalMs)
}

// SuiteTimeout returns the per-suite bound, zero if unbounded.
func (c *Config) SuiteTimeout() time.Duration {
	return time.Duration(c.SuiteTimeoutMs) * time.Millisecond
}
