// Package config loads the oracle host configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"slices"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"

	oracle "github.com/oraclelang/oracle"
)

// EnvPrefix prefixes every environment override, e.g. ORACLE_LLM_API_KEY.
const EnvPrefix = "ORACLE_"

type Config struct {
	Limit      LimitConfig    `toml:"limit" envPrefix:"LIMIT_"`
	History    HistoryConfig  `toml:"history" envPrefix:"HISTORY_"`
	LLM        LLMConfig      `toml:"llm" envPrefix:"LLM_"`
	Display    DisplayConfig  `toml:"display" envPrefix:"DISPLAY_"`
	Database   DatabaseConfig `toml:"database" envPrefix:"DATABASE_"`
	Observer   ObserverConfig `toml:"observer" envPrefix:"OBSERVER_"`
	AdminUsers []string       `toml:"admin_users" env:"ADMIN_USERS" envSeparator:","`
	Debug      bool           `toml:"debug" env:"DEBUG"`
}

type LimitConfig struct {
	MaxPerWindow int `toml:"max_per_window" env:"MAX_PER_WINDOW"`
	// Window is "daily" or a Go duration such as "12h".
	Window    string `toml:"window" env:"WINDOW"`
	ResetHour int    `toml:"reset_hour" env:"RESET_HOUR"`
	// Timezone is an IANA name or a fixed offset such as "UTC+8".
	Timezone string `toml:"timezone" env:"TIMEZONE"`
}

type HistoryConfig struct {
	MaxRecords  int `toml:"max_records" env:"MAX_RECORDS"`
	RecentLimit int `toml:"recent_limit" env:"RECENT_LIMIT"`
}

type LLMConfig struct {
	Enabled     bool          `toml:"enabled" env:"ENABLED"`
	Provider    string        `toml:"provider" env:"PROVIDER"`
	// BaseURL defaults to the provider's public endpoint when empty.
	BaseURL     string        `toml:"base_url" env:"BASE_URL"`
	Model       string        `toml:"model" env:"MODEL"`
	APIKey      string        `toml:"api_key" env:"API_KEY"`
	Timeout     time.Duration `toml:"timeout" env:"TIMEOUT"`
	Temperature float64       `toml:"temperature" env:"TEMPERATURE"`
	MaxTokens   int           `toml:"max_tokens" env:"MAX_TOKENS"`
}

type DisplayConfig struct {
	Style string `toml:"style" env:"STYLE"`
}

type DatabaseConfig struct {
	// Driver is "memory", "sqlite" or "postgres".
	Driver string `toml:"driver" env:"DRIVER"`
	Path   string `toml:"path" env:"PATH"`
	DSN    string `toml:"dsn" env:"DSN"`
}

type ObserverConfig struct {
	Enabled bool                       `toml:"enabled" env:"ENABLED"`
	Pricing map[string]ObserverPricing `toml:"pricing"`
}

type ObserverPricing struct {
	Input  float64 `toml:"input"`
	Output float64 `toml:"output"`
}

// Default returns a Config with all defaults applied.
func Default() Config {
	return Config{
		Limit:    LimitConfig{MaxPerWindow: 3, Window: "daily", ResetHour: 0, Timezone: "UTC+8"},
		History:  HistoryConfig{MaxRecords: 20, RecentLimit: 5},
		LLM:      LLMConfig{Provider: "openai", Model: "gpt-4o-mini", Timeout: 30 * time.Second, Temperature: 0.7, MaxTokens: 800},
		Display:  DisplayConfig{Style: "detailed"},
		Database: DatabaseConfig{Driver: "sqlite", Path: "oracle.db"},
	}
}

// Load reads config: defaults -> TOML file -> env vars (env wins). A
// missing file is not an error; a malformed one is.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = "oracle.toml"
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case !errors.Is(err, os.ErrNotExist):
		return cfg, fmt.Errorf("read %s: %w", path, err)
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

var validStyles = []string{"simple", "traditional", "detailed"}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	if c.Limit.MaxPerWindow < 1 {
		errs = append(errs, fmt.Errorf("limit.max_per_window must be positive, got %d", c.Limit.MaxPerWindow))
	}
	if c.Limit.ResetHour < 0 || c.Limit.ResetHour > 23 {
		errs = append(errs, fmt.Errorf("limit.reset_hour must be 0-23, got %d", c.Limit.ResetHour))
	}
	if c.Limit.Window != "" && c.Limit.Window != "daily" {
		if d, err := time.ParseDuration(c.Limit.Window); err != nil || d <= 0 {
			errs = append(errs, fmt.Errorf("limit.window %q is neither \"daily\" nor a positive duration", c.Limit.Window))
		}
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	if c.History.MaxRecords < 1 {
		errs = append(errs, fmt.Errorf("history.max_records must be positive, got %d", c.History.MaxRecords))
	}
	if !slices.Contains(validStyles, c.Display.Style) {
		errs = append(errs, fmt.Errorf("display.style %q must be one of %v", c.Display.Style, validStyles))
	}
	switch c.Database.Driver {
	case "memory":
	case "sqlite":
		if c.Database.Path == "" {
			errs = append(errs, errors.New("database.path is required for sqlite"))
		}
	case "postgres":
		if c.Database.DSN == "" {
			errs = append(errs, errors.New("database.dsn is required for postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("database.driver %q must be memory, sqlite or postgres", c.Database.Driver))
	}
	if c.LLM.Enabled {
		if c.LLM.Model == "" {
			errs = append(errs, errors.New("llm.model is required when llm.enabled"))
		}
		if c.LLM.Timeout <= 0 {
			errs = append(errs, fmt.Errorf("llm.timeout must be positive, got %s", c.LLM.Timeout))
		}
	}
	return errors.Join(errs...)
}

var offsetZone = regexp.MustCompile(`^(?:UTC|GMT)([+-])(\d{1,2})(?::(\d{2}))?$`)

// Location resolves Limit.Timezone. Empty means UTC+8.
func (c Config) Location() (*time.Location, error) {
	tz := c.Limit.Timezone
	if tz == "" {
		return oracle.DefaultLocation, nil
	}
	if m := offsetZone.FindStringSubmatch(tz); m != nil {
		h, _ := strconv.Atoi(m[2])
		mins := 0
		if m[3] != "" {
			mins, _ = strconv.Atoi(m[3])
		}
		if h > 14 || mins > 59 {
			return nil, fmt.Errorf("limit.timezone %q: offset out of range", tz)
		}
		off := h*3600 + mins*60
		if m[1] == "-" {
			off = -off
		}
		return time.FixedZone(tz, off), nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("limit.timezone %q: %w", tz, err)
	}
	return loc, nil
}

// IsAdmin reports whether user may run the admin commands.
func (c Config) IsAdmin(user string) bool {
	return slices.Contains(c.AdminUsers, user)
}
