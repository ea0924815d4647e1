package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default()
	if cfg.Limit.MaxPerWindow != 3 {
		t.Errorf("expected 3 per window, got %d", cfg.Limit.MaxPerWindow)
	}
	if cfg.History.MaxRecords != 20 || cfg.History.RecentLimit != 5 {
		t.Errorf("unexpected history defaults %+v", cfg.History)
	}
	if cfg.Display.Style != "detailed" {
		t.Errorf("expected detailed, got %s", cfg.Display.Style)
	}
	if cfg.LLM.Enabled {
		t.Error("llm should be disabled by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults do not validate: %v", err)
	}
}

func TestLoadFromTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.toml")
	os.WriteFile(path, []byte(`
admin_users = ["alice", "bob"]

[limit]
max_per_window = 5
reset_hour = 6

[llm]
enabled = true
model = "deepseek-chat"
timeout = "10s"

[observer.pricing.deepseek-chat]
input = 0.3
output = 1.2
`), 0644)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Limit.MaxPerWindow != 5 || cfg.Limit.ResetHour != 6 {
		t.Errorf("limit = %+v", cfg.Limit)
	}
	if !cfg.LLM.Enabled || cfg.LLM.Model != "deepseek-chat" || cfg.LLM.Timeout != 10*time.Second {
		t.Errorf("llm = %+v", cfg.LLM)
	}
	if p := cfg.Observer.Pricing["deepseek-chat"]; p.Input != 0.3 || p.Output != 1.2 {
		t.Errorf("pricing = %+v", cfg.Observer.Pricing)
	}
	if !cfg.IsAdmin("bob") || cfg.IsAdmin("mallory") {
		t.Errorf("admins = %v", cfg.AdminUsers)
	}
	// Defaults preserved
	if cfg.Limit.Window != "daily" || cfg.LLM.Provider != "openai" {
		t.Errorf("default should be preserved, got %q %q", cfg.Limit.Window, cfg.LLM.Provider)
	}
}

func TestEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.toml")
	os.WriteFile(path, []byte(`
[llm]
api_key = "file-key"
model = "file-model"
`), 0644)

	t.Setenv("ORACLE_LLM_API_KEY", "env-key")
	t.Setenv("ORACLE_LIMIT_MAX_PER_WINDOW", "7")
	t.Setenv("ORACLE_DATABASE_DRIVER", "memory")
	t.Setenv("ORACLE_ADMIN_USERS", "root,ops")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LLM.APIKey != "env-key" {
		t.Errorf("expected env-key, got %s", cfg.LLM.APIKey)
	}
	if cfg.LLM.Model != "file-model" {
		t.Errorf("file value lost, got %s", cfg.LLM.Model)
	}
	if cfg.Limit.MaxPerWindow != 7 {
		t.Errorf("expected 7, got %d", cfg.Limit.MaxPerWindow)
	}
	if cfg.Database.Driver != "memory" {
		t.Errorf("expected memory, got %s", cfg.Database.Driver)
	}
	if len(cfg.AdminUsers) != 2 || !cfg.IsAdmin("ops") {
		t.Errorf("admins = %v", cfg.AdminUsers)
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("missing file should not fail: %v", err)
	}
	if cfg.Limit.MaxPerWindow != 3 {
		t.Errorf("expected defaults, got %+v", cfg.Limit)
	}
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	os.WriteFile(path, []byte(`[limit`), 0644)
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"zero quota", func(c *Config) { c.Limit.MaxPerWindow = 0 }, "max_per_window"},
		{"reset hour", func(c *Config) { c.Limit.ResetHour = 24 }, "reset_hour"},
		{"window", func(c *Config) { c.Limit.Window = "weekly" }, "limit.window"},
		{"timezone", func(c *Config) { c.Limit.Timezone = "Mars/Olympus" }, "timezone"},
		{"style", func(c *Config) { c.Display.Style = "fancy" }, "display.style"},
		{"driver", func(c *Config) { c.Database.Driver = "mysql" }, "database.driver"},
		{"postgres dsn", func(c *Config) { c.Database.Driver = "postgres" }, "dsn"},
		{"llm timeout", func(c *Config) { c.LLM.Enabled = true; c.LLM.Timeout = 0 }, "llm.timeout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate() = %v, want error mentioning %q", err, tt.want)
			}
		})
	}
}

func TestLocation(t *testing.T) {
	tests := []struct {
		tz     string
		offset int
	}{
		{"", 8 * 3600},
		{"UTC+8", 8 * 3600},
		{"UTC-5", -5 * 3600},
		{"GMT+5:30", 5*3600 + 30*60},
		{"UTC", 0},
	}
	ref := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, tt := range tests {
		cfg := Default()
		cfg.Limit.Timezone = tt.tz
		loc, err := cfg.Location()
		if err != nil {
			t.Errorf("Location(%q): %v", tt.tz, err)
			continue
		}
		if _, off := ref.In(loc).Zone(); off != tt.offset {
			t.Errorf("Location(%q) offset = %d, want %d", tt.tz, off, tt.offset)
		}
	}
}
