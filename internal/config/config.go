package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	DefaultDigestSchedule = "0 9 * * *"
	DefaultHistoryKeep    = 500
)

// Config is the bootstrap configuration: everything needed to connect to the
// chat gateway and find the data files. The runtime settings the bot mutates
// through admin commands (target channel, banned words) live in the store
// package, not here.
type Config struct {
	Telegram TelegramConfig `json:"telegram"`
	Admins   []int64        `json:"admins,omitempty"`
	Digest   DigestConfig   `json:"digest"`
	DataDir  string         `json:"dataDir,omitempty"`
	Debug    bool           `json:"debug,omitempty"`
}

type TelegramConfig struct {
	Token string `json:"token"`
	Proxy string `json:"proxy,omitempty"`
}

// DigestConfig controls the optional scheduled story post that runs without a
// trigger message. Schedule is a standard 5-field cron expression.
type DigestConfig struct {
	Enabled  bool   `json:"enabled"`
	Schedule string `json:"schedule,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		Digest: DigestConfig{
			Enabled:  false,
			Schedule: DefaultDigestSchedule,
		},
	}
}

func ConfigDir() string {
	home := os.Getenv("HOME")
	if home == "" {
		home, _ = os.UserHomeDir()
	}
	return filepath.Join(home, ".onewordbot")
}

func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.json")
}

// DataDirPath resolves the directory for mutable data (settings, history).
func (c *Config) DataDirPath() string {
	if c.DataDir != "" {
		return c.DataDir
	}
	return filepath.Join(ConfigDir(), "data")
}

// SettingsPath is where admin-mutated settings are persisted.
func (c *Config) SettingsPath() string {
	return filepath.Join(c.DataDirPath(), "settings.json")
}

// HistoryPath is the SQLite message log location.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.DataDirPath(), "history.db")
}

func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(ConfigPath())
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if token := os.Getenv("ONEWORD_TELEGRAM_TOKEN"); token != "" {
		cfg.Telegram.Token = token
	}
	if proxy := os.Getenv("ONEWORD_TELEGRAM_PROXY"); proxy != "" {
		cfg.Telegram.Proxy = proxy
	}
	if dir := os.Getenv("ONEWORD_DATA_DIR"); dir != "" {
		cfg.DataDir = dir
	}
	if admins := os.Getenv("ONEWORD_ADMINS"); admins != "" {
		cfg.Admins = nil
		for _, part := range strings.Split(admins, ",") {
			if id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64); err == nil {
				cfg.Admins = append(cfg.Admins, id)
			}
		}
	}
	if sched := os.Getenv("ONEWORD_DIGEST_SCHEDULE"); sched != "" {
		cfg.Digest.Enabled = true
		cfg.Digest.Schedule = sched
	}
	if dbg := os.Getenv("ONEWORD_DEBUG"); dbg != "" {
		if parsed, err := strconv.ParseBool(dbg); err == nil {
			cfg.Debug = parsed
		}
	}

	if cfg.Digest.Schedule == "" {
		cfg.Digest.Schedule = DefaultDigestSchedule
	}

	return cfg, nil
}

func SaveConfig(cfg *Config) error {
	dir := ConfigDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(ConfigPath(), data, 0644)
}
