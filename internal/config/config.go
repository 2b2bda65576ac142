// Package config loads settings from configs/config.yaml plus .env /
// environment overrides, fills defaults, and validates what must be set.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Port           int    `yaml:"port"`
	ProfilesPath   string `yaml:"profiles_path"`
	HistoryPath    string `yaml:"history_path"`
	ScreenshotsDir string `yaml:"screenshots_dir"`
	ImagesDir      string `yaml:"images_dir"`

	// Browser
	BrowserChannel string `yaml:"browser_channel"` // "msedge", "chrome", or "" for bundled chromium
	Headless       bool   `yaml:"headless"`

	// Run pacing
	ProfileDelaySeconds int `yaml:"profile_delay_seconds"`
	StepTimeoutSeconds  int `yaml:"step_timeout_seconds"`

	// Stock image APIs for the image post step
	PexelsAPIKey   string `yaml:"pexels_api_key"`
	UnsplashAPIKey string `yaml:"unsplash_api_key"`

	// Optional run summaries
	TelegramToken  string `yaml:"telegram_token"`
	TelegramChatID int64  `yaml:"telegram_chat_id"`
}

// Load reads the YAML file at path (a missing file is fine, defaults
// apply), then applies environment overrides.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	applyEnv(cfg)
	cfg.setDefaults()
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Port = port
		}
	}
	if v := os.Getenv("PROFILES_PATH"); v != "" {
		cfg.ProfilesPath = v
	}
	if v := os.Getenv("BROWSER_CHANNEL"); v != "" {
		cfg.BrowserChannel = v
	}
	if v := os.Getenv("HEADLESS"); v != "" {
		cfg.Headless = v == "1" || v == "true"
	}
	if v := os.Getenv("PEXELS_API_KEY"); v != "" {
		cfg.PexelsAPIKey = v
	}
	if v := os.Getenv("UNSPLASH_API_KEY"); v != "" {
		cfg.UnsplashAPIKey = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.TelegramToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.TelegramChatID = id
		}
	}
}

func (c *Config) setDefaults() {
	if c.Port == 0 {
		c.Port = 5000
	}
	if c.ProfilesPath == "" {
		c.ProfilesPath = "profiles.json"
	}
	if c.HistoryPath == "" {
		c.HistoryPath = "warmup_history.db"
	}
	if c.ScreenshotsDir == "" {
		c.ScreenshotsDir = "warmupss"
	}
	if c.ImagesDir == "" {
		c.ImagesDir = "temp_images"
	}
	if c.BrowserChannel == "" {
		c.BrowserChannel = "msedge"
	}
	if c.ProfileDelaySeconds == 0 {
		c.ProfileDelaySeconds = 5
	}
	if c.StepTimeoutSeconds == 0 {
		c.StepTimeoutSeconds = 120
	}
}

func (c *Config) ProfileDelay() time.Duration {
	return time.Duration(c.ProfileDelaySeconds) * time.Second
}

func (c *Config) StepTimeout() time.Duration {
	return time.Duration(c.StepTimeoutSeconds) * time.Second
}

// TelegramEnabled reports whether run summaries should go to Telegram.
func (c *Config) TelegramEnabled() bool {
	return c.TelegramToken != "" && c.TelegramChatID != 0
}
