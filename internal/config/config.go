package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"
)

type AppConfig struct {
	ListenAddr string

	AIServiceURL string

	RedisURL    string
	DatabaseURL string

	// Matchmaking and reconnection tuning.
	RankedWindow     int
	RankedWindowWide int
	WidenAfter       time.Duration
	GracePeriod      time.Duration
}

// fileConfig mirrors AppConfig for the YAML layer; durations are
// strings in time.ParseDuration form.
type fileConfig struct {
	ListenAddr       string `yaml:"listen_addr"`
	AIServiceURL     string `yaml:"ai_service_url"`
	RedisURL         string `yaml:"redis_url"`
	DatabaseURL      string `yaml:"database_url"`
	RankedWindow     int    `yaml:"ranked_window"`
	RankedWindowWide int    `yaml:"ranked_window_wide"`
	WidenAfter       string `yaml:"widen_after"`
	GracePeriod      string `yaml:"grace_period"`
}

// Load builds the config from an optional YAML file (ARENA_CONFIG)
// overlaid by environment variables. Environment wins.
func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		ListenAddr:       ":3001",
		AIServiceURL:     "http://localhost:5000",
		RankedWindow:     200,
		RankedWindowWide: 400,
		WidenAfter:       30 * time.Second,
		GracePeriod:      30 * time.Second,
	}

	if path := strings.TrimSpace(os.Getenv("ARENA_CONFIG")); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		var fc fileConfig
		if err := yaml.Unmarshal(raw, &fc); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
		if fc.ListenAddr != "" {
			cfg.ListenAddr = fc.ListenAddr
		}
		if fc.AIServiceURL != "" {
			cfg.AIServiceURL = fc.AIServiceURL
		}
		if fc.RedisURL != "" {
			cfg.RedisURL = fc.RedisURL
		}
		if fc.DatabaseURL != "" {
			cfg.DatabaseURL = fc.DatabaseURL
		}
		if fc.RankedWindow > 0 {
			cfg.RankedWindow = fc.RankedWindow
		}
		if fc.RankedWindowWide > 0 {
			cfg.RankedWindowWide = fc.RankedWindowWide
		}
		if fc.WidenAfter != "" {
			d, err := time.ParseDuration(fc.WidenAfter)
			if err != nil {
				return nil, fmt.Errorf("parse widen_after: %w", err)
			}
			cfg.WidenAfter = d
		}
		if fc.GracePeriod != "" {
			d, err := time.ParseDuration(fc.GracePeriod)
			if err != nil {
				return nil, fmt.Errorf("parse grace_period: %w", err)
			}
			cfg.GracePeriod = d
		}
	}

	if v := strings.TrimSpace(os.Getenv("PORT")); v != "" {
		cfg.ListenAddr = ":" + v
	}
	if v := strings.TrimSpace(os.Getenv("LISTEN_ADDR")); v != "" {
		cfg.ListenAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("PYTHON_AI_SERVICE_URL")); v != "" {
		cfg.AIServiceURL = v
	}
	if v := strings.TrimSpace(os.Getenv("REDIS_URL")); v != "" {
		cfg.RedisURL = v
	}
	if v := strings.TrimSpace(os.Getenv("DATABASE_URL")); v != "" {
		cfg.DatabaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("RANKED_WINDOW")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RankedWindow = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("RANKED_WINDOW_WIDE")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RankedWindowWide = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("WIDEN_AFTER")); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.WidenAfter = d
		}
	}
	if v := strings.TrimSpace(os.Getenv("MATCH_GRACE_PERIOD")); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.GracePeriod = d
		}
	}

	if cfg.RankedWindowWide < cfg.RankedWindow {
		return nil, fmt.Errorf("ranked window_wide (%d) must be >= window (%d)", cfg.RankedWindowWide, cfg.RankedWindow)
	}
	return cfg, nil
}
