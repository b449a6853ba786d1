// Package config assembles the daemon configuration: defaults, then an
// optional YAML tuning file, then ARISE_* environment variables. Later
// layers win. godotenv loads .env in main before Load runs.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is everything the daemon needs to start.
type Config struct {
	PlayerName string `yaml:"player_name"`
	DataDir    string `yaml:"data_dir"`
	ListenAddr string `yaml:"listen_addr"`

	TickInterval time.Duration `yaml:"-"`
	SaveInterval time.Duration `yaml:"-"`

	// yaml round-trips durations as seconds.
	TickSeconds int `yaml:"tick_seconds"`
	SaveSeconds int `yaml:"save_seconds"`

	RateLimit RateLimit `yaml:"rate_limit"`
}

// RateLimit tunes the API token bucket.
type RateLimit struct {
	PerSecond int `yaml:"per_second"`
	Burst     int `yaml:"burst"`
}

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		PlayerName:   "Hunter",
		DataDir:      "data",
		ListenAddr:   "127.0.0.1:8999",
		TickSeconds:  30,
		SaveSeconds:  300,
		TickInterval: 30 * time.Second,
		SaveInterval: 5 * time.Minute,
		RateLimit:    RateLimit{PerSecond: 20, Burst: 40},
	}
}

// Load builds the configuration: defaults, then the YAML file at yamlPath
// (skipped when empty or absent), then environment overrides.
func Load(yamlPath string) (Config, error) {
	cfg := Default()

	if yamlPath != "" {
		raw, err := os.ReadFile(yamlPath)
		if err != nil && !os.IsNotExist(err) {
			return cfg, fmt.Errorf("read %s: %w", yamlPath, err)
		}
		if err == nil {
			if err := yaml.Unmarshal(raw, &cfg); err != nil {
				return cfg, fmt.Errorf("parse %s: %w", yamlPath, err)
			}
		}
	}

	applyEnv(&cfg)

	if cfg.TickSeconds < 1 {
		return cfg, fmt.Errorf("tick_seconds must be positive, got %d", cfg.TickSeconds)
	}
	if cfg.SaveSeconds < 1 {
		return cfg, fmt.Errorf("save_seconds must be positive, got %d", cfg.SaveSeconds)
	}
	cfg.TickInterval = time.Duration(cfg.TickSeconds) * time.Second
	cfg.SaveInterval = time.Duration(cfg.SaveSeconds) * time.Second
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("ARISE_PLAYER_NAME"); v != "" {
		cfg.PlayerName = v
	}
	if v := os.Getenv("ARISE_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("ARISE_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if n, ok := envInt("ARISE_TICK_SECONDS"); ok {
		cfg.TickSeconds = n
	}
	if n, ok := envInt("ARISE_SAVE_SECONDS"); ok {
		cfg.SaveSeconds = n
	}
	if n, ok := envInt("ARISE_RATE_PER_SECOND"); ok {
		cfg.RateLimit.PerSecond = n
	}
	if n, ok := envInt("ARISE_RATE_BURST"); ok {
		cfg.RateLimit.Burst = n
	}
}

func envInt(key string) (int, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}
