// Package config loads server configuration by merging defaults, an
// optional YAML file, and environment overrides, in that order.
package config

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig
	Storage   StorageConfig
	Sync      SyncConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Port              int
	ReadHeaderTimeout time.Duration
}

type StorageConfig struct {
	// Path of the SQLite database file. Empty disables the backend; the
	// service then answers every sync request with backend-unavailable.
	Path string
}

type SyncConfig struct {
	RetentionDays int
}

type RateLimitConfig struct {
	RPS   float64
	Burst int
}

type fileConfig struct {
	Server struct {
		Port              int           `yaml:"port"`
		ReadHeaderTimeout time.Duration `yaml:"readHeaderTimeout"`
	} `yaml:"server"`
	Storage struct {
		Path string `yaml:"path"`
	} `yaml:"storage"`
	Sync struct {
		RetentionDays int `yaml:"retentionDays"`
	} `yaml:"sync"`
	RateLimit struct {
		RPS   float64 `yaml:"rps"`
		Burst int     `yaml:"burst"`
	} `yaml:"rateLimit"`
}

func Default() Config {
	return Config{
		Server:    ServerConfig{Port: 8080, ReadHeaderTimeout: 5 * time.Second},
		Storage:   StorageConfig{Path: "statsync.db"},
		Sync:      SyncConfig{RetentionDays: 45},
		RateLimit: RateLimitConfig{RPS: 5, Burst: 20},
	}
}

// Load merges defaults with an optional YAML file and env overrides. A
// missing or unparsable file falls back to defaults; the sync endpoint
// should boot and report its state rather than refuse to start.
func Load(configPath string) Config {
	cfg := Default()

	candidates := make([]string, 0, 1)
	if configPath != "" {
		candidates = append(candidates, configPath)
	} else {
		candidates = append(candidates, "configs/config.yaml")
	}

	for _, path := range candidates {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var parsed fileConfig
		if err := yaml.Unmarshal(data, &parsed); err != nil {
			continue
		}
		merge(&cfg, parsed)
		break
	}

	applyEnvOverrides(&cfg)
	return cfg
}

func merge(dst *Config, src fileConfig) {
	if src.Server.Port != 0 {
		dst.Server.Port = src.Server.Port
	}
	if src.Server.ReadHeaderTimeout != 0 {
		dst.Server.ReadHeaderTimeout = src.Server.ReadHeaderTimeout
	}
	if src.Storage.Path != "" {
		dst.Storage.Path = src.Storage.Path
	}
	if src.Sync.RetentionDays != 0 {
		dst.Sync.RetentionDays = src.Sync.RetentionDays
	}
	if src.RateLimit.RPS != 0 {
		dst.RateLimit.RPS = src.RateLimit.RPS
	}
	if src.RateLimit.Burst != 0 {
		dst.RateLimit.Burst = src.RateLimit.Burst
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("STATSYNC_DB_PATH"); v != "" {
		cfg.Storage.Path = v
	}
	if v := os.Getenv("STATSYNC_RETENTION_DAYS"); v != "" {
		if days, err := strconv.Atoi(v); err == nil && days > 0 {
			cfg.Sync.RetentionDays = days
		}
	}
	if v := os.Getenv("STATSYNC_RATE_RPS"); v != "" {
		if rps, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.RateLimit.RPS = rps
		}
	}
	if v := os.Getenv("STATSYNC_RATE_BURST"); v != "" {
		if burst, err := strconv.Atoi(v); err == nil {
			cfg.RateLimit.Burst = burst
		}
	}
}
