// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type HTTPConfig struct {
	Port        int    `yaml:"port"`
	APIKey      string `yaml:"api_key"`
	MaxUploadMB int64  `yaml:"max_upload_mb"`
	// UploadsPerMinute caps uploads per client; 0 disables the limit.
	UploadsPerMinute int `yaml:"uploads_per_minute"`
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"max_conns"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type ImportConfig struct {
	Workers   int `yaml:"workers"`
	QueueSize int `yaml:"queue_size"`
	BatchSize int `yaml:"batch_size"`
}

type SweeperConfig struct {
	Interval   time.Duration `yaml:"interval"`
	StaleAfter time.Duration `yaml:"stale_after"`
	LockTTL    time.Duration `yaml:"lock_ttl"`
	PageSize   int           `yaml:"page_size"`
}

type Config struct {
	Log      LogConfig      `yaml:"log"`
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Import   ImportConfig   `yaml:"import"`
	Sweeper  SweeperConfig  `yaml:"sweeper"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(configPath string, dev bool) (*Config, error) {
	b, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b, dev)
}

// Parse decodes YAML bytes, applies defaults and validates the result.
func Parse(b []byte, dev bool) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if env := os.Getenv("DATABASE_URL"); env != "" {
		cfg.Database.URL = env
	}
	applyDefaults(&cfg)

	// Minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Sweeper.StaleAfter < time.Minute {
		return nil, errors.New("sweeper.stale_after must be at least 1m")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 8080
	}
	if cfg.HTTP.MaxUploadMB <= 0 {
		cfg.HTTP.MaxUploadMB = 50
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	cfg.Redis.TTL = normalizeTTL(cfg.Redis.TTL)

	if cfg.Import.Workers <= 0 {
		cfg.Import.Workers = 4
	}
	if cfg.Import.QueueSize <= 0 {
		cfg.Import.QueueSize = cfg.Import.Workers * 4
	}
	if cfg.Import.BatchSize <= 0 {
		cfg.Import.BatchSize = 1000
	}

	if cfg.Sweeper.Interval <= 0 {
		cfg.Sweeper.Interval = time.Hour
	}
	if cfg.Sweeper.StaleAfter == 0 {
		cfg.Sweeper.StaleAfter = time.Hour
	}
	if cfg.Sweeper.LockTTL <= 0 {
		cfg.Sweeper.LockTTL = cfg.Sweeper.Interval / 2
	}
	if cfg.Sweeper.PageSize <= 0 {
		cfg.Sweeper.PageSize = 200
	}
}

func normalizeTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Hour
	}
	return d
}
