// File: internal/config/config.go
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int    `yaml:"max_conns"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type AIConfig struct {
	Provider        string `yaml:"provider"` // openai | gemini | noop
	OpenAIKey       string `yaml:"openai_key"`
	GeminiKey       string `yaml:"gemini_key"`
	DefaultModel    string `yaml:"default_model"`
	MaxOutputTokens int    `yaml:"max_output_tokens"`
	ConcurrentLimit int    `yaml:"concurrent_limit"` // max concurrent AI calls
}

type QueueConfig struct {
	MaxConcurrent int           `yaml:"max_concurrent"` // admission slot ceiling
	RateLimit     int           `yaml:"rate_limit"`     // dispatches per window
	RateWindow    time.Duration `yaml:"rate_window"`
	TickInterval  time.Duration `yaml:"tick_interval"`
	Workers       int           `yaml:"workers"`
	MaxRetries    int           `yaml:"max_retries"`
}

type SessionConfig struct {
	TTL          time.Duration `yaml:"ttl"`
	CookieSecret string        `yaml:"cookie_secret"`
	CookieDomain string        `yaml:"cookie_domain"`
	SecureCookie bool          `yaml:"secure_cookie"`
}

type CronConfig struct {
	Secret          string        `yaml:"secret"`
	ArchiveInterval time.Duration `yaml:"archive_interval"`
}

type SecurityConfig struct {
	EncryptionKey string `yaml:"encryption_key"`
}

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	AI       AIConfig       `yaml:"ai"`
	Queue    QueueConfig    `yaml:"queue"`
	Session  SessionConfig  `yaml:"session"`
	Cron     CronConfig     `yaml:"cron"`
	Security SecurityConfig `yaml:"security"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig() (*Config, error) {
	var configPath string
	var dev bool
	flag.StringVar(&configPath, "config", "config.yaml", "path to config yaml")
	flag.BoolVar(&dev, "dev", false, "development mode")
	flag.Parse()

	b, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.Runtime.Dev = dev
	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	cfg.Redis.TTL = normalizeTTL(cfg.Redis.TTL)

	if cfg.AI.Provider == "" {
		cfg.AI.Provider = "openai"
	}
	if cfg.AI.ConcurrentLimit <= 0 {
		cfg.AI.ConcurrentLimit = 16
	}
	if cfg.Queue.MaxConcurrent <= 0 {
		cfg.Queue.MaxConcurrent = 4
	}
	if cfg.Queue.RateLimit <= 0 {
		cfg.Queue.RateLimit = 60
	}
	if cfg.Queue.RateWindow <= 0 {
		cfg.Queue.RateWindow = time.Minute
	}
	if cfg.Queue.TickInterval <= 0 {
		cfg.Queue.TickInterval = 500 * time.Millisecond
	}
	if cfg.Queue.Workers <= 0 {
		cfg.Queue.Workers = cfg.Queue.MaxConcurrent
	}
	if cfg.Queue.MaxRetries < 0 {
		cfg.Queue.MaxRetries = 0
	}
	if cfg.Session.TTL <= 0 {
		cfg.Session.TTL = 30 * 24 * time.Hour
	}
	if cfg.Cron.ArchiveInterval <= 0 {
		cfg.Cron.ArchiveInterval = time.Hour
	}
}

func (cfg *Config) validate() error {
	if cfg.Database.URL == "" {
		return errors.New("database.url is required")
	}
	if cfg.Session.CookieSecret == "" && !cfg.Runtime.Dev {
		return errors.New("session.cookie_secret is required outside dev mode")
	}
	if cfg.Cron.Secret == "" && !cfg.Runtime.Dev {
		return errors.New("cron.secret is required outside dev mode")
	}
	switch cfg.AI.Provider {
	case "openai", "gemini", "multi", "noop":
	default:
		return fmt.Errorf("unknown ai.provider %q", cfg.AI.Provider)
	}
	return nil
}

// normalizeTTL keeps the cache TTL in a sane band.
func normalizeTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return 15 * time.Minute
	}
	if ttl > 24*time.Hour {
		return 24 * time.Hour
	}
	return ttl
}
