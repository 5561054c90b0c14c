package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	Server struct {
		Port         string `yaml:"port"`
		ReadTimeout  string `yaml:"read_timeout"`
		WriteTimeout string `yaml:"write_timeout"`
	} `yaml:"server"`
	Store struct {
		Driver     string `yaml:"driver"`
		URL        string `yaml:"url"`
		Database   string `yaml:"database"`
		Collection string `yaml:"collection"`
	} `yaml:"store"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Sample struct {
		MaxLen int `yaml:"max_len"`
		Cache  struct {
			Enabled  bool    `yaml:"enabled"`
			HitRatio float64 `yaml:"hit_ratio"`
		} `yaml:"cache"`
	} `yaml:"sample"`
	RateLimit struct {
		PerSecond float64 `yaml:"per_second"`
		Burst     int     `yaml:"burst"`
	} `yaml:"rate_limit"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	cfg := Config{}
	cfg.Server.Port = "8080"
	cfg.Store.Driver = DriverMongo
	cfg.Store.Database = "quitz"
	cfg.Store.Collection = "questions"
	cfg.Sample.MaxLen = 20
	cfg.Sample.Cache.Enabled = true
	cfg.Sample.Cache.HitRatio = 1.5 / 2.0
	cfg.RateLimit.PerSecond = 60
	cfg.RateLimit.Burst = 20
	return cfg
}

// Load reads YAML config from path on top of the defaults, then applies
// environment overrides, honouring a .env file in the working directory.
// A missing file is not an error.
func Load(path string) (Config, error) {
	return LoadWithEnvFile(path, ".env")
}

// LoadWithEnvFile is Load with an explicit dotenv file.
func LoadWithEnvFile(path, envFile string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return cfg, err
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse %s: %w", path, err)
			}
		}
	}

	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("load .env: %w", err)
	}
	applyEnv(&cfg)
	return cfg, cfg.Validate()
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("DBURL"); v != "" {
		cfg.Store.URL = v
	}
	if v := os.Getenv("STORE_DRIVER"); v != "" {
		cfg.Store.Driver = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}
}

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	c.Store.Driver = strings.ToLower(strings.TrimSpace(c.Store.Driver))
	switch c.Store.Driver {
	case DriverMongo, DriverPostgres:
		if c.Store.URL == "" {
			return fmt.Errorf("store url not configured: set DBURL")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unsupported store driver %q", c.Store.Driver)
	}
	if c.Sample.MaxLen < 0 {
		return fmt.Errorf("sample max_len must not be negative")
	}
	if r := c.Sample.Cache.HitRatio; r < 0 || r > 1 {
		return fmt.Errorf("sample cache hit_ratio must be within [0, 1], got %v", r)
	}
	if c.RateLimit.PerSecond < 0 || c.RateLimit.Burst < 0 {
		return fmt.Errorf("rate limit values must not be negative")
	}
	return nil
}

// RateLimited reports whether the limiter middleware should be installed.
func (c Config) RateLimited() bool {
	return c.RateLimit.PerSecond > 0 || c.RateLimit.Burst > 0
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
