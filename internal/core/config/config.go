package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config is the top-level application configuration, shared by the API
// server and the sync command.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	API      APIConfig      `koanf:"api"`
	Platform PlatformConfig `koanf:"platform"`
	Keepa    KeepaConfig    `koanf:"keepa"`
	Sync     SyncConfig     `koanf:"sync"`
}

type ServerConfig struct {
	Port int    `koanf:"port"`
	Host string `koanf:"host"`
	Mode string `koanf:"mode"` // debug | release
}

type DatabaseConfig struct {
	DSN          string `koanf:"dsn"`
	MaxOpenConns int    `koanf:"max_open_conns"`
	MaxIdleConns int    `koanf:"max_idle_conns"`
	AutoMigrate  bool   `koanf:"auto_migrate"`
}

// APIConfig configures the read API. An empty Key disables the x-api-key
// gate entirely.
type APIConfig struct {
	Key string `koanf:"key"`
}

type PlatformConfig struct {
	Name string `koanf:"name"`
}

type KeepaConfig struct {
	APIKey  string `koanf:"api_key"`
	Domain  int    `koanf:"domain"` // 1 = amazon.com (US)
	Timeout string `koanf:"timeout"`
}

type SyncConfig struct {
	BatchSize int `koanf:"batch_size"`
	Workers   int `koanf:"workers"`
	Stats     int `koanf:"stats"`
	Buybox    int `koanf:"buybox"`
}

// FetchTimeout returns the parsed vendor request timeout.
func (c KeepaConfig) FetchTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d (must be 1-65535)", c.Server.Port)
	}
	if strings.TrimSpace(c.Server.Host) == "" {
		return fmt.Errorf("server.host is required")
	}
	if c.Server.Mode != "debug" && c.Server.Mode != "release" {
		return fmt.Errorf("invalid server.mode %q (must be debug or release)", c.Server.Mode)
	}

	if strings.TrimSpace(c.Database.DSN) == "" {
		return fmt.Errorf("database.dsn is required")
	}
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be > 0")
	}
	if c.Database.MaxIdleConns <= 0 {
		return fmt.Errorf("database.max_idle_conns must be > 0")
	}

	if strings.TrimSpace(c.Platform.Name) == "" {
		return fmt.Errorf("platform.name is required")
	}

	if c.Keepa.Timeout != "" {
		if _, err := time.ParseDuration(c.Keepa.Timeout); err != nil {
			return fmt.Errorf("invalid keepa.timeout %q: %w", c.Keepa.Timeout, err)
		}
	}
	if c.Keepa.Domain <= 0 {
		return fmt.Errorf("keepa.domain must be > 0")
	}

	if c.Sync.BatchSize <= 0 {
		return fmt.Errorf("sync.batch_size must be > 0")
	}
	if c.Sync.Workers <= 0 {
		return fmt.Errorf("sync.workers must be > 0")
	}

	return nil
}

// ValidateSync extends Validate with requirements the sync command cannot
// run without. The API server intentionally does not need a vendor key.
func (c *Config) ValidateSync() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(c.Keepa.APIKey) == "" {
		return fmt.Errorf("keepa.api_key is required (set PRICELENS_KEEPA__API_KEY)")
	}
	return nil
}

// Load parses config from an optional YAML file plus PRICELENS_* env vars
// and validates the result. Env vars override the file; "__" in an env var
// name maps to a nesting level (PRICELENS_DATABASE__DSN -> database.dsn).
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	defaults := map[string]interface{}{
		"server.port":             8080,
		"server.host":             "0.0.0.0",
		"server.mode":             "release",
		"database.dsn":            "",
		"database.max_open_conns": 25,
		"database.max_idle_conns": 25,
		"database.auto_migrate":   true,
		"api.key":                 "",
		"platform.name":           "amazon_us",
		"keepa.api_key":           "",
		"keepa.domain":            1,
		"keepa.timeout":           "30s",
		"sync.batch_size":         20,
		"sync.workers":            1,
		"sync.stats":              1,
		"sync.buybox":             1,
	}
	for key, value := range defaults {
		k.Set(key, value)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if err := k.Load(env.Provider("PRICELENS_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "PRICELENS_")), "__", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
