// Package config loads process configuration for the rest-pager CLI from
// an optional YAML file with environment variable overrides.
package config

import (
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	UserAgent string        `koanf:"user_agent"`
	Redis     RedisConfig   `koanf:"redis"`
	Log       LogConfig     `koanf:"log"`
	Metrics   MetricsConfig `koanf:"metrics"`
}

type RedisConfig struct {
	// Addr enables the Redis response cache when non-empty.
	Addr string `koanf:"addr"`
	DB   int    `koanf:"db"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Pretty bool   `koanf:"pretty"`
}

type MetricsConfig struct {
	// Addr exposes Prometheus metrics on this listen address when non-empty.
	Addr string `koanf:"addr"`
}

// Load reads configuration from path (missing file is fine) and overlays
// PAGER_-prefixed environment variables, e.g. PAGER_REDIS__ADDR.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		// File not found is OK, we'll use env vars
		if !os.IsNotExist(err) {
			return nil, err
		}
	}

	// Environment variables override file config
	if err := k.Load(env.Provider("PAGER_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "PAGER_")), "__", ".", -1)
	}), nil); err != nil {
		return nil, err
	}

	// Default values
	if !k.Exists("user_agent") {
		k.Set("user_agent", "rest-pager/0.1.0 (github.com/Sternrassler/rest-pager)")
	}
	if !k.Exists("log.level") {
		k.Set("log.level", "info")
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
