package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const defaultTenantTimeout = 15 * time.Second

type Config struct {
	Server        ServerConfig    `koanf:"server"`
	Storage       StorageConfig   `koanf:"storage"`
	Aggregate     AggregateConfig `koanf:"aggregate"`
	DefaultTenant string          `koanf:"default_tenant"`
	Tenants       []TenantConfig  `koanf:"tenants"`
}

type ServerConfig struct {
	Port int `koanf:"port"`
	// RequestTimeout bounds a whole inbound request, fan-out included.
	RequestTimeout string `koanf:"request_timeout"`
}

type StorageConfig struct {
	Type   string       `koanf:"type"` // config, sqlite
	SQLite SQLiteConfig `koanf:"sqlite"`
}

type SQLiteConfig struct {
	Path string `koanf:"path"`
}

type AggregateConfig struct {
	// Retry selects the per-tenant retry policy: "none" or "network-once".
	Retry string `koanf:"retry"`
}

// TenantConfig identifies one reachable ERP backend. Credential fields
// support ${VAR} substitution from the environment.
type TenantConfig struct {
	ID         string `koanf:"id"`
	Name       string `koanf:"name"`
	BaseURL    string `koanf:"base_url"`
	QueryPath  string `koanf:"query_path"`
	ActionPath string `koanf:"action_path"`
	Username   string `koanf:"username"`
	Password   string `koanf:"password"`
	Timeout    string `koanf:"timeout"`
	Active     bool   `koanf:"active"`
}

// RequestTimeout parses the tenant's timeout, falling back to the default
// when unset or malformed.
func (t TenantConfig) RequestTimeout() time.Duration {
	if t.Timeout == "" {
		return defaultTenantTimeout
	}
	d, err := time.ParseDuration(t.Timeout)
	if err != nil || d <= 0 {
		return defaultTenantTimeout
	}
	return d
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Load reads configuration from the given YAML file (missing file is not an
// error) with APRV_-prefixed environment variables overriding it.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path == "" {
		path = "config.yaml"
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	// Environment variables override file config: APRV_SERVER__PORT=9000
	// maps to server.port.
	if err := k.Load(env.Provider("APRV_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "APRV_")), "__", ".", -1)
	}), nil); err != nil {
		return nil, err
	}

	// Default values
	if !k.Exists("server.port") {
		k.Set("server.port", 8080)
	}
	if !k.Exists("server.request_timeout") {
		k.Set("server.request_timeout", "30s")
	}
	if !k.Exists("storage.type") {
		k.Set("storage.type", "config")
	}
	if !k.Exists("aggregate.retry") {
		k.Set("aggregate.retry", "none")
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	// Substitute environment variables in tenant connection fields
	for i := range cfg.Tenants {
		cfg.Tenants[i].BaseURL = substituteEnvVars(cfg.Tenants[i].BaseURL)
		cfg.Tenants[i].Username = substituteEnvVars(cfg.Tenants[i].Username)
		cfg.Tenants[i].Password = substituteEnvVars(cfg.Tenants[i].Password)
	}

	return &cfg, nil
}

func substituteEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}
