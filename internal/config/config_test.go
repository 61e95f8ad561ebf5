package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	t.Run("defaults without file", func(t *testing.T) {
		cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.Server.Port != 8080 {
			t.Errorf("port = %d, want 8080", cfg.Server.Port)
		}
		if cfg.Storage.Type != "config" {
			t.Errorf("storage type = %q, want config", cfg.Storage.Type)
		}
		if cfg.Aggregate.Retry != "none" {
			t.Errorf("retry = %q, want none", cfg.Aggregate.Retry)
		}
	})

	t.Run("file values", func(t *testing.T) {
		path := writeConfig(t, `
server:
  port: 9090
default_tenant: BR
tenants:
  - id: BR
    name: Brasil
    base_url: http://br.erp.local
    username: svc
    password: pw
    timeout: 20s
    active: true
`)
		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.Server.Port != 9090 {
			t.Errorf("port = %d, want 9090", cfg.Server.Port)
		}
		if cfg.DefaultTenant != "BR" {
			t.Errorf("default tenant = %q, want BR", cfg.DefaultTenant)
		}
		if len(cfg.Tenants) != 1 {
			t.Fatalf("tenants = %d, want 1", len(cfg.Tenants))
		}
		if got := cfg.Tenants[0].RequestTimeout(); got != 20*time.Second {
			t.Errorf("timeout = %v, want 20s", got)
		}
	})

	t.Run("env var overrides file", func(t *testing.T) {
		t.Setenv("APRV_SERVER__PORT", "7000")
		path := writeConfig(t, "server:\n  port: 9090\n")

		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.Server.Port != 7000 {
			t.Errorf("port = %d, want env override 7000", cfg.Server.Port)
		}
	})

	t.Run("credential substitution", func(t *testing.T) {
		t.Setenv("BR_ERP_PASSWORD", "s3cret")
		path := writeConfig(t, `
tenants:
  - id: BR
    base_url: http://br.erp.local
    username: svc
    password: ${BR_ERP_PASSWORD}
    active: true
`)
		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.Tenants[0].Password != "s3cret" {
			t.Errorf("password = %q, want substituted value", cfg.Tenants[0].Password)
		}
	})
}

func TestTenantConfig_RequestTimeout(t *testing.T) {
	tests := []struct {
		timeout string
		want    time.Duration
	}{
		{"10s", 10 * time.Second},
		{"", defaultTenantTimeout},
		{"garbage", defaultTenantTimeout},
		{"-5s", defaultTenantTimeout},
	}
	for _, tt := range tests {
		cfg := TenantConfig{Timeout: tt.timeout}
		if got := cfg.RequestTimeout(); got != tt.want {
			t.Errorf("RequestTimeout(%q) = %v, want %v", tt.timeout, got, tt.want)
		}
	}
}

func TestSubstituteEnvVars(t *testing.T) {
	t.Setenv("TEST_VAR", "test-value")

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"simple substitution", "${TEST_VAR}", "test-value"},
		{"embedded substitution", "user:${TEST_VAR}@host", "user:test-value@host"},
		{"no variables", "plain", "plain"},
		{"unset variable", "${NOPE_NOT_SET}", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := substituteEnvVars(tt.input); got != tt.want {
				t.Errorf("substituteEnvVars(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
