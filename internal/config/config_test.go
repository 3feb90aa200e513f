package config

import (
	"strings"
	"testing"
)

func setRequired(t *testing.T) {
	t.Setenv("TB_API_PG_DSN", "host=localhost user=api dbname=api")
	t.Setenv("TB_API_REDIS_HOST", "localhost")
}

func TestLoadFromEnvDefaults(t *testing.T) {
	setRequired(t)

	cfg := &Config{}
	if err := cfg.loadFromEnv(); err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ServerPort != "3009" {
		t.Fatalf("expected default port 3009 got %q", cfg.ServerPort)
	}
	if cfg.PostgresSchema != "api" {
		t.Fatalf("expected default schema api got %q", cfg.PostgresSchema)
	}
	if cfg.SessionTTLMillis != "3600000" {
		t.Fatalf("expected default ttl 3600000 got %q", cfg.SessionTTLMillis)
	}
	if cfg.StorageDir != "uploads" {
		t.Fatalf("expected default storage dir uploads got %q", cfg.StorageDir)
	}
}

func TestLoadFromEnvOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("TB_API_SERVER_PORT", "8080")
	t.Setenv("TB_API_SESSION_TTL_MS", "60000")

	cfg := &Config{}
	if err := cfg.loadFromEnv(); err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ServerPort != "8080" {
		t.Fatalf("expected port 8080 got %q", cfg.ServerPort)
	}
	if cfg.SessionTTLMillis != "60000" {
		t.Fatalf("expected ttl 60000 got %q", cfg.SessionTTLMillis)
	}
}

func TestLoadFromEnvRequired(t *testing.T) {
	t.Setenv("TB_API_PG_DSN", "")
	t.Setenv("TB_API_REDIS_HOST", "localhost")

	cfg := &Config{}
	if err := cfg.loadFromEnv(); err == nil {
		t.Fatal("expected error when required variable is unset")
	}
}

func TestStringMasksSensitiveFields(t *testing.T) {
	setRequired(t)
	t.Setenv("TB_API_REDIS_PASSWORD", "supersecret")

	cfg := &Config{}
	if err := cfg.loadFromEnv(); err != nil {
		t.Fatalf("load: %v", err)
	}

	out := cfg.String()
	if strings.Contains(out, "supersecret") {
		t.Fatal("password printed in the clear")
	}
	if strings.Contains(out, "host=localhost user=api dbname=api") {
		t.Fatal("dsn printed in the clear")
	}
}
