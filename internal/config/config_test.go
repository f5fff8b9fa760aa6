package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
port: "8080"
databaseURL: "postgres://localhost/learngate"
redisAddr: "localhost:6379"
jwtSecret: "test-secret"
sessionTTL: "24h"
logLevel: "debug"
authRateLimitPerMinute: 20
writeRateLimitPerMinute: 120
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "8080" || cfg.DatabaseURL != "postgres://localhost/learngate" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.AuthRateLimitPerMinute != 20 || cfg.WriteRateLimitPerMinute != 120 {
		t.Fatalf("rate limits: %+v", cfg)
	}
	ttl, err := ParseSessionTTL(cfg.SessionTTL)
	if err != nil {
		t.Fatalf("parse ttl: %v", err)
	}
	if ttl != 24*time.Hour {
		t.Fatalf("ttl: %v", ttl)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
port: "8080"
databaseURL: "postgres://file/db"
jwtSecret: "file-secret"
`)
	t.Setenv("DATABASE_URL", "postgres://env/db")
	t.Setenv("JWT_SECRET", "env-secret")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DatabaseURL != "postgres://env/db" {
		t.Fatalf("env should win: %q", cfg.DatabaseURL)
	}
	if cfg.JWTSecret != "env-secret" {
		t.Fatalf("env should win: %q", cfg.JWTSecret)
	}
}

func TestLoadValidation(t *testing.T) {
	cases := map[string]string{
		"missing port":   "databaseURL: \"postgres://x\"\njwtSecret: \"s\"\n",
		"missing db":     "port: \"8080\"\njwtSecret: \"s\"\n",
		"missing secret": "port: \"8080\"\ndatabaseURL: \"postgres://x\"\n",
		"negative limit": "port: \"8080\"\ndatabaseURL: \"postgres://x\"\njwtSecret: \"s\"\nauthRateLimitPerMinute: -1\n",
	}
	for name, body := range cases {
		if _, err := Load(writeConfig(t, body)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestParseSessionTTL(t *testing.T) {
	if d, err := ParseSessionTTL(""); err != nil || d != 0 {
		t.Fatalf("empty ttl: %v %v", d, err)
	}
	if _, err := ParseSessionTTL("not-a-duration"); err == nil {
		t.Fatal("expected parse error")
	}
}
