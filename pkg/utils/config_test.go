package utils

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadAuthConfigDefaultsAndOverrides(t *testing.T) {
	t.Setenv("PROPERTYHUB_JWT_SECRET", "")
	t.Setenv("PROPERTYHUB_JWT_TTL_MINUTES", "not-a-number")
	t.Setenv("PROPERTYHUB_REFRESH_TTL_HOURS", "48")

	cfg := LoadAuthConfig()
	if cfg.JWTSecret != "dev-secret-change-me" {
		t.Errorf("secret = %q", cfg.JWTSecret)
	}
	if cfg.JWTDuration != time.Hour {
		t.Errorf("jwt ttl = %v, want 1h fallback", cfg.JWTDuration)
	}
	if cfg.RefreshTTL != 48*time.Hour {
		t.Errorf("refresh ttl = %v", cfg.RefreshTTL)
	}
}

func TestLoadServerConfigOrigins(t *testing.T) {
	t.Setenv("PROPERTYHUB_ALLOWED_ORIGINS", " https://a.example , ,https://b.example")
	t.Setenv("PROPERTYHUB_HTTP_ADDR", "127.0.0.1:8000")

	cfg := LoadServerConfig()
	if cfg.HTTPAddr != "127.0.0.1:8000" {
		t.Errorf("http addr = %q", cfg.HTTPAddr)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.example" {
		t.Errorf("origins = %q", cfg.AllowedOrigins)
	}
}

func TestLoadReadsDotEnvWithoutOverridingEnvironment(t *testing.T) {
	dir := t.TempDir()
	env := "PROPERTYHUB_DB_PATH=" + filepath.Join(dir, "batch.db") + "\nPROPERTYHUB_HTTP_ADDR=:7000\nPROPERTYHUB_TCP_ADDR=127.0.0.1:7001\n"
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(env), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Chdir(dir)

	// registered with t.Setenv so they are restored, then unset for godotenv
	for _, k := range []string{"PROPERTYHUB_DB_PATH", "PROPERTYHUB_HTTP_ADDR"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	t.Setenv("PROPERTYHUB_TCP_ADDR", "127.0.0.1:9999")

	cfg := Load()
	if cfg.Server.HTTPAddr != ":7000" {
		t.Errorf("http addr = %q, want value from .env", cfg.Server.HTTPAddr)
	}
	if cfg.Server.TCPAddr != "127.0.0.1:9999" {
		t.Errorf("tcp addr = %q, environment should win over .env", cfg.Server.TCPAddr)
	}
	if got := os.Getenv("PROPERTYHUB_DB_PATH"); got != filepath.Join(dir, "batch.db") {
		t.Errorf("PROPERTYHUB_DB_PATH = %q, batch tools read it after Load", got)
	}
}
