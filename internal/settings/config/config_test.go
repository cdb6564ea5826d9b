package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadWithDefaults(t *testing.T) {
	cfg, err := Load(WithEnvMap(map[string]string{}), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Address != ":8080" {
		t.Errorf("expected default address :8080, got %s", cfg.Server.Address)
	}
	if cfg.Server.BasePath != "/settings" {
		t.Errorf("expected default base path, got %s", cfg.Server.BasePath)
	}
	if cfg.Server.ReadTimeout != 10*time.Second {
		t.Errorf("unexpected read timeout: %s", cfg.Server.ReadTimeout)
	}
	if cfg.Settings.DefaultPage != "account" {
		t.Errorf("expected default page account, got %s", cfg.Settings.DefaultPage)
	}
	if len(cfg.Settings.Experiments) != 0 {
		t.Errorf("expected no experiments, got %v", cfg.Settings.Experiments)
	}
	if cfg.Settings.NativeHeader != "X-Native-Client" {
		t.Errorf("unexpected native header: %s", cfg.Settings.NativeHeader)
	}
	if len(cfg.Locale.Supported) != 2 {
		t.Errorf("expected default locales, got %v", cfg.Locale.Supported)
	}
	if !cfg.IsDevelopment() {
		t.Errorf("expected development environment by default")
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	env := map[string]string{
		"SETTINGS_ENVIRONMENT":          "production",
		"SETTINGS_SESSION_HASH_KEY":     "hash",
		"SETTINGS_EXPERIMENTS":          "plugins, voice ,",
		"SETTINGS_SESSION_SECURE":       "yes",
		"SETTINGS_HTTP_REQUEST_TIMEOUT": "5s",
		"SETTINGS_BASE_PATH":            "/app/settings",
	}
	cfg, err := Load(WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if got := cfg.Settings.Experiments; len(got) != 2 || got[0] != "plugins" || got[1] != "voice" {
		t.Errorf("unexpected experiments: %v", got)
	}
	if !cfg.Session.Secure {
		t.Errorf("expected secure cookies")
	}
	if cfg.Server.RequestTimeout != 5*time.Second {
		t.Errorf("unexpected request timeout: %s", cfg.Server.RequestTimeout)
	}
	if cfg.IsDevelopment() {
		t.Errorf("production must not be development")
	}
	if cfg.Server.BasePath != "/app/settings" {
		t.Errorf("unexpected base path: %s", cfg.Server.BasePath)
	}
}

func TestLoadValidationError(t *testing.T) {
	env := map[string]string{
		"SETTINGS_ENVIRONMENT":       "production",
		"SETTINGS_SESSION_BLOCK_KEY": "short",
	}
	_, err := Load(WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	fields := verr.Fields()
	if len(fields) != 2 || fields[0] != "Session.HashKey" || fields[1] != "Session.BlockKey" {
		t.Fatalf("unexpected fields: %v", fields)
	}
}

func TestLoadReadsDotEnvWithPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "SETTINGS_HTTP_ADDR=:9000\nSETTINGS_DEFAULT_PAGE=appearance\n# comment\nexport SETTINGS_LOCALES=en\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env: %v", err)
	}

	cfg, err := Load(
		WithEnvFile(path),
		WithoutSystemEnv(),
		WithEnvMap(map[string]string{"SETTINGS_DEFAULT_PAGE": "audio"}),
	)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.Address != ":9000" {
		t.Errorf("expected address from .env, got %s", cfg.Server.Address)
	}
	if cfg.Settings.DefaultPage != "audio" {
		t.Errorf("explicit map must win over .env, got %s", cfg.Settings.DefaultPage)
	}
	if len(cfg.Locale.Supported) != 1 || cfg.Locale.Supported[0] != "en" {
		t.Errorf("unexpected locales: %v", cfg.Locale.Supported)
	}
}

func TestLoadMissingDotEnvIsIgnored(t *testing.T) {
	_, err := Load(WithEnvFile(filepath.Join(t.TempDir(), "missing.env")), WithoutSystemEnv())
	if err != nil {
		t.Fatalf("missing .env must be ignored: %v", err)
	}
}
