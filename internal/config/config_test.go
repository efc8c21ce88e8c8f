package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		EnvPort, EnvLogLevel, EnvDataDir, EnvMediaDir, EnvConfigFile,
		EnvHeadless, EnvOracleDriver, EnvOracleAPIKey, EnvOracleBaseURL,
		EnvOracleModel,
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestNew_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvDataDir, t.TempDir())

	cfg, err := New()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port() != DefaultPort {
		t.Errorf("Port = %d, want %d", cfg.Port(), DefaultPort)
	}
	if cfg.LogLevel() != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel())
	}
	if cfg.OracleDriver() != DefaultOracleDriver {
		t.Errorf("OracleDriver = %q, want %q", cfg.OracleDriver(), DefaultOracleDriver)
	}
	if cfg.ExportTimeout() != DefaultExportTimeout {
		t.Errorf("ExportTimeout = %v, want %v", cfg.ExportTimeout(), DefaultExportTimeout)
	}
	if filepath.Base(cfg.DBPath()) != DBFilename {
		t.Errorf("DBPath = %q, want basename %q", cfg.DBPath(), DBFilename)
	}
	if cfg.Headless() {
		t.Error("Headless = true, want false by default")
	}
}

func TestNew_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvDataDir, t.TempDir())
	t.Setenv(EnvPort, "9000")
	t.Setenv(EnvLogLevel, "debug")
	t.Setenv(EnvMediaDir, "/media/inbox")
	t.Setenv(EnvHeadless, "true")
	t.Setenv(EnvOracleDriver, "openai")
	t.Setenv(EnvOracleAPIKey, "sk-test")
	t.Setenv(EnvOracleModel, "gpt-4o")

	cfg, err := New()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port() != 9000 {
		t.Errorf("Port = %d, want 9000", cfg.Port())
	}
	if cfg.LogLevel() != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel())
	}
	if cfg.MediaDir() != "/media/inbox" {
		t.Errorf("MediaDir = %q", cfg.MediaDir())
	}
	if !cfg.Headless() {
		t.Error("Headless = false, want true")
	}
	if cfg.OracleDriver() != "openai" || cfg.OracleAPIKey() != "sk-test" || cfg.OracleModel() != "gpt-4o" {
		t.Errorf("oracle config = {%s %s %s}", cfg.OracleDriver(), cfg.OracleAPIKey(), cfg.OracleModel())
	}
}

func TestNew_InvalidPort(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvDataDir, t.TempDir())

	for _, bad := range []string{"abc", "0", "70000"} {
		t.Setenv(EnvPort, bad)
		if _, err := New(); err == nil {
			t.Errorf("New() with port %q: expected error", bad)
		}
	}
}

func TestNew_ConfigFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
port = 8111
log_level = "warn"
media_dir = "/srv/videos"

[oracle]
driver = "openai"
model = "gpt-4o"

[export]
timeout_minutes = 5
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(EnvDataDir, dir)

	cfg, err := New()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port() != 8111 {
		t.Errorf("Port = %d, want 8111", cfg.Port())
	}
	if cfg.LogLevel() != "warn" {
		t.Errorf("LogLevel = %q, want warn", cfg.LogLevel())
	}
	if cfg.MediaDir() != "/srv/videos" {
		t.Errorf("MediaDir = %q", cfg.MediaDir())
	}
	if cfg.OracleModel() != "gpt-4o" {
		t.Errorf("OracleModel = %q", cfg.OracleModel())
	}
	if cfg.ExportTimeout() != 5*time.Minute {
		t.Errorf("ExportTimeout = %v, want 5m", cfg.ExportTimeout())
	}
}

func TestNew_EnvBeatsFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte("port = 8111\n"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(EnvDataDir, dir)
	t.Setenv(EnvPort, "9222")

	cfg, err := New()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port() != 9222 {
		t.Errorf("Port = %d, want env override 9222", cfg.Port())
	}
}

func TestNew_MalformedFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte("port = [not toml"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(EnvDataDir, dir)

	if _, err := New(); err == nil {
		t.Error("New() with malformed config file: expected error")
	}
}

func TestNew_ExplicitConfigPath(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.toml")
	if err := os.WriteFile(path, []byte(`log_level = "error"`), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(EnvDataDir, t.TempDir())
	t.Setenv(EnvConfigFile, path)

	cfg, err := New()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.LogLevel() != "error" {
		t.Errorf("LogLevel = %q, want error", cfg.LogLevel())
	}
}
