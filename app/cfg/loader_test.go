package cfg

import (
	"testing"
	"time"
)

func TestGetVersion(t *testing.T) {
	// Test default version
	if GetVersion() == "" {
		t.Error("GetVersion should never return empty string")
	}

	// Test that version is at least "dev" or "unknown"
	version := GetVersion()
	if version != "dev" && version != "unknown" {
		// This is fine, version could be set at build time
		t.Logf("Version: %s", version)
	}
}

func TestLoadFromArgs(t *testing.T) {
	cfg, err := load([]string{
		"--sources-dir", "/etc/mail-comb/sources",
		"--db-path", "/var/lib/mail-comb/runs.db",
		"--port", "9090",
		"--worker-count", "3",
		"--api-key", "test-key",
		"--request-timeout", "5",
		"--user-agent", "Test Agent",
		"--timezone", "UTC",
		"--debug",
	})
	if err != nil {
		t.Fatal(err)
	}

	if cfg.SourcesDir != "/etc/mail-comb/sources" {
		t.Errorf("Expected sources dir '/etc/mail-comb/sources', got '%s'", cfg.SourcesDir)
	}
	if cfg.DBPath != "/var/lib/mail-comb/runs.db" {
		t.Errorf("Expected DB path '/var/lib/mail-comb/runs.db', got '%s'", cfg.DBPath)
	}
	if cfg.Port != "9090" {
		t.Errorf("Expected port '9090', got '%s'", cfg.Port)
	}
	if cfg.WorkerCount != 3 {
		t.Errorf("Expected worker count 3, got %d", cfg.WorkerCount)
	}
	if cfg.APIAccessKey != "test-key" {
		t.Errorf("Expected API key 'test-key', got '%s'", cfg.APIAccessKey)
	}
	if cfg.RequestTimeoutDuration() != 5*time.Second {
		t.Errorf("Expected request timeout 5s, got %v", cfg.RequestTimeoutDuration())
	}
	if cfg.UserAgent != "Test Agent" {
		t.Errorf("Expected user agent 'Test Agent', got '%s'", cfg.UserAgent)
	}
	if !cfg.Debug {
		t.Error("Expected debug to be enabled")
	}
	if cfg.Version == "" {
		t.Error("Expected version to be set")
	}

	if Get() != cfg {
		t.Error("Expected Get to return the loaded configuration")
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SOURCES_DIR", "/srv/sources")
	t.Setenv("WORKER_COUNT", "4")

	cfg, err := load([]string{})
	if err != nil {
		t.Fatal(err)
	}

	if cfg.SourcesDir != "/srv/sources" {
		t.Errorf("Expected sources dir '/srv/sources', got '%s'", cfg.SourcesDir)
	}
	if cfg.WorkerCount != 4 {
		t.Errorf("Expected worker count 4, got %d", cfg.WorkerCount)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	if _, err := load([]string{"--worker-count", "0"}); err == nil {
		t.Error("Expected error for zero worker count")
	}
	if _, err := load([]string{"--worker-count", "1", "--request-timeout", "-1"}); err == nil {
		t.Error("Expected error for negative request timeout")
	}
	if _, err := load([]string{"--no-such-flag"}); err == nil {
		t.Error("Expected error for unknown flag")
	}
}

func TestLoadTelegramSession(t *testing.T) {
	cfg, err := load([]string{})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.HasTelegramSession() {
		t.Error("Expected no Telegram session by default")
	}

	t.Setenv("TELEGRAM_API_ID", "12345")
	t.Setenv("TELEGRAM_API_HASH", "abcdef")
	t.Setenv("TELEGRAM_SESSION", "1BVtsOK")

	cfg, err = load([]string{})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.TelegramAPIID != 12345 || cfg.TelegramAPIHash != "abcdef" || cfg.TelegramSession != "1BVtsOK" {
		t.Errorf("Unexpected Telegram settings: %d / %s / %s", cfg.TelegramAPIID, cfg.TelegramAPIHash, cfg.TelegramSession)
	}
	if !cfg.HasTelegramSession() {
		t.Error("Expected Telegram session to be configured")
	}
}
