package cfg

import (
	"testing"
	"time"
)

func TestGetVersion(t *testing.T) {
	if GetVersion() == "" {
		t.Error("GetVersion should never return empty string")
	}
}

func TestLoadArgsDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DATABASE_KEY", "")
	t.Setenv("CONGRESS_API_KEY", "")
	t.Setenv("REDIS_ADDR", "")
	t.Chdir(t.TempDir())

	cfg, err := LoadArgs([]string{})
	if err != nil {
		t.Fatal(err)
	}

	if cfg.DataDir != "./data" {
		t.Errorf("Expected data dir './data', got '%s'", cfg.DataDir)
	}
	if cfg.Port != "8080" {
		t.Errorf("Expected port '8080', got '%s'", cfg.Port)
	}
	if cfg.HasHostedDatabase() {
		t.Error("Expected no hosted database without credentials")
	}
	if cfg.CongressAPIKey != "" {
		t.Errorf("Expected empty Congress API key, got '%s'", cfg.CongressAPIKey)
	}
	if cfg.GetHTTPTimeout() != 30*time.Second {
		t.Errorf("Expected HTTP timeout 30s, got %v", cfg.GetHTTPTimeout())
	}
	if cfg.GetSchedulerInterval() != 6*time.Hour {
		t.Errorf("Expected scheduler interval 6h, got %v", cfg.GetSchedulerInterval())
	}
	if cfg.RedisAddr != "" {
		t.Errorf("Expected no Redis address, got '%s'", cfg.RedisAddr)
	}
	if cfg.GetFeedCacheTTL() != 5*time.Minute {
		t.Errorf("Expected feed cache TTL 5m, got %v", cfg.GetFeedCacheTTL())
	}
	if Get() != cfg {
		t.Error("Expected Get to return the loaded configuration")
	}
}

func TestLoadArgsFromEnvironment(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://updates@db.example.com:5432/updates")
	t.Setenv("DATABASE_KEY", "secret")
	t.Setenv("CONGRESS_API_KEY", "congress-key")
	t.Chdir(t.TempDir())

	cfg, err := LoadArgs([]string{"--once", "--http-timeout", "5"})
	if err != nil {
		t.Fatal(err)
	}

	if !cfg.HasHostedDatabase() {
		t.Error("Expected hosted database when URL and key are set")
	}
	if cfg.CongressAPIKey != "congress-key" {
		t.Errorf("Expected Congress API key 'congress-key', got '%s'", cfg.CongressAPIKey)
	}
	if !cfg.Once {
		t.Error("Expected --once to be set")
	}
	if cfg.GetHTTPTimeout() != 5*time.Second {
		t.Errorf("Expected HTTP timeout 5s, got %v", cfg.GetHTTPTimeout())
	}
}

func TestHasHostedDatabaseRequiresBoth(t *testing.T) {
	cfg := &Cfg{DatabaseURL: "postgres://localhost/updates"}
	if cfg.HasHostedDatabase() {
		t.Error("Expected URL alone not to enable the hosted database")
	}

	cfg = &Cfg{DatabaseKey: "secret"}
	if cfg.HasHostedDatabase() {
		t.Error("Expected key alone not to enable the hosted database")
	}
}
