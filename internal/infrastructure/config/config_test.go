package config

import (
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Fatalf("port = %d", cfg.Server.Port)
	}
	if cfg.Store.URI != "mongodb://localhost:27017" {
		t.Fatalf("store uri = %q", cfg.Store.URI)
	}
	if cfg.LLM.Model != "gemini-2.0-flash" {
		t.Fatalf("model = %q", cfg.LLM.Model)
	}
	if !cfg.Scheduler.Enabled {
		t.Fatal("scheduler disabled by default")
	}
	if len(cfg.Scheduler.HomeHashtags) == 0 {
		t.Fatal("no default home hashtags")
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("BRANDLENS_SERVER_PORT", "9999")
	t.Setenv("BRANDLENS_LLM_API_KEY", "test-key")
	t.Setenv("BRANDLENS_LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9999 {
		t.Fatalf("port = %d, want env override", cfg.Server.Port)
	}
	if cfg.LLM.APIKey != "test-key" {
		t.Fatalf("api key = %q", cfg.LLM.APIKey)
	}
	if cfg.Log.Level != "debug" {
		t.Fatalf("log level = %q", cfg.Log.Level)
	}
}
