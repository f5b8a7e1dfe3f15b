package config

import "testing"

func TestLoadMissingRequired(t *testing.T) {
	t.Setenv("POLAR_ACCESS_TOKEN", "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error when POLAR_ACCESS_TOKEN is unset")
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("POLAR_ACCESS_TOKEN", "polar_oat_test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("port = %q, want %q", cfg.Port, "8080")
	}
	if cfg.BaseURL != "http://localhost:8080" {
		t.Errorf("base url = %q, want %q", cfg.BaseURL, "http://localhost:8080")
	}
	if cfg.PolarEnvironment != "sandbox" {
		t.Errorf("environment = %q, want %q", cfg.PolarEnvironment, "sandbox")
	}
	if cfg.RateLimitPerMinute != 20 {
		t.Errorf("rate limit = %d, want 20", cfg.RateLimitPerMinute)
	}
}

func TestLoadRejectsUnknownEnvironment(t *testing.T) {
	t.Setenv("POLAR_ACCESS_TOKEN", "polar_oat_test")
	t.Setenv("POLAR_ENVIRONMENT", "staging")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for unknown POLAR_ENVIRONMENT")
	}
}
