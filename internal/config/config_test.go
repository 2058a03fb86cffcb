package config

import (
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if got := cfg.BindAddr(); got != "0.0.0.0:3000" {
		t.Errorf("BindAddr() = %q, want 0.0.0.0:3000", got)
	}
	if cfg.UpstreamMaxRetries != 2 {
		t.Errorf("UpstreamMaxRetries = %d, want 2", cfg.UpstreamMaxRetries)
	}
	if cfg.UpstreamRetryBaseDelayMS != 150 {
		t.Errorf("UpstreamRetryBaseDelayMS = %d, want 150", cfg.UpstreamRetryBaseDelayMS)
	}
	if cfg.RequestTimeoutSecs != 120 {
		t.Errorf("RequestTimeoutSecs = %d, want 120", cfg.RequestTimeoutSecs)
	}
	if got := cfg.BaseURL("openai"); got != "https://api.openai.com/v1" {
		t.Errorf("BaseURL(openai) = %q", got)
	}
	if got := cfg.BaseURL("azure"); got != "" {
		t.Errorf("BaseURL(azure) = %q, want empty", got)
	}
	if len(cfg.GatewayAPIKeys) != 0 {
		t.Errorf("GatewayAPIKeys = %v, want empty", cfg.GatewayAPIKeys)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("HOST", "127.0.0.1")
	t.Setenv("PORT", "8080")
	t.Setenv("OPENAI_BASE_URL", "http://localhost:9000/v1/")
	t.Setenv("OPENAI_API_KEY", "  sk-test  ")
	t.Setenv("GATEWAY_API_KEYS", " alpha, ,beta ,")
	t.Setenv("UPSTREAM_MAX_RETRIES", "5")

	cfg := Load()

	if got := cfg.BindAddr(); got != "127.0.0.1:8080" {
		t.Errorf("BindAddr() = %q", got)
	}
	if got := cfg.BaseURL("openai"); got != "http://localhost:9000/v1" {
		t.Errorf("trailing slash not trimmed: %q", got)
	}
	if got := cfg.APIKey("openai"); got != "sk-test" {
		t.Errorf("key not trimmed: %q", got)
	}
	want := []string{"alpha", "beta"}
	if len(cfg.GatewayAPIKeys) != len(want) {
		t.Fatalf("GatewayAPIKeys = %v, want %v", cfg.GatewayAPIKeys, want)
	}
	for i, k := range want {
		if cfg.GatewayAPIKeys[i] != k {
			t.Errorf("GatewayAPIKeys[%d] = %q, want %q", i, cfg.GatewayAPIKeys[i], k)
		}
	}
	if cfg.UpstreamMaxRetries != 5 {
		t.Errorf("UpstreamMaxRetries = %d, want 5", cfg.UpstreamMaxRetries)
	}
}

func TestGetenvInt(t *testing.T) {
	t.Setenv("GW_TEST_INT", "not-a-number")
	if got := getenvInt("GW_TEST_INT", 7); got != 7 {
		t.Errorf("invalid int should fall back: got %d", got)
	}
	t.Setenv("GW_TEST_INT", "-3")
	if got := getenvInt("GW_TEST_INT", 7); got != 7 {
		t.Errorf("negative int should fall back: got %d", got)
	}
}
