// Package config loads gateway configuration from the environment.
// Everything is read once at startup; there is no reload path.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"modelgateway/internal/logger"
)

// ProviderSettings is the per-provider connection configuration.
type ProviderSettings struct {
	BaseURL string
	APIKey  string
}

// Config is the full gateway configuration snapshot.
type Config struct {
	Host string
	Port int

	// Providers is keyed by provider id ("openai", "anthropic", ...).
	Providers map[string]ProviderSettings

	// GatewayAPIKeys is the inbound bearer allow-list. Empty means any
	// bearer is accepted.
	GatewayAPIKeys []string

	UpstreamMaxRetries       int
	UpstreamRetryBaseDelayMS int
	RequestTimeoutSecs       int
}

// providerDefault pairs an env prefix with the provider's default base URL.
// Providers with no default must be configured before use.
type providerDefault struct {
	prefix  string
	baseURL string
}

var providerDefaults = map[string]providerDefault{
	"openai":     {"OPENAI", "https://api.openai.com/v1"},
	"anthropic":  {"ANTHROPIC", "https://api.anthropic.com"},
	"gemini":     {"GEMINI", "https://generativelanguage.googleapis.com/v1beta/openai"},
	"kimi":       {"KIMI", "https://api.kimi.com/coding/v1"},
	"openrouter": {"OPENROUTER", "https://openrouter.ai/api/v1"},
	"vercel":     {"VERCEL_AI_GATEWAY", "https://ai-gateway.vercel.sh/v1"},
	"groq":       {"GROQ", "https://api.groq.com/openai/v1"},
	"deepseek":   {"DEEPSEEK", "https://api.deepseek.com"},
	"xai":        {"XAI", "https://api.x.ai/v1"},
	"mistral":    {"MISTRAL", "https://api.mistral.ai/v1"},
	"cohere":     {"COHERE", "https://api.cohere.ai/compatibility/v1"},
	"azure":      {"AZURE_OPENAI", ""},
	"bedrock":    {"AWS_BEDROCK", ""},
	"vertex":     {"VERTEX_AI", ""},
}

// Load reads the configuration from the environment.
func Load() Config {
	log := logger.WithComponent("config")

	providers := make(map[string]ProviderSettings, len(providerDefaults))
	configured := 0
	for id, def := range providerDefaults {
		settings := ProviderSettings{
			BaseURL: strings.TrimRight(getenv(def.prefix+"_BASE_URL", def.baseURL), "/"),
			APIKey:  strings.TrimSpace(os.Getenv(def.prefix + "_API_KEY")),
		}
		if settings.APIKey != "" {
			configured++
		}
		providers[id] = settings
	}

	cfg := Config{
		Host:                     getenv("HOST", "0.0.0.0"),
		Port:                     getenvInt("PORT", 3000),
		Providers:                providers,
		GatewayAPIKeys:           splitList(os.Getenv("GATEWAY_API_KEYS")),
		UpstreamMaxRetries:       getenvInt("UPSTREAM_MAX_RETRIES", 2),
		UpstreamRetryBaseDelayMS: getenvInt("UPSTREAM_RETRY_BASE_DELAY_MS", 150),
		RequestTimeoutSecs:       getenvInt("REQUEST_TIMEOUT_SECS", 120),
	}

	log.Info("configuration loaded",
		"addr", cfg.BindAddr(),
		"provider_keys", configured,
		"gateway_keys", len(cfg.GatewayAPIKeys),
		"max_retries", cfg.UpstreamMaxRetries,
	)
	return cfg
}

// BindAddr returns the host:port the server listens on.
func (c Config) BindAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// BaseURL returns the configured base URL for a provider id, which may be
// empty for providers that ship without a default.
func (c Config) BaseURL(id string) string {
	return c.Providers[id].BaseURL
}

// APIKey returns the configured API key for a provider id, empty if unset.
func (c Config) APIKey(id string) string {
	return c.Providers[id].APIKey
}

// splitList parses a comma-separated list, trimming elements and dropping
// empties.
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if v := strings.TrimSpace(part); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func getenv(k, fallback string) string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return fallback
	}
	return v
}

func getenvInt(k string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(k))
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}
