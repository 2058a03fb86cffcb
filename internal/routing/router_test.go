package routing

import (
	"testing"

	"modelgateway/internal/provider"
)

func TestResolveModel(t *testing.T) {
	tests := []struct {
		model     string
		wantID    provider.Identity
		wantModel string
	}{
		// explicit prefixes strip
		{"openai/gpt-4o", provider.OpenAI, "gpt-4o"},
		{"anthropic/claude-sonnet-4", provider.Anthropic, "claude-sonnet-4"},
		{"xai/grok-3", provider.XAI, "grok-3"},
		{"vertex/gemini-2.0-flash", provider.Vertex, "gemini-2.0-flash"},
		{"openrouter/meta/llama-3", provider.OpenRouter, "meta/llama-3"},
		// heuristics keep the full name and casing
		{"claude-sonnet-4", provider.Anthropic, "claude-sonnet-4"},
		{"Claude-Sonnet-4", provider.Anthropic, "Claude-Sonnet-4"},
		{"gemini-2.0-flash", provider.Gemini, "gemini-2.0-flash"},
		{"kimi-k2", provider.Kimi, "kimi-k2"},
		{"deepseek-chat", provider.DeepSeek, "deepseek-chat"},
		{"grok-3-mini", provider.XAI, "grok-3-mini"},
		{"mistral-large", provider.Mistral, "mistral-large"},
		{"ministral-8b", provider.Mistral, "ministral-8b"},
		{"codestral-latest", provider.Mistral, "codestral-latest"},
		{"command-r-plus", provider.Cohere, "command-r-plus"},
		// default
		{"gpt-4o", provider.OpenAI, "gpt-4o"},
		{"o3-mini", provider.OpenAI, "o3-mini"},
		// explicit prefix is case-sensitive; miss falls to heuristics
		{"Anthropic/claude-x", provider.OpenAI, "Anthropic/claude-x"},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			id, model := ResolveModel(tt.model)
			if id != tt.wantID || model != tt.wantModel {
				t.Errorf("ResolveModel(%q) = (%s, %q), want (%s, %q)",
					tt.model, id, model, tt.wantID, tt.wantModel)
			}
		})
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		value  string
		wantID provider.Identity
		ok     bool
	}{
		{"openai", provider.OpenAI, true},
		{"OpenAI", provider.OpenAI, true},
		{"ANTHROPIC", provider.Anthropic, true},
		{"vercel", provider.Vercel, true},
		{"vercel-ai-gateway", provider.Vercel, true},
		{"azure-openai", provider.Azure, true},
		{"aws-bedrock", provider.Bedrock, true},
		{"vertex-ai", provider.Vertex, true},
		{"hugging-face", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			id, ok := Parse(tt.value)
			if ok != tt.ok || id != tt.wantID {
				t.Errorf("Parse(%q) = (%s, %v), want (%s, %v)", tt.value, id, ok, tt.wantID, tt.ok)
			}
		})
	}
}
