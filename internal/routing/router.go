// Package routing maps model names to provider identities. An explicit
// "provider/" prefix always wins; otherwise well-known model-family
// prefixes decide, and everything else goes to OpenAI.
package routing

import (
	"strings"

	"modelgateway/internal/provider"
)

// heuristicPrefixes maps lowercase model-name prefixes to providers,
// checked in order after explicit prefixes.
var heuristicPrefixes = []struct {
	prefix string
	id     provider.Identity
}{
	{"claude", provider.Anthropic},
	{"gemini", provider.Gemini},
	{"kimi", provider.Kimi},
	{"deepseek", provider.DeepSeek},
	{"grok", provider.XAI},
	{"mistral", provider.Mistral},
	{"ministral", provider.Mistral},
	{"codestral", provider.Mistral},
	{"command", provider.Cohere},
}

// aliases maps alternate provider names accepted by Parse.
var aliases = map[string]provider.Identity{
	"vercel-ai-gateway": provider.Vercel,
	"azure-openai":      provider.Azure,
	"aws-bedrock":       provider.Bedrock,
	"vertex-ai":         provider.Vertex,
}

// ResolveModel routes a model name to its provider. A leading "<id>/" is
// stripped from the model sent upstream; heuristic matches keep the name
// and its original casing.
func ResolveModel(model string) (provider.Identity, string) {
	for _, id := range provider.Identities() {
		if stripped, ok := strings.CutPrefix(model, string(id)+"/"); ok {
			return id, stripped
		}
	}

	lower := strings.ToLower(model)
	for _, h := range heuristicPrefixes {
		if strings.HasPrefix(lower, h.prefix) {
			return h.id, model
		}
	}
	return provider.OpenAI, model
}

// Parse resolves a provider name, case-insensitively, accepting the
// identity ids and their aliases.
func Parse(value string) (provider.Identity, bool) {
	lower := strings.ToLower(value)
	if id, ok := aliases[lower]; ok {
		return id, true
	}
	for _, id := range provider.Identities() {
		if lower == string(id) {
			return id, true
		}
	}
	return "", false
}
