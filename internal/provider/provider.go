// Package provider defines the adapter contract against upstream model
// providers and the registry that holds one adapter per provider identity.
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"

	"modelgateway/internal/logger"
	"modelgateway/internal/models"
)

// Identity names one of the supported upstream providers. The set is closed.
type Identity string

const (
	OpenAI     Identity = "openai"
	Anthropic  Identity = "anthropic"
	Gemini     Identity = "gemini"
	Kimi       Identity = "kimi"
	OpenRouter Identity = "openrouter"
	Vercel     Identity = "vercel"
	Groq       Identity = "groq"
	DeepSeek   Identity = "deepseek"
	XAI        Identity = "xai"
	Mistral    Identity = "mistral"
	Cohere     Identity = "cohere"
	Azure      Identity = "azure"
	Bedrock    Identity = "bedrock"
	Vertex     Identity = "vertex"
)

// Identities returns every provider identity in declaration order. The order
// is stable and drives model routing precedence and list aggregation.
func Identities() []Identity {
	return []Identity{
		OpenAI, Anthropic, Gemini, Kimi, OpenRouter, Vercel, Groq,
		DeepSeek, XAI, Mistral, Cohere, Azure, Bedrock, Vertex,
	}
}

// Adapter is the contract every provider implementation satisfies. Requests
// and buffered responses are canonical (OpenAI-shaped); adapters own the
// translation to and from their upstream dialect.
type Adapter interface {
	// Name returns the provider identity string.
	Name() string

	// FetchModels lists the provider's models in the canonical shape.
	FetchModels(ctx context.Context, apiKey string) (json.RawMessage, error)

	// GenerateText performs a buffered completion.
	GenerateText(ctx context.Context, apiKey string, req models.ChatRequest) (json.RawMessage, error)

	// StreamText starts a streaming completion. The returned body yields
	// canonical SSE chunk frames; the caller must close it.
	StreamText(ctx context.Context, apiKey string, req models.ChatRequest) (io.ReadCloser, error)
}

// Registry holds one adapter per identity and preserves declaration order
// for iteration.
type Registry struct {
	adapters map[Identity]Adapter
	order    []Identity
	logger   *slog.Logger
}

// Entry pairs an identity with its adapter for ordered iteration.
type Entry struct {
	ID      Identity
	Adapter Adapter
}

// NewRegistry builds a registry from adapters keyed by their Name().
func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{
		adapters: make(map[Identity]Adapter, len(adapters)),
		logger:   logger.WithComponent("registry"),
	}
	for _, a := range adapters {
		id := Identity(a.Name())
		if _, dup := r.adapters[id]; !dup {
			r.order = append(r.order, id)
		}
		r.adapters[id] = a
		r.logger.Debug("provider registered", slog.String("provider", a.Name()))
	}
	r.logger.Info("registry initialized", slog.Int("adapter_count", len(r.adapters)))
	return r
}

// Provider returns the adapter for an identity.
func (r *Registry) Provider(id Identity) (Adapter, error) {
	a, ok := r.adapters[id]
	if !ok {
		r.logger.Error("adapter lookup failed", slog.String("provider", string(id)))
		return nil, errors.New("adapter not found: " + string(id))
	}
	return a, nil
}

// All returns every registered adapter in registration order.
func (r *Registry) All() []Entry {
	out := make([]Entry, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, Entry{ID: id, Adapter: r.adapters[id]})
	}
	return out
}
