// Package kimi adapts the Kimi coding endpoint. The upstream speaks the
// OpenAI dialect but requires a specific User-Agent, accepts exactly one
// model, and has no model-listing endpoint.
package kimi

import (
	"context"
	"encoding/json"
	"io"

	"modelgateway/internal/models"
	"modelgateway/internal/provider/openaicompat"
)

const (
	userAgent = "KimiCLI/1.3"

	// ModelID is the only model the coding endpoint serves; whatever the
	// client asked for is replaced with it.
	ModelID = "kimi-for-coding"
)

// Adapter wraps the OpenAI-compatible transport with Kimi's overrides.
type Adapter struct {
	inner *openaicompat.Adapter
}

// New builds the Kimi adapter rooted at baseURL.
func New(baseURL string, opts ...openaicompat.Option) *Adapter {
	opts = append(opts, openaicompat.WithHeader("User-Agent", userAgent))
	return &Adapter{inner: openaicompat.New("kimi", baseURL, opts...)}
}

// Name returns the provider identity string.
func (a *Adapter) Name() string { return "kimi" }

// FetchModels returns the static single-model list; the upstream exposes no
// listing endpoint.
func (a *Adapter) FetchModels(ctx context.Context, apiKey string) (json.RawMessage, error) {
	list := models.ModelList{
		Object: "list",
		Data: []models.ModelEntry{
			{ID: ModelID, Object: "model", Created: 0, OwnedBy: "kimi"},
		},
	}
	raw, err := json.Marshal(list)
	if err != nil {
		return nil, err
	}
	return raw, nil
}

// GenerateText forwards a buffered completion with the model pinned.
func (a *Adapter) GenerateText(ctx context.Context, apiKey string, req models.ChatRequest) (json.RawMessage, error) {
	return a.inner.GenerateText(ctx, apiKey, pinned(req))
}

// StreamText forwards a streaming completion with the model pinned.
func (a *Adapter) StreamText(ctx context.Context, apiKey string, req models.ChatRequest) (io.ReadCloser, error) {
	return a.inner.StreamText(ctx, apiKey, pinned(req))
}

func pinned(req models.ChatRequest) models.ChatRequest {
	out := req.Clone()
	out.SetModel(ModelID)
	return out
}
