// Package anthropic adapts the Anthropic messages API to the canonical
// chat-completion contract, buffered and streamed.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"modelgateway/internal/gateway"
	"modelgateway/internal/logger"
	"modelgateway/internal/models"
	"modelgateway/internal/provider"
)

const apiVersion = "2023-06-01"

// Adapter translates between the canonical dialect and the Anthropic API.
type Adapter struct {
	baseURL string
	client  *http.Client
	policy  provider.RetryPolicy
	logger  *slog.Logger
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithHTTPClient sets the HTTP client used for upstream calls.
func WithHTTPClient(c *http.Client) Option {
	return func(a *Adapter) { a.client = c }
}

// WithRetryPolicy sets the retry policy for upstream dispatch.
func WithRetryPolicy(p provider.RetryPolicy) Option {
	return func(a *Adapter) { a.policy = p }
}

// New builds an Anthropic adapter rooted at baseURL.
func New(baseURL string, opts ...Option) *Adapter {
	a := &Adapter{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 120 * time.Second},
		policy:  provider.RetryPolicy{MaxRetries: 2, BaseDelay: 150 * time.Millisecond},
		logger:  logger.WithComponent("provider.anthropic"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Name returns the provider identity string.
func (a *Adapter) Name() string { return "anthropic" }

// authorize applies the Anthropic auth headers. Keys that cannot be carried
// as a header value are rejected before any bytes leave the gateway.
func authorize(req *http.Request, apiKey string) error {
	if strings.ContainsAny(apiKey, "\r\n") {
		return gateway.Unauthorized("Invalid API key")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", apiKey)
	req.Header.Set("anthropic-version", apiVersion)
	return nil
}

// FetchModels lists models, normalized to the canonical shape.
func (a *Adapter) FetchModels(ctx context.Context, apiKey string) (json.RawMessage, error) {
	build := func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/v1/models", nil)
		if err != nil {
			return nil, err
		}
		if err := authorize(req, apiKey); err != nil {
			return nil, err
		}
		return req, nil
	}

	parsed, err := a.sendJSON(ctx, build)
	if err != nil {
		return nil, err
	}
	return json.Marshal(toModelList(parsed))
}

// GenerateText performs a buffered completion via /v1/messages.
func (a *Adapter) GenerateText(ctx context.Context, apiKey string, req models.ChatRequest) (json.RawMessage, error) {
	requestedModel, _ := req.Model()
	body, err := buildRequest(req, false)
	if err != nil {
		return nil, err
	}
	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, gateway.Internal("failed to encode upstream request")
	}

	parsed, err := a.sendJSON(ctx, a.messagesBuilder(ctx, apiKey, encoded))
	if err != nil {
		return nil, err
	}
	return json.Marshal(toCompletion(parsed, requestedModel))
}

// StreamText starts a streaming completion and returns canonical chunk
// frames transcoded from the Anthropic event stream.
func (a *Adapter) StreamText(ctx context.Context, apiKey string, req models.ChatRequest) (io.ReadCloser, error) {
	requestedModel, _ := req.Model()
	body, err := buildRequest(req, true)
	if err != nil {
		return nil, err
	}
	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, gateway.Internal("failed to encode upstream request")
	}

	resp, err := provider.SendWithRetry(ctx, a.client, a.Name(), a.policy, a.messagesBuilder(ctx, apiKey, encoded))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		raw, _ := io.ReadAll(resp.Body)
		a.logger.Warn("upstream stream rejected", slog.Int("status", resp.StatusCode))
		return nil, gateway.Upstream(resp.StatusCode, string(raw))
	}
	return transcodeStream(resp.Body, requestedModel), nil
}

func (a *Adapter) messagesBuilder(ctx context.Context, apiKey string, body []byte) func() (*http.Request, error) {
	return func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/v1/messages", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		if err := authorize(req, apiKey); err != nil {
			return nil, err
		}
		return req, nil
	}
}

// sendJSON dispatches with retries and decodes the upstream JSON body.
func (a *Adapter) sendJSON(ctx context.Context, build func() (*http.Request, error)) (map[string]any, error) {
	resp, err := provider.SendWithRetry(ctx, a.client, a.Name(), a.policy, build)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, gateway.Transport(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		a.logger.Warn("upstream request failed", slog.Int("status", resp.StatusCode))
		return nil, gateway.Upstream(resp.StatusCode, string(raw))
	}
	var parsed map[string]any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, gateway.Internal("Upstream returned invalid JSON")
	}
	return parsed, nil
}
