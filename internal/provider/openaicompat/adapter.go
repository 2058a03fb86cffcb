// Package openaicompat implements the provider adapter for upstreams that
// speak the OpenAI chat-completion dialect natively. Request and response
// bodies pass through unchanged; only transport concerns (auth header, base
// URL, retries) live here.
package openaicompat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
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

// Adapter proxies one OpenAI-compatible upstream.
type Adapter struct {
	name      string
	baseURL   string
	client    *http.Client
	policy    provider.RetryPolicy
	headers   map[string]string
	keyHeader string
	logger    *slog.Logger
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

// WithHeader adds a static header to every upstream request.
func WithHeader(key, value string) Option {
	return func(a *Adapter) { a.headers[key] = value }
}

// WithAPIKeyHeader sends the API key in the named header instead of an
// Authorization bearer. Azure's OpenAI endpoints use "api-key".
func WithAPIKeyHeader(name string) Option {
	return func(a *Adapter) { a.keyHeader = name }
}

// New builds an adapter for the named provider rooted at baseURL.
func New(name, baseURL string, opts ...Option) *Adapter {
	a := &Adapter{
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 120 * time.Second},
		policy:  provider.RetryPolicy{MaxRetries: 2, BaseDelay: 150 * time.Millisecond},
		headers: map[string]string{},
		logger:  logger.WithComponent("provider." + name),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Name returns the provider identity string.
func (a *Adapter) Name() string { return a.name }

func (a *Adapter) checkConfigured() error {
	if a.baseURL == "" {
		return gateway.Internal(fmt.Sprintf("%s base URL is not configured", a.name))
	}
	return nil
}

// authorize applies the API key and static headers. Keys that cannot be
// carried as a header value are rejected before any bytes leave the gateway.
func (a *Adapter) authorize(req *http.Request, apiKey string) error {
	if strings.ContainsAny(apiKey, "\r\n") {
		return gateway.Unauthorized("Invalid API key")
	}
	if a.keyHeader != "" {
		req.Header.Set(a.keyHeader, apiKey)
	} else {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}
	for k, v := range a.headers {
		req.Header.Set(k, v)
	}
	return nil
}

// FetchModels forwards the upstream model listing verbatim.
func (a *Adapter) FetchModels(ctx context.Context, apiKey string) (json.RawMessage, error) {
	if err := a.checkConfigured(); err != nil {
		return nil, err
	}
	build := func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/models", nil)
		if err != nil {
			return nil, err
		}
		if err := a.authorize(req, apiKey); err != nil {
			return nil, err
		}
		return req, nil
	}
	return a.sendBuffered(ctx, build)
}

// GenerateText forwards a buffered completion verbatim.
func (a *Adapter) GenerateText(ctx context.Context, apiKey string, req models.ChatRequest) (json.RawMessage, error) {
	if err := a.checkConfigured(); err != nil {
		return nil, err
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, gateway.Internal("failed to encode upstream request")
	}
	return a.sendBuffered(ctx, a.completionBuilder(ctx, apiKey, body))
}

// StreamText forwards a streaming completion, returning the upstream SSE
// body unchanged.
func (a *Adapter) StreamText(ctx context.Context, apiKey string, req models.ChatRequest) (io.ReadCloser, error) {
	if err := a.checkConfigured(); err != nil {
		return nil, err
	}
	streamReq := req.Clone()
	streamReq.SetStream(true)
	body, err := json.Marshal(streamReq)
	if err != nil {
		return nil, gateway.Internal("failed to encode upstream request")
	}

	resp, err := provider.SendWithRetry(ctx, a.client, a.name, a.policy, a.completionBuilder(ctx, apiKey, body))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		raw, _ := io.ReadAll(resp.Body)
		a.logger.Warn("upstream stream rejected", slog.Int("status", resp.StatusCode))
		return nil, gateway.Upstream(resp.StatusCode, string(raw))
	}
	return resp.Body, nil
}

func (a *Adapter) completionBuilder(ctx context.Context, apiKey string, body []byte) func() (*http.Request, error) {
	return func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/chat/completions", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		if err := a.authorize(req, apiKey); err != nil {
			return nil, err
		}
		return req, nil
	}
}

// sendBuffered dispatches with retries and returns the upstream JSON body.
func (a *Adapter) sendBuffered(ctx context.Context, build func() (*http.Request, error)) (json.RawMessage, error) {
	resp, err := provider.SendWithRetry(ctx, a.client, a.name, a.policy, build)
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
	if !json.Valid(raw) {
		return nil, gateway.Internal("Upstream returned invalid JSON")
	}
	return json.RawMessage(raw), nil
}
