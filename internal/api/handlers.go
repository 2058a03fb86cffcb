// Package api wires the HTTP surface: request handlers, routing table, and
// the auth checks that precede every provider call.
package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"modelgateway/internal/config"
	"modelgateway/internal/gateway"
	"modelgateway/internal/logger"
	"modelgateway/internal/metrics"
	"modelgateway/internal/middleware"
	"modelgateway/internal/models"
	"modelgateway/internal/provider"
	"modelgateway/internal/responses"
	"modelgateway/internal/routing"
	"modelgateway/internal/streaming"
)

// Server holds the handler dependencies.
type Server struct {
	cfg      config.Config
	registry *provider.Registry
	logger   *slog.Logger
}

// NewServer builds the handler set over a provider registry.
func NewServer(cfg config.Config, registry *provider.Registry) *Server {
	return &Server{
		cfg:      cfg,
		registry: registry,
		logger:   logger.WithComponent("api"),
	}
}

// Routes registers every endpoint on mux.
func (s *Server) Routes(mux *http.ServeMux) {
	register := func(pattern, route string, handler http.HandlerFunc) {
		mux.Handle(pattern, middleware.WithRequestContext(middleware.Instrument(route, handler)))
	}

	register("GET /{$}", "/", s.handleRoot)
	register("GET /healthz", "/healthz", s.handleHealth)
	register("GET /status", "/status", s.handleHealth)
	register("GET /providers", "/providers", s.handleProviders)
	register("GET /v1/models", "/v1/models", s.handleModels)
	register("POST /v1/chat/completions", "/v1/chat/completions", s.handleChatCompletions)
	register("POST /v1/responses", "/v1/responses", s.handleResponses)
	mux.Handle("GET /metrics", metrics.Handler())
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"name": "gateway", "status": "ok"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handleProviders(w http.ResponseWriter, r *http.Request) {
	type providerInfo struct {
		ID               string `json:"id"`
		Object           string `json:"object"`
		ModelPrefix      string `json:"model_prefix"`
		OpenAICompatible bool   `json:"openai_compatible"`
	}
	list := make([]providerInfo, 0, len(provider.Identities()))
	for _, id := range provider.Identities() {
		list = append(list, providerInfo{
			ID:               string(id),
			Object:           "provider",
			ModelPrefix:      string(id) + "/",
			OpenAICompatible: true,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"object": "list", "data": list})
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	token, err := extractBearer(r)
	if err != nil {
		gateway.WriteError(w, err)
		return
	}
	if err := validateGatewayKey(s.cfg, token); err != nil {
		gateway.WriteError(w, err)
		return
	}

	if name := r.URL.Query().Get("provider"); name != "" {
		id, ok := routing.Parse(name)
		if !ok {
			gateway.WriteError(w, gateway.BadRequest("provider must be one of: openai, anthropic, gemini, kimi"))
			return
		}
		s.listProviderModels(w, r, token, id)
		return
	}
	s.listAllModels(w, r, token)
}

func (s *Server) listProviderModels(w http.ResponseWriter, r *http.Request, token string, id provider.Identity) {
	adapter, err := s.registry.Provider(id)
	if err != nil {
		gateway.WriteError(w, err)
		return
	}
	apiKey, err := resolveProviderAPIKey(s.cfg, token, id)
	if err != nil {
		gateway.WriteError(w, err)
		return
	}
	raw, err := adapter.FetchModels(r.Context(), apiKey)
	if err != nil {
		gateway.WriteError(w, err)
		return
	}
	writeRawJSON(w, http.StatusOK, raw)
}

// listAllModels aggregates every provider's listing. Providers that fail
// are skipped; the first failure is kept and surfaces only when nothing
// listed successfully.
func (s *Server) listAllModels(w http.ResponseWriter, r *http.Request, token string) {
	var data []any
	var firstErr error

	for _, entry := range s.registry.All() {
		apiKey, err := resolveProviderAPIKey(s.cfg, token, entry.ID)
		if err != nil {
			gateway.WriteError(w, err)
			return
		}
		raw, err := entry.Adapter.FetchModels(r.Context(), apiKey)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			s.logger.Debug("model listing failed",
				slog.String("provider", string(entry.ID)),
				slog.String("error", err.Error()),
			)
			continue
		}
		var list map[string]any
		if err := json.Unmarshal(raw, &list); err != nil {
			continue
		}
		if entries, ok := list["data"].([]any); ok {
			data = append(data, entries...)
		}
	}

	if len(data) == 0 {
		if firstErr == nil {
			firstErr = gateway.BadRequest("No models available for the provided API key")
		}
		gateway.WriteError(w, firstErr)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"object": "list", "data": data})
}

func (s *Server) handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	token, err := extractBearer(r)
	if err != nil {
		gateway.WriteError(w, err)
		return
	}
	payload, err := decodeJSONBody(r)
	if err != nil {
		gateway.WriteError(w, err)
		return
	}
	req := models.ChatRequest(payload)
	model, err := validateChatRequest(req)
	if err != nil {
		gateway.WriteError(w, err)
		return
	}

	id, upstreamModel := routing.ResolveModel(model)
	req.SetModel(upstreamModel)

	apiKey, err := resolveProviderAPIKey(s.cfg, token, id)
	if err != nil {
		gateway.WriteError(w, err)
		return
	}
	adapter, err := s.registry.Provider(id)
	if err != nil {
		gateway.WriteError(w, err)
		return
	}

	if req.Stream() {
		body, err := adapter.StreamText(r.Context(), apiKey, req)
		if err != nil {
			gateway.WriteError(w, err)
			return
		}
		s.streamThrough(w, body)
		return
	}

	raw, err := adapter.GenerateText(r.Context(), apiKey, req)
	if err != nil {
		gateway.WriteError(w, err)
		return
	}
	writeRawJSON(w, http.StatusOK, raw)
}

func (s *Server) handleResponses(w http.ResponseWriter, r *http.Request) {
	token, err := extractBearer(r)
	if err != nil {
		gateway.WriteError(w, err)
		return
	}
	payload, err := decodeJSONBody(r)
	if err != nil {
		gateway.WriteError(w, err)
		return
	}
	req, err := responses.BuildChatRequest(payload)
	if err != nil {
		gateway.WriteError(w, err)
		return
	}
	model, err := validateChatRequest(req)
	if err != nil {
		gateway.WriteError(w, err)
		return
	}

	id, upstreamModel := routing.ResolveModel(model)
	req.SetModel(upstreamModel)

	apiKey, err := resolveProviderAPIKey(s.cfg, token, id)
	if err != nil {
		gateway.WriteError(w, err)
		return
	}
	adapter, err := s.registry.Provider(id)
	if err != nil {
		gateway.WriteError(w, err)
		return
	}

	if req.Stream() {
		body, err := adapter.StreamText(r.Context(), apiKey, req)
		if err != nil {
			gateway.WriteError(w, err)
			return
		}
		s.streamThrough(w, responses.TranscodeStream(body))
		return
	}

	raw, err := adapter.GenerateText(r.Context(), apiKey, req)
	if err != nil {
		gateway.WriteError(w, err)
		return
	}
	var chat map[string]any
	if err := json.Unmarshal(raw, &chat); err != nil {
		gateway.WriteError(w, gateway.Internal("Upstream returned invalid JSON"))
		return
	}
	writeJSON(w, http.StatusOK, responses.FromChatCompletion(chat))
}

// streamThrough commits an SSE response and fans body through to the
// client. Once streaming starts, errors can only terminate the stream.
func (s *Server) streamThrough(w http.ResponseWriter, body io.ReadCloser) {
	defer body.Close()

	sse, err := streaming.NewWriter(w)
	if err != nil {
		gateway.WriteError(w, gateway.Internal(err.Error()))
		return
	}
	if err := sse.Copy(body); err != nil {
		s.logger.Debug("stream terminated early", slog.String("error", err.Error()))
	}
}

// validateChatRequest enforces the minimal chat-completion contract and
// returns the requested model.
func validateChatRequest(req models.ChatRequest) (string, error) {
	model, ok := req.Model()
	if !ok {
		return "", gateway.BadRequest("The request body must include a model")
	}
	if _, ok := req.Messages(); !ok {
		return "", gateway.BadRequest("The request body must include messages")
	}
	return model, nil
}

func decodeJSONBody(r *http.Request) (map[string]any, error) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, gateway.BadRequest("Invalid JSON request body")
	}
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, gateway.BadRequest("Invalid JSON request body")
	}
	return payload, nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeRawJSON(w http.ResponseWriter, status int, body json.RawMessage) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
