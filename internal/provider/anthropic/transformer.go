package anthropic

import (
	"encoding/json"
	"math"
	"strings"
	"time"

	"modelgateway/internal/gateway"
	"modelgateway/internal/models"
)

const defaultMaxTokens = 1024

// buildRequest translates a canonical chat request into the Anthropic
// messages dialect. System messages collapse into the top-level system
// field; roles other than user/assistant and whitespace-only messages are
// dropped.
func buildRequest(req models.ChatRequest, stream bool) (map[string]any, error) {
	model, ok := req.Model()
	if !ok {
		return nil, gateway.BadRequest("Missing model")
	}
	messages, ok := req.Messages()
	if !ok {
		return nil, gateway.BadRequest("Missing messages")
	}

	var system []string
	var converted []any
	for _, raw := range messages {
		message, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		role, ok := message["role"].(string)
		if !ok {
			role = "user"
		}
		content := extractTextContent(message["content"])
		if strings.TrimSpace(content) == "" {
			continue
		}
		if role == "system" {
			system = append(system, content)
			continue
		}
		if role != "user" && role != "assistant" {
			continue
		}
		converted = append(converted, map[string]any{
			"role": role,
			"content": []any{
				map[string]any{"type": "text", "text": content},
			},
		})
	}

	if len(converted) == 0 {
		return nil, gateway.BadRequest("At least one user or assistant message is required")
	}

	body := map[string]any{
		"model":      model,
		"messages":   converted,
		"max_tokens": maxTokens(req),
		"stream":     stream,
	}
	if temperature, ok := asNumber(req["temperature"]); ok {
		body["temperature"] = temperature
	}
	if topP, ok := asNumber(req["top_p"]); ok {
		body["top_p"] = topP
	}
	if len(system) > 0 {
		body["system"] = strings.Join(system, "\n\n")
	}
	return body, nil
}

// extractTextContent flattens a message content value to plain text. Arrays
// join their textual elements with newlines; non-text blocks contribute
// their "text" field when present.
func extractTextContent(content any) string {
	switch v := content.(type) {
	case string:
		return v
	case []any:
		var parts []string
		for _, item := range v {
			if text, ok := item.(string); ok {
				parts = append(parts, text)
				continue
			}
			block, ok := item.(map[string]any)
			if !ok {
				continue
			}
			if text, ok := block["text"].(string); ok {
				parts = append(parts, text)
			}
		}
		return strings.Join(parts, "\n")
	default:
		return ""
	}
}

// maxTokens resolves the token cap: max_tokens, then max_completion_tokens,
// then the dialect default. Only non-negative integral numbers count.
func maxTokens(req models.ChatRequest) uint64 {
	for _, key := range []string{"max_tokens", "max_completion_tokens"} {
		if v, ok := asUint(req[key]); ok {
			return v
		}
	}
	return defaultMaxTokens
}

func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func asUint(v any) (uint64, bool) {
	n, ok := asNumber(v)
	if !ok || n < 0 || n != math.Trunc(n) {
		return 0, false
	}
	return uint64(n), true
}

// mapStopReason translates Anthropic stop reasons to canonical finish
// reasons.
func mapStopReason(value string) string {
	switch value {
	case "max_tokens":
		return "length"
	case "tool_use":
		return "tool_calls"
	default:
		return "stop"
	}
}

// toModelList normalizes an Anthropic model listing to the canonical shape.
func toModelList(response map[string]any) models.ModelList {
	list := models.ModelList{Object: "list", Data: []models.ModelEntry{}}
	data, _ := response["data"].([]any)
	for _, raw := range data {
		item, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		id, ok := item["id"].(string)
		if !ok {
			continue
		}
		list.Data = append(list.Data, models.ModelEntry{
			ID:      id,
			Object:  "model",
			Created: 0,
			OwnedBy: "anthropic",
		})
	}
	return list
}

// toCompletion translates a buffered Anthropic response to the canonical
// chat-completion shape.
func toCompletion(response map[string]any, requestedModel string) models.ChatCompletion {
	id, ok := response["id"].(string)
	if !ok {
		id = "chatcmpl-anthropic"
	}
	model, ok := response["model"].(string)
	if !ok {
		model = requestedModel
	}

	var content strings.Builder
	if blocks, ok := response["content"].([]any); ok {
		for _, raw := range blocks {
			block, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			if blockType, _ := block["type"].(string); blockType != "text" {
				continue
			}
			if text, ok := block["text"].(string); ok {
				content.WriteString(text)
			}
		}
	}

	var promptTokens, completionTokens int
	if usage, ok := response["usage"].(map[string]any); ok {
		if v, ok := asUint(usage["input_tokens"]); ok {
			promptTokens = int(v)
		}
		if v, ok := asUint(usage["output_tokens"]); ok {
			completionTokens = int(v)
		}
	}

	stopReason, ok := response["stop_reason"].(string)
	if !ok {
		stopReason = "end_turn"
	}

	return models.ChatCompletion{
		ID:      id,
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   model,
		Choices: []models.ChatChoice{
			{
				Index: 0,
				Message: models.Message{
					Role:    "assistant",
					Content: content.String(),
				},
				FinishReason: mapStopReason(stopReason),
				Logprobs:     nil,
			},
		},
		Usage: models.Usage{
			PromptTokens:     promptTokens,
			CompletionTokens: completionTokens,
			TotalTokens:      promptTokens + completionTokens,
		},
	}
}
