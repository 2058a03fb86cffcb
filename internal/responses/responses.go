// Package responses transcodes between the Responses API surface and the
// canonical chat-completion contract: request building, buffered response
// construction, and streaming event translation.
package responses

import (
	"math"
	"strings"
	"time"

	"modelgateway/internal/gateway"
	"modelgateway/internal/models"
)

// BuildChatRequest converts a Responses API payload into a canonical chat
// request. Explicit messages pass through verbatim; otherwise the input
// field is expanded into messages.
func BuildChatRequest(payload map[string]any) (models.ChatRequest, error) {
	model, ok := payload["model"].(string)
	if !ok {
		return nil, gateway.BadRequest("The request body must include a model")
	}
	stream, _ := payload["stream"].(bool)

	var messages []any
	if explicit, ok := payload["messages"].([]any); ok {
		messages = explicit
	} else {
		input, ok := payload["input"]
		if !ok {
			return nil, gateway.BadRequest("The request body must include input or messages")
		}
		converted, err := messagesFromInput(input)
		if err != nil {
			return nil, err
		}
		messages = converted
	}

	request := models.ChatRequest{
		"model":    model,
		"messages": messages,
		"stream":   stream,
	}
	if v, ok := payload["temperature"]; ok {
		request["temperature"] = v
	}
	if v, ok := payload["top_p"]; ok {
		request["top_p"] = v
	}
	if v, ok := payload["max_output_tokens"]; ok {
		request["max_tokens"] = v
	}
	if v, ok := payload["max_tokens"]; ok {
		request["max_tokens"] = v
	}
	if v, ok := payload["max_completion_tokens"]; ok {
		request["max_completion_tokens"] = v
	}
	return request, nil
}

// FromChatCompletion builds a buffered response object from a canonical
// chat completion.
func FromChatCompletion(chat map[string]any) map[string]any {
	chatID, ok := chat["id"].(string)
	if !ok {
		chatID = "chatcmpl-gateway"
	}
	responseID := "resp_" + chatID
	created, ok := asUint(chat["created"])
	if !ok {
		created = uint64(time.Now().Unix())
	}
	model, ok := chat["model"].(string)
	if !ok {
		model = "unknown"
	}

	var text string
	if choices, ok := chat["choices"].([]any); ok && len(choices) > 0 {
		if choice, ok := choices[0].(map[string]any); ok {
			if message, ok := choice["message"].(map[string]any); ok {
				if content, ok := message["content"]; ok {
					text = extractText(content)
				}
			}
		}
	}

	usage, ok := chat["usage"]
	if !ok {
		usage = map[string]any{}
	}

	return map[string]any{
		"id":          responseID,
		"object":      "response",
		"created_at":  created,
		"status":      "completed",
		"model":       model,
		"output":      outputBlock("msg_"+chatID, text),
		"output_text": text,
		"usage":       usage,
	}
}

func outputBlock(msgID, text string) []any {
	return []any{
		map[string]any{
			"id":   msgID,
			"type": "message",
			"role": "assistant",
			"content": []any{
				map[string]any{
					"type":        "output_text",
					"text":        text,
					"annotations": []any{},
				},
			},
		},
	}
}

// messagesFromInput expands the Responses input field into chat messages.
func messagesFromInput(input any) ([]any, error) {
	switch v := input.(type) {
	case string:
		return []any{map[string]any{"role": "user", "content": v}}, nil
	case []any:
		if len(v) == 0 {
			return nil, gateway.BadRequest("input array must contain at least one entry")
		}
		var messages []any
		for _, raw := range v {
			entry, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			if role, ok := entry["role"].(string); ok {
				content := ""
				if c, ok := entry["content"]; ok {
					content = extractText(c)
				}
				if content == "" {
					continue
				}
				messages = append(messages, map[string]any{"role": role, "content": content})
				continue
			}
			if text, ok := entry["text"].(string); ok {
				messages = append(messages, map[string]any{"role": "user", "content": text})
			}
		}
		if len(messages) == 0 {
			return nil, gateway.BadRequest("Unable to extract messages from input")
		}
		return messages, nil
	default:
		return nil, gateway.BadRequest("input must be a string or array")
	}
}

// extractText flattens a content value to plain text, joining the textual
// parts of an array with newlines.
func extractText(value any) string {
	switch v := value.(type) {
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

func asUint(v any) (uint64, bool) {
	n, ok := v.(float64)
	if !ok || n < 0 || n != math.Trunc(n) {
		return 0, false
	}
	return uint64(n), true
}
