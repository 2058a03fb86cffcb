package anthropic

import (
	"errors"
	"testing"

	"modelgateway/internal/gateway"
	"modelgateway/internal/models"
)

func TestBuildRequestBasics(t *testing.T) {
	req := models.ChatRequest{
		"model": "claude-sonnet-4",
		"messages": []any{
			map[string]any{"role": "system", "content": "Be terse."},
			map[string]any{"role": "system", "content": "Answer in English."},
			map[string]any{"role": "user", "content": "Hello"},
			map[string]any{"role": "tool", "content": "ignored"},
			map[string]any{"role": "assistant", "content": "   "},
		},
		"temperature": 0.5,
		"top_p":       0.9,
	}

	body, err := buildRequest(req, true)
	if err != nil {
		t.Fatalf("buildRequest: %v", err)
	}

	if body["model"] != "claude-sonnet-4" {
		t.Errorf("model = %v", body["model"])
	}
	if body["stream"] != true {
		t.Errorf("stream = %v", body["stream"])
	}
	if body["system"] != "Be terse.\n\nAnswer in English." {
		t.Errorf("system = %q", body["system"])
	}
	if body["max_tokens"] != uint64(1024) {
		t.Errorf("max_tokens = %v, want default 1024", body["max_tokens"])
	}
	if body["temperature"] != 0.5 || body["top_p"] != 0.9 {
		t.Errorf("sampling params = %v / %v", body["temperature"], body["top_p"])
	}

	messages := body["messages"].([]any)
	if len(messages) != 1 {
		t.Fatalf("messages = %v, want only the user message", messages)
	}
	first := messages[0].(map[string]any)
	if first["role"] != "user" {
		t.Errorf("role = %v", first["role"])
	}
	blocks := first["content"].([]any)
	block := blocks[0].(map[string]any)
	if block["type"] != "text" || block["text"] != "Hello" {
		t.Errorf("content block = %v", block)
	}
}

func TestBuildRequestNoUsableMessages(t *testing.T) {
	req := models.ChatRequest{
		"model": "claude-sonnet-4",
		"messages": []any{
			map[string]any{"role": "system", "content": "only system"},
		},
	}
	_, err := buildRequest(req, false)

	var gwErr *gateway.Error
	if !errors.As(err, &gwErr) || gwErr.Kind != gateway.KindBadRequest {
		t.Fatalf("err = %v, want bad request", err)
	}
	if gwErr.Message != "At least one user or assistant message is required" {
		t.Errorf("message = %q", gwErr.Message)
	}
}

func TestMaxTokensFallbacks(t *testing.T) {
	tests := []struct {
		name string
		req  models.ChatRequest
		want uint64
	}{
		{"explicit", models.ChatRequest{"max_tokens": float64(256)}, 256},
		{"completion alias", models.ChatRequest{"max_completion_tokens": float64(512)}, 512},
		{"explicit wins", models.ChatRequest{"max_tokens": float64(10), "max_completion_tokens": float64(20)}, 10},
		{"fractional ignored", models.ChatRequest{"max_tokens": 1.5}, 1024},
		{"negative ignored", models.ChatRequest{"max_tokens": float64(-1)}, 1024},
		{"string ignored", models.ChatRequest{"max_tokens": "100"}, 1024},
		{"absent", models.ChatRequest{}, 1024},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := maxTokens(tt.req); got != tt.want {
				t.Errorf("maxTokens = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestExtractTextContent(t *testing.T) {
	tests := []struct {
		name    string
		content any
		want    string
	}{
		{"plain string", "hello", "hello"},
		{
			"mixed array",
			[]any{
				"lead",
				map[string]any{"type": "text", "text": "typed"},
				map[string]any{"type": "image", "url": "x"},
				map[string]any{"text": "untyped"},
			},
			"lead\ntyped\nuntyped",
		},
		{"null", nil, ""},
		{"number", float64(3), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractTextContent(tt.content); got != tt.want {
				t.Errorf("extractTextContent = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestToCompletion(t *testing.T) {
	response := map[string]any{
		"id":    "msg_abc",
		"model": "claude-sonnet-4",
		"content": []any{
			map[string]any{"type": "text", "text": "Hello"},
			map[string]any{"type": "tool_use", "name": "skip"},
			map[string]any{"type": "text", "text": ", world"},
		},
		"stop_reason": "max_tokens",
		"usage": map[string]any{
			"input_tokens":  float64(7),
			"output_tokens": float64(5),
		},
	}

	out := toCompletion(response, "requested")

	if out.ID != "msg_abc" || out.Model != "claude-sonnet-4" {
		t.Errorf("id/model = %s/%s", out.ID, out.Model)
	}
	if out.Object != "chat.completion" {
		t.Errorf("object = %s", out.Object)
	}
	choice := out.Choices[0]
	if choice.Message.Content != "Hello, world" {
		t.Errorf("content = %q", choice.Message.Content)
	}
	if choice.FinishReason != "length" {
		t.Errorf("finish_reason = %q", choice.FinishReason)
	}
	if out.Usage.TotalTokens != 12 {
		t.Errorf("total_tokens = %d", out.Usage.TotalTokens)
	}
}

func TestToCompletionDefaults(t *testing.T) {
	out := toCompletion(map[string]any{}, "requested-model")

	if out.ID != "chatcmpl-anthropic" {
		t.Errorf("id = %q", out.ID)
	}
	if out.Model != "requested-model" {
		t.Errorf("model = %q", out.Model)
	}
	if out.Choices[0].FinishReason != "stop" {
		t.Errorf("finish_reason = %q", out.Choices[0].FinishReason)
	}
}

func TestToModelList(t *testing.T) {
	response := map[string]any{
		"data": []any{
			map[string]any{"id": "claude-sonnet-4", "display_name": "Sonnet"},
			map[string]any{"display_name": "no id"},
			map[string]any{"id": "claude-haiku-3"},
		},
	}

	list := toModelList(response)

	if list.Object != "list" || len(list.Data) != 2 {
		t.Fatalf("list = %+v", list)
	}
	for i, want := range []string{"claude-sonnet-4", "claude-haiku-3"} {
		entry := list.Data[i]
		if entry.ID != want || entry.Object != "model" || entry.Created != 0 || entry.OwnedBy != "anthropic" {
			t.Errorf("entry %d = %+v", i, entry)
		}
	}
}

func TestMapStopReason(t *testing.T) {
	cases := map[string]string{
		"max_tokens": "length",
		"tool_use":   "tool_calls",
		"end_turn":   "stop",
		"anything":   "stop",
	}
	for in, want := range cases {
		if got := mapStopReason(in); got != want {
			t.Errorf("mapStopReason(%q) = %q, want %q", in, got, want)
		}
	}
}
