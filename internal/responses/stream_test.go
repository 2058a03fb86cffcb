package responses

import (
	"encoding/json"
	"io"
	"strings"
	"testing"
)

func collectEvents(t *testing.T, body io.ReadCloser) []map[string]any {
	t.Helper()
	raw, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("read stream: %v", err)
	}
	body.Close()

	var events []map[string]any
	for _, frame := range strings.Split(string(raw), "\n\n") {
		if frame == "" {
			continue
		}
		payload, ok := strings.CutPrefix(frame, "data: ")
		if !ok {
			t.Fatalf("frame %q missing data prefix", frame)
		}
		if payload == "[DONE]" {
			events = append(events, map[string]any{"type": "[DONE]"})
			continue
		}
		var event map[string]any
		if err := json.Unmarshal([]byte(payload), &event); err != nil {
			t.Fatalf("decode %q: %v", frame, err)
		}
		events = append(events, event)
	}
	return events
}

func chunkFrame(id, model string, created int64, content string, finish any) string {
	choice := map[string]any{"index": 0, "delta": map[string]any{}, "finish_reason": finish}
	if content != "" {
		choice["delta"] = map[string]any{"content": content}
	}
	chunk := map[string]any{
		"id": id, "object": "chat.completion.chunk",
		"created": created, "model": model,
		"choices": []any{choice},
	}
	raw, _ := json.Marshal(chunk)
	return "data: " + string(raw) + "\n\n"
}

func TestTranscodeStreamFullSession(t *testing.T) {
	upstream := chunkFrame("chatcmpl-7", "gpt-4o", 1700000100, "Hel", nil) +
		chunkFrame("chatcmpl-7", "gpt-4o", 1700000100, "lo", nil) +
		chunkFrame("chatcmpl-7", "gpt-4o", 1700000100, "", "stop") +
		"data: [DONE]\n\n"

	events := collectEvents(t, TranscodeStream(io.NopCloser(strings.NewReader(upstream))))

	if len(events) != 5 {
		t.Fatalf("events = %d, want 5 (created, 2 deltas, completed, done): %v", len(events), events)
	}

	created := events[0]
	if created["type"] != "response.created" {
		t.Fatalf("first event = %v", created)
	}
	resp := created["response"].(map[string]any)
	if resp["id"] != "resp_chatcmpl-7" || resp["status"] != "in_progress" || resp["model"] != "gpt-4o" {
		t.Errorf("created response = %v", resp)
	}
	if resp["created_at"] != float64(1700000100) {
		t.Errorf("created_at = %v", resp["created_at"])
	}

	for i, want := range []string{"Hel", "lo"} {
		event := events[i+1]
		if event["type"] != "response.output_text.delta" || event["delta"] != want {
			t.Errorf("delta event %d = %v", i, event)
		}
		if event["response_id"] != "resp_chatcmpl-7" {
			t.Errorf("delta response_id = %v", event["response_id"])
		}
	}

	completed := events[3]
	if completed["type"] != "response.completed" {
		t.Fatalf("completed event = %v", completed)
	}
	final := completed["response"].(map[string]any)
	if final["status"] != "completed" || final["output_text"] != "Hello" {
		t.Errorf("completed response = %v", final)
	}
	output := final["output"].([]any)[0].(map[string]any)
	if output["id"] != "msg_resp_chatcmpl-7" {
		t.Errorf("output message id = %v", output["id"])
	}

	if events[4]["type"] != "[DONE]" {
		t.Errorf("terminal = %v", events[4])
	}
}

func TestTranscodeStreamCompletedOnceDespiteDone(t *testing.T) {
	// finish_reason arrives, then [DONE]; completed pair must not repeat
	upstream := chunkFrame("chatcmpl-1", "gpt-4o", 1, "x", nil) +
		chunkFrame("chatcmpl-1", "gpt-4o", 1, "", "stop") +
		"data: [DONE]\n\n"

	events := collectEvents(t, TranscodeStream(io.NopCloser(strings.NewReader(upstream))))

	var completed, done int
	for _, event := range events {
		switch event["type"] {
		case "response.completed":
			completed++
		case "[DONE]":
			done++
		}
	}
	if completed != 1 || done != 1 {
		t.Errorf("completed/done = %d/%d, want 1/1", completed, done)
	}
}

func TestTranscodeStreamEOFSynthesis(t *testing.T) {
	// upstream dies before any terminal marker
	upstream := chunkFrame("chatcmpl-9", "gpt-4o", 5, "partial", nil)

	events := collectEvents(t, TranscodeStream(io.NopCloser(strings.NewReader(upstream))))

	last := events[len(events)-1]
	if last["type"] != "[DONE]" {
		t.Fatalf("missing terminal marker: %v", events)
	}
	completed := events[len(events)-2]
	if completed["type"] != "response.completed" {
		t.Fatalf("missing completed event: %v", events)
	}
	resp := completed["response"].(map[string]any)
	if resp["output_text"] != "partial" {
		t.Errorf("output_text = %v", resp["output_text"])
	}
}

func TestTranscodeStreamEmptyUpstream(t *testing.T) {
	events := collectEvents(t, TranscodeStream(io.NopCloser(strings.NewReader(""))))

	if len(events) != 3 {
		t.Fatalf("events = %v, want created + completed + done", events)
	}
	if events[0]["type"] != "response.created" {
		t.Errorf("first = %v", events[0])
	}
	resp := events[0]["response"].(map[string]any)
	if resp["id"] != "resp_gateway" || resp["model"] != "unknown" {
		t.Errorf("defaults = %v", resp)
	}
	if events[1]["type"] != "response.completed" || events[2]["type"] != "[DONE]" {
		t.Errorf("tail = %v", events[1:])
	}
}

func TestTranscodeStreamIgnoresNoise(t *testing.T) {
	upstream := ": keepalive comment\n\n" +
		"data: not-json\n\n" +
		chunkFrame("chatcmpl-2", "gpt-4o", 2, "ok", "stop")

	events := collectEvents(t, TranscodeStream(io.NopCloser(strings.NewReader(upstream))))

	if events[0]["type"] != "response.created" {
		t.Errorf("noise produced events before created: %v", events)
	}
	var deltas int
	for _, event := range events {
		if event["type"] == "response.output_text.delta" {
			deltas++
		}
	}
	if deltas != 1 {
		t.Errorf("deltas = %d, want 1", deltas)
	}
}
