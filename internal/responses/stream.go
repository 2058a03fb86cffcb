package responses

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"modelgateway/internal/streaming"
)

// TranscodeStream converts canonical chat-completion chunk frames into
// Responses API event frames. The returned reader produces fully framed SSE
// bytes; closing it tears down the upstream body.
func TranscodeStream(upstream io.ReadCloser) io.ReadCloser {
	pr, pw := io.Pipe()
	go func() {
		defer upstream.Close()

		state := &streamState{
			pw:         pw,
			responseID: "resp_gateway",
			model:      "unknown",
			created:    uint64(time.Now().Unix()),
		}

		lines := streaming.NewLineReader(upstream)
		for {
			line, err := lines.Next()
			if err == io.EOF {
				break
			}
			if err != nil {
				pw.CloseWithError(err)
				return
			}
			if !state.handleLine(line) {
				return
			}
		}

		if !state.emittedCompleted {
			if !state.emittedCreated && !state.emitCreated() {
				return
			}
			state.emitCompleted()
		}
		pw.Close()
	}()
	return pr
}

// streamState carries the translation state across upstream lines.
type streamState struct {
	pw               *io.PipeWriter
	responseID       string
	model            string
	created          uint64
	emittedCreated   bool
	emittedCompleted bool
	fullText         strings.Builder
}

// handleLine processes one upstream line. Returns false when the downstream
// pipe is closed.
func (s *streamState) handleLine(line string) bool {
	payload, ok := strings.CutPrefix(line, "data:")
	if !ok {
		return true
	}
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return true
	}

	if payload == streaming.Done {
		if !s.emittedCompleted {
			return s.emitCompleted()
		}
		return true
	}

	var chunk map[string]any
	if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
		return true
	}

	if id, ok := chunk["id"].(string); ok {
		s.responseID = "resp_" + id
	}
	if model, ok := chunk["model"].(string); ok {
		s.model = model
	}
	if created, ok := asUint(chunk["created"]); ok {
		s.created = created
	}

	if !s.emittedCreated {
		if !s.emitCreated() {
			return false
		}
	}

	deltaText, finishReason := chunkDelta(chunk)
	if deltaText != "" {
		s.fullText.WriteString(deltaText)
		event := map[string]any{
			"type":        "response.output_text.delta",
			"response_id": s.responseID,
			"delta":       deltaText,
		}
		if !s.emit(event) {
			return false
		}
	}

	if finishReason && !s.emittedCompleted {
		return s.emitCompleted()
	}
	return true
}

// chunkDelta pulls the first choice's delta content and whether a non-null
// finish reason arrived.
func chunkDelta(chunk map[string]any) (string, bool) {
	choices, ok := chunk["choices"].([]any)
	if !ok || len(choices) == 0 {
		return "", false
	}
	choice, ok := choices[0].(map[string]any)
	if !ok {
		return "", false
	}
	var text string
	if delta, ok := choice["delta"].(map[string]any); ok {
		text, _ = delta["content"].(string)
	}
	reason, present := choice["finish_reason"]
	return text, present && reason != nil
}

func (s *streamState) emitCreated() bool {
	event := map[string]any{
		"type": "response.created",
		"response": map[string]any{
			"id":         s.responseID,
			"object":     "response",
			"created_at": s.created,
			"status":     "in_progress",
			"model":      s.model,
		},
	}
	if !s.emit(event) {
		return false
	}
	s.emittedCreated = true
	return true
}

func (s *streamState) emitCompleted() bool {
	text := s.fullText.String()
	event := map[string]any{
		"type": "response.completed",
		"response": map[string]any{
			"id":          s.responseID,
			"object":      "response",
			"created_at":  s.created,
			"status":      "completed",
			"model":       s.model,
			"output":      outputBlock("msg_"+s.responseID, text),
			"output_text": text,
		},
	}
	if !s.emit(event) {
		return false
	}
	if _, err := s.pw.Write([]byte(streaming.DoneFrame)); err != nil {
		return false
	}
	s.emittedCompleted = true
	return true
}

func (s *streamState) emit(event map[string]any) bool {
	encoded, err := json.Marshal(event)
	if err != nil {
		return true
	}
	_, werr := fmt.Fprintf(s.pw, "data: %s\n\n", encoded)
	return werr == nil
}
