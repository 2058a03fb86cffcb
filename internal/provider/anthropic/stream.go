package anthropic

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"modelgateway/internal/models"
	"modelgateway/internal/streaming"
)

// transcodeStream converts an Anthropic event stream into canonical
// chat-completion chunk frames. The returned reader produces fully framed
// SSE bytes; backpressure propagates through the pipe, and closing the
// reader tears down the upstream body.
func transcodeStream(upstream io.ReadCloser, requestedModel string) io.ReadCloser {
	pr, pw := io.Pipe()
	go func() {
		defer upstream.Close()

		state := &streamState{
			pw:           pw,
			messageID:    "chatcmpl-anthropic",
			model:        requestedModel,
			finishReason: "stop",
			created:      time.Now().Unix(),
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
				// client went away; stop draining upstream
				return
			}
		}

		if !state.sentDone {
			state.emitTerminal()
		}
		pw.Close()
	}()
	return pr
}

// streamState carries the translation state across upstream lines.
type streamState struct {
	pw           *io.PipeWriter
	currentEvent string
	messageID    string
	model        string
	sentRole     bool
	sentDone     bool
	finishReason string
	created      int64
}

// handleLine processes one upstream line. Returns false when the downstream
// pipe is closed.
func (s *streamState) handleLine(line string) bool {
	if line == "" {
		return true
	}
	if value, ok := strings.CutPrefix(line, "event:"); ok {
		s.currentEvent = strings.TrimSpace(value)
		return true
	}
	payload, ok := strings.CutPrefix(line, "data:")
	if !ok {
		return true
	}
	payload = strings.TrimSpace(payload)

	if payload == streaming.Done {
		if !s.sentDone {
			if !s.write(streaming.DoneFrame) {
				return false
			}
			s.sentDone = true
		}
		return true
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(payload), &data); err != nil {
		return true
	}

	switch s.currentEvent {
	case "message_start":
		if message, ok := data["message"].(map[string]any); ok {
			if id, ok := message["id"].(string); ok {
				s.messageID = id
			}
			if model, ok := message["model"].(string); ok {
				s.model = model
			}
		}
	case "message_delta":
		if delta, ok := data["delta"].(map[string]any); ok {
			if reason, ok := delta["stop_reason"].(string); ok {
				s.finishReason = mapStopReason(reason)
			}
		}
	case "content_block_delta":
		delta, _ := data["delta"].(map[string]any)
		text, _ := delta["text"].(string)
		if text == "" {
			return true
		}
		if !s.sentRole {
			if !s.emitChunk(models.Delta{Role: "assistant"}, nil) {
				return false
			}
			s.sentRole = true
		}
		return s.emitChunk(models.Delta{Content: text}, nil)
	case "message_stop":
		return s.emitTerminal()
	}
	return true
}

// emitTerminal writes the final chunk and the [DONE] marker.
func (s *streamState) emitTerminal() bool {
	reason := s.finishReason
	if !s.emitChunk(models.Delta{}, &reason) {
		return false
	}
	if !s.write(streaming.DoneFrame) {
		return false
	}
	s.sentDone = true
	return true
}

func (s *streamState) emitChunk(delta models.Delta, finishReason *string) bool {
	chunk := models.Chunk{
		ID:      s.messageID,
		Object:  "chat.completion.chunk",
		Created: s.created,
		Model:   s.model,
		Choices: []models.ChunkChoice{
			{Index: 0, Delta: delta, FinishReason: finishReason},
		},
	}
	encoded, err := json.Marshal(chunk)
	if err != nil {
		return true
	}
	return s.write(fmt.Sprintf("data: %s\n\n", encoded))
}

func (s *streamState) write(frame string) bool {
	_, err := s.pw.Write([]byte(frame))
	return err == nil
}
