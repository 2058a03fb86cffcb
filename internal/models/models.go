// Package models defines the canonical request and response shapes exchanged
// between handlers and provider adapters. The canonical dialect is the
// OpenAI chat-completion contract; unknown client fields must survive the
// trip upstream, so requests stay as raw JSON objects with typed accessors.
package models

// ChatRequest is a canonical chat-completion request body. It is kept as a
// raw object so that fields the gateway does not understand pass through to
// the upstream unchanged.
type ChatRequest map[string]any

// Model returns the model field, if present as a string.
func (r ChatRequest) Model() (string, bool) {
	model, ok := r["model"].(string)
	return model, ok
}

// SetModel overwrites the model field.
func (r ChatRequest) SetModel(model string) {
	r["model"] = model
}

// Messages returns the messages field, if present as an array.
func (r ChatRequest) Messages() ([]any, bool) {
	messages, ok := r["messages"].([]any)
	return messages, ok
}

// Stream reports whether the request asks for a streaming response.
func (r ChatRequest) Stream() bool {
	stream, _ := r["stream"].(bool)
	return stream
}

// SetStream overwrites the stream flag.
func (r ChatRequest) SetStream(stream bool) {
	r["stream"] = stream
}

// Clone returns a shallow copy. Nested values are shared; callers that
// mutate nested structures must copy them first.
func (r ChatRequest) Clone() ChatRequest {
	out := make(ChatRequest, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Message is a single canonical chat message.
type Message struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

// Usage is the canonical token accounting block.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatChoice is one completion choice in a buffered response.
type ChatChoice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
	Logprobs     any     `json:"logprobs"`
}

// ChatCompletion is a canonical buffered chat-completion response.
type ChatCompletion struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Created int64        `json:"created"`
	Model   string       `json:"model"`
	Choices []ChatChoice `json:"choices"`
	Usage   Usage        `json:"usage"`
}

// Delta is the incremental content of a streaming chunk.
type Delta struct {
	Role    string `json:"role,omitempty"`
	Content string `json:"content,omitempty"`
}

// ChunkChoice is one choice within a streaming chunk.
type ChunkChoice struct {
	Index        int     `json:"index"`
	Delta        Delta   `json:"delta"`
	FinishReason *string `json:"finish_reason"`
}

// Chunk is a canonical chat-completion streaming chunk.
type Chunk struct {
	ID      string        `json:"id"`
	Object  string        `json:"object"`
	Created int64         `json:"created"`
	Model   string        `json:"model"`
	Choices []ChunkChoice `json:"choices"`
}

// ModelEntry is one entry of a canonical model list.
type ModelEntry struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	OwnedBy string `json:"owned_by"`
}

// ModelList is the canonical model listing shape.
type ModelList struct {
	Object string       `json:"object"`
	Data   []ModelEntry `json:"data"`
}
