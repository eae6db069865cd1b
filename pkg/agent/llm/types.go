package llm

import (
	"context"
	"fmt"

	"github.com/gagent-dev/gagent/pkg/agent/transcript"
)

// Client defines the interface for model-provider clients.
type Client interface {
	// Generate sends the transcript and receives one complete response.
	Generate(ctx context.Context, turns []transcript.Turn, config *GenerateConfig) (*Response, error)

	// GenerateStream sends the transcript and streams the response
	// incrementally. The channel is closed after the final chunk.
	GenerateStream(ctx context.Context, turns []transcript.Turn, config *GenerateConfig) (<-chan *StreamChunk, error)

	// SupportsTools returns whether this client supports tool calling
	SupportsTools() bool

	// ModelName returns the name of the model being used
	ModelName() string
}

// GenerateConfig contains per-call generation configuration.
type GenerateConfig struct {
	Temperature   *float64         `json:"temperature,omitempty"`
	MaxTokens     *int             `json:"max_tokens,omitempty"`
	TopP          *float64         `json:"top_p,omitempty"`
	TopK          *int             `json:"top_k,omitempty"`
	StopSequences []string         `json:"stop_sequences,omitempty"`
	Tools         []ToolDefinition `json:"tools,omitempty"`
}

// Response represents one complete model response. Text and ToolCalls may
// both be present; a response with any tool call is treated as a tool-call
// response and its text is surfaced as commentary.
type Response struct {
	Text      string                       `json:"text,omitempty"`
	ToolCalls []transcript.ToolCallRequest `json:"tool_calls,omitempty"`
	Usage     *Usage                       `json:"usage,omitempty"`
}

// HasToolCalls reports whether the response requests tool execution.
func (r *Response) HasToolCalls() bool {
	return len(r.ToolCalls) > 0
}

// StreamChunkType represents the type of streaming chunk.
type StreamChunkType string

const (
	ChunkTypeTextDelta StreamChunkType = "text_delta"
	ChunkTypeComplete  StreamChunkType = "complete"
	ChunkTypeError     StreamChunkType = "error"
)

// StreamChunk is one unit of a streamed response. TextDelta chunks carry
// incremental text; the Complete chunk carries the assembled Response;
// an Error chunk terminates the stream.
type StreamChunk struct {
	Type      StreamChunkType `json:"type"`
	TextDelta string          `json:"text_delta,omitempty"`
	Response  *Response       `json:"response,omitempty"`
	Err       error           `json:"-"`
}

// sendChunk delivers a chunk unless the context is done, so a producer
// goroutine never blocks on a consumer that stopped receiving. It reports
// whether the chunk was delivered.
func sendChunk(ctx context.Context, ch chan<- *StreamChunk, chunk *StreamChunk) bool {
	select {
	case ch <- chunk:
		return true
	case <-ctx.Done():
		return false
	}
}

// Usage represents token usage information
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// ToolDefinition describes a tool the model may call. Parameters is a JSON
// Schema object.
type ToolDefinition struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

// InvocationError signals a failed model invocation: transport error,
// provider-reported error, or an unparseable response. Recoverable hints
// whether a retry could succeed (rate limits, transient network faults).
type InvocationError struct {
	Provider    string
	Message     string
	Recoverable bool
	Cause       error
}

func (e *InvocationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s invocation failed: %s: %v", e.Provider, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s invocation failed: %s", e.Provider, e.Message)
}

func (e *InvocationError) Unwrap() error {
	return e.Cause
}
