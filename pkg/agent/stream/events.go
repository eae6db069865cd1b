// Package stream defines the typed progress events the execution loop emits
// and their wire encoding for the chat transport.
package stream

import (
	"context"
	"time"
)

// Kind classifies a stream event.
type Kind string

const (
	KindThinking      Kind = "thinking"
	KindToolStarted   Kind = "tool-started"
	KindToolFinished  Kind = "tool-finished"
	KindAssistantText Kind = "assistant-text"
	KindError         Kind = "error"
	KindDone          Kind = "done"
)

// Event is one unit of observable progress within a stream. Sequence is
// strictly increasing per stream with no gaps.
type Event struct {
	Kind      Kind                   `json:"kind"`
	Content   string                 `json:"content"`
	SessionID string                 `json:"session_id,omitempty"`
	Sequence  int64                  `json:"sequence_id"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// Emitter stamps events with the stream's session id, a monotonic sequence
// number, and a timestamp, then delivers them to the transport channel.
// Delivery respects context cancellation so a disconnected client never
// blocks the loop. An Emitter belongs to exactly one stream goroutine.
type Emitter struct {
	sessionID string
	ch        chan<- Event
	seq       int64
	now       func() time.Time
}

// NewEmitter creates an emitter for one stream.
func NewEmitter(sessionID string, ch chan<- Event) *Emitter {
	return &Emitter{
		sessionID: sessionID,
		ch:        ch,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Emit delivers one event, assigning session id, sequence, and timestamp.
// It returns the context error if the stream was cancelled before delivery.
func (e *Emitter) Emit(ctx context.Context, event Event) error {
	if event.SessionID == "" {
		event.SessionID = e.sessionID
	}
	e.seq++
	event.Sequence = e.seq
	if event.Timestamp.IsZero() {
		event.Timestamp = e.now()
	}

	select {
	case e.ch <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Thinking emits a processing notification.
func (e *Emitter) Thinking(ctx context.Context, content string) error {
	return e.Emit(ctx, Event{Kind: KindThinking, Content: content})
}

// AssistantText emits one chunk of assistant response text.
func (e *Emitter) AssistantText(ctx context.Context, text string) error {
	return e.Emit(ctx, Event{Kind: KindAssistantText, Content: text})
}

// ToolStarted emits a tool-execution start notification.
func (e *Emitter) ToolStarted(ctx context.Context, toolName string, args map[string]interface{}) error {
	return e.Emit(ctx, Event{
		Kind:    KindToolStarted,
		Content: "Executing tool " + toolName,
		Metadata: map[string]interface{}{
			"tool_name":        toolName,
			"tool_input":       args,
			"execution_status": "starting",
		},
	})
}

// ToolFinished emits a tool completion notification. A non-empty errMessage
// marks the execution as failed and carries the failure to the client.
func (e *Emitter) ToolFinished(ctx context.Context, toolName, callID, result, errMessage string) error {
	status := "completed"
	content := "Tool " + toolName + " completed successfully"
	if errMessage != "" {
		status = "failed"
		content = "Tool " + toolName + " failed"
	}
	return e.Emit(ctx, Event{
		Kind:    KindToolFinished,
		Content: content,
		Metadata: map[string]interface{}{
			"tool_name":        toolName,
			"call_id":          callID,
			"result":           result,
			"error_message":    errMessage,
			"execution_status": status,
		},
	})
}

// Error emits an error event. Recoverable hints whether retrying the request
// could succeed.
func (e *Emitter) Error(ctx context.Context, content, code string, recoverable bool) error {
	return e.Emit(ctx, Event{
		Kind:    KindError,
		Content: content,
		Metadata: map[string]interface{}{
			"error_code":  code,
			"recoverable": recoverable,
		},
	})
}

// Done emits the stream-terminating completion event.
func (e *Emitter) Done(ctx context.Context) error {
	return e.Emit(ctx, Event{Kind: KindDone})
}

// Accumulator collects assistant-text event content so the final response
// can be persisted after the stream closes.
type Accumulator struct {
	parts []string
}

// Observe records an event; only assistant-text content accumulates.
func (a *Accumulator) Observe(event Event) {
	if event.Kind == KindAssistantText && event.Content != "" {
		a.parts = append(a.parts, event.Content)
	}
}

// Text returns the accumulated assistant response.
func (a *Accumulator) Text() string {
	var out string
	for _, p := range a.parts {
		out += p
	}
	return out
}
