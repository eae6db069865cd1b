package stream

import (
	"encoding/json"
	"fmt"
	"time"
)

// Wire event types, matching the frame contract the chat UI consumes.
const (
	WireTypeThinking          = "thinking"
	WireTypeToolExecution     = "tool_execution"
	WireTypeAssistantResponse = "assistant_response"
	WireTypeError             = "error"
	WireTypeDone              = "done"
)

// wireFrame is the JSON payload of one SSE data frame.
type wireFrame struct {
	Type       string                 `json:"type"`
	Content    string                 `json:"content"`
	SessionID  string                 `json:"session_id"`
	Timestamp  *string                `json:"timestamp"`
	Metadata   map[string]interface{} `json:"metadata"`
	SequenceID int64                  `json:"sequence_id"`
}

// WireType maps an internal event kind to its wire frame type. Tool start
// and finish share one wire type, distinguished by metadata.execution_status.
func WireType(kind Kind) string {
	switch kind {
	case KindThinking:
		return WireTypeThinking
	case KindToolStarted, KindToolFinished:
		return WireTypeToolExecution
	case KindAssistantText:
		return WireTypeAssistantResponse
	case KindError:
		return WireTypeError
	case KindDone:
		return WireTypeDone
	default:
		return string(kind)
	}
}

// EncodeSSE renders one event as a server-sent-events data frame:
// a "data: " prefix, the JSON payload, and a blank-line terminator.
func EncodeSSE(event Event) ([]byte, error) {
	frame := wireFrame{
		Type:       WireType(event.Kind),
		Content:    event.Content,
		SessionID:  event.SessionID,
		Metadata:   event.Metadata,
		SequenceID: event.Sequence,
	}
	if frame.Metadata == nil {
		frame.Metadata = map[string]interface{}{}
	}
	if !event.Timestamp.IsZero() {
		ts := event.Timestamp.UTC().Format(time.RFC3339Nano)
		frame.Timestamp = &ts
	}

	payload, err := json.Marshal(frame)
	if err != nil {
		return nil, fmt.Errorf("failed to encode stream event: %w", err)
	}

	out := make([]byte, 0, len(payload)+8)
	out = append(out, "data: "...)
	out = append(out, payload...)
	out = append(out, "\n\n"...)
	return out, nil
}

// KeepAliveFrame is an SSE comment frame, ignored by clients, sent when the
// loop has produced no event for a while so proxies keep the connection open.
func KeepAliveFrame() []byte {
	return []byte(": keep-alive\n\n")
}
