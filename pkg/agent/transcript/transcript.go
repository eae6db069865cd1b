// Package transcript holds the append-only conversation state the agent
// loop operates on. Turns are never mutated after they are appended.
package transcript

import (
	"time"

	apperrors "github.com/gagent-dev/gagent/pkg/agent/errors"
)

// Role identifies the author of a turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCallRequest is a structured request, produced by the model, to invoke
// one named tool with arguments. ID correlates the eventual result.
type ToolCallRequest struct {
	ID        string                 `json:"id"`
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

// ToolResult is the outcome of executing one ToolCallRequest.
// Error is non-empty iff the tool failed.
type ToolResult struct {
	CallID string `json:"call_id"`
	Name   string `json:"name"`
	Output string `json:"output,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Failed reports whether the tool call ended in an error.
func (r ToolResult) Failed() bool {
	return r.Error != ""
}

// Turn is one entry in a transcript.
type Turn struct {
	Role       Role              `json:"role"`
	Content    string            `json:"content,omitempty"`
	ToolCalls  []ToolCallRequest `json:"tool_calls,omitempty"`
	ToolResult *ToolResult       `json:"tool_result,omitempty"`
	Timestamp  time.Time         `json:"timestamp"`
}

// SystemTurn builds a system-prompt turn.
func SystemTurn(content string) Turn {
	return Turn{Role: RoleSystem, Content: content, Timestamp: time.Now().UTC()}
}

// UserTurn builds a user-message turn.
func UserTurn(content string) Turn {
	return Turn{Role: RoleUser, Content: content, Timestamp: time.Now().UTC()}
}

// AssistantTurn builds a plain-text assistant turn.
func AssistantTurn(content string) Turn {
	return Turn{Role: RoleAssistant, Content: content, Timestamp: time.Now().UTC()}
}

// AssistantToolCallTurn builds an assistant turn requesting tool calls.
// Content carries any commentary the model produced alongside the calls.
func AssistantToolCallTurn(content string, calls []ToolCallRequest) Turn {
	return Turn{Role: RoleAssistant, Content: content, ToolCalls: calls, Timestamp: time.Now().UTC()}
}

// ToolResultTurn builds a tool-result turn.
func ToolResultTurn(result ToolResult) Turn {
	return Turn{Role: RoleTool, ToolResult: &result, Timestamp: time.Now().UTC()}
}

// Transcript is an ordered, append-only sequence of turns. The first turn,
// once present, is always the system turn; it is set at most once.
type Transcript struct {
	turns []Turn
}

// New creates a transcript seeded with a system turn. An empty prompt
// creates an empty transcript; a system turn may still be appended while
// the transcript is empty.
func New(systemPrompt string) *Transcript {
	t := &Transcript{}
	if systemPrompt != "" {
		t.turns = append(t.turns, SystemTurn(systemPrompt))
	}
	return t
}

// Append adds a turn to the end of the transcript. A system turn is only
// accepted as the very first turn.
func (t *Transcript) Append(turn Turn) error {
	if turn.Role == RoleSystem && len(t.turns) > 0 {
		return apperrors.New(apperrors.ErrCodeInvalidInput, "system turn must be first and set at most once", nil)
	}
	t.turns = append(t.turns, turn)
	return nil
}

// Len returns the number of turns.
func (t *Transcript) Len() int {
	return len(t.turns)
}

// Turns returns a copy of the turn sequence in insertion order.
func (t *Transcript) Turns() []Turn {
	out := make([]Turn, len(t.turns))
	copy(out, t.turns)
	return out
}

// Last returns the most recent turn, if any.
func (t *Transcript) Last() (Turn, bool) {
	if len(t.turns) == 0 {
		return Turn{}, false
	}
	return t.turns[len(t.turns)-1], true
}

// HasPendingToolCalls reports whether the most recent assistant turn
// requested tool calls that have not all been answered by tool turns yet.
func (t *Transcript) HasPendingToolCalls() bool {
	return len(t.PendingToolCalls()) > 0
}

// PendingToolCalls returns the tool calls from the most recent assistant
// turn that have no matching tool-result turn after it.
func (t *Transcript) PendingToolCalls() []ToolCallRequest {
	idx := -1
	for i := len(t.turns) - 1; i >= 0; i-- {
		if t.turns[i].Role == RoleAssistant {
			idx = i
			break
		}
	}
	if idx < 0 || len(t.turns[idx].ToolCalls) == 0 {
		return nil
	}

	answered := make(map[string]bool)
	for _, turn := range t.turns[idx+1:] {
		if turn.Role == RoleTool && turn.ToolResult != nil {
			answered[turn.ToolResult.CallID] = true
		}
	}

	var pending []ToolCallRequest
	for _, call := range t.turns[idx].ToolCalls {
		if !answered[call.ID] {
			pending = append(pending, call)
		}
	}
	return pending
}

// FinalAssistantText folds the transcript's plain-text assistant turns into
// the text to persist for the exchange.
func (t *Transcript) FinalAssistantText() string {
	var out string
	for _, turn := range t.turns {
		if turn.Role == RoleAssistant && len(turn.ToolCalls) == 0 {
			out += turn.Content
		}
	}
	return out
}

// Clone returns an independent copy of the transcript.
func (t *Transcript) Clone() *Transcript {
	return &Transcript{turns: t.Turns()}
}
