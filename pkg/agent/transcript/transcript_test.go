package transcript

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_SeedsSystemTurn(t *testing.T) {
	tr := New("You are a financial advisor.")

	turns := tr.Turns()
	require.Len(t, turns, 1)
	assert.Equal(t, RoleSystem, turns[0].Role)
	assert.Equal(t, "You are a financial advisor.", turns[0].Content)
}

func TestNew_EmptyPromptCreatesEmptyTranscript(t *testing.T) {
	tr := New("")
	assert.Empty(t, tr.Turns())
}

func TestAppend_RejectsSecondSystemTurn(t *testing.T) {
	tr := New("system prompt")

	err := tr.Append(SystemTurn("another system prompt"))
	require.Error(t, err)
	assert.Len(t, tr.Turns(), 1)
}

func TestAppend_PreservesOrder(t *testing.T) {
	tr := New("sys")
	require.NoError(t, tr.Append(UserTurn("first question")))
	require.NoError(t, tr.Append(AssistantTurn("first answer")))
	require.NoError(t, tr.Append(UserTurn("second question")))

	turns := tr.Turns()
	require.Len(t, turns, 4)
	assert.Equal(t, RoleUser, turns[1].Role)
	assert.Equal(t, "first question", turns[1].Content)
	assert.Equal(t, RoleAssistant, turns[2].Role)
	assert.Equal(t, RoleUser, turns[3].Role)
}

func TestTurns_ReturnsCopy(t *testing.T) {
	tr := New("sys")
	require.NoError(t, tr.Append(UserTurn("hello")))

	turns := tr.Turns()
	turns[0].Content = "mutated"

	assert.Equal(t, "sys", tr.Turns()[0].Content)
}

func TestPendingToolCalls(t *testing.T) {
	tr := New("sys")
	require.NoError(t, tr.Append(UserTurn("compare AAPL and MSFT")))

	calls := []ToolCallRequest{
		{ID: "call_1", Name: "get_stock_data", Arguments: map[string]interface{}{"symbol": "AAPL"}},
		{ID: "call_2", Name: "get_stock_data", Arguments: map[string]interface{}{"symbol": "MSFT"}},
	}
	require.NoError(t, tr.Append(AssistantToolCallTurn("Let me look both up.", calls)))

	assert.True(t, tr.HasPendingToolCalls())
	pending := tr.PendingToolCalls()
	require.Len(t, pending, 2)

	require.NoError(t, tr.Append(ToolResultTurn(ToolResult{CallID: "call_1", Name: "get_stock_data", Output: "$150"})))
	pending = tr.PendingToolCalls()
	require.Len(t, pending, 1)
	assert.Equal(t, "call_2", pending[0].ID)

	require.NoError(t, tr.Append(ToolResultTurn(ToolResult{CallID: "call_2", Name: "get_stock_data", Error: "timeout"})))
	assert.False(t, tr.HasPendingToolCalls())
	assert.Empty(t, tr.PendingToolCalls())
}

func TestFinalAssistantText_SkipsToolCallTurns(t *testing.T) {
	tr := New("sys")
	require.NoError(t, tr.Append(UserTurn("question")))
	require.NoError(t, tr.Append(AssistantToolCallTurn("", []ToolCallRequest{{ID: "c1", Name: "tool"}})))
	require.NoError(t, tr.Append(ToolResultTurn(ToolResult{CallID: "c1", Name: "tool", Output: "data"})))
	require.NoError(t, tr.Append(AssistantTurn("the final answer")))

	assert.Equal(t, "the final answer", tr.FinalAssistantText())
}

func TestToolResult_Failed(t *testing.T) {
	assert.False(t, ToolResult{Output: "ok"}.Failed())
	assert.True(t, ToolResult{Error: "boom"}.Failed())
}

func TestClone_IsIndependent(t *testing.T) {
	tr := New("sys")
	require.NoError(t, tr.Append(UserTurn("hello")))

	clone := tr.Clone()
	require.NoError(t, clone.Append(AssistantTurn("reply")))

	assert.Len(t, tr.Turns(), 2)
	assert.Len(t, clone.Turns(), 3)
}
