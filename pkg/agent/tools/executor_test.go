package tools

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gagent-dev/gagent/pkg/agent/transcript"
)

// fakeTool is a configurable test tool.
type fakeTool struct {
	name   string
	output string
	err    error
	delay  time.Duration
	panics bool
}

func (f *fakeTool) Name() string        { return f.name }
func (f *fakeTool) Description() string { return "test tool" }
func (f *fakeTool) Schema() map[string]interface{} {
	return map[string]interface{}{"type": "object", "properties": map[string]interface{}{}}
}

func (f *fakeTool) Call(ctx context.Context, _ map[string]interface{}) (string, error) {
	if f.panics {
		panic("tool exploded")
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.output, f.err
}

func TestRegistry_RejectsDuplicateNames(t *testing.T) {
	_, err := NewRegistry(
		&fakeTool{name: "get_stock_data"},
		&fakeTool{name: "get_stock_data"},
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate tool name")
}

func TestRegistry_NamesSortedAndDefinitions(t *testing.T) {
	registry, err := NewRegistry(
		&fakeTool{name: "detect_fraud_statistical"},
		&fakeTool{name: "get_stock_data"},
		&fakeTool{name: "compare_stocks"},
	)
	require.NoError(t, err)

	assert.Equal(t, []string{"compare_stocks", "detect_fraud_statistical", "get_stock_data"}, registry.Names())

	defs := registry.Definitions()
	require.Len(t, defs, 3)
	assert.Equal(t, "compare_stocks", defs[0].Name)
	assert.NotNil(t, defs[0].Parameters)

	_, ok := registry.Get("get_stock_data")
	assert.True(t, ok)
	_, ok = registry.Get("nonexistent")
	assert.False(t, ok)
}

func TestExecutor_SuccessfulCall(t *testing.T) {
	registry, err := NewRegistry(&fakeTool{name: "get_stock_data", output: "price data"})
	require.NoError(t, err)
	executor := NewExecutor(registry, time.Second, nil)

	result := executor.Execute(context.Background(), transcript.ToolCallRequest{
		ID:   "call_1",
		Name: "get_stock_data",
	})

	assert.Equal(t, "call_1", result.CallID)
	assert.Equal(t, "price data", result.Output)
	assert.False(t, result.Failed())
}

func TestExecutor_UnknownTool(t *testing.T) {
	registry, err := NewRegistry()
	require.NoError(t, err)
	executor := NewExecutor(registry, time.Second, nil)

	result := executor.Execute(context.Background(), transcript.ToolCallRequest{
		ID:   "call_1",
		Name: "missing_tool",
	})

	assert.True(t, result.Failed())
	assert.Equal(t, "unknown tool: missing_tool", result.Error)
}

func TestExecutor_ToolError(t *testing.T) {
	registry, err := NewRegistry(&fakeTool{name: "broken", err: errors.New("provider unavailable")})
	require.NoError(t, err)
	executor := NewExecutor(registry, time.Second, nil)

	result := executor.Execute(context.Background(), transcript.ToolCallRequest{ID: "c", Name: "broken"})
	assert.True(t, result.Failed())
	assert.Equal(t, "provider unavailable", result.Error)
}

func TestExecutor_Timeout(t *testing.T) {
	registry, err := NewRegistry(&fakeTool{name: "slow", delay: 200 * time.Millisecond})
	require.NoError(t, err)
	executor := NewExecutor(registry, 20*time.Millisecond, nil)

	result := executor.Execute(context.Background(), transcript.ToolCallRequest{ID: "c", Name: "slow"})
	assert.True(t, result.Failed())
	assert.Contains(t, result.Error, "timed out after")
}

func TestExecutor_PanicIsCaptured(t *testing.T) {
	registry, err := NewRegistry(&fakeTool{name: "bomb", panics: true})
	require.NoError(t, err)
	executor := NewExecutor(registry, time.Second, nil)

	result := executor.Execute(context.Background(), transcript.ToolCallRequest{ID: "c", Name: "bomb"})
	assert.True(t, result.Failed())
	assert.Contains(t, result.Error, "panicked")
}

func TestExecutor_ZeroTimeoutUsesDefault(t *testing.T) {
	registry, err := NewRegistry(&fakeTool{name: "quick", output: "ok"})
	require.NoError(t, err)
	executor := NewExecutor(registry, 0, nil)

	assert.Equal(t, DefaultTimeout, executor.timeout)
}
