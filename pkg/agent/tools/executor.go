package tools

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/gagent-dev/gagent/pkg/agent/transcript"
)

// DefaultTimeout bounds a single tool call. Network-bound tools (market
// data) dominate, so the default is generous.
const DefaultTimeout = 30 * time.Second

// Executor dispatches tool-call requests against a registry. Every failure
// mode (unknown tool, bad arguments, tool error, timeout, panic) is reported
// inside the returned ToolResult; Execute never propagates a failure.
type Executor struct {
	registry *Registry
	timeout  time.Duration
	logger   *zap.Logger
}

// NewExecutor creates an executor over the given registry. A zero timeout
// selects DefaultTimeout.
func NewExecutor(registry *Registry, timeout time.Duration, logger *zap.Logger) *Executor {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{
		registry: registry,
		timeout:  timeout,
		logger:   logger,
	}
}

// Execute runs one tool call to completion and returns its result.
func (e *Executor) Execute(ctx context.Context, call transcript.ToolCallRequest) transcript.ToolResult {
	result := transcript.ToolResult{CallID: call.ID, Name: call.Name}

	tool, ok := e.registry.Get(call.Name)
	if !ok {
		result.Error = fmt.Sprintf("unknown tool: %s", call.Name)
		e.logger.Warn("tool call for unregistered tool", zap.String("tool", call.Name))
		return result
	}

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	output, err := e.run(callCtx, tool, call.Arguments)
	if err != nil {
		if callCtx.Err() == context.DeadlineExceeded {
			result.Error = fmt.Sprintf("tool %s timed out after %s", call.Name, e.timeout)
		} else {
			result.Error = err.Error()
		}
		e.logger.Warn("tool call failed",
			zap.String("tool", call.Name),
			zap.String("call_id", call.ID),
			zap.Error(err))
		return result
	}

	result.Output = output
	e.logger.Debug("tool call completed",
		zap.String("tool", call.Name),
		zap.String("call_id", call.ID))
	return result
}

// run isolates the tool invocation so a panicking tool surfaces as an error
// result instead of tearing down the stream.
func (e *Executor) run(ctx context.Context, tool Tool, args map[string]interface{}) (output string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tool %s panicked: %v", tool.Name(), r)
		}
	}()

	type outcome struct {
		output string
		err    error
	}
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("tool %s panicked: %v", tool.Name(), r)}
			}
		}()
		out, callErr := tool.Call(ctx, args)
		done <- outcome{output: out, err: callErr}
	}()

	select {
	case <-ctx.Done():
		// The tool goroutine may still finish; its result is discarded.
		return "", ctx.Err()
	case result := <-done:
		return result.output, result.err
	}
}
