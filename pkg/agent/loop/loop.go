// Package loop implements the agent's streaming execution loop: a state
// machine that alternates model invocations and tool executions against an
// append-only transcript, emitting typed progress events as it goes.
package loop

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	apperrors "github.com/gagent-dev/gagent/pkg/agent/errors"
	"github.com/gagent-dev/gagent/pkg/agent/llm"
	"github.com/gagent-dev/gagent/pkg/agent/stream"
	"github.com/gagent-dev/gagent/pkg/agent/tools"
	"github.com/gagent-dev/gagent/pkg/agent/transcript"
)

// DefaultMaxIterations caps model round trips per stream so a model that
// keeps requesting tools cannot loop forever.
const DefaultMaxIterations = 10

// State identifies where the loop is in its cycle.
type State int

const (
	StateAwaitingModel State = iota
	StateAwaitingTools
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateAwaitingModel:
		return "awaiting_model"
	case StateAwaitingTools:
		return "awaiting_tools"
	case StateTerminated:
		return "terminated"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Result summarizes one completed run.
type Result struct {
	State State
	// FinalText is the accumulated plain assistant text produced during
	// this run, for session persistence.
	FinalText string
	// NewTurns are the turns appended to the transcript by this run, in
	// order.
	NewTurns []transcript.Turn
	// Rounds counts completed model invocations.
	Rounds int
}

// Loop drives the tool-use cycle to completion.
type Loop struct {
	model         llm.Client
	executor      *tools.Executor
	registry      *tools.Registry
	maxIterations int
	genConfig     *llm.GenerateConfig
	logger        *zap.Logger
}

// Option configures a Loop.
type Option func(*Loop)

// WithMaxIterations overrides the round-trip cap.
func WithMaxIterations(n int) Option {
	return func(l *Loop) {
		if n > 0 {
			l.maxIterations = n
		}
	}
}

// WithGenerateConfig sets the per-call generation config passed to the model.
func WithGenerateConfig(cfg *llm.GenerateConfig) Option {
	return func(l *Loop) {
		l.genConfig = cfg
	}
}

// WithLogger sets the loop's logger.
func WithLogger(logger *zap.Logger) Option {
	return func(l *Loop) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// New creates a Loop over a model client, a tool executor, and the registry
// whose definitions are advertised to the model.
func New(model llm.Client, executor *tools.Executor, registry *tools.Registry, opts ...Option) *Loop {
	l := &Loop{
		model:         model,
		executor:      executor,
		registry:      registry,
		maxIterations: DefaultMaxIterations,
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Run executes the loop against the transcript until termination, emitting
// progress events through the emitter. The transcript must already contain
// the newest user turn. Turns appended before a cancellation or failure
// remain valid.
//
// Event contract: assistant text is emitted incrementally as the model
// produces it; every requested tool call yields one tool-started and one
// tool-finished event (failures included); a successful run ends with
// exactly one done event; a fatal failure ends with exactly one error event
// and no done event.
func (l *Loop) Run(ctx context.Context, tr *transcript.Transcript, emitter *stream.Emitter) (*Result, error) {
	result := &Result{State: StateAwaitingModel}

	defs := l.registry.Definitions()
	genConfig := l.genConfig
	if genConfig == nil {
		genConfig = &llm.GenerateConfig{}
	}
	cfg := *genConfig
	cfg.Tools = defs

	for iteration := 0; ; iteration++ {
		if err := ctx.Err(); err != nil {
			result.State = StateTerminated
			return result, err
		}

		if iteration >= l.maxIterations {
			l.logger.Warn("iteration cap reached", zap.Int("max_iterations", l.maxIterations))
			result.State = StateTerminated
			capErr := apperrors.New(apperrors.ErrCodeIterationLimit,
				fmt.Sprintf("model did not converge within %d tool round trips", l.maxIterations), nil)
			emitter.Error(ctx, capErr.Message, capErr.Code, false)
			return result, capErr
		}

		// AwaitingModel: invoke the model, streaming text as it arrives.
		response, err := l.invokeModel(ctx, tr, &cfg, emitter)
		if err != nil {
			result.State = StateTerminated
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return result, err
			}
			recoverable := false
			var invErr *llm.InvocationError
			if errors.As(err, &invErr) {
				recoverable = invErr.Recoverable
			}
			l.logger.Error("model invocation failed", zap.Error(err))
			emitter.Error(ctx, err.Error(), apperrors.ErrCodeModelInvocation, recoverable)
			return result, apperrors.New(apperrors.ErrCodeModelInvocation, "model invocation failed", err)
		}
		result.Rounds++

		if !response.HasToolCalls() {
			// Terminal: a plain text answer.
			turn := transcript.AssistantTurn(response.Text)
			if err := l.append(tr, result, turn); err != nil {
				result.State = StateTerminated
				return result, err
			}
			result.FinalText += response.Text
			result.State = StateTerminated
			if err := emitter.Done(ctx); err != nil {
				return result, err
			}
			l.logger.Debug("loop terminated", zap.Int("rounds", result.Rounds))
			return result, nil
		}

		// AwaitingTools: the assistant turn, including its tool calls and
		// any commentary, is appended before any tool runs.
		result.State = StateAwaitingTools
		turn := transcript.AssistantToolCallTurn(response.Text, response.ToolCalls)
		if err := l.append(tr, result, turn); err != nil {
			result.State = StateTerminated
			return result, err
		}
		result.FinalText += response.Text

		for _, call := range response.ToolCalls {
			if err := emitter.ToolStarted(ctx, call.Name, call.Arguments); err != nil {
				result.State = StateTerminated
				return result, err
			}
		}

		// Every requested call is resolved before the next model
		// invocation; failures become error-bearing results, never aborts.
		for _, call := range response.ToolCalls {
			if err := ctx.Err(); err != nil {
				result.State = StateTerminated
				return result, err
			}

			toolResult := l.executor.Execute(ctx, call)
			if err := l.append(tr, result, transcript.ToolResultTurn(toolResult)); err != nil {
				result.State = StateTerminated
				return result, err
			}
			if err := emitter.ToolFinished(ctx, call.Name, call.ID, toolResult.Output, toolResult.Error); err != nil {
				result.State = StateTerminated
				return result, err
			}
		}

		// All results are in; back to the model so it can ground its
		// answer in the tool output.
		result.State = StateAwaitingModel
	}
}

// invokeModel streams one model response, emitting text deltas as they
// arrive, and returns the assembled response.
func (l *Loop) invokeModel(ctx context.Context, tr *transcript.Transcript, cfg *llm.GenerateConfig, emitter *stream.Emitter) (*llm.Response, error) {
	chunks, err := l.model.GenerateStream(ctx, tr.Turns(), cfg)
	if err != nil {
		return nil, err
	}

	var response *llm.Response
	for chunk := range chunks {
		switch chunk.Type {
		case llm.ChunkTypeTextDelta:
			if chunk.TextDelta == "" {
				continue
			}
			if err := emitter.AssistantText(ctx, chunk.TextDelta); err != nil {
				return nil, err
			}
		case llm.ChunkTypeComplete:
			response = chunk.Response
		case llm.ChunkTypeError:
			return nil, chunk.Err
		}
	}

	if response == nil {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, &llm.InvocationError{
			Provider: l.model.ModelName(),
			Message:  "stream ended without a complete response",
		}
	}
	return response, nil
}

func (l *Loop) append(tr *transcript.Transcript, result *Result, turn transcript.Turn) error {
	if err := tr.Append(turn); err != nil {
		return err
	}
	result.NewTurns = append(result.NewTurns, turn)
	return nil
}
