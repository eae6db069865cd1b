package llm

import (
	"context"
	"encoding/json"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/gagent-dev/gagent/pkg/agent/config"
	apperrors "github.com/gagent-dev/gagent/pkg/agent/errors"
	"github.com/gagent-dev/gagent/pkg/agent/transcript"
)

// AnthropicClient implements the Client interface for Anthropic
type AnthropicClient struct {
	client *anthropic.Client
	config *config.AnthropicConfig
}

// NewAnthropicClient creates a new Anthropic client
func NewAnthropicClient(cfg *config.AnthropicConfig) (*AnthropicClient, error) {
	if cfg == nil {
		return nil, apperrors.New(apperrors.ErrCodeAgentConfig, "Anthropic config is required", nil)
	}

	opts := []option.RequestOption{}

	if cfg.APIKey != nil && *cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(*cfg.APIKey))
	}

	client := anthropic.NewClient(opts...)

	return &AnthropicClient{
		client: client,
		config: cfg,
	}, nil
}

// Generate sends the transcript and receives one complete response.
func (c *AnthropicClient) Generate(ctx context.Context, turns []transcript.Turn, genConfig *GenerateConfig) (*Response, error) {
	params := c.buildParams(turns, genConfig)

	message, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, &InvocationError{
			Provider:    config.ProviderAnthropic,
			Message:     "message request failed",
			Recoverable: true,
			Cause:       err,
		}
	}

	return c.convertResponse(message), nil
}

// GenerateStream sends the transcript and streams the response incrementally.
func (c *AnthropicClient) GenerateStream(ctx context.Context, turns []transcript.Turn, genConfig *GenerateConfig) (<-chan *StreamChunk, error) {
	params := c.buildParams(turns, genConfig)

	stream := c.client.Messages.NewStreaming(ctx, params)

	chunks := make(chan *StreamChunk, 10)

	go func() {
		defer close(chunks)

		var message anthropic.Message
		for stream.Next() {
			event := stream.Current()
			message.Accumulate(event)

			if text, ok := textDelta(event); ok {
				if !sendChunk(ctx, chunks, &StreamChunk{Type: ChunkTypeTextDelta, TextDelta: text}) {
					return
				}
			}
		}

		if err := stream.Err(); err != nil {
			sendChunk(ctx, chunks, &StreamChunk{Type: ChunkTypeError, Err: &InvocationError{
				Provider:    config.ProviderAnthropic,
				Message:     "streaming message failed",
				Recoverable: true,
				Cause:       err,
			}})
			return
		}

		sendChunk(ctx, chunks, &StreamChunk{Type: ChunkTypeComplete, Response: c.convertResponse(&message)})
	}()

	return chunks, nil
}

// SupportsTools returns whether this client supports tool calling
func (c *AnthropicClient) SupportsTools() bool {
	return true
}

// ModelName returns the name of the model being used
func (c *AnthropicClient) ModelName() string {
	return c.config.Model
}

func (c *AnthropicClient) buildParams(turns []transcript.Turn, genConfig *GenerateConfig) anthropic.MessageNewParams {
	messages, system := c.convertTurns(turns)

	params := anthropic.MessageNewParams{
		Model:    anthropic.F(c.config.Model),
		Messages: anthropic.F(messages),
	}

	// Anthropic requires max_tokens.
	maxTokens := 4096
	if genConfig != nil && genConfig.MaxTokens != nil {
		maxTokens = *genConfig.MaxTokens
	} else if c.config.MaxTokens != nil {
		maxTokens = *c.config.MaxTokens
	}
	params.MaxTokens = anthropic.Int(int64(maxTokens))

	if genConfig != nil {
		if genConfig.Temperature != nil {
			params.Temperature = anthropic.Float(*genConfig.Temperature)
		} else if c.config.Temperature != nil {
			params.Temperature = anthropic.Float(*c.config.Temperature)
		}

		if genConfig.TopP != nil {
			params.TopP = anthropic.Float(*genConfig.TopP)
		} else if c.config.TopP != nil {
			params.TopP = anthropic.Float(*c.config.TopP)
		}

		if genConfig.TopK != nil && SupportsParam(config.ProviderAnthropic, ParamTopK) {
			params.TopK = anthropic.Int(int64(*genConfig.TopK))
		} else if c.config.TopK != nil {
			params.TopK = anthropic.Int(int64(*c.config.TopK))
		}

		if len(genConfig.StopSequences) > 0 {
			params.StopSequences = anthropic.F(genConfig.StopSequences)
		}

		if len(genConfig.Tools) > 0 {
			params.Tools = anthropic.F(c.convertTools(genConfig.Tools))
		}
	}

	if system != "" {
		params.System = anthropic.F([]anthropic.TextBlockParam{
			anthropic.NewTextBlock(system),
		})
	}

	return params
}

func (c *AnthropicClient) convertTurns(turns []transcript.Turn) ([]anthropic.MessageParam, string) {
	var result []anthropic.MessageParam
	var system string

	for _, turn := range turns {
		switch turn.Role {
		case transcript.RoleSystem:
			system = turn.Content
		case transcript.RoleUser:
			result = append(result, anthropic.NewUserMessage(anthropic.NewTextBlock(turn.Content)))
		case transcript.RoleAssistant:
			var blocks []anthropic.ContentBlockParamUnion
			if turn.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(turn.Content))
			}
			for _, call := range turn.ToolCalls {
				blocks = append(blocks, anthropic.NewToolUseBlockParam(call.ID, call.Name, call.Arguments))
			}
			if len(blocks) > 0 {
				result = append(result, anthropic.NewAssistantMessage(blocks...))
			}
		case transcript.RoleTool:
			if turn.ToolResult == nil {
				continue
			}
			content := turn.ToolResult.Output
			if turn.ToolResult.Failed() {
				content = turn.ToolResult.Error
			}
			result = append(result, anthropic.NewUserMessage(
				anthropic.NewToolResultBlock(turn.ToolResult.CallID, content, turn.ToolResult.Failed()),
			))
		}
	}

	return result, system
}

// textDelta extracts the text of a content-block-delta event. The event's
// Delta field is untyped on the wire.
func textDelta(event anthropic.MessageStreamEvent) (string, bool) {
	if event.Type != anthropic.MessageStreamEventTypeContentBlockDelta {
		return "", false
	}
	delta, ok := event.Delta.(anthropic.ContentBlockDeltaEventDelta)
	if !ok || delta.Type != anthropic.ContentBlockDeltaEventDeltaTypeTextDelta || delta.Text == "" {
		return "", false
	}
	return delta.Text, true
}

func (c *AnthropicClient) convertTools(tools []ToolDefinition) []anthropic.ToolUnionUnionParam {
	var result []anthropic.ToolUnionUnionParam

	for _, tool := range tools {
		params := anthropic.ToolParam{
			Name:        anthropic.F(tool.Name),
			Description: anthropic.F(tool.Description),
		}

		if tool.Parameters != nil {
			params.InputSchema = anthropic.F(interface{}(tool.Parameters))
		}

		result = append(result, params)
	}

	return result
}

func (c *AnthropicClient) convertResponse(message *anthropic.Message) *Response {
	response := &Response{
		Usage: &Usage{
			InputTokens:  int(message.Usage.InputTokens),
			OutputTokens: int(message.Usage.OutputTokens),
			TotalTokens:  int(message.Usage.InputTokens + message.Usage.OutputTokens),
		},
	}

	for _, content := range message.Content {
		switch content.Type {
		case anthropic.ContentBlockTypeText:
			response.Text += content.Text

		case anthropic.ContentBlockTypeToolUse:
			var args map[string]interface{}
			if raw, err := json.Marshal(content.Input); err == nil {
				json.Unmarshal(raw, &args)
			}
			response.ToolCalls = append(response.ToolCalls, transcript.ToolCallRequest{
				ID:        content.ID,
				Name:      content.Name,
				Arguments: args,
			})
		}
	}

	return response
}
