package llm

import (
	"context"
	"encoding/json"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/gagent-dev/gagent/pkg/agent/config"
	apperrors "github.com/gagent-dev/gagent/pkg/agent/errors"
	"github.com/gagent-dev/gagent/pkg/agent/transcript"
)

// OpenAIClient implements the Client interface for OpenAI
type OpenAIClient struct {
	client *openai.Client
	config *config.OpenAIConfig
}

// NewOpenAIClient creates a new OpenAI client
func NewOpenAIClient(cfg *config.OpenAIConfig) (*OpenAIClient, error) {
	if cfg == nil {
		return nil, apperrors.New(apperrors.ErrCodeAgentConfig, "OpenAI config is required", nil)
	}

	opts := []option.RequestOption{}

	if cfg.APIKey != nil && *cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(*cfg.APIKey))
	}

	if cfg.BaseURL != nil && *cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(*cfg.BaseURL))
	}

	client := openai.NewClient(opts...)

	return &OpenAIClient{
		client: client,
		config: cfg,
	}, nil
}

// Generate sends the transcript and receives one complete response.
func (c *OpenAIClient) Generate(ctx context.Context, turns []transcript.Turn, genConfig *GenerateConfig) (*Response, error) {
	params := c.buildParams(turns, genConfig)

	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, &InvocationError{
			Provider:    config.ProviderOpenAI,
			Message:     "chat completion request failed",
			Recoverable: true,
			Cause:       err,
		}
	}
	if len(completion.Choices) == 0 {
		return nil, &InvocationError{
			Provider: config.ProviderOpenAI,
			Message:  "response contained no choices",
		}
	}

	return c.convertResponse(completion), nil
}

// GenerateStream sends the transcript and streams the response incrementally.
func (c *OpenAIClient) GenerateStream(ctx context.Context, turns []transcript.Turn, genConfig *GenerateConfig) (<-chan *StreamChunk, error) {
	params := c.buildParams(turns, genConfig)

	stream := c.client.Chat.Completions.NewStreaming(ctx, params)

	chunks := make(chan *StreamChunk, 10)

	go func() {
		defer close(chunks)

		var text string
		calls := map[int]*transcript.ToolCallRequest{}
		callArgs := map[int]string{}

		for stream.Next() {
			chunk := stream.Current()
			if len(chunk.Choices) == 0 {
				continue
			}
			delta := chunk.Choices[0].Delta

			if delta.Content != "" {
				text += delta.Content
				if !sendChunk(ctx, chunks, &StreamChunk{Type: ChunkTypeTextDelta, TextDelta: delta.Content}) {
					return
				}
			}

			// Tool calls arrive as fragments keyed by index.
			for _, tc := range delta.ToolCalls {
				idx := int(tc.Index)
				if calls[idx] == nil {
					calls[idx] = &transcript.ToolCallRequest{}
				}
				if tc.ID != "" {
					calls[idx].ID = tc.ID
				}
				if tc.Function.Name != "" {
					calls[idx].Name = tc.Function.Name
				}
				callArgs[idx] += tc.Function.Arguments
			}
		}

		if err := stream.Err(); err != nil {
			sendChunk(ctx, chunks, &StreamChunk{Type: ChunkTypeError, Err: &InvocationError{
				Provider:    config.ProviderOpenAI,
				Message:     "streaming chat completion failed",
				Recoverable: true,
				Cause:       err,
			}})
			return
		}

		response := &Response{Text: text}
		for idx := 0; idx < len(calls); idx++ {
			call := calls[idx]
			if call == nil {
				continue
			}
			var args map[string]interface{}
			if raw := callArgs[idx]; raw != "" {
				json.Unmarshal([]byte(raw), &args)
			}
			call.Arguments = args
			response.ToolCalls = append(response.ToolCalls, *call)
		}

		sendChunk(ctx, chunks, &StreamChunk{Type: ChunkTypeComplete, Response: response})
	}()

	return chunks, nil
}

// SupportsTools returns whether this client supports tool calling
func (c *OpenAIClient) SupportsTools() bool {
	return true
}

// ModelName returns the name of the model being used
func (c *OpenAIClient) ModelName() string {
	return c.config.Model
}

func (c *OpenAIClient) buildParams(turns []transcript.Turn, genConfig *GenerateConfig) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Model:    openai.F(c.config.Model),
		Messages: openai.F(c.convertTurns(turns)),
	}

	if genConfig != nil {
		if genConfig.Temperature != nil && SupportsParam(config.ProviderOpenAI, ParamTemperature) {
			params.Temperature = openai.Float(*genConfig.Temperature)
		} else if c.config.Temperature != nil {
			params.Temperature = openai.Float(*c.config.Temperature)
		}

		if genConfig.MaxTokens != nil && SupportsParam(config.ProviderOpenAI, ParamMaxTokens) {
			params.MaxCompletionTokens = openai.Int(int64(*genConfig.MaxTokens))
		} else if c.config.MaxTokens != nil {
			params.MaxCompletionTokens = openai.Int(int64(*c.config.MaxTokens))
		}

		if genConfig.TopP != nil && SupportsParam(config.ProviderOpenAI, ParamTopP) {
			params.TopP = openai.Float(*genConfig.TopP)
		} else if c.config.TopP != nil {
			params.TopP = openai.Float(*c.config.TopP)
		}

		if len(genConfig.StopSequences) > 0 && SupportsParam(config.ProviderOpenAI, ParamStop) {
			params.Stop = openai.F[openai.ChatCompletionNewParamsStopUnion](
				openai.ChatCompletionNewParamsStopArray(genConfig.StopSequences),
			)
		}

		if len(genConfig.Tools) > 0 {
			params.Tools = openai.F(c.convertTools(genConfig.Tools))
		}
	}

	return params
}

func (c *OpenAIClient) convertTurns(turns []transcript.Turn) []openai.ChatCompletionMessageParamUnion {
	var result []openai.ChatCompletionMessageParamUnion

	for _, turn := range turns {
		switch turn.Role {
		case transcript.RoleSystem:
			result = append(result, openai.SystemMessage(turn.Content))
		case transcript.RoleUser:
			result = append(result, openai.UserMessage(turn.Content))
		case transcript.RoleAssistant:
			if len(turn.ToolCalls) == 0 {
				result = append(result, openai.AssistantMessage(turn.Content))
				continue
			}
			msg := openai.ChatCompletionAssistantMessageParam{
				Role: openai.F(openai.ChatCompletionAssistantMessageParamRoleAssistant),
			}
			if turn.Content != "" {
				msg.Content = openai.F([]openai.ChatCompletionAssistantMessageParamContentUnion{
					openai.TextPart(turn.Content),
				})
			}
			var toolCalls []openai.ChatCompletionMessageToolCallParam
			for _, call := range turn.ToolCalls {
				rawArgs, _ := json.Marshal(call.Arguments)
				toolCalls = append(toolCalls, openai.ChatCompletionMessageToolCallParam{
					ID:   openai.F(call.ID),
					Type: openai.F(openai.ChatCompletionMessageToolCallTypeFunction),
					Function: openai.F(openai.ChatCompletionMessageToolCallFunctionParam{
						Name:      openai.F(call.Name),
						Arguments: openai.F(string(rawArgs)),
					}),
				})
			}
			msg.ToolCalls = openai.F(toolCalls)
			result = append(result, msg)
		case transcript.RoleTool:
			if turn.ToolResult == nil {
				continue
			}
			content := turn.ToolResult.Output
			if turn.ToolResult.Failed() {
				content = "error: " + turn.ToolResult.Error
			}
			result = append(result, openai.ToolMessage(turn.ToolResult.CallID, content))
		}
	}

	return result
}

func (c *OpenAIClient) convertTools(tools []ToolDefinition) []openai.ChatCompletionToolParam {
	var result []openai.ChatCompletionToolParam

	for _, tool := range tools {
		params := openai.FunctionDefinitionParam{
			Name:        openai.String(tool.Name),
			Description: openai.String(tool.Description),
		}

		if tool.Parameters != nil {
			params.Parameters = openai.F(openai.FunctionParameters(tool.Parameters))
		}

		result = append(result, openai.ChatCompletionToolParam{
			Type:     openai.F(openai.ChatCompletionToolTypeFunction),
			Function: openai.F(params),
		})
	}

	return result
}

func (c *OpenAIClient) convertResponse(completion *openai.ChatCompletion) *Response {
	choice := completion.Choices[0]

	response := &Response{
		Text: choice.Message.Content,
		Usage: &Usage{
			InputTokens:  int(completion.Usage.PromptTokens),
			OutputTokens: int(completion.Usage.CompletionTokens),
			TotalTokens:  int(completion.Usage.TotalTokens),
		},
	}

	for _, tc := range choice.Message.ToolCalls {
		var args map[string]interface{}
		json.Unmarshal([]byte(tc.Function.Arguments), &args)

		response.ToolCalls = append(response.ToolCalls, transcript.ToolCallRequest{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: args,
		})
	}

	return response
}
