package llm

import (
	"context"

	"github.com/google/uuid"
	"google.golang.org/genai"

	"github.com/gagent-dev/gagent/pkg/agent/config"
	apperrors "github.com/gagent-dev/gagent/pkg/agent/errors"
	"github.com/gagent-dev/gagent/pkg/agent/transcript"
)

// GeminiClient implements the Client interface for Google Gemini
type GeminiClient struct {
	client *genai.Client
	config *config.GeminiConfig
}

// NewGeminiClient creates a new Gemini client
func NewGeminiClient(cfg *config.GeminiConfig) (*GeminiClient, error) {
	if cfg == nil {
		return nil, apperrors.New(apperrors.ErrCodeAgentConfig, "Gemini config is required", nil)
	}

	if cfg.APIKey == nil || *cfg.APIKey == "" {
		return nil, apperrors.New(apperrors.ErrCodeAgentConfig, "API key is required", nil)
	}

	ctx := context.Background()
	clientConfig := &genai.ClientConfig{
		APIKey: *cfg.APIKey,
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, apperrors.New(apperrors.ErrCodeAgentConfig, "failed to create Gemini client", err)
	}

	return &GeminiClient{
		client: client,
		config: cfg,
	}, nil
}

// Generate sends the transcript and receives one complete response.
func (c *GeminiClient) Generate(ctx context.Context, turns []transcript.Turn, genConfig *GenerateConfig) (*Response, error) {
	contents, system := c.convertTurns(turns)
	cfg := c.buildConfig(genConfig, system)

	resp, err := c.client.Models.GenerateContent(ctx, c.config.Model, contents, cfg)
	if err != nil {
		return nil, &InvocationError{
			Provider:    config.ProviderGemini,
			Message:     "generate content request failed",
			Recoverable: true,
			Cause:       err,
		}
	}

	return c.convertResponse(resp), nil
}

// GenerateStream sends the transcript and streams the response incrementally.
func (c *GeminiClient) GenerateStream(ctx context.Context, turns []transcript.Turn, genConfig *GenerateConfig) (<-chan *StreamChunk, error) {
	contents, system := c.convertTurns(turns)
	cfg := c.buildConfig(genConfig, system)

	chunks := make(chan *StreamChunk, 10)

	go func() {
		defer close(chunks)

		response := &Response{}

		for resp, err := range c.client.Models.GenerateContentStream(ctx, c.config.Model, contents, cfg) {
			if err != nil {
				sendChunk(ctx, chunks, &StreamChunk{Type: ChunkTypeError, Err: &InvocationError{
					Provider:    config.ProviderGemini,
					Message:     "streaming generate content failed",
					Recoverable: true,
					Cause:       err,
				}})
				return
			}

			if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
				continue
			}

			for _, part := range resp.Candidates[0].Content.Parts {
				if part.Text != "" {
					response.Text += part.Text
					if !sendChunk(ctx, chunks, &StreamChunk{Type: ChunkTypeTextDelta, TextDelta: part.Text}) {
						return
					}
				}

				if part.FunctionCall != nil {
					response.ToolCalls = append(response.ToolCalls, convertGeminiCall(part.FunctionCall))
				}
			}
		}

		sendChunk(ctx, chunks, &StreamChunk{Type: ChunkTypeComplete, Response: response})
	}()

	return chunks, nil
}

// SupportsTools returns whether this client supports tool calling
func (c *GeminiClient) SupportsTools() bool {
	return true
}

// ModelName returns the name of the model being used
func (c *GeminiClient) ModelName() string {
	return c.config.Model
}

func (c *GeminiClient) convertTurns(turns []transcript.Turn) ([]*genai.Content, string) {
	var contents []*genai.Content
	var system string

	for _, turn := range turns {
		switch turn.Role {
		case transcript.RoleSystem:
			system = turn.Content

		case transcript.RoleUser:
			contents = append(contents, &genai.Content{
				Role:  "user",
				Parts: []*genai.Part{{Text: turn.Content}},
			})

		case transcript.RoleAssistant:
			var parts []*genai.Part
			if turn.Content != "" {
				parts = append(parts, &genai.Part{Text: turn.Content})
			}
			for _, call := range turn.ToolCalls {
				parts = append(parts, &genai.Part{
					FunctionCall: &genai.FunctionCall{
						Name: call.Name,
						Args: call.Arguments,
					},
				})
			}
			if len(parts) > 0 {
				contents = append(contents, &genai.Content{Role: "model", Parts: parts})
			}

		case transcript.RoleTool:
			if turn.ToolResult == nil {
				continue
			}
			responseMap := map[string]interface{}{"result": turn.ToolResult.Output}
			if turn.ToolResult.Failed() {
				responseMap = map[string]interface{}{"error": turn.ToolResult.Error}
			}
			contents = append(contents, &genai.Content{
				Role: "user",
				Parts: []*genai.Part{{
					FunctionResponse: &genai.FunctionResponse{
						Name:     turn.ToolResult.Name,
						Response: responseMap,
					},
				}},
			})
		}
	}

	return contents, system
}

func (c *GeminiClient) buildConfig(genConfig *GenerateConfig, system string) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{}

	if system != "" {
		cfg.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: system}},
		}
	}

	if genConfig != nil && genConfig.Temperature != nil {
		cfg.Temperature = genai.Ptr(float32(*genConfig.Temperature))
	} else if c.config.Temperature != nil {
		cfg.Temperature = genai.Ptr(float32(*c.config.Temperature))
	}

	if genConfig != nil && genConfig.MaxTokens != nil {
		cfg.MaxOutputTokens = int32(*genConfig.MaxTokens)
	} else if c.config.MaxTokens != nil {
		cfg.MaxOutputTokens = int32(*c.config.MaxTokens)
	}

	if genConfig != nil && genConfig.TopP != nil {
		cfg.TopP = genai.Ptr(float32(*genConfig.TopP))
	} else if c.config.TopP != nil {
		cfg.TopP = genai.Ptr(float32(*c.config.TopP))
	}

	if genConfig != nil && genConfig.TopK != nil && SupportsParam(config.ProviderGemini, ParamTopK) {
		cfg.TopK = genai.Ptr(float32(*genConfig.TopK))
	} else if c.config.TopK != nil {
		cfg.TopK = genai.Ptr(float32(*c.config.TopK))
	}

	if genConfig != nil && len(genConfig.StopSequences) > 0 {
		cfg.StopSequences = genConfig.StopSequences
	}

	if genConfig != nil && len(genConfig.Tools) > 0 {
		var declarations []*genai.FunctionDeclaration
		for _, tool := range genConfig.Tools {
			declarations = append(declarations, &genai.FunctionDeclaration{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  convertGeminiSchema(tool.Parameters),
			})
		}
		cfg.Tools = []*genai.Tool{{FunctionDeclarations: declarations}}
	}

	return cfg
}

func convertGeminiSchema(params map[string]interface{}) *genai.Schema {
	if params == nil {
		return nil
	}

	schema := &genai.Schema{}

	if schemaType, ok := params["type"].(string); ok {
		schema.Type = genai.Type(schemaType)
	}

	if desc, ok := params["description"].(string); ok {
		schema.Description = desc
	}

	if props, ok := params["properties"].(map[string]interface{}); ok {
		schema.Properties = make(map[string]*genai.Schema)
		for key, value := range props {
			if propMap, ok := value.(map[string]interface{}); ok {
				schema.Properties[key] = convertGeminiSchema(propMap)
			}
		}
	}

	if required, ok := params["required"].([]interface{}); ok {
		for _, field := range required {
			if fieldStr, ok := field.(string); ok {
				schema.Required = append(schema.Required, fieldStr)
			}
		}
	} else if required, ok := params["required"].([]string); ok {
		schema.Required = required
	}

	if enum, ok := params["enum"].([]interface{}); ok {
		for _, val := range enum {
			if valStr, ok := val.(string); ok {
				schema.Enum = append(schema.Enum, valStr)
			}
		}
	} else if enum, ok := params["enum"].([]string); ok {
		schema.Enum = enum
	}

	return schema
}

func convertGeminiCall(call *genai.FunctionCall) transcript.ToolCallRequest {
	args := make(map[string]interface{})
	for k, v := range call.Args {
		args[k] = v
	}

	// Gemini omits call ids on most models; synthesize a unique one so two
	// calls to the same tool in one turn stay distinguishable.
	id := call.ID
	if id == "" {
		id = "call_" + uuid.NewString()
	}

	return transcript.ToolCallRequest{
		ID:        id,
		Name:      call.Name,
		Arguments: args,
	}
}

func (c *GeminiClient) convertResponse(resp *genai.GenerateContentResponse) *Response {
	response := &Response{}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return response
	}

	for _, part := range resp.Candidates[0].Content.Parts {
		if part.Text != "" {
			response.Text += part.Text
		}
		if part.FunctionCall != nil {
			response.ToolCalls = append(response.ToolCalls, convertGeminiCall(part.FunctionCall))
		}
	}

	if resp.UsageMetadata != nil {
		response.Usage = &Usage{
			InputTokens:  int(resp.UsageMetadata.PromptTokenCount),
			OutputTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:  int(resp.UsageMetadata.TotalTokenCount),
		}
	}

	return response
}
