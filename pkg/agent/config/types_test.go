package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestUnmarshalModelConfig_OpenAI(t *testing.T) {
	doc := `
type: openai
model: gpt-4o
max_tokens: 1024
temperature: 0.2
`
	var node yaml.Node
	require.NoError(t, yaml.Unmarshal([]byte(doc), &node))

	cfg, err := UnmarshalModelConfig(node.Content[0])
	require.NoError(t, err)

	openai, ok := cfg.(*OpenAIConfig)
	require.True(t, ok)
	assert.Equal(t, ProviderOpenAI, openai.Type())
	assert.Equal(t, "gpt-4o", openai.Model)
	require.NotNil(t, openai.MaxTokens)
	assert.Equal(t, 1024, *openai.MaxTokens)
	require.NotNil(t, openai.Temperature)
	assert.Equal(t, 0.2, *openai.Temperature)
}

func TestUnmarshalModelConfig_Anthropic(t *testing.T) {
	doc := `
type: anthropic
model: claude-sonnet-4-20250514
top_k: 40
`
	var node yaml.Node
	require.NoError(t, yaml.Unmarshal([]byte(doc), &node))

	cfg, err := UnmarshalModelConfig(node.Content[0])
	require.NoError(t, err)

	anthropic, ok := cfg.(*AnthropicConfig)
	require.True(t, ok)
	assert.Equal(t, "claude-sonnet-4-20250514", anthropic.Model)
	require.NotNil(t, anthropic.TopK)
	assert.Equal(t, 40, *anthropic.TopK)
}

func TestUnmarshalModelConfig_UnknownProvider(t *testing.T) {
	doc := `
type: cohere
model: command-r
`
	var node yaml.Node
	require.NoError(t, yaml.Unmarshal([]byte(doc), &node))

	_, err := UnmarshalModelConfig(node.Content[0])
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported model type")
}

func TestAgentConfig_UnmarshalYAML(t *testing.T) {
	doc := `
model:
  type: gemini
  model: gemini-2.0-flash
instruction: You are a financial advisor.
description: Advises on markets.
max_iterations: 5
`
	var cfg AgentConfig
	require.NoError(t, yaml.Unmarshal([]byte(doc), &cfg))

	require.NotNil(t, cfg.Model)
	assert.Equal(t, ProviderGemini, cfg.Model.Type())
	assert.Equal(t, "You are a financial advisor.", cfg.Instruction)
	assert.Equal(t, "Advises on markets.", cfg.Description)
	assert.Equal(t, 5, cfg.MaxIterations)
}

func TestAgentConfig_MissingModelIsAllowedAtParseTime(t *testing.T) {
	var cfg AgentConfig
	require.NoError(t, yaml.Unmarshal([]byte("instruction: hi"), &cfg))
	assert.Nil(t, cfg.Model)
}

func TestModelConfig_ValidateRequiresModelName(t *testing.T) {
	assert.Error(t, (&OpenAIConfig{}).Validate())
	assert.Error(t, (&AnthropicConfig{}).Validate())
	assert.Error(t, (&GeminiConfig{}).Validate())

	assert.NoError(t, (&OpenAIConfig{Model: "gpt-4o"}).Validate())
}

func TestAgentConfig_MarshalRoundTrip(t *testing.T) {
	original := AgentConfig{
		Model: &OpenAIConfig{
			BaseModelConfig: BaseModelConfig{ModelType: ProviderOpenAI},
			Model:           "gpt-4o",
		},
		Instruction:   "advise",
		MaxIterations: 10,
	}

	data, err := yaml.Marshal(original)
	require.NoError(t, err)

	var decoded AgentConfig
	require.NoError(t, yaml.Unmarshal(data, &decoded))
	require.NotNil(t, decoded.Model)
	assert.Equal(t, ProviderOpenAI, decoded.Model.Type())
	assert.Equal(t, "advise", decoded.Instruction)
	assert.Equal(t, 10, decoded.MaxIterations)
}
