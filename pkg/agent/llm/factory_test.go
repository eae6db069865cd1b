package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gagent-dev/gagent/pkg/agent/config"
	apperrors "github.com/gagent-dev/gagent/pkg/agent/errors"
)

func strPtr(s string) *string { return &s }

func TestNewClientFromConfig_OpenAI(t *testing.T) {
	client, err := NewClientFromConfig(&config.OpenAIConfig{
		BaseModelConfig: config.BaseModelConfig{ModelType: config.ProviderOpenAI},
		Model:           "gpt-4o",
		APIKey:          strPtr("test-key"),
	})
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", client.ModelName())
	assert.True(t, client.SupportsTools())
}

func TestNewClientFromConfig_Anthropic(t *testing.T) {
	client, err := NewClientFromConfig(&config.AnthropicConfig{
		BaseModelConfig: config.BaseModelConfig{ModelType: config.ProviderAnthropic},
		Model:           "claude-sonnet-4-20250514",
		APIKey:          strPtr("test-key"),
	})
	require.NoError(t, err)
	assert.Equal(t, "claude-sonnet-4-20250514", client.ModelName())
	assert.True(t, client.SupportsTools())
}

func TestNewClientFromConfig_NilConfig(t *testing.T) {
	_, err := NewClientFromConfig(nil)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeAgentConfig, apperrors.Code(err))
}

func TestNewClientFromConfig_InvalidConfigRejected(t *testing.T) {
	_, err := NewClientFromConfig(&config.OpenAIConfig{
		BaseModelConfig: config.BaseModelConfig{ModelType: config.ProviderOpenAI},
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeAgentConfig, apperrors.Code(err))
}
