package llm

import (
	"fmt"

	"github.com/gagent-dev/gagent/pkg/agent/config"
	apperrors "github.com/gagent-dev/gagent/pkg/agent/errors"
)

// NewClientFromConfig creates a model client from the typed provider config.
// The provider set is closed; selection happens here, at construction time.
func NewClientFromConfig(cfg config.ModelConfig) (Client, error) {
	if cfg == nil {
		return nil, apperrors.New(apperrors.ErrCodeAgentConfig, "model config is required", nil)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Type() {
	case config.ProviderOpenAI:
		openaiCfg, ok := cfg.(*config.OpenAIConfig)
		if !ok {
			return nil, apperrors.New(apperrors.ErrCodeAgentConfig, "invalid OpenAI config", nil)
		}
		return NewOpenAIClient(openaiCfg)

	case config.ProviderAnthropic:
		anthropicCfg, ok := cfg.(*config.AnthropicConfig)
		if !ok {
			return nil, apperrors.New(apperrors.ErrCodeAgentConfig, "invalid Anthropic config", nil)
		}
		return NewAnthropicClient(anthropicCfg)

	case config.ProviderGemini:
		geminiCfg, ok := cfg.(*config.GeminiConfig)
		if !ok {
			return nil, apperrors.New(apperrors.ErrCodeAgentConfig, "invalid Gemini config", nil)
		}
		return NewGeminiClient(geminiCfg)

	default:
		return nil, apperrors.New(apperrors.ErrCodeAgentConfig,
			fmt.Sprintf("unsupported model type: %s", cfg.Type()), nil)
	}
}
