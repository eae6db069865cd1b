// Package config defines the typed model-provider configuration consumed by
// the llm factory. The provider is a closed set selected by a type
// discriminator at load time.
package config

import (
	"fmt"

	"gopkg.in/yaml.v3"

	apperrors "github.com/gagent-dev/gagent/pkg/agent/errors"
)

// ModelConfig is the interface implemented by each provider configuration.
type ModelConfig interface {
	Type() string
	Validate() error
}

// BaseModelConfig contains common fields for all models
type BaseModelConfig struct {
	ModelType string `yaml:"type" json:"type"`
}

func (b *BaseModelConfig) Type() string {
	return b.ModelType
}

// OpenAIConfig represents OpenAI model configuration
type OpenAIConfig struct {
	BaseModelConfig `yaml:",inline"`
	Model           string   `yaml:"model" json:"model"`
	BaseURL         *string  `yaml:"base_url,omitempty" json:"base_url,omitempty"`
	MaxTokens       *int     `yaml:"max_tokens,omitempty" json:"max_tokens,omitempty"`
	Temperature     *float64 `yaml:"temperature,omitempty" json:"temperature,omitempty"`
	TopP            *float64 `yaml:"top_p,omitempty" json:"top_p,omitempty"`
	APIKey          *string  `yaml:"api_key,omitempty" json:"api_key,omitempty"`
}

func (o *OpenAIConfig) Validate() error {
	if o.Model == "" {
		return apperrors.New(apperrors.ErrCodeAgentConfig, "model name is required", nil)
	}
	return nil
}

// AnthropicConfig represents Anthropic model configuration
type AnthropicConfig struct {
	BaseModelConfig `yaml:",inline"`
	Model           string   `yaml:"model" json:"model"`
	MaxTokens       *int     `yaml:"max_tokens,omitempty" json:"max_tokens,omitempty"`
	Temperature     *float64 `yaml:"temperature,omitempty" json:"temperature,omitempty"`
	TopP            *float64 `yaml:"top_p,omitempty" json:"top_p,omitempty"`
	TopK            *int     `yaml:"top_k,omitempty" json:"top_k,omitempty"`
	APIKey          *string  `yaml:"api_key,omitempty" json:"api_key,omitempty"`
}

func (a *AnthropicConfig) Validate() error {
	if a.Model == "" {
		return apperrors.New(apperrors.ErrCodeAgentConfig, "model name is required", nil)
	}
	return nil
}

// GeminiConfig represents Google Gemini model configuration
type GeminiConfig struct {
	BaseModelConfig `yaml:",inline"`
	Model           string   `yaml:"model" json:"model"`
	MaxTokens       *int     `yaml:"max_tokens,omitempty" json:"max_tokens,omitempty"`
	Temperature     *float64 `yaml:"temperature,omitempty" json:"temperature,omitempty"`
	TopP            *float64 `yaml:"top_p,omitempty" json:"top_p,omitempty"`
	TopK            *int     `yaml:"top_k,omitempty" json:"top_k,omitempty"`
	APIKey          *string  `yaml:"api_key,omitempty" json:"api_key,omitempty"`
}

func (g *GeminiConfig) Validate() error {
	if g.Model == "" {
		return apperrors.New(apperrors.ErrCodeAgentConfig, "model name is required", nil)
	}
	return nil
}

// Provider type discriminator values.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

// AgentConfig represents the configuration for the advisor agent.
type AgentConfig struct {
	Model         ModelConfig `yaml:"-"`
	Instruction   string      `yaml:"instruction,omitempty"`
	Description   string      `yaml:"description,omitempty"`
	MaxIterations int         `yaml:"max_iterations,omitempty"`
}

// UnmarshalYAML decodes the model section into the provider-specific config
// selected by its type discriminator.
func (a *AgentConfig) UnmarshalYAML(value *yaml.Node) error {
	var aux struct {
		Model         yaml.Node `yaml:"model"`
		Instruction   string    `yaml:"instruction"`
		Description   string    `yaml:"description"`
		MaxIterations int       `yaml:"max_iterations"`
	}

	if err := value.Decode(&aux); err != nil {
		return err
	}
	a.Instruction = aux.Instruction
	a.Description = aux.Description
	a.MaxIterations = aux.MaxIterations
	if aux.Model.Kind == 0 {
		return nil
	}

	model, err := UnmarshalModelConfig(&aux.Model)
	if err != nil {
		return err
	}
	a.Model = model
	return nil
}

// MarshalYAML emits the provider-specific model section alongside the agent
// fields so a loaded config round-trips.
func (a AgentConfig) MarshalYAML() (interface{}, error) {
	out := map[string]interface{}{}
	if a.Model != nil {
		out["model"] = a.Model
	}
	if a.Instruction != "" {
		out["instruction"] = a.Instruction
	}
	if a.Description != "" {
		out["description"] = a.Description
	}
	if a.MaxIterations != 0 {
		out["max_iterations"] = a.MaxIterations
	}
	return out, nil
}

// UnmarshalModelConfig decodes one model config node by its discriminator.
func UnmarshalModelConfig(node *yaml.Node) (ModelConfig, error) {
	var discriminator struct {
		Type string `yaml:"type"`
	}
	if err := node.Decode(&discriminator); err != nil {
		return nil, fmt.Errorf("failed to parse model type: %w", err)
	}

	switch discriminator.Type {
	case ProviderOpenAI:
		var cfg OpenAIConfig
		if err := node.Decode(&cfg); err != nil {
			return nil, err
		}
		return &cfg, nil
	case ProviderAnthropic:
		var cfg AnthropicConfig
		if err := node.Decode(&cfg); err != nil {
			return nil, err
		}
		return &cfg, nil
	case ProviderGemini:
		var cfg GeminiConfig
		if err := node.Decode(&cfg); err != nil {
			return nil, err
		}
		return &cfg, nil
	default:
		return nil, apperrors.New(apperrors.ErrCodeAgentConfig,
			fmt.Sprintf("unsupported model type: %q", discriminator.Type), nil)
	}
}
