// Package config loads and validates the service configuration.
package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	agentconfig "github.com/gagent-dev/gagent/pkg/agent/config"
)

// DefaultInstruction is the system prompt used when the config provides none.
const DefaultInstruction = "You are GAgent, a helpful financial advisor AI assistant."

// Storage driver names.
const (
	StorageDriverMemory = "memory"
	StorageDriverSQLite = "sqlite"
)

// Config is the full service configuration.
type Config struct {
	Server     ServerConfig            `yaml:"server"`
	Agent      agentconfig.AgentConfig `yaml:"agent"`
	Storage    StorageConfig           `yaml:"storage"`
	Logging    LoggingConfig           `yaml:"logging"`
	MarketData MarketDataConfig        `yaml:"market_data"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host              string        `yaml:"host"`
	Port              int           `yaml:"port"`
	ReadTimeout       time.Duration `yaml:"read_timeout"`
	WriteTimeout      time.Duration `yaml:"write_timeout"`
	IdleTimeout       time.Duration `yaml:"idle_timeout"`
	KeepAliveInterval time.Duration `yaml:"keepalive_interval"`
	AllowedOrigins    []string      `yaml:"allowed_origins"`
}

// StorageConfig selects the session store backend.
type StorageConfig struct {
	Driver string `yaml:"driver"`
	// Path is the SQLite database file, used only with the sqlite driver.
	Path string `yaml:"path"`
}

// LoggingConfig holds logger configuration.
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// MarketDataConfig holds the market data client configuration.
type MarketDataConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// LoadConfig loads configuration from a YAML file and applies defaults.
func LoadConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	config.SetDefaults()
	return &config, nil
}

// SetDefaults fills unset fields with defaults.
func (c *Config) SetDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8000
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 15 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		// Streams stay open well past any single response write, so the
		// write timeout bounds the whole conversation turn.
		c.Server.WriteTimeout = 5 * time.Minute
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = 60 * time.Second
	}
	if c.Server.KeepAliveInterval == 0 {
		c.Server.KeepAliveInterval = 15 * time.Second
	}
	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = []string{"*"}
	}

	if c.Agent.MaxIterations == 0 {
		c.Agent.MaxIterations = 10
	}
	if c.Agent.Instruction == "" {
		c.Agent.Instruction = DefaultInstruction
	}
	if c.Agent.Description == "" {
		c.Agent.Description = "Financial advisor agent with market data and fraud detection tools"
	}

	if c.Storage.Driver == "" {
		c.Storage.Driver = StorageDriverMemory
	}
	if c.Storage.Driver == StorageDriverSQLite && c.Storage.Path == "" {
		c.Storage.Path = "gagent.db"
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}

	if c.MarketData.BaseURL == "" {
		c.MarketData.BaseURL = "https://query1.finance.yahoo.com"
	}
	if c.MarketData.Timeout == 0 {
		c.MarketData.Timeout = 10 * time.Second
	}
}

// Validate checks the configuration, collecting every problem found.
func (c *Config) Validate() error {
	var result *multierror.Error

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		result = multierror.Append(result, fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Server.KeepAliveInterval < time.Second {
		result = multierror.Append(result, fmt.Errorf("server.keepalive_interval must be at least 1s"))
	}

	if c.Agent.Model == nil {
		result = multierror.Append(result, fmt.Errorf("agent.model is required"))
	} else if err := c.Agent.Model.Validate(); err != nil {
		result = multierror.Append(result, fmt.Errorf("agent.model: %w", err))
	}
	if c.Agent.MaxIterations < 1 {
		result = multierror.Append(result, fmt.Errorf("agent.max_iterations must be at least 1, got %d", c.Agent.MaxIterations))
	}

	switch c.Storage.Driver {
	case StorageDriverMemory:
	case StorageDriverSQLite:
		if c.Storage.Path == "" {
			result = multierror.Append(result, fmt.Errorf("storage.path is required with the sqlite driver"))
		}
	default:
		result = multierror.Append(result, fmt.Errorf("storage.driver must be %q or %q, got %q",
			StorageDriverMemory, StorageDriverSQLite, c.Storage.Driver))
	}

	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		result = multierror.Append(result, fmt.Errorf("logging.level: %w", err))
	}

	if u, err := url.Parse(c.MarketData.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		result = multierror.Append(result, fmt.Errorf("market_data.base_url must be an absolute URL, got %q", c.MarketData.BaseURL))
	}

	return result.ErrorOrNil()
}

// BuildLogger constructs the service logger from the logging section.
func (c *LoggingConfig) BuildLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", c.Level, err)
	}

	var zapCfg zap.Config
	if c.Development {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	return zapCfg.Build()
}

// DefaultConfig returns a configuration with every default applied and an
// OpenAI model selected.
func DefaultConfig() *Config {
	config := &Config{
		Agent: agentconfig.AgentConfig{
			Model: &agentconfig.OpenAIConfig{
				BaseModelConfig: agentconfig.BaseModelConfig{ModelType: agentconfig.ProviderOpenAI},
				Model:           "gpt-4o",
			},
		},
	}
	config.SetDefaults()
	return config
}

// SaveConfig writes the configuration to a YAML file.
func SaveConfig(config *Config, filePath string) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
