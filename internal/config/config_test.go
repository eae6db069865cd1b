package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	agentconfig "github.com/gagent-dev/gagent/pkg/agent/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gagent.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfig_FullDocument(t *testing.T) {
	path := writeConfig(t, `
server:
  host: 127.0.0.1
  port: 9000
  keepalive_interval: 5s
agent:
  model:
    type: anthropic
    model: claude-sonnet-4-20250514
  instruction: You are a test advisor.
  max_iterations: 4
storage:
  driver: sqlite
  path: /tmp/test.db
logging:
  level: debug
  development: true
market_data:
  base_url: http://localhost:9999
  timeout: 2s
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.KeepAliveInterval)
	assert.Equal(t, agentconfig.ProviderAnthropic, cfg.Agent.Model.Type())
	assert.Equal(t, "You are a test advisor.", cfg.Agent.Instruction)
	assert.Equal(t, 4, cfg.Agent.MaxIterations)
	assert.Equal(t, StorageDriverSQLite, cfg.Storage.Driver)
	assert.Equal(t, "/tmp/test.db", cfg.Storage.Path)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "http://localhost:9999", cfg.MarketData.BaseURL)
}

func TestLoadConfig_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
agent:
  model:
    type: openai
    model: gpt-4o
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, 10, cfg.Agent.MaxIterations)
	assert.Equal(t, DefaultInstruction, cfg.Agent.Instruction)
	assert.Equal(t, StorageDriverMemory, cfg.Storage.Driver)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "https://query1.finance.yahoo.com", cfg.MarketData.BaseURL)
	assert.Equal(t, 15*time.Second, cfg.Server.KeepAliveInterval)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate_CollectsAllProblems(t *testing.T) {
	cfg := &Config{}
	cfg.SetDefaults()
	cfg.Server.Port = -1
	cfg.Storage.Driver = "postgres"
	cfg.Logging.Level = "verbose"
	cfg.MarketData.BaseURL = "not a url"

	err := cfg.Validate()
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "server.port")
	assert.Contains(t, msg, "agent.model is required")
	assert.Contains(t, msg, "storage.driver")
	assert.Contains(t, msg, "logging.level")
	assert.Contains(t, msg, "market_data.base_url")
}

func TestValidate_SQLiteRequiresPath(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Storage.Driver = StorageDriverSQLite
	cfg.Storage.Path = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storage.path")
}

func TestValidate_ModelValidationPropagates(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Agent.Model = &agentconfig.OpenAIConfig{
		BaseModelConfig: agentconfig.BaseModelConfig{ModelType: agentconfig.ProviderOpenAI},
	}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "agent.model")
}

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")
	original := DefaultConfig()
	original.Server.Port = 9100

	require.NoError(t, SaveConfig(original, path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 9100, loaded.Server.Port)
	require.NotNil(t, loaded.Agent.Model)
	assert.Equal(t, agentconfig.ProviderOpenAI, loaded.Agent.Model.Type())
}

func TestBuildLogger(t *testing.T) {
	logger, err := (&LoggingConfig{Level: "warn"}).BuildLogger()
	require.NoError(t, err)
	assert.NotNil(t, logger)

	_, err = (&LoggingConfig{Level: "chatty"}).BuildLogger()
	assert.Error(t, err)
}
