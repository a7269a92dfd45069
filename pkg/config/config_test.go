package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
app:
  name: cueso
  environment: production
  debug: false
server:
  host: 127.0.0.1
  port: 9000
llm:
  provider: openai
  api_key: sk-test
  model: gpt-4o
tools:
  executor: roku_ecp
roku:
  ip: 10.0.0.42
brave:
  api_key: bsk-test
streaming:
  - hulu
  - netflix
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "cueso", cfg.App.Name)
	assert.Equal(t, "production", cfg.App.Environment)
	assert.False(t, cfg.App.Debug)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
	assert.Equal(t, "gpt-4o", cfg.LLM.Model)
	assert.Equal(t, "10.0.0.42", cfg.Roku.IP)
	assert.Equal(t, "bsk-test", cfg.Brave.APIKey)
	assert.Equal(t, []string{"hulu", "netflix"}, cfg.Streaming)
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `
llm:
  api_key: sk-test
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "anthropic", cfg.LLM.Provider)
	assert.Equal(t, "claude-3-5-sonnet-20241022", cfg.LLM.Model)
	assert.Equal(t, 8483, cfg.Server.Port)
	assert.Equal(t, "roku_ecp", cfg.Tools.Executor)
	assert.Equal(t, "192.168.1.100", cfg.Roku.IP)
	assert.Len(t, cfg.Streaming, 6)
}

func TestLoad_ExpandsEnvVars(t *testing.T) {
	t.Setenv("TEST_LLM_KEY", "sk-from-env")

	path := writeConfig(t, `
llm:
  api_key: ${TEST_LLM_KEY}
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sk-from-env", cfg.LLM.APIKey)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	require.Error(t, err)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "llm: [unclosed")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse")
}

func TestValidate(t *testing.T) {
	base := func() Config {
		cfg := Default()
		cfg.LLM.APIKey = "sk-test"
		return cfg
	}

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, base().Validate())
	})

	t.Run("missing api key", func(t *testing.T) {
		cfg := base()
		cfg.LLM.APIKey = ""
		assert.ErrorContains(t, cfg.Validate(), "llm.api_key")
	})

	t.Run("unknown provider", func(t *testing.T) {
		cfg := base()
		cfg.LLM.Provider = "gemini"
		assert.ErrorContains(t, cfg.Validate(), "llm.provider")
	})

	t.Run("unknown executor", func(t *testing.T) {
		cfg := base()
		cfg.Tools.Executor = "carrier_pigeon"
		assert.ErrorContains(t, cfg.Validate(), "tools.executor")
	})

	t.Run("mcp without server url", func(t *testing.T) {
		cfg := base()
		cfg.Tools.Executor = "mcp"
		assert.ErrorContains(t, cfg.Validate(), "mcp.server_url")
	})

	t.Run("roku_ecp without ip", func(t *testing.T) {
		cfg := base()
		cfg.Roku.IP = ""
		assert.ErrorContains(t, cfg.Validate(), "roku.ip")
	})

	t.Run("bad port", func(t *testing.T) {
		cfg := base()
		cfg.Server.Port = 0
		assert.ErrorContains(t, cfg.Validate(), "server.port")
	})
}
