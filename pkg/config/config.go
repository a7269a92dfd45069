// Package config loads application configuration from a YAML file.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	App       AppConfig     `yaml:"app"`
	Logging   LoggingConfig `yaml:"logging"`
	Server    ServerConfig  `yaml:"server"`
	LLM       LLMConfig     `yaml:"llm"`
	Tools     ToolsConfig   `yaml:"tools"`
	Roku      RokuConfig    `yaml:"roku"`
	MCP       MCPConfig     `yaml:"mcp"`
	Brave     BraveConfig   `yaml:"brave"`
	Streaming []string      `yaml:"streaming"`
}

// AppConfig holds app-level settings.
type AppConfig struct {
	Name           string   `yaml:"name"`
	Version        string   `yaml:"version"`
	Environment    string   `yaml:"environment"`
	Debug          bool     `yaml:"debug"`
	Hostname       string   `yaml:"hostname"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// LLMConfig selects and configures the LLM provider.
type LLMConfig struct {
	Provider string `yaml:"provider"`
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url"`
}

// ToolsConfig selects the tool executor.
type ToolsConfig struct {
	Executor string `yaml:"executor"`
}

// RokuConfig holds Roku device settings.
type RokuConfig struct {
	IP string `yaml:"ip"`
}

// MCPConfig holds MCP server settings.
type MCPConfig struct {
	ServerURL   string `yaml:"server_url"`
	ServerToken string `yaml:"server_token"`
}

// BraveConfig holds Brave Search settings.
type BraveConfig struct {
	APIKey string `yaml:"api_key"`
}

// Default returns the configuration defaults applied before parsing.
func Default() Config {
	return Config{
		App: AppConfig{
			Name:        "cueso",
			Version:     "0.1.0",
			Environment: "development",
			Debug:       true,
			Hostname:    "localhost",
		},
		Logging: LoggingConfig{Level: "info"},
		Server:  ServerConfig{Host: "0.0.0.0", Port: 8483},
		LLM: LLMConfig{
			Provider: "anthropic",
			Model:    "claude-3-5-sonnet-20241022",
		},
		Tools: ToolsConfig{Executor: "roku_ecp"},
		Roku:  RokuConfig{IP: "192.168.1.100"},
		Streaming: []string{
			"netflix", "hulu", "disney_plus", "max", "apple_tv_plus", "amazon_prime",
		},
	}
}

// Load reads a YAML file and returns a Config. Environment variables
// referenced as ${VAR} or $VAR in the YAML are expanded before parsing, so
// API keys can be kept in environment variables (e.g. loaded from a .env
// file) rather than committed in the config.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is caller-provided configuration, not user input
	if err != nil {
		return Config{}, fmt.Errorf("config: load: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration is internally consistent.
func (c Config) Validate() error {
	if c.LLM.APIKey == "" {
		return fmt.Errorf("config: llm.api_key is required")
	}

	switch c.LLM.Provider {
	case "anthropic", "openai":
	default:
		return fmt.Errorf("config: unsupported llm.provider %q", c.LLM.Provider)
	}

	switch c.Tools.Executor {
	case "roku_ecp":
		if c.Roku.IP == "" {
			return fmt.Errorf("config: roku.ip is required for the roku_ecp executor")
		}
	case "mcp":
		if c.MCP.ServerURL == "" {
			return fmt.Errorf("config: mcp.server_url is required for the mcp executor")
		}
	default:
		return fmt.Errorf("config: unsupported tools.executor %q", c.Tools.Executor)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: invalid server.port %d", c.Server.Port)
	}

	return nil
}
