// Package providers builds LLM providers from configuration.
package providers

import (
	"fmt"
	"sync"

	"github.com/cueso/cueso/pkg/providers/anthropic"
	"github.com/cueso/cueso/pkg/providers/openai"
	"github.com/cueso/cueso/pkg/providers/provider"
)

// Config selects and configures a provider.
type Config struct {
	Kind    string
	APIKey  string
	Model   string
	BaseURL string
}

// Factory creates a Provider from a Config.
type Factory func(cfg Config) (provider.Provider, error)

var (
	factoryMu   sync.RWMutex
	factories   = map[string]Factory{}
	defaultsReg sync.Once
)

func ensureDefaults() {
	defaultsReg.Do(func() {
		factories["anthropic"] = newAnthropic
		factories["openai"] = newOpenAI
	})
}

// Register registers a custom provider factory under the given kind. It can be
// called before New to extend the set of supported providers.
func Register(kind string, factory Factory) {
	ensureDefaults()

	factoryMu.Lock()
	defer factoryMu.Unlock()

	factories[kind] = factory
}

// New creates a Provider from cfg using the registered factory for its Kind.
func New(cfg Config) (provider.Provider, error) {
	ensureDefaults()

	factoryMu.RLock()
	factory, ok := factories[cfg.Kind]
	factoryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("providers: unknown provider kind %q", cfg.Kind)
	}

	return factory(cfg)
}

func newAnthropic(cfg Config) (provider.Provider, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.anthropic.com"
	}

	return anthropic.New(baseURL, cfg.APIKey, cfg.Model), nil
}

func newOpenAI(cfg Config) (provider.Provider, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com"
	}

	return openai.New(baseURL, cfg.APIKey, cfg.Model), nil
}
