// Package config loads engine configuration from environment variables.
package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// ProviderEnv holds the per-provider credentials. A provider without a key
// is unusable and its adapter fails the turn with a configuration error.
type ProviderEnv struct {
	AnthropicAPIKey string `envconfig:"ANTHROPIC_API_KEY"`
	OpenAIAPIKey    string `envconfig:"OPENAI_API_KEY"`
	GoogleAPIKey    string `envconfig:"GOOGLE_API_KEY"`
}

// EngineEnv selects the defaults applied when a conversation has no
// assistant configuration.
type EngineEnv struct {
	DefaultProvider string `envconfig:"DEFAULT_PROVIDER" default:"anthropic"`
	DefaultModel    string `envconfig:"DEFAULT_MODEL" default:"claude-sonnet-4-0"`
	PromptsDir      string `envconfig:"PROMPTS_DIR" default:"assets/prompts"`
	LogLevel        string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat       string `envconfig:"LOG_FORMAT" default:"json"`
}

// Env is the full engine environment.
type Env struct {
	ProviderEnv
	EngineEnv
}

const namespace = "LOOM"

// LoadEnv reads the environment into an Env. Variables are prefixed with
// LOOM_ (for example LOOM_ANTHROPIC_API_KEY).
func LoadEnv() (*Env, error) {
	var env Env
	if err := envconfig.Process(namespace, &env); err != nil {
		return nil, fmt.Errorf("failed to load env: %w", err)
	}
	return &env, nil
}
