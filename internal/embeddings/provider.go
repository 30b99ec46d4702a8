// Package embeddings turns text into fixed-length float vectors via a
// configured provider.
package embeddings

import (
	"context"
	"fmt"

	"github.com/kamusis/mbed-cli/internal/config"
)

// Provider embeds text. Implementations must produce identical vectors for
// identical input under the same model.
type Provider interface {
	// ModelID is the provider-qualified model name recorded in manifests,
	// e.g. "openai:text-embedding-3-small".
	ModelID() string
	// Dim is the embedding dimension, 0 until the first Embed call.
	Dim() int
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Config is the resolved embeddings configuration.
type Config struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
}

// LoadConfig resolves embeddings settings from MBED_EMBEDDINGS_* variables,
// process environment first, then ~/.mbed/.env. Provider and base URL fall
// back to OpenAI defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	for _, f := range []struct {
		key string
		dst *string
	}{
		{"MBED_EMBEDDINGS_PROVIDER", &cfg.Provider},
		{"MBED_EMBEDDINGS_MODEL", &cfg.Model},
		{"MBED_EMBEDDINGS_API_KEY", &cfg.APIKey},
		{"MBED_EMBEDDINGS_BASE_URL", &cfg.BaseURL},
	} {
		v, err := config.GetConfigValue(f.key)
		if err != nil {
			return nil, err
		}
		*f.dst = v
	}

	if cfg.Provider == "" {
		cfg.Provider = "openai"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	return &cfg, nil
}

// NewFromConfig returns the provider named by cfg.
func NewFromConfig(cfg *Config) (Provider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("embeddings config is nil")
	}
	switch cfg.Provider {
	case "openai":
		return NewOpenAI(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported embeddings provider: %s", cfg.Provider)
	}
}
