package openai

import (
	"github.com/tjfontaine/interview-gateway/internal/core/domain"
	"github.com/tjfontaine/interview-gateway/internal/core/ports"
	"github.com/tjfontaine/interview-gateway/internal/pkg/config"
)

// ProviderType is the provider type identifier used in configuration.
const ProviderType = "openai"

// ProviderTypeCompatible is the provider type for OpenAI-compatible APIs.
const ProviderTypeCompatible = "openai-compatible"

// CreateFromConfig creates a new OpenAI provider from configuration.
func CreateFromConfig(cfg config.ProviderConfig) (ports.Provider, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}

	var opts []ProviderOption
	if cfg.BaseURL != "" {
		opts = append(opts, WithBaseURL(cfg.BaseURL))
	}
	if cfg.Model != "" {
		opts = append(opts, WithModel(cfg.Model))
	}
	return New(cfg.APIKey, opts...), nil
}

// ValidateConfig validates the provider configuration.
func ValidateConfig(cfg config.ProviderConfig) error {
	switch cfg.Type {
	case ProviderType, "":
		if cfg.APIKey == "" {
			return &domain.ConfigurationError{Key: "provider.api_key", Reason: "required for provider type openai"}
		}
	case ProviderTypeCompatible:
		// API key is optional for OpenAI-compatible providers (some local models don't need it)
		if cfg.BaseURL == "" {
			return &domain.ConfigurationError{Key: "provider.base_url", Reason: "required for provider type openai-compatible"}
		}
	default:
		return &domain.ConfigurationError{Key: "provider.type", Reason: "unsupported provider type " + cfg.Type}
	}
	return nil
}
