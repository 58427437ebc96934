package llm

import (
	"context"
	"log/slog"

	"github.com/sozercan/instrument-lens/internal/config"
)

// NewProvider builds the configured model client. It returns
// ErrMissingCredential when no API key is set.
func NewProvider(ctx context.Context, cfg *config.LLMConfig) (Provider, error) {
	if !cfg.HasCredential() {
		return nil, ErrMissingCredential
	}

	var (
		provider Provider
		err      error
	)
	switch cfg.Provider {
	case config.ProviderGemini:
		provider, err = NewGemini(ctx, cfg)
	default:
		provider, err = NewOpenAI(cfg)
	}
	if err != nil {
		return nil, err
	}

	slog.Info("LLM provider initialized", "provider", cfg.Provider, "model", cfg.Model, "maxRetries", cfg.MaxRetries)
	return WithRetry(provider, cfg.MaxRetries, cfg.RetryBackoff), nil
}
