package llm

import (
	"github.com/chips-fries/st-llm-search-engine-backend/internal/config"
	"github.com/chips-fries/st-llm-search-engine-backend/internal/logger"
)

// ProviderMock selects the offline mock client.
const ProviderMock = "mock"

// NewLLMClient creates an LLM client for the configured provider.
func NewLLMClient(cfg config.LLMConfig) LLMClient {
	if cfg.Provider == ProviderMock {
		logger.L.Info("using mock LLM client")
		return NewMockClient()
	}
	if cfg.APIKey == "" {
		logger.L.Warn("LLM API key is empty", "base_url", cfg.BaseURL)
	}
	return NewClient(cfg.BaseURL, cfg.APIKey, cfg.Timeout)
}
