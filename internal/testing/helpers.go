package testing

import (
	"time"

	"pkdindustries/switchboard/internal/config"
)

// DefaultTestConfig returns a minimal configuration for testing
func DefaultTestConfig() *config.Configuration {
	return &config.Configuration{
		App: &config.AppConfig{
			Verbose:    false,
			Prompt:     "you are a test assistant.",
			MaxHistory: 50,
			StateDir:   "",
		},
		Model: &config.ModelConfig{
			Model:       "test/model",
			MaxTokens:   100,
			Temperature: 0.7,
			TopP:        1.0,
			Thinking:    false,
			Timeout:     time.Second * 30,
			Retries:     3,
			SDKRetries:  3,
		},
		Providers: &config.ProviderConfig{
			OllamaURL: "http://localhost:11434",
		},
		Cache: &config.CacheConfig{
			Capacity: 100,
			Persist:  false,
		},
		Audit: &config.AuditConfig{
			Records: 20,
		},
	}
}
