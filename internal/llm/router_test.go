package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pkdindustries/switchboard/internal/config"
	"pkdindustries/switchboard/internal/metastore"
	"pkdindustries/switchboard/internal/secrets"
)

func testRouter(providers *config.ProviderConfig, store secrets.Store) *Router {
	if providers == nil {
		providers = &config.ProviderConfig{}
	}
	cfg := &config.Configuration{
		Providers: providers,
		Model:     &config.ModelConfig{SDKRetries: 3},
	}
	return NewRouter(cfg, store, metastore.NewRegistry(""))
}

func TestRouterRejectsBareModel(t *testing.T) {
	r := testRouter(nil, nil)
	_, err := r.Stream(context.Background(), &CompletionRequest{Model: "llama3.2"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBadModelSlug)
	assert.True(t, IsConfigError(err))
}

func TestRouterRejectsUnknownProvider(t *testing.T) {
	r := testRouter(nil, nil)
	_, err := r.resolve("mystery/model")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownProvider)
	assert.Contains(t, err.Error(), "mystery")
	assert.Contains(t, err.Error(), "valid providers")
}

func TestRouterRequiresCredentials(t *testing.T) {
	r := testRouter(nil, nil)
	for _, slug := range []string{"anthropic/claude", "gemini/flash", "openai/gpt-4o"} {
		_, err := r.resolve(slug)
		assert.ErrorIs(t, err, ErrNoAPIKey, slug)
	}
}

func TestRouterOpenAICompatibleEndpointNeedsNoKey(t *testing.T) {
	r := testRouter(&config.ProviderConfig{OpenAIURL: "http://localhost:8080/v1"}, nil)
	v, err := r.resolve("openai/local-model")
	require.NoError(t, err)
	assert.Equal(t, "openai", v.Name())
}

func TestRouterMemoizesVariants(t *testing.T) {
	r := testRouter(nil, nil)
	first, err := r.resolve("ollama/llama3.2")
	require.NoError(t, err)
	second, err := r.resolve("ollama/qwen3")
	require.NoError(t, err)
	assert.Same(t, first, second, "one variant per provider until invalidated")
}

func TestRouterInvalidateRebuildsVariants(t *testing.T) {
	providers := &config.ProviderConfig{OllamaURL: "http://localhost:11434"}
	r := testRouter(providers, nil)

	first, err := r.resolve("ollama/llama3.2")
	require.NoError(t, err)

	providers.OllamaURL = "http://gpubox:11434"
	r.Invalidate()

	second, err := r.resolve("ollama/llama3.2")
	require.NoError(t, err)
	assert.NotSame(t, first, second, "invalidation forces reconstruction from live config")
}

func TestRouterLocalAliasResolvesToOllama(t *testing.T) {
	r := testRouter(nil, nil)
	v, err := r.resolve("local/llama3.2")
	require.NoError(t, err)
	assert.Equal(t, "ollama", v.Name())
}

func TestRouterFallsBackToSecretStore(t *testing.T) {
	store := secrets.NewMemoryStore()
	require.NoError(t, store.Set(secrets.KeyFor("anthropic"), "sk-from-store"))

	r := testRouter(nil, store)
	v, err := r.resolve("anthropic/claude-sonnet-4-5")
	require.NoError(t, err)
	assert.Equal(t, "anthropic", v.Name())
}

func TestRouterPrefersConfiguredKeyOverStore(t *testing.T) {
	store := secrets.NewMemoryStore()
	require.NoError(t, store.Set(secrets.KeyFor("anthropic"), "sk-from-store"))

	r := testRouter(&config.ProviderConfig{AnthropicKey: "sk-from-config"}, store)
	assert.Equal(t, "sk-from-config", r.credential(r.cfg.Providers.AnthropicKey, "anthropic"))
}
