package llm

import (
	"context"
	"fmt"
	"sync"

	"pkdindustries/switchboard/internal/config"
	"pkdindustries/switchboard/internal/messages"
	"pkdindustries/switchboard/internal/metastore"
	"pkdindustries/switchboard/internal/secrets"
)

// Router is the variant that fronts all the others: it reads the provider
// prefix off the model slug and delegates to the matching concrete variant.
// Each provider's variant is built once and reused until Invalidate, so SDK
// clients and cache bindings live across exchanges.
type Router struct {
	cfg    *config.Configuration
	store  secrets.Store
	caches *metastore.Registry

	mu       sync.Mutex
	variants map[string]Variant
}

func NewRouter(cfg *config.Configuration, store secrets.Store, caches *metastore.Registry) *Router {
	return &Router{
		cfg:      cfg,
		store:    store,
		caches:   caches,
		variants: map[string]Variant{},
	}
}

// Invalidate drops every memoized variant. The next request per provider
// reconstructs its client from the live configuration, picking up changed
// keys and endpoints.
func (r *Router) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.variants = map[string]Variant{}
}

func (r *Router) Name() string { return "router" }

func (r *Router) Hooks(req *CompletionRequest) Hooks {
	v, err := r.resolve(req.Model)
	if err != nil {
		return Hooks{}
	}
	return v.Hooks(req)
}

func (r *Router) Stream(ctx context.Context, req *CompletionRequest) (<-chan messages.StreamPart, error) {
	v, err := r.resolve(req.Model)
	if err != nil {
		return nil, err
	}
	return v.Stream(ctx, req)
}

func (r *Router) resolve(model string) (Variant, error) {
	provider := ProviderName(model)
	if provider == "" || ModelName(model) == "" {
		return nil, fmt.Errorf("%w: %q", ErrBadModelSlug, model)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if v, ok := r.variants[provider]; ok {
		return v, nil
	}

	providers := r.cfg.Providers
	var v Variant
	switch provider {
	case "openai":
		key := r.credential(providers.OpenAIKey, "openai")
		if key == "" && providers.OpenAIURL == "" {
			return nil, fmt.Errorf("openai: %w", ErrNoAPIKey)
		}
		v = NewOpenAIVariant(key, providers.OpenAIURL, r.caches)
	case "anthropic":
		key := r.credential(providers.AnthropicKey, "anthropic")
		if key == "" {
			return nil, fmt.Errorf("anthropic: %w", ErrNoAPIKey)
		}
		v = NewAnthropicVariant(key, r.cfg.Model.SDKRetries, r.caches)
	case "gemini":
		key := r.credential(providers.GeminiKey, "gemini")
		if key == "" {
			return nil, fmt.Errorf("gemini: %w", ErrNoAPIKey)
		}
		gv, err := NewGeminiVariant(key, r.caches)
		if err != nil {
			return nil, err
		}
		v = gv
	case "ollama", "local":
		v = NewOllamaVariant(providers.OllamaURL, r.credential(providers.OllamaKey, "ollama"))
	default:
		return nil, fmt.Errorf("%w %q: valid providers are openai, anthropic, gemini, ollama", ErrUnknownProvider, provider)
	}
	r.variants[provider] = v
	return v, nil
}

// credential resolves a provider key config-first, then the secret store.
func (r *Router) credential(configured, providerKey string) string {
	if configured != "" {
		return configured
	}
	if r.store == nil {
		return ""
	}
	value, _ := r.store.Get(secrets.KeyFor(providerKey))
	return value
}
