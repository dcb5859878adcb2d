package providers

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Registry holds the configured OCR providers and LLM clients.
// It supports config-driven instantiation, hot-reload, and thread-safe access.
type Registry struct {
	mu           sync.RWMutex
	llmClients   map[string]LLMClient
	ocrProviders map[string]OCRProvider
	llmConfigs   map[string]LLMProviderConfig
	ocrConfigs   map[string]OCRProviderConfig
	defaultOCR   string
	defaultLLM   string
	logger       *slog.Logger
}

// RegistryConfig defines the providers to instantiate from config.
// This mirrors the config.Config structure for provider setup.
type RegistryConfig struct {
	OCRProviders map[string]OCRProviderConfig
	LLMProviders map[string]LLMProviderConfig

	DefaultOCR string
	DefaultLLM string
}

// OCRProviderConfig matches config.OCRProviderCfg with a resolved API key.
type OCRProviderConfig struct {
	Type              string // "mistral-ocr", "deepinfra"
	Model             string
	APIKey            string // Resolved API key; empty fails at first use
	BaseURL           string
	Timeout           time.Duration
	MaxRetries        int
	RequestsPerMinute int
	Enabled           bool
}

// LLMProviderConfig matches config.LLMProviderCfg with a resolved API key.
type LLMProviderConfig struct {
	Type       string // "mistral", "openai", "openrouter", "vertex"
	Model      string
	APIKey     string // Resolved API key; empty fails at first use
	BaseURL    string
	Project    string // vertex only
	Location   string // vertex only
	Timeout    time.Duration
	MaxRetries int
	Enabled    bool
}

// NewRegistry creates a new empty provider registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		llmClients:   make(map[string]LLMClient),
		ocrProviders: make(map[string]OCRProvider),
		llmConfigs:   make(map[string]LLMProviderConfig),
		ocrConfigs:   make(map[string]OCRProviderConfig),
		logger:       logger,
	}
}

// NewRegistryFromConfig creates a registry with providers based on configuration.
func NewRegistryFromConfig(cfg RegistryConfig, logger *slog.Logger) (*Registry, error) {
	r := NewRegistry(logger)
	if err := r.Reload(cfg); err != nil {
		return nil, err
	}
	return r, nil
}

// RegisterLLM registers an LLM client by name.
func (r *Registry) RegisterLLM(name string, client LLMClient) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.llmClients[name] = client
	delete(r.llmConfigs, name)
	r.logger.Info("registered LLM client", "name", name)
}

// RegisterOCR registers an OCR provider by name.
func (r *Registry) RegisterOCR(name string, provider OCRProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ocrProviders[name] = provider
	delete(r.ocrConfigs, name)
	r.logger.Info("registered OCR provider", "name", name)
}

// SetDefaults sets the provider names returned by DefaultOCR and DefaultLLM.
func (r *Registry) SetDefaults(ocrName, llmName string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defaultOCR = ocrName
	r.defaultLLM = llmName
}

// GetLLM returns an LLM client by name.
func (r *Registry) GetLLM(name string) (LLMClient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	client, ok := r.llmClients[name]
	if !ok {
		return nil, fmt.Errorf("LLM %w: %s", ErrProviderNotFound, name)
	}
	return client, nil
}

// GetOCR returns an OCR provider by name.
func (r *Registry) GetOCR(name string) (OCRProvider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	provider, ok := r.ocrProviders[name]
	if !ok {
		return nil, fmt.Errorf("OCR %w: %s", ErrProviderNotFound, name)
	}
	return provider, nil
}

// DefaultOCR returns the configured default OCR provider.
func (r *Registry) DefaultOCR() (OCRProvider, error) {
	r.mu.RLock()
	name := r.defaultOCR
	r.mu.RUnlock()
	if name == "" {
		return nil, fmt.Errorf("no default OCR provider configured")
	}
	return r.GetOCR(name)
}

// DefaultLLM returns the configured default LLM client.
func (r *Registry) DefaultLLM() (LLMClient, error) {
	r.mu.RLock()
	name := r.defaultLLM
	r.mu.RUnlock()
	if name == "" {
		return nil, fmt.Errorf("no default LLM provider configured")
	}
	return r.GetLLM(name)
}

// ListLLM returns all registered LLM client names, sorted.
func (r *Registry) ListLLM() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.llmClients)
}

// ListOCR returns all registered OCR provider names, sorted.
func (r *Registry) ListOCR() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.ocrProviders)
}

// HasLLM checks if an LLM client is registered.
func (r *Registry) HasLLM(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.llmClients[name]
	return ok
}

// HasOCR checks if an OCR provider is registered.
func (r *Registry) HasOCR(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.ocrProviders[name]
	return ok
}

// Defaults returns the default OCR and LLM provider names.
func (r *Registry) Defaults() (ocrName, llmName string) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defaultOCR, r.defaultLLM
}

// RateLimits returns limiter state for each rate-limited OCR provider.
func (r *Registry) RateLimits() map[string]RateLimiterStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]RateLimiterStatus)
	for name, p := range r.ocrProviders {
		if rl, ok := p.(*rateLimitedOCR); ok {
			out[name] = rl.limiter.Status()
		}
	}
	return out
}

// Reload updates the registry based on new configuration.
// Providers that are no longer configured are unregistered and providers
// with changed settings are re-created. Providers with an empty API key are
// still registered so the first call reports AuthenticationError.
//
// Every changed provider is built before any is swapped in. If one fails the
// registry is left exactly as it was.
func (r *Registry) Reload(cfg RegistryConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	newLLM := make(map[string]LLMClient)
	for name, provCfg := range cfg.LLMProviders {
		if !provCfg.Enabled {
			continue
		}
		if existing, ok := r.llmConfigs[name]; ok && existing == provCfg {
			continue
		}
		client, err := createLLMClient(provCfg, r.logger)
		if err != nil {
			for _, c := range newLLM {
				closeClient(c)
			}
			return fmt.Errorf("llm provider %q: %w", name, err)
		}
		newLLM[name] = client
	}

	newOCR := make(map[string]OCRProvider)
	for name, provCfg := range cfg.OCRProviders {
		if !provCfg.Enabled {
			continue
		}
		if existing, ok := r.ocrConfigs[name]; ok && existing == provCfg {
			continue
		}
		provider, err := createOCRProvider(provCfg, r.logger)
		if err != nil {
			for _, c := range newLLM {
				closeClient(c)
			}
			return fmt.Errorf("ocr provider %q: %w", name, err)
		}
		newOCR[name] = provider
	}

	// Commit.
	for name, client := range newLLM {
		provCfg := cfg.LLMProviders[name]
		_, updated := r.llmConfigs[name]
		closeClient(r.llmClients[name])
		r.llmClients[name] = client
		r.llmConfigs[name] = provCfg
		r.logReload("LLM client", name, provCfg.Type, updated)
	}
	for name, provider := range newOCR {
		provCfg := cfg.OCRProviders[name]
		_, updated := r.ocrConfigs[name]
		r.ocrProviders[name] = provider
		r.ocrConfigs[name] = provCfg
		r.logReload("OCR provider", name, provCfg.Type, updated)
	}

	// Remove config-driven providers that are no longer configured. Providers
	// registered directly (no stored config) are left alone.
	for name := range r.llmConfigs {
		if p, ok := cfg.LLMProviders[name]; !ok || !p.Enabled {
			closeClient(r.llmClients[name])
			delete(r.llmClients, name)
			delete(r.llmConfigs, name)
			r.logger.Info("unregistered LLM client", "name", name)
		}
	}
	for name := range r.ocrConfigs {
		if p, ok := cfg.OCRProviders[name]; !ok || !p.Enabled {
			delete(r.ocrProviders, name)
			delete(r.ocrConfigs, name)
			r.logger.Info("unregistered OCR provider", "name", name)
		}
	}

	r.defaultOCR = cfg.DefaultOCR
	r.defaultLLM = cfg.DefaultLLM
	return nil
}

func (r *Registry) logReload(kind, name, typ string, updated bool) {
	if updated {
		r.logger.Info("updated "+kind, "name", name, "type", typ)
		return
	}
	r.logger.Info("registered "+kind, "name", name, "type", typ)
}

// Close releases clients that hold connections.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.llmClients {
		closeClient(c)
	}
}

// createLLMClient creates an LLM client based on provider type.
func createLLMClient(cfg LLMProviderConfig, logger *slog.Logger) (LLMClient, error) {
	policy := RetryPolicy{MaxRetries: cfg.MaxRetries}
	switch cfg.Type {
	case MistralChatName:
		return NewMistralChatClient(OpenAIChatConfig{
			APIKey:       cfg.APIKey,
			BaseURL:      cfg.BaseURL,
			DefaultModel: cfg.Model,
			Timeout:      cfg.Timeout,
			Retry:        policy,
			Logger:       logger,
		}), nil
	case OpenAIChatName:
		return NewOpenAIChatClient(OpenAIChatConfig{
			APIKey:       cfg.APIKey,
			BaseURL:      cfg.BaseURL,
			DefaultModel: cfg.Model,
			Timeout:      cfg.Timeout,
			Retry:        policy,
			Logger:       logger,
		}), nil
	case OpenRouterName:
		return NewOpenRouterClient(OpenRouterConfig{
			APIKey:       cfg.APIKey,
			BaseURL:      cfg.BaseURL,
			DefaultModel: cfg.Model,
			Timeout:      cfg.Timeout,
			Retry:        policy,
			Logger:       logger,
		}), nil
	case VertexName:
		return NewVertexClient(VertexConfig{
			Project:      cfg.Project,
			Location:     cfg.Location,
			DefaultModel: cfg.Model,
			Timeout:      cfg.Timeout,
			Retry:        policy,
			Logger:       logger,
		}), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider type %q", cfg.Type)
	}
}

// createOCRProvider creates an OCR provider based on provider type.
func createOCRProvider(cfg OCRProviderConfig, logger *slog.Logger) (OCRProvider, error) {
	policy := RetryPolicy{MaxRetries: cfg.MaxRetries}
	var p OCRProvider
	switch cfg.Type {
	case MistralOCRName:
		p = NewMistralOCRClient(MistralOCRConfig{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
			Retry:   policy,
			Logger:  logger,
		})
	case DeepInfraOCRName:
		p = NewDeepInfraOCRClient(DeepInfraOCRConfig{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
			Retry:   policy,
			Logger:  logger,
		})
	default:
		factory, ok := localOCRFactories[cfg.Type]
		if !ok {
			return nil, unknownOCRType(cfg.Type)
		}
		p = factory(cfg, logger)
	}
	return WithRateLimit(p, NewRateLimiter(cfg.RequestsPerMinute)), nil
}

func closeClient(c LLMClient) {
	if closer, ok := c.(interface{ Close() error }); ok {
		_ = closer.Close()
	}
}

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
