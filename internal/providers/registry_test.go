package providers

import (
	"errors"
	"testing"
	"time"
)

func TestRegistry(t *testing.T) {
	t.Run("register and get", func(t *testing.T) {
		r := NewRegistry(nil)
		r.RegisterLLM("mock", NewMockClient("ok"))
		r.RegisterOCR("mock-ocr", NewMockOCRProvider())

		if _, err := r.GetLLM("mock"); err != nil {
			t.Errorf("GetLLM() error = %v", err)
		}
		if _, err := r.GetOCR("mock-ocr"); err != nil {
			t.Errorf("GetOCR() error = %v", err)
		}
		if _, err := r.GetLLM("missing"); !errors.Is(err, ErrProviderNotFound) {
			t.Errorf("GetLLM(missing) error = %v, want ErrProviderNotFound", err)
		}
		if _, err := r.GetOCR("missing"); !errors.Is(err, ErrProviderNotFound) {
			t.Errorf("GetOCR(missing) error = %v, want ErrProviderNotFound", err)
		}
	})

	t.Run("defaults", func(t *testing.T) {
		r := NewRegistry(nil)
		if _, err := r.DefaultOCR(); err == nil {
			t.Error("expected error with no default OCR")
		}

		r.RegisterLLM("mock", NewMockClient("ok"))
		r.RegisterOCR("mock-ocr", NewMockOCRProvider())
		r.SetDefaults("mock-ocr", "mock")

		if p, err := r.DefaultOCR(); err != nil || p.Name() != MockOCRName {
			t.Errorf("DefaultOCR() = %v, %v", p, err)
		}
		if c, err := r.DefaultLLM(); err != nil || c.Name() != MockClientName {
			t.Errorf("DefaultLLM() = %v, %v", c, err)
		}
	})

	t.Run("list is sorted", func(t *testing.T) {
		r := NewRegistry(nil)
		r.RegisterLLM("zeta", NewMockClient(""))
		r.RegisterLLM("alpha", NewMockClient(""))
		got := r.ListLLM()
		if len(got) != 2 || got[0] != "alpha" || got[1] != "zeta" {
			t.Errorf("ListLLM() = %v", got)
		}
	})
}

func TestNewRegistryFromConfig(t *testing.T) {
	t.Run("creates providers by type", func(t *testing.T) {
		r, err := NewRegistryFromConfig(RegistryConfig{
			OCRProviders: map[string]OCRProviderConfig{
				"mistral":   {Type: MistralOCRName, APIKey: "k", Enabled: true},
				"deepinfra": {Type: DeepInfraOCRName, APIKey: "k", Enabled: true, RequestsPerMinute: 60},
				"disabled":  {Type: MistralOCRName, APIKey: "k", Enabled: false},
			},
			LLMProviders: map[string]LLMProviderConfig{
				"mistral":    {Type: MistralChatName, APIKey: "k", Enabled: true},
				"openai":     {Type: OpenAIChatName, APIKey: "k", Enabled: true},
				"openrouter": {Type: OpenRouterName, APIKey: "k", Enabled: true},
				"vertex":     {Type: VertexName, Project: "p", Enabled: true},
			},
			DefaultOCR: "mistral",
			DefaultLLM: "mistral",
		}, nil)
		if err != nil {
			t.Fatalf("NewRegistryFromConfig() error = %v", err)
		}

		if got := r.ListOCR(); len(got) != 2 {
			t.Errorf("ListOCR() = %v, want 2 providers", got)
		}
		if got := r.ListLLM(); len(got) != 4 {
			t.Errorf("ListLLM() = %v, want 4 clients", got)
		}

		p, _ := r.GetOCR("mistral")
		if _, ok := p.(*MistralOCRClient); !ok {
			t.Errorf("mistral OCR type = %T", p)
		}
		p, _ = r.GetOCR("deepinfra")
		if _, ok := p.(*rateLimitedOCR); !ok {
			t.Errorf("rate-limited provider type = %T", p)
		}
		limits := r.RateLimits()
		if len(limits) != 1 || limits["deepinfra"].TokensLimit != 60 {
			t.Errorf("RateLimits() = %+v, want deepinfra at 60/min", limits)
		}
		c, _ := r.DefaultLLM()
		if oc, ok := c.(*OpenAIChatClient); !ok || oc.baseURL != MistralChatURL {
			t.Errorf("default LLM = %T", c)
		}
	})

	t.Run("registers providers without keys", func(t *testing.T) {
		r, err := NewRegistryFromConfig(RegistryConfig{
			OCRProviders: map[string]OCRProviderConfig{
				"mistral": {Type: MistralOCRName, Enabled: true},
			},
		}, nil)
		if err != nil {
			t.Fatalf("NewRegistryFromConfig() error = %v", err)
		}
		if !r.HasOCR("mistral") {
			t.Error("keyless provider should still be registered")
		}
	})

	t.Run("unknown type", func(t *testing.T) {
		_, err := NewRegistryFromConfig(RegistryConfig{
			LLMProviders: map[string]LLMProviderConfig{
				"bad": {Type: "nope", Enabled: true},
			},
		}, nil)
		if err == nil {
			t.Error("expected error for unknown provider type")
		}
	})
}

func TestRegistry_Reload(t *testing.T) {
	t.Run("adds new providers on reload", func(t *testing.T) {
		r, _ := NewRegistryFromConfig(RegistryConfig{}, nil)
		if r.HasLLM("openrouter") {
			t.Error("should start without openrouter")
		}

		err := r.Reload(RegistryConfig{
			LLMProviders: map[string]LLMProviderConfig{
				"openrouter": {Type: OpenRouterName, APIKey: "new-key", Enabled: true},
			},
		})
		if err != nil {
			t.Fatalf("Reload() error = %v", err)
		}
		if !r.HasLLM("openrouter") {
			t.Error("expected openrouter after reload")
		}
	})

	t.Run("removes providers on reload", func(t *testing.T) {
		r, _ := NewRegistryFromConfig(RegistryConfig{
			LLMProviders: map[string]LLMProviderConfig{
				"openrouter": {Type: OpenRouterName, APIKey: "key", Enabled: true},
			},
			OCRProviders: map[string]OCRProviderConfig{
				"mistral": {Type: MistralOCRName, APIKey: "key", Enabled: true},
			},
		}, nil)
		r.RegisterOCR("manual", NewMockOCRProvider())

		r.Reload(RegistryConfig{})

		if r.HasLLM("openrouter") {
			t.Error("openrouter should be removed after reload")
		}
		if r.HasOCR("mistral") {
			t.Error("mistral should be removed after reload")
		}
		if !r.HasOCR("manual") {
			t.Error("directly registered providers should survive reload")
		}
	})

	t.Run("updates providers with changed settings", func(t *testing.T) {
		cfg := RegistryConfig{
			OCRProviders: map[string]OCRProviderConfig{
				"mistral": {Type: MistralOCRName, APIKey: "old-key", Enabled: true},
			},
		}
		r, _ := NewRegistryFromConfig(cfg, nil)
		before, _ := r.GetOCR("mistral")

		// Same config keeps the instance
		r.Reload(cfg)
		same, _ := r.GetOCR("mistral")
		if same != before {
			t.Error("unchanged config should keep the existing provider")
		}

		r.Reload(RegistryConfig{
			OCRProviders: map[string]OCRProviderConfig{
				"mistral": {Type: MistralOCRName, APIKey: "new-key", Timeout: time.Minute, Enabled: true},
			},
		})
		after, _ := r.GetOCR("mistral")
		if after.(*MistralOCRClient).apiKey != "new-key" {
			t.Error("expected provider to be re-created with new key")
		}
	})

	t.Run("failed reload leaves registry unchanged", func(t *testing.T) {
		base := RegistryConfig{
			OCRProviders: map[string]OCRProviderConfig{
				"a": {Type: MistralOCRName, APIKey: "k", Model: "old", Enabled: true},
			},
			LLMProviders: map[string]LLMProviderConfig{
				"chat": {Type: OpenRouterName, APIKey: "k", Enabled: true},
			},
			DefaultOCR: "a",
			DefaultLLM: "chat",
		}
		bad := map[string]RegistryConfig{
			"bad ocr type": {
				OCRProviders: map[string]OCRProviderConfig{
					"a": {Type: MistralOCRName, APIKey: "k", Model: "new", Enabled: true},
					"b": {Type: "bogus", Enabled: true},
				},
				DefaultOCR: "b",
			},
			"bad llm type": {
				OCRProviders: map[string]OCRProviderConfig{
					"a": {Type: MistralOCRName, APIKey: "k", Model: "new", Enabled: true},
				},
				LLMProviders: map[string]LLMProviderConfig{
					"chat":  {Type: OpenRouterName, APIKey: "other", Enabled: true},
					"bogus": {Type: "bogus", Enabled: true},
				},
			},
		}
		for name, cfg := range bad {
			t.Run(name, func(t *testing.T) {
				// Map iteration order varies, so repeat to hit every order.
				for i := 0; i < 20; i++ {
					r, err := NewRegistryFromConfig(base, nil)
					if err != nil {
						t.Fatal(err)
					}
					ocrBefore, _ := r.GetOCR("a")
					llmBefore, _ := r.GetLLM("chat")

					if err := r.Reload(cfg); err == nil {
						t.Fatal("expected Reload() error")
					}

					if got, _ := r.GetOCR("a"); got != ocrBefore {
						t.Fatal("OCR provider replaced by a failed reload")
					}
					if got, _ := r.GetLLM("chat"); got != llmBefore {
						t.Fatal("LLM client replaced by a failed reload")
					}
					if r.HasOCR("b") || r.HasLLM("bogus") {
						t.Fatal("failed reload registered providers")
					}
					if ocr, llm := r.Defaults(); ocr != "a" || llm != "chat" {
						t.Fatalf("Defaults() = %q %q", ocr, llm)
					}
				}
			})
		}
	})
}
