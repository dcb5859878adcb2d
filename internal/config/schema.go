package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Config holds pdfextract configuration.
// Stored at: ~/.pdfextract/config.yaml
type Config struct {
	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`   // debug, info, warn, error
	PromptDir string `mapstructure:"prompt_dir" yaml:"prompt_dir"` // directory of <name>.md prompts

	Server     ServerCfg     `mapstructure:"server" yaml:"server"`
	Render     RenderCfg     `mapstructure:"render" yaml:"render"`
	OCR        OCRCfg        `mapstructure:"ocr" yaml:"ocr"`
	Extraction ExtractionCfg `mapstructure:"extraction" yaml:"extraction"`
	Session    SessionCfg    `mapstructure:"session" yaml:"session"`

	OCRProviders map[string]OCRProviderCfg `mapstructure:"ocr_providers" yaml:"ocr_providers"`
	LLMProviders map[string]LLMProviderCfg `mapstructure:"llm_providers" yaml:"llm_providers"`
	Defaults     DefaultsCfg               `mapstructure:"defaults" yaml:"defaults"`
}

// ServerCfg configures the HTTP server.
type ServerCfg struct {
	Host         string `mapstructure:"host" yaml:"host"`
	Port         string `mapstructure:"port" yaml:"port"`
	WriteTimeout int    `mapstructure:"write_timeout" yaml:"write_timeout"` // seconds; covers a full extraction
	MaxUploadMB  int    `mapstructure:"max_upload_mb" yaml:"max_upload_mb"`
}

// RenderCfg configures PDF rasterization.
type RenderCfg struct {
	DPI          int    `mapstructure:"dpi" yaml:"dpi"`
	Format       string `mapstructure:"format" yaml:"format"`           // png or jpeg
	MaxWorkers   int    `mapstructure:"max_workers" yaml:"max_workers"` // 0 = NumCPU
	PdftoppmPath string `mapstructure:"pdftoppm_path" yaml:"pdftoppm_path"`
}

// OCRCfg configures the OCR stage.
type OCRCfg struct {
	Concurrency int `mapstructure:"concurrency" yaml:"concurrency"` // pages in flight; 1 = sequential
}

// ExtractionCfg configures the LLM extraction stage.
type ExtractionCfg struct {
	Temperature     float64 `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens       int     `mapstructure:"max_tokens" yaml:"max_tokens"`
	AttachFirstPage bool    `mapstructure:"attach_first_page" yaml:"attach_first_page"`
}

// SessionCfg configures the per-browser result store.
type SessionCfg struct {
	TTLMinutes int `mapstructure:"ttl_minutes" yaml:"ttl_minutes"`
}

// OCRProviderCfg configures an OCR provider.
type OCRProviderCfg struct {
	Type              string `mapstructure:"type" yaml:"type"`       // "mistral-ocr", "deepinfra", "tesseract"
	Model             string `mapstructure:"model" yaml:"model"`     // empty uses the provider default
	APIKey            string `mapstructure:"api_key" yaml:"api_key"` // supports ${ENV_VAR} syntax
	BaseURL           string `mapstructure:"base_url" yaml:"base_url"`
	TimeoutSeconds    int    `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
	MaxRetries        int    `mapstructure:"max_retries" yaml:"max_retries"` // 0 = fail fast
	RequestsPerMinute int    `mapstructure:"requests_per_minute" yaml:"requests_per_minute"`
	Enabled           bool   `mapstructure:"enabled" yaml:"enabled"`
}

// LLMProviderCfg configures an LLM provider.
type LLMProviderCfg struct {
	Type           string `mapstructure:"type" yaml:"type"`       // "mistral", "openai", "openrouter", "vertex"
	Model          string `mapstructure:"model" yaml:"model"`     // empty uses the provider default
	APIKey         string `mapstructure:"api_key" yaml:"api_key"` // supports ${ENV_VAR} syntax
	BaseURL        string `mapstructure:"base_url" yaml:"base_url"`
	Project        string `mapstructure:"project" yaml:"project"`   // vertex only
	Location       string `mapstructure:"location" yaml:"location"` // vertex only
	TimeoutSeconds int    `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
	MaxRetries     int    `mapstructure:"max_retries" yaml:"max_retries"` // 0 = fail fast
	Enabled        bool   `mapstructure:"enabled" yaml:"enabled"`
}

// DefaultsCfg specifies default provider selections.
type DefaultsCfg struct {
	OCRProvider string `mapstructure:"ocr_provider" yaml:"ocr_provider"`
	LLMProvider string `mapstructure:"llm_provider" yaml:"llm_provider"`
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		LogLevel:  "info",
		PromptDir: "./prompt_extraction",
		Server: ServerCfg{
			Host:         "127.0.0.1",
			Port:         "8080",
			WriteTimeout: 600,
			MaxUploadMB:  50,
		},
		Render: RenderCfg{
			DPI:    300,
			Format: "png",
		},
		OCR: OCRCfg{
			Concurrency: 1,
		},
		Extraction: ExtractionCfg{
			Temperature:     0,
			AttachFirstPage: true,
		},
		Session: SessionCfg{
			TTLMinutes: 120,
		},
		OCRProviders: map[string]OCRProviderCfg{
			"mistral": {
				Type:           "mistral-ocr",
				Model:          "mistral-ocr-latest",
				APIKey:         "${MISTRAL_API_KEY}",
				TimeoutSeconds: 120,
				Enabled:        true,
			},
			"deepinfra": {
				Type:           "deepinfra",
				APIKey:         "${DEEPINFRA_API_KEY}",
				TimeoutSeconds: 120,
				Enabled:        false,
			},
		},
		LLMProviders: map[string]LLMProviderCfg{
			"mistral": {
				Type:           "mistral",
				Model:          "pixtral-12b-latest",
				APIKey:         "${MISTRAL_API_KEY}",
				TimeoutSeconds: 120,
				Enabled:        true,
			},
			"openai": {
				Type:           "openai",
				Model:          "gpt-4o",
				APIKey:         "${OPENAI_API_KEY}",
				TimeoutSeconds: 120,
				Enabled:        false,
			},
			"openrouter": {
				Type:           "openrouter",
				Model:          "mistralai/pixtral-12b",
				APIKey:         "${OPENROUTER_API_KEY}",
				TimeoutSeconds: 120,
				Enabled:        false,
			},
			"vertex": {
				Type:           "vertex",
				Model:          "gemini-2.0-flash",
				Project:        "${GOOGLE_CLOUD_PROJECT}",
				Location:       "us-central1",
				TimeoutSeconds: 120,
				Enabled:        false,
			},
		},
		Defaults: DefaultsCfg{
			OCRProvider: "mistral",
			LLMProvider: "mistral",
		},
	}
}

// Validate checks values that would otherwise fail later at request time.
func (c *Config) Validate() error {
	var problems []string

	if _, err := parseLevel(c.LogLevel); err != nil {
		problems = append(problems, err.Error())
	}
	if c.Render.DPI <= 0 {
		problems = append(problems, fmt.Sprintf("render.dpi must be positive, got %d", c.Render.DPI))
	}
	switch strings.ToLower(c.Render.Format) {
	case "png", "jpeg", "jpg":
	default:
		problems = append(problems, fmt.Sprintf("render.format must be png or jpeg, got %q", c.Render.Format))
	}
	if c.OCR.Concurrency < 0 {
		problems = append(problems, "ocr.concurrency must not be negative")
	}
	if c.Server.MaxUploadMB <= 0 {
		problems = append(problems, "server.max_upload_mb must be positive")
	}
	if p, ok := c.GetOCRProvider(c.Defaults.OCRProvider); !ok || !p.Enabled {
		problems = append(problems, fmt.Sprintf("defaults.ocr_provider %q is not an enabled OCR provider", c.Defaults.OCRProvider))
	}
	if p, ok := c.GetLLMProvider(c.Defaults.LLMProvider); !ok || !p.Enabled {
		problems = append(problems, fmt.Sprintf("defaults.llm_provider %q is not an enabled LLM provider", c.Defaults.LLMProvider))
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// GetOCRProvider returns an OCR provider config by name.
func (c *Config) GetOCRProvider(name string) (OCRProviderCfg, bool) {
	cfg, ok := c.OCRProviders[name]
	return cfg, ok
}

// GetLLMProvider returns an LLM provider config by name.
func (c *Config) GetLLMProvider(name string) (LLMProviderCfg, bool) {
	cfg, ok := c.LLMProviders[name]
	return cfg, ok
}

// SlogLevel returns the configured log level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

// MaxUploadBytes returns the upload size limit in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.Server.MaxUploadMB) << 20
}

// WriteTimeout returns the HTTP write timeout.
func (c *Config) WriteTimeout() time.Duration {
	return time.Duration(c.Server.WriteTimeout) * time.Second
}

// SessionTTL returns how long session results are kept.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.Session.TTLMinutes) * time.Minute
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log_level: %w", err)
	}
	return level, nil
}
