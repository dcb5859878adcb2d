// Package extract turns OCR text into a structured record using an LLM and
// a named extraction prompt.
package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/jackzampolin/pdfextract/internal/ocr"
	"github.com/jackzampolin/pdfextract/internal/prompts"
	"github.com/jackzampolin/pdfextract/internal/prompts/extraction"
	"github.com/jackzampolin/pdfextract/internal/providers"
	"github.com/jackzampolin/pdfextract/internal/render"
)

// Usage reports token counts for the extraction call.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Record is the structured result of one extraction.
type Record struct {
	Fields map[string]any  `json:"fields"`
	JSON   json.RawMessage `json:"-"` // Fields as JSON, keys in model order
	Raw    string          `json:"raw"`

	Prompt     string        `json:"prompt"`
	PromptHash string        `json:"prompt_hash"`
	Provider   string        `json:"provider"`
	Model      string        `json:"model"`
	RequestID  string        `json:"request_id"`
	Usage      Usage         `json:"usage"`
	Duration   time.Duration `json:"duration"`
}

// Config configures an Extractor.
type Config struct {
	Client      providers.LLMClient
	Model       string // empty uses the client default
	Temperature float64
	MaxTokens   int
	Logger      *slog.Logger
}

// Extractor issues one LLM request per document.
type Extractor struct {
	client      providers.LLMClient
	model       string
	temperature float64
	maxTokens   int
	logger      *slog.Logger
}

// New creates an Extractor.
func New(cfg Config) *Extractor {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Extractor{
		client:      cfg.Client,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		logger:      cfg.Logger,
	}
}

// Option adjusts a single Extract call.
type Option func(*callOptions)

type callOptions struct {
	image *render.PageImage
}

// WithPageImage attaches a page image to the request for visual reference.
func WithPageImage(img render.PageImage) Option {
	return func(o *callOptions) {
		o.image = &img
	}
}

// Extract joins the page texts in order, sends them with the prompt to the
// model and parses the reply. Provider failures keep their type; an
// unparseable reply returns *ParseError. The reply is never retried.
func (e *Extractor) Extract(ctx context.Context, pages []ocr.Result, prompt *prompts.ExtractionPrompt, opts ...Option) (*Record, error) {
	if e.client == nil {
		return nil, errors.New("no LLM provider configured")
	}
	if prompt == nil {
		return nil, errors.New("no extraction prompt")
	}
	var o callOptions
	for _, opt := range opts {
		opt(&o)
	}

	req, err := e.buildRequest(pages, prompt, o.image)
	if err != nil {
		return nil, err
	}

	result, err := e.client.Chat(ctx, req)
	if err != nil {
		return nil, err
	}

	rec, err := ParseResponse(result.Content, prompt.Schema)
	if err != nil {
		e.logger.Debug("extraction response did not parse",
			"prompt", prompt.Name,
			"provider", result.Provider,
			"request_id", result.RequestID,
			"error", err)
		return nil, err
	}

	rec.Prompt = prompt.Name
	rec.PromptHash = prompt.Hash
	rec.Provider = result.Provider
	rec.Model = result.ModelUsed
	rec.RequestID = result.RequestID
	rec.Duration = result.ExecutionTime
	rec.Usage = Usage{
		PromptTokens:     result.PromptTokens,
		CompletionTokens: result.CompletionTokens,
		TotalTokens:      result.TotalTokens,
	}
	return rec, nil
}

func (e *Extractor) buildRequest(pages []ocr.Result, prompt *prompts.ExtractionPrompt, image *render.PageImage) (*providers.ChatRequest, error) {
	user, err := extraction.UserPrompt(extraction.UserData{
		Template:  prompt.Text,
		OCRText:   ocr.Concatenate(pages),
		PageCount: len(pages),
		HasSchema: prompt.HasSchema(),
		HasImage:  image != nil,
	})
	if err != nil {
		return nil, err
	}

	userMsg := providers.Message{Role: "user", Content: user}
	if image != nil {
		userMsg.Images = []*providers.Image{{Data: image.Data, MIMEType: image.MIMEType}}
	}

	req := &providers.ChatRequest{
		Messages: []providers.Message{
			{Role: "system", Content: extraction.SystemPrompt()},
			userMsg,
		},
		Model:          e.model,
		Temperature:    e.temperature,
		MaxTokens:      e.maxTokens,
		ResponseFormat: &providers.ResponseFormat{Type: "json_object"},
	}
	if prompt.HasSchema() {
		schema, err := responseSchema(prompt.Name, prompt.Schema)
		if err != nil {
			return nil, err
		}
		req.ResponseFormat = &providers.ResponseFormat{Type: "json_schema", JSONSchema: schema}
	}
	return req, nil
}

var schemaNameChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// responseSchema wraps a bare schema as {"name","schema"} for providers that
// expect the OpenAI json_schema shape.
func responseSchema(name string, raw json.RawMessage) (json.RawMessage, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return nil, fmt.Errorf("invalid schema for prompt %q: %w", name, err)
	}
	if _, wrapped := top["schema"]; wrapped {
		return raw, nil
	}
	name = schemaNameChars.ReplaceAllString(name, "_")
	if len(name) > 64 {
		name = name[:64]
	}
	return json.Marshal(map[string]any{
		"name":   name,
		"schema": raw,
	})
}
