// Package pipeline runs one document through prompt lookup, rendering, OCR
// and extraction.
//
// Stages run strictly in order and each one consumes the previous stage's
// output. A failure stops the run and is returned as *StageError wrapping the
// typed error from the failing component; no partial Result is returned.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackzampolin/pdfextract/internal/extract"
	"github.com/jackzampolin/pdfextract/internal/ocr"
	"github.com/jackzampolin/pdfextract/internal/prompts"
	"github.com/jackzampolin/pdfextract/internal/providers"
	"github.com/jackzampolin/pdfextract/internal/render"
)

// Stage names a pipeline step.
type Stage string

const (
	StagePrompt  Stage = "prompt"
	StageRender  Stage = "render"
	StageOCR     Stage = "ocr"
	StageExtract Stage = "extract"
)

// Stages lists the steps in execution order.
var Stages = []Stage{StagePrompt, StageRender, StageOCR, StageExtract}

// StageError reports which stage failed.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// StageOf returns the failing stage of err, or "" if err is not a *StageError.
func StageOf(err error) Stage {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}

// PromptSource looks up extraction prompts by name.
type PromptSource interface {
	Get(name string) (*prompts.ExtractionPrompt, error)
}

// PageRenderer turns PDF bytes into page images.
type PageRenderer interface {
	Render(ctx context.Context, pdf []byte) ([]render.PageImage, error)
}

// ProviderSource resolves OCR providers and LLM clients.
type ProviderSource interface {
	GetOCR(name string) (providers.OCRProvider, error)
	GetLLM(name string) (providers.LLMClient, error)
	DefaultOCR() (providers.OCRProvider, error)
	DefaultLLM() (providers.LLMClient, error)
}

// Config wires a Pipeline.
type Config struct {
	Prompts   PromptSource
	Renderer  PageRenderer
	Providers ProviderSource

	OCRConcurrency  int
	Temperature     float64
	MaxTokens       int
	AttachFirstPage bool

	Logger *slog.Logger
}

// Input is one document to process.
type Input struct {
	PDF      []byte
	FileName string
	Prompt   string

	// Provider overrides; empty uses the registry defaults.
	OCRProvider string
	LLMProvider string
}

// Durations records how long each stage took.
type Durations struct {
	Render  time.Duration `json:"render"`
	OCR     time.Duration `json:"ocr"`
	Extract time.Duration `json:"extract"`
	Total   time.Duration `json:"total"`
}

// Result is the output of a successful run.
type Result struct {
	FileName  string                    `json:"file_name"`
	Prompt    *prompts.ExtractionPrompt `json:"prompt"`
	Pages     []render.PageImage        `json:"pages"`
	OCR       []ocr.Result              `json:"ocr"`
	Record    *extract.Record           `json:"record"`
	Durations Durations                 `json:"durations"`
}

// Pipeline holds no per-run state and is safe for concurrent use.
type Pipeline struct {
	prompts   PromptSource
	renderer  PageRenderer
	providers ProviderSource

	ocrConcurrency  int
	temperature     float64
	maxTokens       int
	attachFirstPage bool

	logger *slog.Logger
}

// New creates a Pipeline.
func New(cfg Config) *Pipeline {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Pipeline{
		prompts:         cfg.Prompts,
		renderer:        cfg.Renderer,
		providers:       cfg.Providers,
		ocrConcurrency:  cfg.OCRConcurrency,
		temperature:     cfg.Temperature,
		maxTokens:       cfg.MaxTokens,
		attachFirstPage: cfg.AttachFirstPage,
		logger:          cfg.Logger,
	}
}

// Run processes one document.
func (p *Pipeline) Run(ctx context.Context, in Input) (*Result, error) {
	start := time.Now()
	logger := p.logger.With("file", in.FileName, "prompt", in.Prompt)

	prompt, err := p.prompts.Get(in.Prompt)
	if err != nil {
		return nil, &StageError{Stage: StagePrompt, Err: err}
	}

	ocrProvider, err := p.resolveOCR(in.OCRProvider)
	if err != nil {
		return nil, &StageError{Stage: StageOCR, Err: err}
	}
	llm, err := p.resolveLLM(in.LLMProvider)
	if err != nil {
		return nil, &StageError{Stage: StageExtract, Err: err}
	}

	stageStart := time.Now()
	pages, err := p.renderer.Render(ctx, in.PDF)
	if err != nil {
		return nil, &StageError{Stage: StageRender, Err: err}
	}
	renderTime := time.Since(stageStart)
	logger.Info("rendered pages", "pages", len(pages), "duration", renderTime)

	stageStart = time.Now()
	ocrClient := ocr.New(ocr.Config{
		Provider:    ocrProvider,
		Concurrency: p.ocrConcurrency,
		Logger:      p.logger,
	})
	texts, err := ocrClient.Recognize(ctx, pages)
	if err != nil {
		return nil, &StageError{Stage: StageOCR, Err: err}
	}
	ocrTime := time.Since(stageStart)
	logger.Info("OCR complete", "provider", ocrProvider.Name(), "pages", len(texts), "duration", ocrTime)

	stageStart = time.Now()
	extractor := extract.New(extract.Config{
		Client:      llm,
		Temperature: p.temperature,
		MaxTokens:   p.maxTokens,
		Logger:      p.logger,
	})
	var opts []extract.Option
	if p.attachFirstPage && len(pages) > 0 {
		opts = append(opts, extract.WithPageImage(pages[0]))
	}
	record, err := extractor.Extract(ctx, texts, prompt, opts...)
	if err != nil {
		return nil, &StageError{Stage: StageExtract, Err: err}
	}
	extractTime := time.Since(stageStart)
	logger.Info("extraction complete",
		"provider", llm.Name(),
		"model", record.Model,
		"fields", len(record.Fields),
		"tokens", record.Usage.TotalTokens,
		"duration", extractTime)

	return &Result{
		FileName: in.FileName,
		Prompt:   prompt,
		Pages:    pages,
		OCR:      texts,
		Record:   record,
		Durations: Durations{
			Render:  renderTime,
			OCR:     ocrTime,
			Extract: extractTime,
			Total:   time.Since(start),
		},
	}, nil
}

func (p *Pipeline) resolveOCR(name string) (providers.OCRProvider, error) {
	if p.providers == nil {
		return nil, errors.New("no providers configured")
	}
	if name != "" {
		return p.providers.GetOCR(name)
	}
	return p.providers.DefaultOCR()
}

func (p *Pipeline) resolveLLM(name string) (providers.LLMClient, error) {
	if p.providers == nil {
		return nil, errors.New("no providers configured")
	}
	if name != "" {
		return p.providers.GetLLM(name)
	}
	return p.providers.DefaultLLM()
}
