package pipeline

import (
	"context"
	"log/slog"

	"github.com/jackzampolin/pdfextract/internal/config"
	"github.com/jackzampolin/pdfextract/internal/render"
)

// Runner runs one document through the pipeline.
type Runner interface {
	Run(ctx context.Context, in Input) (*Result, error)
}

// FromConfig builds a Pipeline using the render, OCR and extraction settings
// in cfg. An unrecognized render format falls back to PNG; Validate reports it.
func FromConfig(cfg *config.Config, prompts PromptSource, providers ProviderSource, logger *slog.Logger) *Pipeline {
	format, err := render.ParseFormat(cfg.Render.Format)
	if err != nil {
		format = render.PNG
	}
	renderer := render.New(render.Config{
		DPI:        cfg.Render.DPI,
		Format:     format,
		MaxWorkers: cfg.Render.MaxWorkers,
		Rasterizer: render.NewPdftoppmRasterizer(cfg.Render.PdftoppmPath),
		Logger:     logger,
	})
	return New(Config{
		Prompts:         prompts,
		Renderer:        renderer,
		Providers:       providers,
		OCRConcurrency:  cfg.OCR.Concurrency,
		Temperature:     cfg.Extraction.Temperature,
		MaxTokens:       cfg.Extraction.MaxTokens,
		AttachFirstPage: cfg.Extraction.AttachFirstPage,
		Logger:          logger,
	})
}

// ConfiguredRunner builds a fresh Pipeline from the current config on every
// run so hot-reloaded render and extraction settings take effect.
type ConfiguredRunner struct {
	Config    func() *config.Config
	Prompts   PromptSource
	Providers ProviderSource
	Logger    *slog.Logger
}

// Run implements Runner.
func (r *ConfiguredRunner) Run(ctx context.Context, in Input) (*Result, error) {
	return FromConfig(r.Config(), r.Prompts, r.Providers, r.Logger).Run(ctx, in)
}

var (
	_ Runner = (*Pipeline)(nil)
	_ Runner = (*ConfiguredRunner)(nil)
)
