//go:build tesseract

package providers

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/otiai10/gosseract/v2"
)

func init() {
	localOCRFactories[TesseractOCRName] = func(cfg OCRProviderConfig, logger *slog.Logger) OCRProvider {
		return NewTesseractOCRClient(TesseractOCRConfig{Languages: cfg.Model, Logger: logger})
	}
}

// TesseractOCRConfig configures the local Tesseract engine.
type TesseractOCRConfig struct {
	// Languages is a "+"-separated list such as "eng+deu"; empty means eng.
	Languages string
	Logger    *slog.Logger
}

// TesseractOCRClient runs OCR in-process through libtesseract. It needs no
// API key and never returns AuthenticationError.
type TesseractOCRClient struct {
	languages []string
	logger    *slog.Logger
}

// NewTesseractOCRClient creates a Tesseract-backed OCR provider.
func NewTesseractOCRClient(cfg TesseractOCRConfig) *TesseractOCRClient {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	var langs []string
	for _, l := range strings.Split(cfg.Languages, "+") {
		if l = strings.TrimSpace(l); l != "" {
			langs = append(langs, l)
		}
	}
	if len(langs) == 0 {
		langs = []string{"eng"}
	}
	return &TesseractOCRClient{languages: langs, logger: cfg.Logger}
}

func (c *TesseractOCRClient) Name() string { return TesseractOCRName }

// ProcessImage recognizes one page. A fresh gosseract client is used per
// call so pages can be processed concurrently.
func (c *TesseractOCRClient) ProcessImage(ctx context.Context, image *Image, pageNum int) (*OCRResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(c.languages...); err != nil {
		return nil, &ServiceError{Provider: TesseractOCRName, Message: "set languages", Err: err}
	}
	if err := client.SetImageFromBytes(image.Data); err != nil {
		return nil, &ServiceError{Provider: TesseractOCRName, Message: "set image", Err: err}
	}
	text, err := client.Text()
	if err != nil {
		return nil, &ServiceError{Provider: TesseractOCRName, Message: "recognize text", Err: err}
	}

	c.logger.Debug("tesseract page recognized", "page", pageNum, "chars", len(text))
	return &OCRResult{
		Text:          strings.TrimSpace(text),
		Metadata:      map[string]any{"languages": strings.Join(c.languages, "+")},
		ExecutionTime: time.Since(start),
		Attempts:      1,
	}, nil
}

var _ OCRProvider = (*TesseractOCRClient)(nil)
