package providers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

const (
	MistralOCRName    = "mistral-ocr"
	MistralOCRBaseURL = "https://api.mistral.ai/v1"
	MistralOCRModel   = "mistral-ocr-latest"
	MistralAPIKeyEnv  = "MISTRAL_API_KEY"
)

// MistralOCRConfig holds configuration for the Mistral OCR client.
type MistralOCRConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
	Retry   RetryPolicy
	Logger  *slog.Logger
}

// MistralOCRClient implements OCRProvider using the Mistral OCR API.
// Each page image is sent as its own document.
type MistralOCRClient struct {
	apiKey  string
	baseURL string
	model   string
	retry   RetryPolicy
	client  *http.Client
	logger  *slog.Logger
}

// NewMistralOCRClient creates a new Mistral OCR client.
func NewMistralOCRClient(cfg MistralOCRConfig) *MistralOCRClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = MistralOCRBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = MistralOCRModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &MistralOCRClient{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
		retry:   cfg.Retry,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: cfg.Logger,
	}
}

// Name returns the provider identifier.
func (c *MistralOCRClient) Name() string {
	return MistralOCRName
}

// ProcessImage extracts text from a page image using Mistral OCR.
// A missing API key fails before any request is made.
func (c *MistralOCRClient) ProcessImage(ctx context.Context, image *Image, pageNum int) (*OCRResult, error) {
	if c.apiKey == "" {
		return nil, missingCredential(MistralOCRName, MistralAPIKeyEnv)
	}
	if image == nil || len(image.Data) == 0 {
		return nil, fmt.Errorf("page %d: empty image", pageNum)
	}

	start := time.Now()
	reqBody := mistralOCRRequest{
		Model: c.model,
		Document: mistralDocument{
			Type:     "image_url",
			ImageURL: image.DataURL(),
		},
	}

	var resp mistralOCRResponse
	attempts, err := c.retry.do(ctx, func() error {
		resp = mistralOCRResponse{}
		return postJSON(ctx, c.client, jsonRequest{
			provider: MistralOCRName,
			url:      c.baseURL + "/ocr",
			apiKey:   c.apiKey,
			body:     reqBody,
		}, &resp)
	})
	if err != nil {
		c.logger.Debug("mistral OCR request failed", "page", pageNum, "attempts", attempts, "error", err)
		return nil, err
	}

	if len(resp.Pages) == 0 {
		return nil, malformedResponse(MistralOCRName, "no pages in OCR response", nil)
	}

	// Single image = single page
	page := resp.Pages[0]

	metadata := map[string]any{
		"model_used": resp.Model,
		"dimensions": map[string]any{
			"width":  page.Dimensions.Width,
			"height": page.Dimensions.Height,
			"dpi":    page.Dimensions.DPI,
		},
	}
	if resp.UsageInfo != nil {
		metadata["pages_processed"] = resp.UsageInfo.PagesProcessed
	}

	return &OCRResult{
		Text:          page.Markdown,
		Metadata:      metadata,
		ExecutionTime: time.Since(start),
		Attempts:      attempts,
	}, nil
}

// Mistral OCR API types

type mistralOCRRequest struct {
	Model              string          `json:"model"`
	Document           mistralDocument `json:"document"`
	IncludeImageBase64 bool            `json:"include_image_base64,omitempty"`
}

type mistralDocument struct {
	Type     string `json:"type"` // "image_url" or "document_url"
	ImageURL string `json:"image_url,omitempty"`
}

type mistralOCRResponse struct {
	Model     string            `json:"model"`
	Pages     []mistralOCRPage  `json:"pages"`
	UsageInfo *mistralUsageInfo `json:"usage_info,omitempty"`
}

type mistralOCRPage struct {
	Index      int                   `json:"index"`
	Markdown   string                `json:"markdown"`
	Dimensions mistralPageDimensions `json:"dimensions"`
}

type mistralPageDimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
	DPI    int `json:"dpi"`
}

type mistralUsageInfo struct {
	PagesProcessed int `json:"pages_processed"`
	DocSizeBytes   int `json:"doc_size_bytes,omitempty"`
}

// Verify interface
var _ OCRProvider = (*MistralOCRClient)(nil)
