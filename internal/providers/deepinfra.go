package providers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

const (
	DeepInfraOCRName          = "deepinfra"
	DeepInfraBaseURL          = "https://api.deepinfra.com/v1/openai"
	DeepInfraAPIKeyEnv        = "DEEPINFRA_API_KEY"
	DeepInfraDefaultOCRModel  = "PaddlePaddle/PaddleOCR-VL-0.9B"
	DeepInfraDefaultOCRPrompt = "Extract all text from this image. Preserve the structure and formatting as much as possible. Output only the extracted text."
)

// DeepInfraOCRConfig holds configuration for the DeepInfra OCR client.
type DeepInfraOCRConfig struct {
	APIKey      string
	BaseURL     string
	Model       string // e.g., "Qwen/Qwen2-VL-72B-Instruct"
	Prompt      string // Custom OCR prompt
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	Retry       RetryPolicy
	Logger      *slog.Logger
}

// DeepInfraOCRClient implements OCRProvider using a vision model behind
// DeepInfra's OpenAI-compatible chat API.
type DeepInfraOCRClient struct {
	apiKey      string
	baseURL     string
	model       string
	prompt      string
	temperature float64
	maxTokens   int
	retry       RetryPolicy
	client      *http.Client
	logger      *slog.Logger
}

// NewDeepInfraOCRClient creates a new DeepInfra OCR client.
func NewDeepInfraOCRClient(cfg DeepInfraOCRConfig) *DeepInfraOCRClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DeepInfraBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DeepInfraDefaultOCRModel
	}
	if cfg.Prompt == "" {
		cfg.Prompt = DeepInfraDefaultOCRPrompt
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 8000
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &DeepInfraOCRClient{
		apiKey:      cfg.APIKey,
		baseURL:     cfg.BaseURL,
		model:       cfg.Model,
		prompt:      cfg.Prompt,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		retry:       cfg.Retry,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: cfg.Logger,
	}
}

// Name returns the provider identifier.
func (c *DeepInfraOCRClient) Name() string {
	return DeepInfraOCRName
}

// ProcessImage extracts text from a page image using the configured vision model.
func (c *DeepInfraOCRClient) ProcessImage(ctx context.Context, image *Image, pageNum int) (*OCRResult, error) {
	if c.apiKey == "" {
		return nil, missingCredential(DeepInfraOCRName, DeepInfraAPIKeyEnv)
	}
	if image == nil || len(image.Data) == 0 {
		return nil, fmt.Errorf("page %d: empty image", pageNum)
	}

	start := time.Now()
	reqBody := chatCompletionRequest{
		Model: c.model,
		Messages: []chatCompletionMessage{
			{
				Role: "user",
				Content: []chatContentPart{
					{Type: "text", Text: c.prompt},
					{Type: "image_url", ImageURL: &chatImageURL{URL: image.DataURL()}},
				},
			},
		},
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	}

	var resp chatCompletionResponse
	attempts, err := c.retry.do(ctx, func() error {
		resp = chatCompletionResponse{}
		return postJSON(ctx, c.client, jsonRequest{
			provider: DeepInfraOCRName,
			url:      c.baseURL + "/chat/completions",
			apiKey:   c.apiKey,
			body:     reqBody,
		}, &resp)
	})
	if err != nil {
		c.logger.Debug("deepinfra OCR request failed", "page", pageNum, "attempts", attempts, "error", err)
		return nil, err
	}

	if len(resp.Choices) == 0 {
		return nil, malformedResponse(DeepInfraOCRName, "no response choices from model", nil)
	}

	return &OCRResult{
		Text: resp.Choices[0].Message.text(),
		Metadata: map[string]any{
			"model_used":        resp.Model,
			"prompt_tokens":     resp.Usage.PromptTokens,
			"completion_tokens": resp.Usage.CompletionTokens,
		},
		ExecutionTime: time.Since(start),
		Attempts:      attempts,
	}, nil
}

// Verify interface
var _ OCRProvider = (*DeepInfraOCRClient)(nil)
