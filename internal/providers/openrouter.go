package providers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const (
	OpenRouterName      = "openrouter"
	OpenRouterBaseURL   = "https://openrouter.ai/api/v1"
	OpenRouterAPIKeyEnv = "OPENROUTER_API_KEY"
)

// OpenRouterConfig holds configuration for the OpenRouter client.
type OpenRouterConfig struct {
	APIKey       string
	BaseURL      string
	DefaultModel string
	Timeout      time.Duration
	Retry        RetryPolicy
	Logger       *slog.Logger
}

// OpenRouterClient implements LLMClient using the OpenRouter API.
type OpenRouterClient struct {
	apiKey       string
	baseURL      string
	defaultModel string
	retry        RetryPolicy
	client       *http.Client
	logger       *slog.Logger
}

// NewOpenRouterClient creates a new OpenRouter client.
func NewOpenRouterClient(cfg OpenRouterConfig) *OpenRouterClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = OpenRouterBaseURL
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = "mistralai/pixtral-12b"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &OpenRouterClient{
		apiKey:       cfg.APIKey,
		baseURL:      cfg.BaseURL,
		defaultModel: cfg.DefaultModel,
		retry:        cfg.Retry,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: cfg.Logger,
	}
}

// Name returns the client identifier.
func (c *OpenRouterClient) Name() string {
	return OpenRouterName
}

// Chat sends a chat completion request.
func (c *OpenRouterClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	if c.apiKey == "" {
		return nil, missingCredential(OpenRouterName, OpenRouterAPIKeyEnv)
	}
	start := time.Now()

	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.New().String()
	}
	model := req.Model
	if model == "" {
		model = c.defaultModel
	}

	orReq := chatCompletionRequest{
		Model:       model,
		Messages:    toChatMessages(req.Messages),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if req.ResponseFormat != nil {
		orReq.ResponseFormat = &chatResponseFormat{
			Type:       req.ResponseFormat.Type,
			JSONSchema: req.ResponseFormat.JSONSchema,
		}
	}

	var resp chatCompletionResponse
	attempts, err := c.retry.do(ctx, func() error {
		resp = chatCompletionResponse{}
		return postJSON(ctx, c.client, jsonRequest{
			provider: OpenRouterName,
			url:      c.baseURL + "/chat/completions",
			apiKey:   c.apiKey,
			headers: map[string]string{
				"HTTP-Referer": "https://github.com/jackzampolin/pdfextract",
				"X-Title":      "pdfextract",
			},
			body: &orReq,
		}, &resp)
	})
	if err != nil {
		c.logger.Debug("openrouter request failed", "request_id", requestID, "attempts", attempts, "error", err)
		return nil, err
	}

	// OpenRouter reports some model-level failures with a 200 status
	if resp.Error != nil {
		return nil, &ServiceError{Provider: OpenRouterName, Message: resp.Error.Message}
	}
	if len(resp.Choices) == 0 {
		return nil, malformedResponse(OpenRouterName, "no choices in response", nil)
	}

	return &ChatResult{
		Content:          resp.Choices[0].Message.text(),
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
		ExecutionTime:    time.Since(start),
		Provider:         OpenRouterName,
		ModelUsed:        resp.Model,
		RequestID:        requestID,
		Attempts:         attempts,
	}, nil
}

// Verify interface
var _ LLMClient = (*OpenRouterClient)(nil)
