package providers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
)

const (
	OpenAIChatName   = "openai"
	OpenAIAPIKeyEnv  = "OPENAI_API_KEY"
	MistralChatName  = "mistral"
	MistralChatURL   = "https://api.mistral.ai/v1"
	MistralChatModel = "pixtral-12b-latest"
)

// OpenAIChatConfig holds configuration for an OpenAI-compatible chat client.
// Mistral's chat API is OpenAI-compatible and is served by this client with
// BaseURL set to MistralChatURL.
type OpenAIChatConfig struct {
	Name         string // reported provider name; defaults to "openai"
	APIKey       string
	APIKeyEnv    string // environment variable named in missing-key errors
	BaseURL      string
	DefaultModel string
	Timeout      time.Duration
	Retry        RetryPolicy
	Logger       *slog.Logger
}

// OpenAIChatClient implements LLMClient using the openai-go SDK.
type OpenAIChatClient struct {
	name         string
	apiKey       string
	apiKeyEnv    string
	baseURL      string
	defaultModel string
	timeout      time.Duration
	retry        RetryPolicy
	client       openai.Client
	logger       *slog.Logger
}

// NewOpenAIChatClient creates a chat client. SDK-level retries are disabled;
// retries follow the configured RetryPolicy.
func NewOpenAIChatClient(cfg OpenAIChatConfig) *OpenAIChatClient {
	if cfg.Name == "" {
		cfg.Name = OpenAIChatName
	}
	if cfg.APIKeyEnv == "" {
		cfg.APIKeyEnv = OpenAIAPIKeyEnv
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = string(openai.ChatModelGPT4o)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	httpClient := &http.Client{Timeout: cfg.Timeout}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAIChatClient{
		name:         cfg.Name,
		apiKey:       cfg.APIKey,
		apiKeyEnv:    cfg.APIKeyEnv,
		baseURL:      cfg.BaseURL,
		defaultModel: cfg.DefaultModel,
		timeout:      cfg.Timeout,
		retry:        cfg.Retry,
		client:       openai.NewClient(opts...),
		logger:       cfg.Logger,
	}
}

// NewMistralChatClient returns an OpenAIChatClient pointed at Mistral's chat API.
func NewMistralChatClient(cfg OpenAIChatConfig) *OpenAIChatClient {
	cfg.Name = MistralChatName
	cfg.APIKeyEnv = MistralAPIKeyEnv
	if cfg.BaseURL == "" {
		cfg.BaseURL = MistralChatURL
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = MistralChatModel
	}
	return NewOpenAIChatClient(cfg)
}

// Name returns the client identifier.
func (c *OpenAIChatClient) Name() string {
	return c.name
}

// Chat sends a chat completion request.
func (c *OpenAIChatClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	if c.apiKey == "" {
		return nil, missingCredential(c.name, c.apiKeyEnv)
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

	params := openai.ChatCompletionNewParams{
		Model:       shared.ChatModel(model),
		Messages:    toOpenAIMessages(req.Messages),
		Temperature: openai.Float(req.Temperature),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}
	if rf := toOpenAIResponseFormat(req.ResponseFormat); rf != nil {
		params.ResponseFormat = *rf
	}

	var resp *openai.ChatCompletion
	attempts, err := c.retry.do(ctx, func() error {
		var callErr error
		resp, callErr = c.client.Chat.Completions.New(ctx, params)
		if callErr != nil {
			return c.mapError(ctx, callErr)
		}
		return nil
	})
	if err != nil {
		c.logger.Debug("chat request failed", "provider", c.name, "request_id", requestID, "attempts", attempts, "error", err)
		return nil, err
	}

	if resp == nil || len(resp.Choices) == 0 {
		return nil, malformedResponse(c.name, "no choices in response", nil)
	}

	return &ChatResult{
		Content:          resp.Choices[0].Message.Content,
		PromptTokens:     int(resp.Usage.PromptTokens),
		CompletionTokens: int(resp.Usage.CompletionTokens),
		TotalTokens:      int(resp.Usage.TotalTokens),
		ExecutionTime:    time.Since(start),
		Provider:         c.name,
		ModelUsed:        resp.Model,
		RequestID:        requestID,
		Attempts:         attempts,
	}, nil
}

// mapError converts SDK errors to the provider error taxonomy.
func (c *OpenAIChatClient) mapError(ctx context.Context, err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		msg := apiErr.Message
		if msg == "" {
			msg = http.StatusText(apiErr.StatusCode)
		}
		if apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden {
			return &AuthenticationError{Provider: c.name, StatusCode: apiErr.StatusCode, Message: msg, Err: err}
		}
		return &ServiceError{Provider: c.name, StatusCode: apiErr.StatusCode, Message: msg, Err: err}
	}
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return malformedResponse(c.name, "malformed response body", err)
	}
	return transportError(ctx, c.name, c.timeout, err)
}

func toOpenAIMessages(msgs []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case "system":
			out = append(out, openai.SystemMessage(m.Content))
		case "assistant":
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			if len(m.Images) == 0 {
				out = append(out, openai.UserMessage(m.Content))
				continue
			}
			parts := []openai.ChatCompletionContentPartUnionParam{
				openai.TextContentPart(m.Content),
			}
			for _, img := range m.Images {
				parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
					URL: img.DataURL(),
				}))
			}
			out = append(out, openai.UserMessage(parts))
		}
	}
	return out
}

func toOpenAIResponseFormat(rf *ResponseFormat) *openai.ChatCompletionNewParamsResponseFormatUnion {
	if rf == nil {
		return nil
	}
	switch rf.Type {
	case "json_object":
		return &openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	case "json_schema":
		var wrapper struct {
			Name   string          `json:"name"`
			Strict *bool           `json:"strict"`
			Schema json.RawMessage `json:"schema"`
		}
		_ = json.Unmarshal(rf.JSONSchema, &wrapper)
		schemaRaw := wrapper.Schema
		if len(schemaRaw) == 0 {
			schemaRaw = rf.JSONSchema
		}
		var schema map[string]any
		if err := json.Unmarshal(schemaRaw, &schema); err != nil {
			return nil
		}
		name := wrapper.Name
		if name == "" {
			name = "extraction"
		}
		param := shared.ResponseFormatJSONSchemaJSONSchemaParam{
			Name:   name,
			Schema: schema,
		}
		if wrapper.Strict != nil {
			param.Strict = openai.Bool(*wrapper.Strict)
		}
		return &openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{JSONSchema: param},
		}
	}
	return nil
}

// Verify interface
var _ LLMClient = (*OpenAIChatClient)(nil)
