package providers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/vertexai/genai"
	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	VertexName          = "vertex"
	VertexDefaultModel  = "gemini-2.0-flash"
	VertexDefaultRegion = "us-central1"
)

// VertexConfig holds configuration for the Vertex AI Gemini client.
// Credentials come from Application Default Credentials.
type VertexConfig struct {
	Project      string
	Location     string
	DefaultModel string
	Timeout      time.Duration
	Retry        RetryPolicy
	Logger       *slog.Logger
}

// VertexClient implements LLMClient using Gemini models on Vertex AI.
// The underlying genai client is created on first use.
type VertexClient struct {
	project      string
	location     string
	defaultModel string
	timeout      time.Duration
	retry        RetryPolicy
	logger       *slog.Logger

	mu     sync.Mutex
	client *genai.Client
}

// NewVertexClient creates a new Vertex AI client.
func NewVertexClient(cfg VertexConfig) *VertexClient {
	if cfg.Location == "" {
		cfg.Location = VertexDefaultRegion
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = VertexDefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &VertexClient{
		project:      cfg.Project,
		location:     cfg.Location,
		defaultModel: cfg.DefaultModel,
		timeout:      cfg.Timeout,
		retry:        cfg.Retry,
		logger:       cfg.Logger,
	}
}

// Name returns the client identifier.
func (c *VertexClient) Name() string {
	return VertexName
}

// Close releases the underlying genai client, if one was created.
func (c *VertexClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client == nil {
		return nil
	}
	err := c.client.Close()
	c.client = nil
	return err
}

func (c *VertexClient) genaiClient(ctx context.Context) (*genai.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client != nil {
		return c.client, nil
	}
	client, err := genai.NewClient(ctx, c.project, c.location)
	if err != nil {
		return nil, &AuthenticationError{Provider: VertexName, Message: "failed to create Vertex AI client", Err: err}
	}
	c.client = client
	return client, nil
}

// Chat sends the request to Gemini. System messages become the system
// instruction; the rest are flattened into one user turn.
func (c *VertexClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	if c.project == "" {
		return nil, &AuthenticationError{Provider: VertexName, Message: "no GCP project configured", Err: ErrMissingCredential}
	}
	start := time.Now()

	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.New().String()
	}
	modelName := req.Model
	if modelName == "" {
		modelName = c.defaultModel
	}

	client, err := c.genaiClient(ctx)
	if err != nil {
		return nil, err
	}

	model := client.GenerativeModel(modelName)
	model.GenerationConfig = genai.GenerationConfig{
		Temperature: genai.Ptr(float32(req.Temperature)),
	}
	if req.ResponseFormat != nil {
		model.GenerationConfig.ResponseMIMEType = "application/json"
	}
	if req.MaxTokens > 0 {
		model.GenerationConfig.MaxOutputTokens = genai.Ptr(int32(req.MaxTokens))
	}

	var system []string
	var parts []genai.Part
	for _, m := range req.Messages {
		if m.Role == "system" {
			system = append(system, m.Content)
			continue
		}
		parts = append(parts, genai.Text(m.Content))
		for _, img := range m.Images {
			parts = append(parts, genai.ImageData(imageFormat(img.MIMEType), img.Data))
		}
	}
	if len(system) > 0 {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(strings.Join(system, "\n\n"))},
		}
	}

	var resp *genai.GenerateContentResponse
	attempts, err := c.retry.do(ctx, func() error {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()
		var callErr error
		resp, callErr = model.GenerateContent(callCtx, parts...)
		if callErr != nil {
			return c.mapError(ctx, callErr)
		}
		return nil
	})
	if err != nil {
		c.logger.Debug("vertex request failed", "request_id", requestID, "attempts", attempts, "error", err)
		return nil, err
	}

	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, malformedResponse(VertexName, "no candidates in response", nil)
	}

	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if t, ok := p.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}

	result := &ChatResult{
		Content:       b.String(),
		ExecutionTime: time.Since(start),
		Provider:      VertexName,
		ModelUsed:     modelName,
		RequestID:     requestID,
		Attempts:      attempts,
	}
	if resp.UsageMetadata != nil {
		result.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		result.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
		result.TotalTokens = int(resp.UsageMetadata.TotalTokenCount)
	}
	return result, nil
}

func (c *VertexClient) mapError(ctx context.Context, err error) error {
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &TimeoutError{Provider: VertexName, Timeout: c.timeout, Err: err}
	}
	switch status.Code(err) {
	case codes.Unauthenticated, codes.PermissionDenied:
		return &AuthenticationError{Provider: VertexName, Message: err.Error(), Err: err}
	case codes.DeadlineExceeded:
		return &TimeoutError{Provider: VertexName, Timeout: c.timeout, Err: err}
	case codes.Unavailable, codes.ResourceExhausted, codes.Internal:
		return &ServiceError{Provider: VertexName, Message: err.Error(), Err: err, transport: true}
	}
	return &ServiceError{Provider: VertexName, Message: fmt.Sprintf("generate content: %v", err), Err: err}
}

func imageFormat(mimeType string) string {
	if f, ok := strings.CutPrefix(mimeType, "image/"); ok {
		return f
	}
	return "png"
}

// Verify interface
var _ LLMClient = (*VertexClient)(nil)
