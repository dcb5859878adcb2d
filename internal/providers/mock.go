package providers

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

const (
	MockClientName = "mock"
	MockOCRName    = "mock-ocr"
)

// MockClient is an LLMClient for testing.
type MockClient struct {
	// Configurable behavior
	Latency      time.Duration
	Err          error // returned from every call when set
	ResponseText string

	// State
	requestCount atomic.Int64
	mu           sync.Mutex
	requests     []*ChatRequest
}

// NewMockClient creates a new mock client that returns responseText.
func NewMockClient(responseText string) *MockClient {
	return &MockClient{ResponseText: responseText}
}

// Name returns the client identifier.
func (c *MockClient) Name() string {
	return MockClientName
}

// Chat records the request and returns the configured response.
func (c *MockClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	count := c.requestCount.Add(1)
	c.mu.Lock()
	c.requests = append(c.requests, req)
	c.mu.Unlock()

	if c.Err != nil {
		return nil, c.Err
	}
	if err := sleepCtx(ctx, c.Latency); err != nil {
		return nil, err
	}

	promptTokens := 0
	for _, m := range req.Messages {
		promptTokens += len(m.Content) / 4 // Rough estimate
	}
	completionTokens := len(c.ResponseText) / 4

	return &ChatResult{
		Content:          c.ResponseText,
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		TotalTokens:      promptTokens + completionTokens,
		Provider:         MockClientName,
		ModelUsed:        req.Model,
		RequestID:        fmt.Sprintf("mock-%d", count),
		Attempts:         1,
	}, nil
}

// RequestCount returns the number of requests made.
func (c *MockClient) RequestCount() int {
	return int(c.requestCount.Load())
}

// LastRequest returns the most recent request, or nil.
func (c *MockClient) LastRequest() *ChatRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.requests) == 0 {
		return nil
	}
	return c.requests[len(c.requests)-1]
}

// MockOCRProvider is an OCRProvider for testing. By default it returns
// "page N" for page N so callers can verify ordering.
type MockOCRProvider struct {
	Latency time.Duration
	Err     error                         // returned from every call when set
	FailOn  int                           // page number that fails with Err (0 = all pages when Err set)
	TextFn  func(image *Image, pageNum int) string

	requestCount atomic.Int64
	mu           sync.Mutex
	pages        []int
}

// NewMockOCRProvider creates a mock OCR provider.
func NewMockOCRProvider() *MockOCRProvider {
	return &MockOCRProvider{}
}

// Name returns the provider identifier.
func (p *MockOCRProvider) Name() string {
	return MockOCRName
}

// ProcessImage returns the configured text for the page.
func (p *MockOCRProvider) ProcessImage(ctx context.Context, image *Image, pageNum int) (*OCRResult, error) {
	p.requestCount.Add(1)
	p.mu.Lock()
	p.pages = append(p.pages, pageNum)
	p.mu.Unlock()

	if p.Err != nil && (p.FailOn == 0 || p.FailOn == pageNum) {
		return nil, p.Err
	}
	if err := sleepCtx(ctx, p.Latency); err != nil {
		return nil, err
	}

	text := fmt.Sprintf("page %d", pageNum)
	if p.TextFn != nil {
		text = p.TextFn(image, pageNum)
	}
	return &OCRResult{Text: text, Attempts: 1}, nil
}

// RequestCount returns the number of requests made.
func (p *MockOCRProvider) RequestCount() int {
	return int(p.requestCount.Load())
}

// Pages returns the page numbers requested, in call order.
func (p *MockOCRProvider) Pages() []int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]int(nil), p.pages...)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Verify interfaces
var (
	_ LLMClient   = (*MockClient)(nil)
	_ OCRProvider = (*MockOCRProvider)(nil)
)
