package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"
)

func TestMockClient(t *testing.T) {
	t.Run("chat", func(t *testing.T) {
		c := NewMockClient("hello world")

		result, err := c.Chat(context.Background(), &ChatRequest{
			Model:    "test-model",
			Messages: []Message{{Role: "user", Content: "test"}},
		})
		if err != nil {
			t.Fatalf("Chat() error = %v", err)
		}
		if result.Content != "hello world" {
			t.Errorf("Content = %q, want %q", result.Content, "hello world")
		}
		if c.RequestCount() != 1 {
			t.Errorf("RequestCount = %d, want 1", c.RequestCount())
		}
		if c.LastRequest().Model != "test-model" {
			t.Errorf("LastRequest().Model = %q", c.LastRequest().Model)
		}
	})

	t.Run("configured error", func(t *testing.T) {
		c := NewMockClient("")
		c.Err = &ServiceError{Provider: "mock", StatusCode: 500, Message: "boom"}

		_, err := c.Chat(context.Background(), &ChatRequest{})
		var svcErr *ServiceError
		if !errors.As(err, &svcErr) {
			t.Errorf("expected ServiceError, got %v", err)
		}
	})

	t.Run("context cancellation", func(t *testing.T) {
		c := NewMockClient("slow")
		c.Latency = time.Second

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()

		if _, err := c.Chat(ctx, &ChatRequest{}); !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected DeadlineExceeded, got %v", err)
		}
	})
}

func TestMockOCRProvider(t *testing.T) {
	p := NewMockOCRProvider()

	for i := 1; i <= 3; i++ {
		result, err := p.ProcessImage(context.Background(), testImage(), i)
		if err != nil {
			t.Fatalf("ProcessImage(%d) error = %v", i, err)
		}
		if want := fmt.Sprintf("page %d", i); result.Text != want {
			t.Errorf("Text = %q, want %q", result.Text, want)
		}
	}
	if p.RequestCount() != 3 {
		t.Errorf("RequestCount = %d, want 3", p.RequestCount())
	}

	p.Err = errors.New("page failed")
	p.FailOn = 2
	if _, err := p.ProcessImage(context.Background(), testImage(), 1); err != nil {
		t.Errorf("page 1 should succeed, got %v", err)
	}
	if _, err := p.ProcessImage(context.Background(), testImage(), 2); err == nil {
		t.Error("page 2 should fail")
	}
}

func TestRateLimiter(t *testing.T) {
	t.Run("disabled limiter is nil", func(t *testing.T) {
		if NewRateLimiter(0) != nil {
			t.Error("expected nil limiter for 0 rpm")
		}
		var r *RateLimiter
		if err := r.Wait(context.Background()); err != nil {
			t.Errorf("nil limiter Wait() = %v", err)
		}
	})

	t.Run("consumes tokens", func(t *testing.T) {
		r := NewRateLimiter(60)
		for i := 0; i < 5; i++ {
			if err := r.Wait(context.Background()); err != nil {
				t.Fatalf("Wait() error = %v", err)
			}
		}
		status := r.Status()
		if status.TotalConsumed != 5 {
			t.Errorf("TotalConsumed = %d, want 5", status.TotalConsumed)
		}
		if status.TokensLimit != 60 {
			t.Errorf("TokensLimit = %d, want 60", status.TokensLimit)
		}
	})

	t.Run("context cancellation while waiting", func(t *testing.T) {
		r := NewRateLimiter(1)
		if err := r.Wait(context.Background()); err != nil {
			t.Fatalf("first Wait() error = %v", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		if err := r.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected DeadlineExceeded, got %v", err)
		}
	})

	t.Run("wraps OCR provider", func(t *testing.T) {
		mock := NewMockOCRProvider()
		if WithRateLimit(mock, nil) != OCRProvider(mock) {
			t.Error("nil limiter should return the provider unchanged")
		}
		limited := WithRateLimit(mock, NewRateLimiter(600))
		if _, err := limited.ProcessImage(context.Background(), testImage(), 1); err != nil {
			t.Fatalf("ProcessImage() error = %v", err)
		}
		if limited.Name() != MockOCRName {
			t.Errorf("Name() = %q", limited.Name())
		}
	})
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"rate limited", &ServiceError{StatusCode: http.StatusTooManyRequests}, true},
		{"server error", &ServiceError{StatusCode: http.StatusServiceUnavailable}, true},
		{"bad request", &ServiceError{StatusCode: http.StatusBadRequest}, false},
		{"transport", transportError(context.Background(), "p", 0, errors.New("connection reset")), true},
		{"malformed", malformedResponse("p", "malformed response body", errors.New("bad json")), false},
		{"auth", &AuthenticationError{StatusCode: http.StatusUnauthorized}, false},
		{"timeout", &TimeoutError{}, false},
		{"wrapped", fmt.Errorf("page 3: %w", &ServiceError{StatusCode: 502}), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.want {
				t.Errorf("IsTransient() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		body string
		want string
	}{
		{`{"error": {"message": "nested"}}`, "nested"},
		{`{"message": "flat"}`, "flat"},
		{`{"detail": "detail text"}`, "detail text"},
		{`plain text failure`, "plain text failure"},
		{``, "empty response body"},
	}
	for _, tt := range tests {
		if got := errorMessage([]byte(tt.body)); got != tt.want {
			t.Errorf("errorMessage(%q) = %q, want %q", tt.body, got, tt.want)
		}
	}
}
