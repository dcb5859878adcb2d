package providers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

const chatCompletionBody = `{
	"id": "chatcmpl-1",
	"object": "chat.completion",
	"created": 1700000000,
	"model": "pixtral-12b-latest",
	"choices": [{
		"index": 0,
		"finish_reason": "stop",
		"message": {"role": "assistant", "content": "{\"invoice_number\": \"INV-1\"}"}
	}],
	"usage": {"prompt_tokens": 120, "completion_tokens": 8, "total_tokens": 128}
}`

func TestOpenAIChatClient_Chat(t *testing.T) {
	t.Run("mistral chat via openai-compatible API", func(t *testing.T) {
		var payload map[string]any
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/chat/completions" {
				t.Errorf("unexpected path: %s", r.URL.Path)
			}
			if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
				t.Errorf("unexpected authorization: %s", auth)
			}
			body, err := io.ReadAll(r.Body)
			if err != nil {
				t.Fatalf("read body: %v", err)
			}
			if err := json.Unmarshal(body, &payload); err != nil {
				t.Fatalf("unmarshal body: %v", err)
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(chatCompletionBody))
		}))
		defer server.Close()

		client := NewMistralChatClient(OpenAIChatConfig{APIKey: "test-key", BaseURL: server.URL})
		if client.Name() != MistralChatName {
			t.Errorf("Name() = %q", client.Name())
		}

		result, err := client.Chat(context.Background(), &ChatRequest{
			Messages: []Message{
				{Role: "system", Content: "You extract fields."},
				{Role: "user", Content: "OCR text", Images: []*Image{testImage()}},
			},
			ResponseFormat: &ResponseFormat{Type: "json_object"},
		})
		if err != nil {
			t.Fatalf("Chat() error = %v", err)
		}
		if result.Content != `{"invoice_number": "INV-1"}` {
			t.Errorf("Content = %q", result.Content)
		}
		if result.PromptTokens != 120 || result.TotalTokens != 128 {
			t.Errorf("unexpected usage: %+v", result)
		}
		if result.Provider != MistralChatName {
			t.Errorf("Provider = %q", result.Provider)
		}

		if payload["model"] != MistralChatModel {
			t.Errorf("model = %v, want %s", payload["model"], MistralChatModel)
		}
		if payload["temperature"] != float64(0) {
			t.Errorf("temperature = %v, want 0", payload["temperature"])
		}
		rf, _ := payload["response_format"].(map[string]any)
		if rf["type"] != "json_object" {
			t.Errorf("response_format = %v", payload["response_format"])
		}
		msgs, _ := payload["messages"].([]any)
		if len(msgs) != 2 {
			t.Fatalf("messages = %d, want 2", len(msgs))
		}
		parts, ok := msgs[1].(map[string]any)["content"].([]any)
		if !ok || len(parts) != 2 {
			t.Errorf("user content should have text + image parts: %v", msgs[1])
		}
	})

	t.Run("json schema response format", func(t *testing.T) {
		var payload map[string]any
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewDecoder(r.Body).Decode(&payload)
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(chatCompletionBody))
		}))
		defer server.Close()

		client := NewOpenAIChatClient(OpenAIChatConfig{APIKey: "test-key", BaseURL: server.URL})
		_, err := client.Chat(context.Background(), &ChatRequest{
			Messages: []Message{{Role: "user", Content: "x"}},
			ResponseFormat: &ResponseFormat{
				Type:       "json_schema",
				JSONSchema: json.RawMessage(`{"name":"invoice","schema":{"type":"object"}}`),
			},
		})
		if err != nil {
			t.Fatalf("Chat() error = %v", err)
		}
		rf, _ := payload["response_format"].(map[string]any)
		if rf["type"] != "json_schema" {
			t.Fatalf("response_format = %v", payload["response_format"])
		}
		js, _ := rf["json_schema"].(map[string]any)
		if js["name"] != "invoice" {
			t.Errorf("json_schema.name = %v", js["name"])
		}
	})

	t.Run("unauthorized maps to AuthenticationError", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error": {"message": "invalid api key"}}`))
		}))
		defer server.Close()

		client := NewOpenAIChatClient(OpenAIChatConfig{APIKey: "bad", BaseURL: server.URL})
		_, err := client.Chat(context.Background(), &ChatRequest{Messages: []Message{{Role: "user", Content: "x"}}})

		var authErr *AuthenticationError
		if !errors.As(err, &authErr) {
			t.Fatalf("expected AuthenticationError, got %v", err)
		}
	})

	t.Run("server error maps to ServiceError without SDK retries", func(t *testing.T) {
		var hits atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadGateway)
			w.Write([]byte(`{"error": {"message": "upstream"}}`))
		}))
		defer server.Close()

		client := NewOpenAIChatClient(OpenAIChatConfig{APIKey: "k", BaseURL: server.URL})
		_, err := client.Chat(context.Background(), &ChatRequest{Messages: []Message{{Role: "user", Content: "x"}}})

		var svcErr *ServiceError
		if !errors.As(err, &svcErr) || svcErr.StatusCode != http.StatusBadGateway {
			t.Fatalf("expected ServiceError(502), got %v", err)
		}
		if hits.Load() != 1 {
			t.Errorf("requests = %d, want 1", hits.Load())
		}
	})

	t.Run("missing API key", func(t *testing.T) {
		var hits atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
		}))
		defer server.Close()

		client := NewMistralChatClient(OpenAIChatConfig{BaseURL: server.URL})
		_, err := client.Chat(context.Background(), &ChatRequest{Messages: []Message{{Role: "user", Content: "x"}}})

		var authErr *AuthenticationError
		if !errors.As(err, &authErr) {
			t.Fatalf("expected AuthenticationError, got %v", err)
		}
		if hits.Load() != 0 {
			t.Errorf("server received %d requests, want 0", hits.Load())
		}
	})
}

func TestVertexClient_MissingProject(t *testing.T) {
	client := NewVertexClient(VertexConfig{})
	_, err := client.Chat(context.Background(), &ChatRequest{Messages: []Message{{Role: "user", Content: "x"}}})

	var authErr *AuthenticationError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthenticationError, got %v", err)
	}
	if !errors.Is(err, ErrMissingCredential) {
		t.Error("expected ErrMissingCredential")
	}
	if err := client.Close(); err != nil {
		t.Errorf("Close() on unused client = %v", err)
	}
}

func TestImageFormat(t *testing.T) {
	tests := map[string]string{
		"image/png":  "png",
		"image/jpeg": "jpeg",
		"":           "png",
	}
	for in, want := range tests {
		if got := imageFormat(in); got != want {
			t.Errorf("imageFormat(%q) = %q, want %q", in, got, want)
		}
	}
}
