package providers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func testImage() *Image {
	return &Image{Data: []byte("fake image data"), MIMEType: "image/png"}
}

func TestMistralOCRClient_ProcessImage(t *testing.T) {
	t.Run("successful OCR", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/ocr" {
				t.Errorf("unexpected path: %s", r.URL.Path)
			}
			if r.Method != http.MethodPost {
				t.Errorf("unexpected method: %s", r.Method)
			}
			if ct := r.Header.Get("Content-Type"); ct != "application/json" {
				t.Errorf("unexpected content-type: %s", ct)
			}
			if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
				t.Errorf("unexpected authorization: %s", auth)
			}

			var req mistralOCRRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Errorf("decode request: %v", err)
			}
			if req.Model != MistralOCRModel {
				t.Errorf("model = %q, want %q", req.Model, MistralOCRModel)
			}
			if req.Document.Type != "image_url" {
				t.Errorf("document type = %q", req.Document.Type)
			}
			if !strings.HasPrefix(req.Document.ImageURL, "data:image/png;base64,") {
				t.Errorf("unexpected image url prefix: %.40s", req.Document.ImageURL)
			}

			resp := mistralOCRResponse{
				Model: "mistral-ocr-latest",
				Pages: []mistralOCRPage{{
					Index:      0,
					Markdown:   "# Invoice\n\nTotal: 42.00",
					Dimensions: mistralPageDimensions{Width: 2550, Height: 3300, DPI: 300},
				}},
				UsageInfo: &mistralUsageInfo{PagesProcessed: 1},
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(resp)
		}))
		defer server.Close()

		client := NewMistralOCRClient(MistralOCRConfig{
			APIKey:  "test-key",
			BaseURL: server.URL,
		})

		result, err := client.ProcessImage(context.Background(), testImage(), 1)
		if err != nil {
			t.Fatalf("ProcessImage() error = %v", err)
		}
		if result.Text != "# Invoice\n\nTotal: 42.00" {
			t.Errorf("unexpected text: %q", result.Text)
		}
		if result.Attempts != 1 {
			t.Errorf("Attempts = %d, want 1", result.Attempts)
		}
		if result.Metadata["model_used"] != "mistral-ocr-latest" {
			t.Errorf("model_used = %v", result.Metadata["model_used"])
		}
		dims, ok := result.Metadata["dimensions"].(map[string]any)
		if !ok {
			t.Fatal("expected dimensions in metadata")
		}
		if dims["width"] != 2550 || dims["dpi"] != 300 {
			t.Errorf("unexpected dimensions: %v", dims)
		}
	})

	t.Run("missing API key fails before any request", func(t *testing.T) {
		var hits atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
		}))
		defer server.Close()

		client := NewMistralOCRClient(MistralOCRConfig{BaseURL: server.URL})
		_, err := client.ProcessImage(context.Background(), testImage(), 1)

		var authErr *AuthenticationError
		if !errors.As(err, &authErr) {
			t.Fatalf("expected AuthenticationError, got %v", err)
		}
		if !errors.Is(err, ErrMissingCredential) {
			t.Error("expected error to wrap ErrMissingCredential")
		}
		if !strings.Contains(err.Error(), MistralAPIKeyEnv) {
			t.Errorf("error should name %s: %v", MistralAPIKeyEnv, err)
		}
		if hits.Load() != 0 {
			t.Errorf("server received %d requests, want 0", hits.Load())
		}
	})

	t.Run("empty pages response", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(mistralOCRResponse{Model: "mistral-ocr-latest"})
		}))
		defer server.Close()

		client := NewMistralOCRClient(MistralOCRConfig{APIKey: "test-key", BaseURL: server.URL})
		_, err := client.ProcessImage(context.Background(), testImage(), 1)

		var svcErr *ServiceError
		if !errors.As(err, &svcErr) {
			t.Fatalf("expected ServiceError, got %v", err)
		}
	})

	t.Run("status codes map to error types", func(t *testing.T) {
		tests := []struct {
			name   string
			status int
			check  func(t *testing.T, err error)
		}{
			{"unauthorized", http.StatusUnauthorized, func(t *testing.T, err error) {
				var e *AuthenticationError
				if !errors.As(err, &e) || e.StatusCode != http.StatusUnauthorized {
					t.Errorf("expected AuthenticationError(401), got %v", err)
				}
			}},
			{"forbidden", http.StatusForbidden, func(t *testing.T, err error) {
				var e *AuthenticationError
				if !errors.As(err, &e) {
					t.Errorf("expected AuthenticationError, got %v", err)
				}
			}},
			{"bad request", http.StatusBadRequest, func(t *testing.T, err error) {
				var e *ServiceError
				if !errors.As(err, &e) || e.StatusCode != http.StatusBadRequest {
					t.Errorf("expected ServiceError(400), got %v", err)
				}
				if !strings.Contains(err.Error(), "Invalid image format") {
					t.Errorf("expected provider message in error: %v", err)
				}
			}},
			{"server error", http.StatusInternalServerError, func(t *testing.T, err error) {
				var e *ServiceError
				if !errors.As(err, &e) || e.StatusCode != http.StatusInternalServerError {
					t.Errorf("expected ServiceError(500), got %v", err)
				}
			}},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(tt.status)
					json.NewEncoder(w).Encode(map[string]any{
						"error": map[string]string{"message": "Invalid image format"},
					})
				}))
				defer server.Close()

				client := NewMistralOCRClient(MistralOCRConfig{APIKey: "test-key", BaseURL: server.URL})
				_, err := client.ProcessImage(context.Background(), testImage(), 1)
				tt.check(t, err)
			})
		}
	})

	t.Run("malformed body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("<html>not json</html>"))
		}))
		defer server.Close()

		client := NewMistralOCRClient(MistralOCRConfig{APIKey: "test-key", BaseURL: server.URL})
		_, err := client.ProcessImage(context.Background(), testImage(), 1)

		var svcErr *ServiceError
		if !errors.As(err, &svcErr) {
			t.Fatalf("expected ServiceError, got %v", err)
		}
		if IsTransient(err) {
			t.Error("malformed body should not be transient")
		}
	})

	t.Run("client timeout", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
		}))
		defer server.Close()

		client := NewMistralOCRClient(MistralOCRConfig{
			APIKey:  "test-key",
			BaseURL: server.URL,
			Timeout: 20 * time.Millisecond,
		})
		_, err := client.ProcessImage(context.Background(), testImage(), 1)

		var timeoutErr *TimeoutError
		if !errors.As(err, &timeoutErr) {
			t.Fatalf("expected TimeoutError, got %v", err)
		}
	})

	t.Run("context cancellation", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(100 * time.Millisecond)
		}))
		defer server.Close()

		client := NewMistralOCRClient(MistralOCRConfig{APIKey: "test-key", BaseURL: server.URL})

		ctx, cancel := context.WithCancel(context.Background())
		cancel() // Cancel immediately

		_, err := client.ProcessImage(ctx, testImage(), 1)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})

	t.Run("fails fast by default", func(t *testing.T) {
		var hits atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		client := NewMistralOCRClient(MistralOCRConfig{APIKey: "test-key", BaseURL: server.URL})
		_, err := client.ProcessImage(context.Background(), testImage(), 1)
		if err == nil {
			t.Fatal("expected error")
		}
		if hits.Load() != 1 {
			t.Errorf("requests = %d, want 1", hits.Load())
		}
	})

	t.Run("opt-in retry recovers from transient failure", func(t *testing.T) {
		var hits atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if hits.Add(1) == 1 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			json.NewEncoder(w).Encode(mistralOCRResponse{
				Pages: []mistralOCRPage{{Markdown: "recovered"}},
			})
		}))
		defer server.Close()

		client := NewMistralOCRClient(MistralOCRConfig{
			APIKey:  "test-key",
			BaseURL: server.URL,
			Retry:   RetryPolicy{MaxRetries: 2, Delay: time.Millisecond},
		})
		result, err := client.ProcessImage(context.Background(), testImage(), 1)
		if err != nil {
			t.Fatalf("ProcessImage() error = %v", err)
		}
		if result.Text != "recovered" {
			t.Errorf("Text = %q", result.Text)
		}
		if result.Attempts != 2 {
			t.Errorf("Attempts = %d, want 2", result.Attempts)
		}
	})

	t.Run("retry never repeats authentication failures", func(t *testing.T) {
		var hits atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer server.Close()

		client := NewMistralOCRClient(MistralOCRConfig{
			APIKey:  "bad-key",
			BaseURL: server.URL,
			Retry:   RetryPolicy{MaxRetries: 3, Delay: time.Millisecond},
		})
		_, err := client.ProcessImage(context.Background(), testImage(), 1)

		var authErr *AuthenticationError
		if !errors.As(err, &authErr) {
			t.Fatalf("expected AuthenticationError, got %v", err)
		}
		if hits.Load() != 1 {
			t.Errorf("requests = %d, want 1", hits.Load())
		}
	})
}

// TestMistralOCRIntegration runs real OCR against the Mistral API.
// Requires MISTRAL_API_KEY environment variable to be set.
// Uses PNG fixtures from the testdata/ directory.
func TestMistralOCRIntegration(t *testing.T) {
	apiKey := os.Getenv(MistralAPIKeyEnv)
	if apiKey == "" {
		t.Skip("MISTRAL_API_KEY not set - skipping integration test")
	}

	matches, _ := filepath.Glob(filepath.Join("testdata", "*.png"))
	if len(matches) == 0 {
		t.Skip("no test images found in testdata/")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("failed to read test image: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	client := NewMistralOCRClient(MistralOCRConfig{APIKey: apiKey})
	result, err := client.ProcessImage(ctx, &Image{Data: data, MIMEType: "image/png"}, 1)
	if err != nil {
		t.Fatalf("ProcessImage() error = %v", err)
	}
	if len(result.Text) == 0 {
		t.Error("expected non-empty text")
	}
	t.Logf("Extracted %d characters", len(result.Text))
}
