package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/jackzampolin/pdfextract/internal/api"
	"github.com/jackzampolin/pdfextract/internal/server/endpoints"
	"github.com/jackzampolin/pdfextract/internal/testutil"
)

func startTestServer(t *testing.T, srv *Server) (string, *testutil.StartServer) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()

	url := "http://" + srv.Addr()
	if err := testutil.WaitForServer(url, 10*time.Second); err != nil {
		cancel()
		t.Fatalf("server did not start: %v", err)
	}
	return url, &testutil.StartServer{Cancel: cancel, Done: done}
}

func TestServer_FullLifecycle(t *testing.T) {
	srv := newTestServer(t, 10)
	url, starter := startTestServer(t, srv)

	if !srv.IsRunning() {
		t.Error("IsRunning() = false after start")
	}

	t.Run("health_endpoint", func(t *testing.T) {
		resp, err := http.Get(url + "/health")
		if err != nil {
			t.Fatalf("health check failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Errorf("health status = %d, want %d", resp.StatusCode, http.StatusOK)
		}
		var health endpoints.HealthResponse
		if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if health.Status != "ok" {
			t.Errorf("health.Status = %q, want %q", health.Status, "ok")
		}
	})

	t.Run("prompts_via_client", func(t *testing.T) {
		var resp endpoints.PromptsListResponse
		if err := api.NewClient(url).Get(context.Background(), "/api/prompts", &resp); err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if len(resp.Prompts) != 1 || resp.Prompts[0] != "invoice" {
			t.Errorf("Prompts = %v", resp.Prompts)
		}
	})

	t.Run("extract_via_client", func(t *testing.T) {
		var resp endpoints.ExtractResponse
		err := api.NewClient(url).PostMultipart(context.Background(), "/api/extract",
			map[string]string{"prompt": "invoice"}, "file", "invoice.pdf",
			bytesReader(testutil.MinimalPDF("Invoice INV-7")), &resp)
		if err != nil {
			t.Fatalf("PostMultipart() error = %v", err)
		}
		if resp.Prompt != "invoice" || resp.Provider != "mock" {
			t.Errorf("resp = %+v", resp)
		}
	})

	t.Run("structured_error_via_client", func(t *testing.T) {
		var resp endpoints.ExtractResponse
		err := api.NewClient(url).PostMultipart(context.Background(), "/api/extract",
			map[string]string{"prompt": "receipt"}, "file", "invoice.pdf",
			bytesReader(testutil.MinimalPDF("x")), &resp)
		var apiErr *api.Error
		if !errors.As(err, &apiErr) {
			t.Fatalf("error = %v (%T), want *api.Error", err, err)
		}
		if apiErr.StatusCode != http.StatusNotFound || apiErr.Kind != endpoints.KindNotFound || apiErr.Stage != "prompt" {
			t.Errorf("apiErr = %+v", apiErr)
		}
	})

	starter.Cancel()
	if err := testutil.WaitForShutdown(starter.Done, 35*time.Second); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if srv.IsRunning() {
		t.Error("IsRunning() = true after shutdown")
	}
	if _, err := http.Get(url + "/health"); err == nil {
		t.Error("server still answering after shutdown")
	}
}

func TestServer_DoubleStart(t *testing.T) {
	srv := newTestServer(t, 10)
	_, starter := startTestServer(t, srv)
	defer starter.Stop()

	err := srv.Start(context.Background())
	if err == nil || err.Error() != "server already running" {
		t.Errorf("second Start() error = %v, want already running", err)
	}
}

func TestServer_PortInUse(t *testing.T) {
	first := newTestServer(t, 10)
	_, starter := startTestServer(t, first)
	defer starter.Stop()

	second, err := New(Config{
		Host:      "127.0.0.1",
		Port:      portOf(first.Addr()),
		Providers: mockRegistry(invoiceReply),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	done := make(chan error, 1)
	go func() { done <- second.Start(context.Background()) }()
	if err := testutil.WaitForShutdown(done, 5*time.Second); err == nil {
		t.Error("Start() on a used port should fail")
	}
	if second.IsRunning() {
		t.Error("failed server still marked running")
	}
}
