package server

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jackzampolin/pdfextract/internal/render"
	"github.com/jackzampolin/pdfextract/internal/server/endpoints"
	"github.com/jackzampolin/pdfextract/internal/testutil"
)

// TestServer_RealRender runs the configured pipeline with pdftoppm and mock
// providers. It is skipped when poppler-utils is not installed.
func TestServer_RealRender(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	if err := render.NewPdftoppmRasterizer("").Available(); err != nil {
		t.Skip(err)
	}

	cfg := testutil.NewServerConfig(t)
	cfg.WritePrompt(t, "invoice", "Extract:\n- invoice_number\n- total\n")

	srv, err := New(Config{
		ConfigManager: writeTestConfig(t, cfg.PromptDir, 10),
		Logger:        cfg.Logger,
		Providers:     mockRegistry(invoiceReply),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	mw.WriteField("prompt", "invoice")
	mw.WriteField("include_pages", "true")
	part, _ := mw.CreateFormFile("file", "invoice.pdf")
	part.Write(testutil.MinimalPDF("Invoice INV-7", "Total 99.00"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/extract", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp endpoints.ExtractResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.PageCount != 2 || len(resp.Pages) != 2 {
		t.Fatalf("pages = %d/%d, want 2", resp.PageCount, len(resp.Pages))
	}
	for _, p := range resp.Pages {
		if p.Width == 0 || p.Height == 0 {
			t.Errorf("page %d has no dimensions: %dx%d", p.Page, p.Width, p.Height)
		}
	}
}
