package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/jackzampolin/pdfextract/internal/extract"
	"github.com/jackzampolin/pdfextract/internal/prompts"
	"github.com/jackzampolin/pdfextract/internal/providers"
	"github.com/jackzampolin/pdfextract/internal/render"
	"github.com/jackzampolin/pdfextract/internal/testutil"
)

type fixture struct {
	pipeline *Pipeline
	ocr      *providers.MockOCRProvider
	llm      *providers.MockClient
	renders  *int
}

func newFixture(t *testing.T, llmReply string) *fixture {
	t.Helper()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "invoice.md"), []byte("Extract:\n- invoice_number\n- total\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	renders := 0
	rast := render.RasterizerFunc(func(ctx context.Context, pdfPath string, page, dpi int, format render.Format) ([]byte, error) {
		renders++
		return []byte(fmt.Sprintf("image-%d", page)), nil
	})

	ocrMock := providers.NewMockOCRProvider()
	ocrMock.TextFn = func(img *providers.Image, pageNum int) string {
		return fmt.Sprintf("text of %s", img.Data)
	}
	llmMock := providers.NewMockClient(llmReply)

	reg := providers.NewRegistry(nil)
	reg.RegisterOCR(providers.MockOCRName, ocrMock)
	reg.RegisterLLM(providers.MockClientName, llmMock)
	reg.SetDefaults(providers.MockOCRName, providers.MockClientName)

	p := New(Config{
		Prompts:         prompts.NewRegistry(dir, nil),
		Renderer:        render.New(render.Config{Rasterizer: rast, MaxWorkers: 1, TempDir: t.TempDir()}),
		Providers:       reg,
		AttachFirstPage: true,
	})
	return &fixture{pipeline: p, ocr: ocrMock, llm: llmMock, renders: &renders}
}

func TestRun_EndToEnd(t *testing.T) {
	f := newFixture(t, `{"invoice_number":"INV-2024-001","total":"1250.00"}`)

	result, err := f.pipeline.Run(context.Background(), Input{
		PDF:      testutil.MinimalPDF("Invoice INV-2024-001", "Total 1250.00"),
		FileName: "invoice.pdf",
		Prompt:   "invoice",
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := map[string]any{"invoice_number": "INV-2024-001", "total": "1250.00"}
	if !reflect.DeepEqual(result.Record.Fields, want) {
		t.Errorf("Fields = %#v, want %#v", result.Record.Fields, want)
	}

	if len(result.OCR) != 2 {
		t.Fatalf("got %d OCR results, want 2", len(result.OCR))
	}
	for i, r := range result.OCR {
		if r.PageIndex != i {
			t.Errorf("OCR[%d].PageIndex = %d", i, r.PageIndex)
		}
		if want := fmt.Sprintf("text of image-%d", i+1); r.Text != want {
			t.Errorf("OCR[%d].Text = %q, want %q", i, r.Text, want)
		}
	}
	if len(result.Pages) != 2 {
		t.Errorf("got %d pages", len(result.Pages))
	}
	if result.Prompt.Name != "invoice" || result.FileName != "invoice.pdf" {
		t.Errorf("result metadata = %q %q", result.Prompt.Name, result.FileName)
	}

	if f.ocr.RequestCount() != 2 || f.llm.RequestCount() != 1 {
		t.Errorf("calls: ocr=%d llm=%d", f.ocr.RequestCount(), f.llm.RequestCount())
	}
	req := f.llm.LastRequest()
	user := req.Messages[1].Content
	if !strings.Contains(user, "=== Page 1 ===\ntext of image-1\n\n=== Page 2 ===\ntext of image-2") {
		t.Errorf("user prompt missing ordered page text:\n%s", user)
	}
	if imgs := req.Messages[1].Images; len(imgs) != 1 || string(imgs[0].Data) != "image-1" {
		t.Errorf("first page image not attached: %+v", imgs)
	}
}

func TestRun_Failures(t *testing.T) {
	validPDF := testutil.MinimalPDF("one", "two")

	tests := []struct {
		name      string
		input     Input
		llmReply  string
		setup     func(f *fixture)
		wantStage Stage
		check     func(t *testing.T, err error)
		wantOCR   int
		wantLLM   int
	}{
		{
			name:      "non-PDF bytes",
			input:     Input{PDF: []byte("hello, I am a text file"), Prompt: "invoice"},
			wantStage: StageRender,
			check: func(t *testing.T, err error) {
				var dfe *render.DocumentFormatError
				if !errors.As(err, &dfe) {
					t.Errorf("error = %v, want *DocumentFormatError", err)
				}
			},
		},
		{
			name:      "unknown prompt",
			input:     Input{PDF: validPDF, Prompt: "receipt"},
			wantStage: StagePrompt,
			check: func(t *testing.T, err error) {
				var nf *prompts.NotFoundError
				if !errors.As(err, &nf) {
					t.Errorf("error = %v, want *NotFoundError", err)
				}
			},
		},
		{
			name:  "OCR authentication",
			input: Input{PDF: validPDF, Prompt: "invoice"},
			setup: func(f *fixture) {
				f.ocr.Err = &providers.AuthenticationError{Provider: "mock-ocr", Message: "no key", Err: providers.ErrMissingCredential}
			},
			wantStage: StageOCR,
			check: func(t *testing.T, err error) {
				var ae *providers.AuthenticationError
				if !errors.As(err, &ae) {
					t.Errorf("error = %v, want *AuthenticationError", err)
				}
			},
			wantOCR: 1,
		},
		{
			name:      "unparseable reply",
			input:     Input{PDF: validPDF, Prompt: "invoice"},
			llmReply:  "no JSON here",
			wantStage: StageExtract,
			check: func(t *testing.T, err error) {
				var pe *extract.ParseError
				if !errors.As(err, &pe) {
					t.Errorf("error = %v, want *ParseError", err)
				}
				if pe != nil && pe.Raw != "no JSON here" {
					t.Errorf("Raw = %q", pe.Raw)
				}
			},
			wantOCR: 2,
			wantLLM: 1,
		},
		{
			name:      "unknown OCR provider",
			input:     Input{PDF: validPDF, Prompt: "invoice", OCRProvider: "nope"},
			wantStage: StageOCR,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.llmReply)
			if tt.setup != nil {
				tt.setup(f)
			}

			result, err := f.pipeline.Run(context.Background(), tt.input)
			if err == nil {
				t.Fatal("expected error")
			}
			if result != nil {
				t.Error("expected no partial result")
			}
			if got := StageOf(err); got != tt.wantStage {
				t.Errorf("StageOf() = %q, want %q", got, tt.wantStage)
			}
			if tt.check != nil {
				tt.check(t, err)
			}
			if f.ocr.RequestCount() != tt.wantOCR {
				t.Errorf("OCR calls = %d, want %d", f.ocr.RequestCount(), tt.wantOCR)
			}
			if f.llm.RequestCount() != tt.wantLLM {
				t.Errorf("LLM calls = %d, want %d", f.llm.RequestCount(), tt.wantLLM)
			}
			if (tt.wantStage == StagePrompt || tt.wantStage == StageRender) && *f.renders != 0 {
				t.Errorf("rasterizer called %d times", *f.renders)
			}
		})
	}
}

func TestRun_NoFirstPageImage(t *testing.T) {
	f := newFixture(t, `{"a":"b"}`)
	f.pipeline.attachFirstPage = false

	if _, err := f.pipeline.Run(context.Background(), Input{PDF: testutil.MinimalPDF("x"), Prompt: "invoice"}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if imgs := f.llm.LastRequest().Messages[1].Images; len(imgs) != 0 {
		t.Errorf("unexpected image attached")
	}
}

func TestStageError(t *testing.T) {
	inner := &render.DocumentFormatError{Reason: "bad"}
	err := fmt.Errorf("wrapped: %w", &StageError{Stage: StageRender, Err: inner})

	if StageOf(err) != StageRender {
		t.Errorf("StageOf() = %q", StageOf(err))
	}
	if !render.IsDocumentFormat(err) {
		t.Error("errors.As should reach the inner error")
	}
	if StageOf(errors.New("plain")) != "" {
		t.Error("StageOf(plain) should be empty")
	}
	if !strings.Contains(err.Error(), "render stage failed") {
		t.Errorf("Error() = %q", err.Error())
	}
}
