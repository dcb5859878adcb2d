package endpoints

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/pdfextract/internal/api"
	"github.com/jackzampolin/pdfextract/internal/extract"
	"github.com/jackzampolin/pdfextract/internal/pipeline"
	"github.com/jackzampolin/pdfextract/internal/session"
	"github.com/jackzampolin/pdfextract/internal/svcctx"
	"github.com/jackzampolin/pdfextract/web"
)

// ExtractResponse is the JSON body of a successful extraction.
type ExtractResponse struct {
	FileName   string            `json:"file_name"`
	Prompt     string            `json:"prompt"`
	PromptHash string            `json:"prompt_hash"`
	Provider   string            `json:"provider"`
	Model      string            `json:"model"`
	RequestID  string            `json:"request_id,omitempty"`
	PageCount  int               `json:"page_count"`
	Record     json.RawMessage   `json:"record"` // keys in the order the model returned them
	Tables     []extract.Table   `json:"tables"`
	Usage      extract.Usage     `json:"usage"`
	Durations  DurationsResponse `json:"durations"`
	OCR        []OCRPage         `json:"ocr,omitempty"`
	Pages      []PagePreview     `json:"pages,omitempty"`
}

// DurationsResponse reports stage timings in milliseconds.
type DurationsResponse struct {
	RenderMS  int64 `json:"render_ms"`
	OCRMS     int64 `json:"ocr_ms"`
	ExtractMS int64 `json:"extract_ms"`
	TotalMS   int64 `json:"total_ms"`
}

// OCRPage is one page of OCR text.
type OCRPage struct {
	Page int    `json:"page"`
	Text string `json:"text"`
}

// PagePreview is one rendered page as a data URL.
type PagePreview struct {
	Page     int    `json:"page"`
	MIMEType string `json:"mime_type"`
	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`
	DataURL  string `json:"data_url"`
}

// NewExtractResponse builds the API view of a pipeline result.
func NewExtractResponse(res *pipeline.Result, includeOCR, includePages bool) (*ExtractResponse, error) {
	tables, err := extract.Tables(res.Record)
	if err != nil {
		return nil, err
	}
	rec := res.Record
	resp := &ExtractResponse{
		FileName:   res.FileName,
		Prompt:     rec.Prompt,
		PromptHash: rec.PromptHash,
		Provider:   rec.Provider,
		Model:      rec.Model,
		RequestID:  rec.RequestID,
		PageCount:  len(res.Pages),
		Record:     rec.JSON,
		Tables:     tables,
		Usage:      rec.Usage,
		Durations: DurationsResponse{
			RenderMS:  res.Durations.Render.Milliseconds(),
			OCRMS:     res.Durations.OCR.Milliseconds(),
			ExtractMS: res.Durations.Extract.Milliseconds(),
			TotalMS:   res.Durations.Total.Milliseconds(),
		},
	}
	if includeOCR {
		for _, r := range res.OCR {
			resp.OCR = append(resp.OCR, OCRPage{Page: r.PageNumber(), Text: r.Text})
		}
	}
	if includePages {
		for _, p := range res.Pages {
			resp.Pages = append(resp.Pages, PagePreview{
				Page:     p.PageNumber(),
				MIMEType: p.MIMEType,
				Width:    p.Width,
				Height:   p.Height,
				DataURL:  string(web.DataURL(p.MIMEType, p.Data)),
			})
		}
	}
	return resp, nil
}

// ExtractEndpoint handles POST /api/extract.
type ExtractEndpoint struct{}

var _ api.Endpoint = (*ExtractEndpoint)(nil)

func (e *ExtractEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/extract", e.handler
}

func (e *ExtractEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Extract structured data from a PDF
//	@Description	Render, OCR and extract one uploaded PDF with a named prompt
//	@Tags			extract
//	@Accept			mpfd
//	@Produce		json
//	@Param			file			formData	file	true	"PDF document"
//	@Param			prompt			formData	string	true	"Prompt name"
//	@Param			include_ocr		formData	bool	false	"Include per-page OCR text"
//	@Param			include_pages	formData	bool	false	"Include page images as data URLs"
//	@Param			ocr_provider	formData	string	false	"OCR provider override"
//	@Param			llm_provider	formData	string	false	"LLM provider override"
//	@Success		200				{object}	ExtractResponse
//	@Failure		400				{object}	ErrorResponse
//	@Failure		401				{object}	ErrorResponse
//	@Failure		404				{object}	ErrorResponse
//	@Failure		413				{object}	ErrorResponse
//	@Failure		502				{object}	ErrorResponse
//	@Failure		504				{object}	ErrorResponse
//	@Router			/api/extract [post]
func (e *ExtractEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	runner := svcctx.PipelineFrom(ctx)
	if runner == nil {
		writeError(w, http.StatusServiceUnavailable, "pipeline not available")
		return
	}

	up, err := parseUpload(r)
	if err != nil {
		writePipelineError(w, err)
		return
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	res, err := runner.Run(ctx, up.Input)
	if err != nil {
		svcctx.LoggerFrom(ctx).Warn("extraction failed",
			"file", up.Input.FileName, "prompt", up.Input.Prompt,
			"stage", pipeline.StageOf(err), "error", err)
		writePipelineError(w, err)
		return
	}

	// API clients that carry a session cookie can export the result later.
	if id, ok := session.Lookup(r); ok {
		if sessions := svcctx.SessionsFrom(ctx); sessions != nil {
			sessions.Put(id, res)
		}
	}

	resp, err := NewExtractResponse(res, up.IncludeOCR, up.IncludePages)
	if err != nil {
		writeKindError(w, http.StatusInternalServerError, KindInternal, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (e *ExtractEndpoint) Command(getServerURL func() string) *cobra.Command {
	var (
		prompt       string
		includeOCR   bool
		includePages bool
		ocrProvider  string
		llmProvider  string
	)
	cmd := &cobra.Command{
		Use:   "extract <file.pdf>",
		Short: "Upload a PDF to the server and extract it with a prompt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", args[0], err)
			}
			defer f.Close()

			values := map[string]string{
				"prompt":        prompt,
				"include_ocr":   strconv.FormatBool(includeOCR),
				"include_pages": strconv.FormatBool(includePages),
			}
			if ocrProvider != "" {
				values["ocr_provider"] = ocrProvider
			}
			if llmProvider != "" {
				values["llm_provider"] = llmProvider
			}

			client := api.NewClient(getServerURL())
			var resp ExtractResponse
			if err := client.PostMultipart(cmd.Context(), "/api/extract", values, "file", filepath.Base(args[0]), f, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVarP(&prompt, "prompt", "p", "", "Prompt name (required)")
	cmd.Flags().BoolVar(&includeOCR, "include-ocr", false, "Include per-page OCR text")
	cmd.Flags().BoolVar(&includePages, "include-pages", false, "Include page images as data URLs")
	cmd.Flags().StringVar(&ocrProvider, "ocr-provider", "", "OCR provider override")
	cmd.Flags().StringVar(&llmProvider, "llm-provider", "", "LLM provider override")
	cmd.MarkFlagRequired("prompt")
	return cmd
}
