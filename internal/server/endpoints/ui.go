package endpoints

import (
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/pdfextract/internal/api"
	"github.com/jackzampolin/pdfextract/internal/extract"
	"github.com/jackzampolin/pdfextract/internal/ocr"
	"github.com/jackzampolin/pdfextract/internal/pipeline"
	"github.com/jackzampolin/pdfextract/internal/prompts"
	"github.com/jackzampolin/pdfextract/internal/render"
	"github.com/jackzampolin/pdfextract/internal/session"
	"github.com/jackzampolin/pdfextract/internal/svcctx"
)

// indexPage is the data for the "index" template.
type indexPage struct {
	Title     string
	Prompts   []string
	Selected  string
	ShowOCR   bool
	ShowPages bool
	Warning   string
	Error     *indexError
	Result    *indexResult
}

type indexError struct {
	Message string
	Kind    string
	Stage   string
	Raw     string
}

type indexResult struct {
	FileName  string
	Prompt    string
	Provider  string
	Model     string
	PageCount int
	Total     string
	Tables    []extract.Table
	OCR       []ocr.Result
	Previews  []render.PageImage
}

// UI serves the HTML upload form, its submission and the prompt preview.
// Routes are registered through the endpoints below.
type UI struct {
	Templates      *template.Template
	ThumbnailWidth int
}

func (u *UI) execute(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := u.Templates.ExecuteTemplate(w, name, data); err != nil {
		svcctx.LoggerFrom(r.Context()).Error("template execution failed", "template", name, "error", err)
	}
}

func (u *UI) newPage(r *http.Request) *indexPage {
	page := &indexPage{Title: "pdfextract"}
	reg := svcctx.PromptsFrom(r.Context())
	if reg == nil {
		page.Warning = "prompt registry not available"
		return page
	}
	names, err := reg.List()
	if err != nil {
		page.Warning = err.Error()
		return page
	}
	page.Prompts = names
	if len(names) == 0 {
		page.Warning = "no prompts found in " + reg.Dir()
	} else {
		page.Selected = names[0]
	}
	return page
}

func (u *UI) newResult(res *pipeline.Result, showOCR, showPages bool) (*indexResult, error) {
	tables, err := extract.Tables(res.Record)
	if err != nil {
		return nil, err
	}
	out := &indexResult{
		FileName:  res.FileName,
		Prompt:    res.Record.Prompt,
		Provider:  res.Record.Provider,
		Model:     res.Record.Model,
		PageCount: len(res.Pages),
		Total:     res.Durations.Total.Round(time.Millisecond).String(),
		Tables:    tables,
	}
	if showOCR {
		out.OCR = res.OCR
	}
	if showPages {
		for _, p := range res.Pages {
			thumb, err := render.Thumbnail(p, u.ThumbnailWidth)
			if err != nil {
				return nil, err
			}
			out.Previews = append(out.Previews, thumb)
		}
	}
	return out, nil
}

// IndexEndpoint handles GET /. It redisplays the session's last result.
type IndexEndpoint struct{ *UI }

var _ api.Endpoint = (*IndexEndpoint)(nil)

func (e *IndexEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/{$}", e.handler
}

func (e *IndexEndpoint) RequiresInit() bool { return true }

func (e *IndexEndpoint) Command(_ func() string) *cobra.Command { return nil }

func (e *IndexEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	page := e.newPage(r)
	if id, ok := session.Lookup(r); ok {
		if sessions := svcctx.SessionsFrom(r.Context()); sessions != nil {
			if res, ok := sessions.Get(id); ok {
				page.Selected = res.Record.Prompt
				if result, err := e.newResult(res, false, false); err == nil {
					page.Result = result
				}
			}
		}
	}
	e.execute(w, r, http.StatusOK, "index", page)
}

// SubmitEndpoint handles POST /, the form submission.
type SubmitEndpoint struct{ *UI }

var _ api.Endpoint = (*SubmitEndpoint)(nil)

func (e *SubmitEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/{$}", e.handler
}

func (e *SubmitEndpoint) RequiresInit() bool { return true }

func (e *SubmitEndpoint) Command(_ func() string) *cobra.Command { return nil }

func (e *SubmitEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	page := e.newPage(r)
	id := session.ID(w, r)

	fail := func(err error) {
		status, resp := errorResponse(err)
		page.Error = &indexError{Message: resp.Error, Kind: resp.Kind, Stage: resp.Stage, Raw: resp.Raw}
		e.execute(w, r, status, "index", page)
	}

	up, err := parseUpload(r)
	if err != nil {
		fail(err)
		return
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}
	page.Selected = up.Input.Prompt
	page.ShowOCR = up.IncludeOCR
	page.ShowPages = up.IncludePages

	runner := svcctx.PipelineFrom(ctx)
	if runner == nil {
		fail(errors.New("pipeline not available"))
		return
	}

	res, err := runner.Run(ctx, up.Input)
	if err != nil {
		svcctx.LoggerFrom(ctx).Warn("extraction failed",
			"file", up.Input.FileName, "prompt", up.Input.Prompt,
			"stage", pipeline.StageOf(err), "error", err)
		fail(err)
		return
	}

	result, err := e.newResult(res, up.IncludeOCR, up.IncludePages)
	if err != nil {
		fail(err)
		return
	}
	if sessions := svcctx.SessionsFrom(ctx); sessions != nil {
		sessions.Put(id, res)
	}
	page.Result = result
	e.execute(w, r, http.StatusOK, "index", page)
}

// promptPage is the data for the "prompt" template.
type promptPage struct {
	Title   string
	Prompt  *prompts.ExtractionPrompt
	Outline prompts.Outline
}

// PromptPageEndpoint handles GET /prompts/{name}, a rendered prompt preview.
type PromptPageEndpoint struct{ *UI }

var _ api.Endpoint = (*PromptPageEndpoint)(nil)

func (e *PromptPageEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/prompts/{name}", e.handler
}

func (e *PromptPageEndpoint) RequiresInit() bool { return true }

func (e *PromptPageEndpoint) Command(_ func() string) *cobra.Command { return nil }

func (e *PromptPageEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	reg := svcctx.PromptsFrom(r.Context())
	if reg == nil {
		http.Error(w, "prompt registry not available", http.StatusInternalServerError)
		return
	}
	p, err := reg.Get(r.PathValue("name"))
	if err != nil {
		status, _ := classifyError(err)
		http.Error(w, err.Error(), status)
		return
	}
	e.execute(w, r, http.StatusOK, "prompt", promptPage{
		Title:   p.Name + " - pdfextract",
		Prompt:  p,
		Outline: prompts.ParseOutline(p),
	})
}
