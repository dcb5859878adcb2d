package endpoints

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/jackzampolin/pdfextract/internal/pipeline"
)

// multipartMemory is the part of a multipart body kept in memory; the rest
// spills to temp files. The body size itself is capped by the server.
const multipartMemory = 32 << 20

// requestError is a malformed upload. It maps to 400 invalid_request.
type requestError struct {
	msg string
	err error
}

func (e *requestError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.err)
	}
	return e.msg
}

func (e *requestError) Unwrap() error { return e.err }

// upload is a parsed extraction form.
type upload struct {
	Input        pipeline.Input
	IncludeOCR   bool
	IncludePages bool
}

// parseUpload reads the multipart fields shared by the HTML form and the
// JSON API: file, prompt, include_ocr, include_pages and the optional
// ocr_provider and llm_provider overrides.
func parseUpload(r *http.Request) (*upload, error) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, tooLarge
		}
		return nil, &requestError{msg: "failed to parse form", err: err}
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, &requestError{msg: "no PDF file uploaded"}
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, tooLarge
		}
		return nil, &requestError{msg: "failed to read upload", err: err}
	}
	if len(data) == 0 {
		return nil, &requestError{msg: "uploaded file is empty"}
	}

	prompt := r.FormValue("prompt")
	if prompt == "" {
		return nil, &requestError{msg: "prompt is required"}
	}

	return &upload{
		Input: pipeline.Input{
			PDF:         data,
			FileName:    filepath.Base(header.Filename),
			Prompt:      prompt,
			OCRProvider: r.FormValue("ocr_provider"),
			LLMProvider: r.FormValue("llm_provider"),
		},
		IncludeOCR:   formBool(r, "include_ocr"),
		IncludePages: formBool(r, "include_pages"),
	}, nil
}

// formBool treats a checkbox value ("on") and any strconv true value as true.
func formBool(r *http.Request, key string) bool {
	v := r.FormValue(key)
	if v == "on" {
		return true
	}
	b, _ := strconv.ParseBool(v)
	return b
}
