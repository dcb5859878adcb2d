package endpoints

import (
	"context"
	"errors"
	"net/http"

	"github.com/jackzampolin/pdfextract/internal/extract"
	"github.com/jackzampolin/pdfextract/internal/pipeline"
	"github.com/jackzampolin/pdfextract/internal/prompts"
	"github.com/jackzampolin/pdfextract/internal/providers"
	"github.com/jackzampolin/pdfextract/internal/render"
)

// Error kinds reported in ErrorResponse.Kind.
const (
	KindDocumentFormat = "document_format"
	KindNotFound       = "not_found"
	KindAuthentication = "authentication"
	KindService        = "service"
	KindTimeout        = "timeout"
	KindParse          = "parse"
	KindInvalidRequest = "invalid_request"
	KindTooLarge       = "too_large"
	KindCanceled       = "canceled"
	KindInternal       = "internal"
)

// ErrorResponse is a standard error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
	Stage string `json:"stage,omitempty"`
	Raw   string `json:"raw,omitempty"` // model reply, for parse errors
}

// classifyError maps a pipeline error to an HTTP status and error kind.
func classifyError(err error) (int, string) {
	var (
		formatErr   *render.DocumentFormatError
		notFoundErr *prompts.NotFoundError
		authErr     *providers.AuthenticationError
		timeoutErr  *providers.TimeoutError
		parseErr    *extract.ParseError
		serviceErr  *providers.ServiceError
		tooLarge    *http.MaxBytesError
		badRequest  *requestError
	)
	switch {
	case errors.As(err, &badRequest):
		return http.StatusBadRequest, KindInvalidRequest
	case errors.As(err, &formatErr):
		return http.StatusBadRequest, KindDocumentFormat
	case errors.As(err, &notFoundErr):
		return http.StatusNotFound, KindNotFound
	case errors.As(err, &authErr):
		return http.StatusUnauthorized, KindAuthentication
	case errors.As(err, &timeoutErr), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, KindTimeout
	case errors.As(err, &parseErr):
		return http.StatusBadGateway, KindParse
	case errors.As(err, &serviceErr):
		return http.StatusBadGateway, KindService
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge, KindTooLarge
	case errors.Is(err, providers.ErrProviderNotFound):
		return http.StatusBadRequest, KindInvalidRequest
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, KindCanceled
	default:
		return http.StatusInternalServerError, KindInternal
	}
}

// errorResponse builds the JSON body for err.
func errorResponse(err error) (int, ErrorResponse) {
	status, kind := classifyError(err)
	resp := ErrorResponse{
		Error: err.Error(),
		Kind:  kind,
		Stage: string(pipeline.StageOf(err)),
	}
	var parseErr *extract.ParseError
	if errors.As(err, &parseErr) {
		resp.Raw = parseErr.Raw
	}
	return status, resp
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// writeKindError writes a JSON error response with an explicit kind.
func writeKindError(w http.ResponseWriter, status int, kind, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg, Kind: kind})
}

// writePipelineError classifies err and writes it as JSON.
func writePipelineError(w http.ResponseWriter, err error) {
	status, resp := errorResponse(err)
	writeJSON(w, status, resp)
}
