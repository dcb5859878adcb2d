package endpoints

import (
	"bytes"
	"mime"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/pdfextract/internal/api"
	"github.com/jackzampolin/pdfextract/internal/extract"
	"github.com/jackzampolin/pdfextract/internal/session"
	"github.com/jackzampolin/pdfextract/internal/svcctx"
)

// ExportEndpoint handles GET /export, a download of the session's last
// result. format is csv or json (default); table picks the CSV table and
// defaults to the first one.
type ExportEndpoint struct{}

var _ api.Endpoint = (*ExportEndpoint)(nil)

func (e *ExportEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/export", e.handler
}

func (e *ExportEndpoint) RequiresInit() bool { return true }

// Session-bound, so there is no CLI counterpart; use "extract --export".
func (e *ExportEndpoint) Command(_ func() string) *cobra.Command { return nil }

// handler godoc
//
//	@Summary		Export the last result
//	@Description	Download the session's last extraction as JSON, one CSV table, or an XLSX workbook with every table
//	@Tags			extract
//	@Produce		json
//	@Produce		text/csv
//	@Produce		application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
//	@Param			format	query		string	false	"csv, json or xlsx"	Enums(csv, json, xlsx)
//	@Param			table	query		string	false	"CSV table name"
//	@Success		200
//	@Failure		400		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Router			/export [get]
func (e *ExportEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	format, err := extract.ParseExportFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeKindError(w, http.StatusBadRequest, KindInvalidRequest, err.Error())
		return
	}

	sessions := svcctx.SessionsFrom(r.Context())
	id, ok := session.Lookup(r)
	if !ok || sessions == nil {
		writeKindError(w, http.StatusNotFound, KindNotFound, "no result to export")
		return
	}
	res, ok := sessions.Get(id)
	if !ok {
		writeKindError(w, http.StatusNotFound, KindNotFound, "no result to export")
		return
	}
	rec := res.Record

	var (
		buf      bytes.Buffer
		fileName string
	)
	switch format {
	case extract.FormatCSV:
		tables, err := extract.Tables(rec)
		if err != nil {
			writeKindError(w, http.StatusInternalServerError, KindInternal, err.Error())
			return
		}
		if len(tables) == 0 {
			writeKindError(w, http.StatusNotFound, KindNotFound, "result has no tables")
			return
		}
		t := tables[0]
		if name := r.URL.Query().Get("table"); name != "" {
			found, ok := extract.FindTable(tables, name)
			if !ok {
				writeKindError(w, http.StatusNotFound, KindNotFound, "table not found: "+name)
				return
			}
			t = found
		}
		if err := extract.WriteCSV(&buf, t); err != nil {
			writeKindError(w, http.StatusInternalServerError, KindInternal, err.Error())
			return
		}
		fileName = extract.ExportFileName(res.FileName, rec.Prompt, t.Name, format)
	case extract.FormatXLSX:
		tables, err := extract.Tables(rec)
		if err != nil {
			writeKindError(w, http.StatusInternalServerError, KindInternal, err.Error())
			return
		}
		if err := extract.WriteXLSX(&buf, tables); err != nil {
			writeKindError(w, http.StatusInternalServerError, KindInternal, err.Error())
			return
		}
		fileName = extract.ExportFileName(res.FileName, rec.Prompt, "", format)
	default:
		if err := extract.WriteJSON(&buf, rec); err != nil {
			writeKindError(w, http.StatusInternalServerError, KindInternal, err.Error())
			return
		}
		fileName = extract.ExportFileName(res.FileName, rec.Prompt, "", format)
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": fileName}))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
