package extract

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

// ExportFormat is a download format for a record.
type ExportFormat string

const (
	FormatCSV  ExportFormat = "csv"
	FormatJSON ExportFormat = "json"
	FormatXLSX ExportFormat = "xlsx"
)

// ParseExportFormat accepts "csv", "json" or "xlsx".
func ParseExportFormat(s string) (ExportFormat, error) {
	switch ExportFormat(strings.ToLower(s)) {
	case FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	case FormatJSON, "":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("unsupported export format %q (want csv, json or xlsx)", s)
}

// ContentType returns the HTTP media type for the format.
func (f ExportFormat) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "application/json"
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// SanitizeName makes s safe for use in a file name.
func SanitizeName(s string) string {
	s = unsafeChars.ReplaceAllString(strings.TrimSpace(s), "_")
	s = strings.Trim(s, "._-")
	if s == "" {
		return "document"
	}
	return s
}

// ExportFileName returns <pdf stem>_<prompt>[_<table>].<ext>.
func ExportFileName(pdfName, promptName, table string, format ExportFormat) string {
	stem := strings.TrimSuffix(filepath.Base(pdfName), filepath.Ext(pdfName))
	parts := []string{SanitizeName(stem), SanitizeName(promptName)}
	if table != "" {
		parts = append(parts, SanitizeName(table))
	}
	return strings.Join(parts, "_") + "." + string(format)
}

// WriteCSV writes a table with a header row.
func WriteCSV(w io.Writer, t Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return err
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return fmt.Errorf("failed to write CSV: %w", err)
	}
	return nil
}

// WriteXLSX writes a workbook with one sheet per table, each led by a
// header row. With no tables the workbook holds a single empty sheet.
func WriteXLSX(w io.Writer, tables []Table) error {
	f := excelize.NewFile()
	defer f.Close()

	first := f.GetSheetName(0)
	used := make(map[string]bool)
	for i, t := range tables {
		sheet := sheetName(t.Name, used)
		if i == 0 {
			if err := f.SetSheetName(first, sheet); err != nil {
				return fmt.Errorf("failed to name sheet %q: %w", sheet, err)
			}
		} else if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("failed to add sheet %q: %w", sheet, err)
		}

		rows := append([][]string{t.Columns}, t.Rows...)
		for r, row := range rows {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			if err != nil {
				return err
			}
			values := make([]any, len(row))
			for c, v := range row {
				values[c] = v
			}
			if err := f.SetSheetRow(sheet, cell, &values); err != nil {
				return fmt.Errorf("failed to write sheet %q: %w", sheet, err)
			}
		}
	}
	f.SetActiveSheet(0)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write XLSX: %w", err)
	}
	return nil
}

// Sheet names are at most 31 characters, case-insensitively unique, and may
// not contain : \ / ? * [ ].
var sheetReplacer = strings.NewReplacer(":", "_", `\`, "_", "/", "_", "?", "_", "*", "_", "[", "_", "]", "_")

const maxSheetName = 31

func sheetName(name string, used map[string]bool) string {
	base := strings.Trim(sheetReplacer.Replace(strings.TrimSpace(name)), "'")
	if base == "" {
		base = "Sheet"
	}
	base = truncateRunes(base, maxSheetName)

	candidate := base
	for n := 2; used[strings.ToLower(candidate)]; n++ {
		suffix := fmt.Sprintf(" (%d)", n)
		candidate = truncateRunes(base, maxSheetName-len(suffix)) + suffix
	}
	used[strings.ToLower(candidate)] = true
	return candidate
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// WriteJSON writes the record's fields as indented JSON, keys in model order.
func WriteJSON(w io.Writer, rec *Record) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, rec.JSON, "", "  "); err != nil {
		return fmt.Errorf("failed to format JSON: %w", err)
	}
	buf.WriteByte('\n')
	_, err := w.Write(buf.Bytes())
	return err
}

// ExportToDir writes the record to dir and returns the written paths. JSON
// and XLSX produce one file; CSV produces one file per table.
func ExportToDir(dir, pdfName, promptName string, rec *Record, format ExportFormat) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create export dir: %w", err)
	}

	if format == FormatJSON {
		path := filepath.Join(dir, ExportFileName(pdfName, promptName, "", FormatJSON))
		var buf bytes.Buffer
		if err := WriteJSON(&buf, rec); err != nil {
			return nil, err
		}
		if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", path, err)
		}
		return []string{path}, nil
	}

	tables, err := Tables(rec)
	if err != nil {
		return nil, err
	}

	if format == FormatXLSX {
		path := filepath.Join(dir, ExportFileName(pdfName, promptName, "", FormatXLSX))
		var buf bytes.Buffer
		if err := WriteXLSX(&buf, tables); err != nil {
			return nil, err
		}
		if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", path, err)
		}
		return []string{path}, nil
	}

	var paths []string
	for _, t := range tables {
		path := filepath.Join(dir, ExportFileName(pdfName, promptName, t.Name, FormatCSV))
		var buf bytes.Buffer
		if err := WriteCSV(&buf, t); err != nil {
			return nil, err
		}
		if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
