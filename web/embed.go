// Package web provides the embedded HTML templates and static assets for the
// pdfextract upload UI.
package web

import (
	"bytes"
	"embed"
	"encoding/base64"
	"html/template"
	"io/fs"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// Funcs are the helpers available to every template.
var Funcs = template.FuncMap{
	"markdown": Markdown,
	"dataURL":  DataURL,
}

// Templates parses the embedded page templates.
func Templates() (*template.Template, error) {
	return template.New("web").Funcs(Funcs).ParseFS(templateFS, "templates/*.html")
}

// StaticFS returns the embedded static assets rooted at "static".
func StaticFS() (fs.FS, error) {
	return fs.Sub(staticFS, "static")
}

// Markdown renders markdown source to HTML. Raw HTML in the source is
// omitted by the renderer.
func Markdown(src string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}

// DataURL encodes image bytes as a data URL usable in an img src.
func DataURL(mimeType string, data []byte) template.URL {
	return template.URL("data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data))
}
