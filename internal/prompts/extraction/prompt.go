// Package extraction holds the embedded request templates that wrap a named
// extraction prompt and the OCR text into an LLM request.
package extraction

import (
	"bytes"
	_ "embed"
	"fmt"
	"text/template"

	"github.com/jackzampolin/pdfextract/internal/prompts"
)

//go:embed system.tmpl
var systemPrompt string

//go:embed user.tmpl
var userPromptTmpl string

var userTemplate = template.Must(template.New("user").Parse(userPromptTmpl))

// UserData is the input to the user prompt template.
type UserData struct {
	Template  string // the named prompt's text
	OCRText   string // page texts joined with page markers
	PageCount int
	HasSchema bool
	HasImage  bool
}

// SystemPrompt returns the system prompt for structured extraction.
func SystemPrompt() string {
	return systemPrompt
}

// SystemPromptHash identifies the embedded system prompt version.
func SystemPromptHash() string {
	return prompts.HashText(systemPrompt)
}

// UserPrompt builds the user prompt for one extraction request.
func UserPrompt(data UserData) (string, error) {
	var buf bytes.Buffer
	if err := userTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render user prompt: %w", err)
	}
	return buf.String(), nil
}
