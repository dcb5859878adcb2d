// Package prompts loads named extraction prompts from a directory of
// markdown files.
//
// Each <name>.md file in the directory is one prompt. The file stem is the
// prompt's name and the file content is passed verbatim to the extraction
// model. An optional <name>.schema.json next to it supplies a JSON schema for
// the expected output.
//
// Adding a prompt means adding a file; nothing is cached, so edits are picked
// up on the next request.
package prompts

import (
	"encoding/json"
	"fmt"
)

// ExtractionPrompt is one named extraction template.
type ExtractionPrompt struct {
	Name   string          `json:"name"`
	Text   string          `json:"text"`
	Hash   string          `json:"hash"`             // SHA256 of Text
	Schema json.RawMessage `json:"schema,omitempty"` // from <name>.schema.json, if present
	Path   string          `json:"path"`
}

// HasSchema reports whether the prompt carries an output schema.
func (p *ExtractionPrompt) HasSchema() bool {
	return len(p.Schema) > 0
}

// NotFoundError is returned when no prompt file matches a name.
type NotFoundError struct {
	Name string
	Dir  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("prompt not found: %q (looked in %s)", e.Name, e.Dir)
}
