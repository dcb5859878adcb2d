package providers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/tidwall/gjson"
)

var errNoStructuredJSON = errors.New("failed to parse structured JSON")

// ParseStructuredJSON returns the JSON value in a model reply, compacted with
// object keys in the order the model wrote them. The whole reply is tried
// first, then the body of a markdown code fence, then the span from the first
// opening bracket to the last matching closing one. The model is never asked
// to repair its output.
func ParseStructuredJSON(content string) (json.RawMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("empty structured output")
	}
	for _, candidate := range jsonCandidates(content) {
		if !gjson.Valid(candidate) {
			continue
		}
		var buf bytes.Buffer
		if err := json.Compact(&buf, []byte(candidate)); err == nil {
			return json.RawMessage(buf.Bytes()), nil
		}
	}
	return nil, errNoStructuredJSON
}

// jsonCandidates lists distinct non-empty substrings of content that may hold
// the JSON value, best guess first.
func jsonCandidates(content string) []string {
	var out []string
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" {
			return
		}
		for _, c := range out {
			if c == s {
				return
			}
		}
		out = append(out, s)
	}
	add(content)
	add(fenceBody(content))
	add(bracketSpan(content))
	return out
}

// fenceBody returns the text inside a leading ``` fence, or "".
func fenceBody(content string) string {
	if !strings.HasPrefix(content, "```") {
		return ""
	}
	_, body, ok := strings.Cut(content, "\n")
	if !ok {
		return ""
	}
	body = strings.TrimSpace(body)
	return strings.TrimSpace(strings.TrimSuffix(body, "```"))
}

// bracketSpan returns content from the first { or [ through the last
// matching } or ], or "".
func bracketSpan(content string) string {
	start := strings.IndexAny(content, "{[")
	if start < 0 {
		return ""
	}
	closer := "}"
	if content[start] == '[' {
		closer = "]"
	}
	end := strings.LastIndex(content, closer)
	if end < start {
		return ""
	}
	return content[start : end+1]
}

// ValidateStructuredJSON validates parsed JSON against schemaRaw. A schema
// sent as a response format wrapper {"name","strict","schema"} is unwrapped
// first. An empty schema accepts anything.
func ValidateStructuredJSON(schemaRaw, parsed json.RawMessage) error {
	if len(schemaRaw) == 0 || len(parsed) == 0 {
		return nil
	}
	if !gjson.ValidBytes(schemaRaw) {
		return fmt.Errorf("invalid structured schema JSON")
	}
	core := []byte(schemaRaw)
	if inner := gjson.GetBytes(schemaRaw, "schema"); inner.IsObject() {
		core = []byte(inner.Raw)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(core)); err != nil {
		return fmt.Errorf("failed to load structured schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("failed to compile structured schema: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(parsed))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("failed to decode structured JSON for validation: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("structured output does not match schema: %w", err)
	}
	return nil
}
