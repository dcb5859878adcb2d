package extract

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/jackzampolin/pdfextract/internal/providers"
)

// ParseError reports a model reply that is not a usable JSON object.
// Raw holds the reply exactly as received.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("could not parse model response: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

var errNotObject = errors.New("response is not a JSON object")

// ParseResponse turns a model reply into a Record holding the field map.
// Markdown code fences and text around the JSON are tolerated. A reply
// that is not a JSON object, or that fails schema validation when schema is
// non-empty, returns *ParseError. Fields wrapped as
// {"file_name": ..., "ocr_contents": {...}} are unwrapped.
//
// Record.JSON keeps the object as the model wrote it, so key order and
// number spelling survive. Numbers in Fields are json.Number.
func ParseResponse(raw string, schema json.RawMessage) (*Record, error) {
	parsed, err := providers.ParseStructuredJSON(raw)
	if err != nil {
		return nil, &ParseError{Raw: raw, Err: err}
	}

	doc := gjson.ParseBytes(parsed)
	if !doc.IsObject() {
		return nil, &ParseError{Raw: raw, Err: errNotObject}
	}
	data := []byte(unwrapEnvelope(doc).Raw)

	if err := providers.ValidateStructuredJSON(schema, data); err != nil {
		return nil, &ParseError{Raw: raw, Err: err}
	}

	fields, err := decodeFields(data)
	if err != nil {
		return nil, &ParseError{Raw: raw, Err: err}
	}
	return &Record{Fields: fields, JSON: data, Raw: raw}, nil
}

func decodeFields(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	fields := make(map[string]any)
	if err := dec.Decode(&fields); err != nil {
		return nil, err
	}
	return fields, nil
}

// unwrapEnvelope returns the inner object of {"file_name", "ocr_contents"}.
func unwrapEnvelope(doc gjson.Result) gjson.Result {
	inner := doc.Get("ocr_contents")
	if !inner.IsObject() {
		return doc
	}
	envelope := true
	doc.ForEach(func(key, _ gjson.Result) bool {
		if k := key.String(); k != "ocr_contents" && k != "file_name" {
			envelope = false
		}
		return envelope
	})
	if !envelope {
		return doc
	}
	return inner
}
