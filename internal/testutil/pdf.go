// Package testutil provides fixtures shared by package tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// MinimalPDF builds a valid PDF with one Letter-sized page per entry in
// pages, each showing its text in 24pt Helvetica. It panics if pdfcpu
// rejects the layout.
func MinimalPDF(pages ...string) []byte {
	if len(pages) == 0 {
		pages = []string{""}
	}

	layout := map[string]any{
		"paper":  "Letter",
		"origin": "LowerLeft",
		"pages":  pageLayouts(pages),
	}
	desc, err := json.Marshal(layout)
	if err != nil {
		panic(err)
	}

	var buf bytes.Buffer
	if err := api.Create(nil, bytes.NewReader(desc), &buf, model.NewDefaultConfiguration()); err != nil {
		panic("testutil: create pdf: " + err.Error())
	}
	return buf.Bytes()
}

// pageLayouts keys pages by 1-based number. Blank pages get empty content.
func pageLayouts(pages []string) map[string]any {
	out := make(map[string]any, len(pages))
	for i, text := range pages {
		content := map[string]any{}
		if text != "" {
			content["text"] = []map[string]any{{
				"value": text,
				"pos":   []int{72, 720},
				"font":  map[string]any{"name": "Helvetica", "size": 24},
			}}
		}
		out[strconv.Itoa(i+1)] = map[string]any{"content": content}
	}
	return out
}
