package prompts

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Outline summarizes a prompt's markdown: its first heading and the text of
// every list item, in document order. Prompts usually list the requested
// fields as bullets, so Items doubles as a field preview.
type Outline struct {
	Title string   `json:"title,omitempty"`
	Items []string `json:"items,omitempty"`
}

// ParseOutline walks the markdown AST of p.Text.
func ParseOutline(p *ExtractionPrompt) Outline {
	src := []byte(p.Text)
	doc := goldmark.New().Parser().Parse(text.NewReader(src))

	var out Outline
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n := n.(type) {
		case *ast.Heading:
			if out.Title == "" {
				out.Title = nodeText(n, src)
			}
			return ast.WalkSkipChildren, nil
		case *ast.ListItem:
			// First block of the item only; nested lists are visited on their own.
			if first := n.FirstChild(); first != nil {
				if t := nodeText(first, src); t != "" {
					out.Items = append(out.Items, t)
				}
			}
		}
		return ast.WalkContinue, nil
	})
	return out
}

func nodeText(n ast.Node, src []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			b.Write(t.Segment.Value(src))
			if t.SoftLineBreak() || t.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(t.Value)
		case *ast.List:
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(b.String())
}
