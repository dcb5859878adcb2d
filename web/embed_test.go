package web

import (
	"io/fs"
	"strings"
	"testing"
)

func TestTemplates(t *testing.T) {
	tmpl, err := Templates()
	if err != nil {
		t.Fatalf("Templates() error = %v", err)
	}
	for _, name := range []string{"index", "prompt", "header", "footer", "table"} {
		if tmpl.Lookup(name) == nil {
			t.Errorf("template %q not defined", name)
		}
	}
}

func TestStaticFS(t *testing.T) {
	fsys, err := StaticFS()
	if err != nil {
		t.Fatalf("StaticFS() error = %v", err)
	}
	if _, err := fs.Stat(fsys, "style.css"); err != nil {
		t.Errorf("style.css missing: %v", err)
	}
}

func TestMarkdown(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		want    string
		notWant string
	}{
		{"heading", "# Invoice", "<h1>Invoice</h1>", ""},
		{"list", "- total", "<li>total</li>", ""},
		{"table extension", "| a | b |\n|---|---|\n| 1 | 2 |", "<table>", ""},
		{"raw html dropped", "<script>alert(1)</script>", "", "<script>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Markdown(tt.src)
			if err != nil {
				t.Fatalf("Markdown() error = %v", err)
			}
			if tt.want != "" && !strings.Contains(string(got), tt.want) {
				t.Errorf("Markdown() = %q, want to contain %q", got, tt.want)
			}
			if tt.notWant != "" && strings.Contains(string(got), tt.notWant) {
				t.Errorf("Markdown() = %q, must not contain %q", got, tt.notWant)
			}
		})
	}
}

func TestDataURL(t *testing.T) {
	got := DataURL("image/png", []byte("abc"))
	if want := "data:image/png;base64,YWJj"; string(got) != want {
		t.Errorf("DataURL() = %q, want %q", got, want)
	}
}
