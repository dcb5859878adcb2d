package prompts

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestRegistry_List(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "order_confirmation.md", "# Order\n- order_number")
	writeFile(t, dir, "invoice.md", "# Invoice\n- invoice_number\n- total")
	writeFile(t, dir, "invoice.schema.json", `{"type":"object"}`)
	writeFile(t, dir, "README.txt", "not a prompt")
	writeFile(t, dir, "a.b.md", "dotted")
	if err := os.Mkdir(filepath.Join(dir, "nested.md"), 0o755); err != nil {
		t.Fatal(err)
	}

	r := NewRegistry(dir, nil)
	got, err := r.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}

	want := []string{"a.b", "invoice", "order_confirmation"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("List() = %v, want %v", got, want)
	}
}

func TestRegistry_DoubleDotNames(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "invoice..v2.md", "- invoice_number")
	writeFile(t, dir, "a.md", "- a")

	r := NewRegistry(dir, nil)
	got, err := r.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if want := []string{"a", "invoice..v2"}; !reflect.DeepEqual(got, want) {
		t.Errorf("List() = %v, want %v", got, want)
	}

	p, err := r.Get("invoice..v2")
	if err != nil {
		t.Fatalf("Get(invoice..v2) error = %v", err)
	}
	if p.Text != "- invoice_number" {
		t.Errorf("Text = %q", p.Text)
	}
}

func TestRegistry_ListMissingDir(t *testing.T) {
	r := NewRegistry(filepath.Join(t.TempDir(), "missing"), nil)
	got, err := r.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("List() = %v, want empty", got)
	}
}

func TestRegistry_ListPicksUpNewFiles(t *testing.T) {
	dir := t.TempDir()
	r := NewRegistry(dir, nil)

	if got, _ := r.List(); len(got) != 0 {
		t.Fatalf("List() = %v, want empty", got)
	}
	writeFile(t, dir, "receipt.md", "- total")
	if got, _ := r.List(); !reflect.DeepEqual(got, []string{"receipt"}) {
		t.Errorf("List() = %v, want [receipt]", got)
	}
}

func TestRegistry_Get(t *testing.T) {
	dir := t.TempDir()
	content := "# Invoice\n\n- invoice_number\n- total\n\n  trailing spaces  \n"
	writeFile(t, dir, "invoice.md", content)
	writeFile(t, dir, "receipt.md", "- total")
	writeFile(t, dir, "receipt.schema.json", `{"type":"object","required":["total"]}`)
	writeFile(t, dir, "broken.md", "x")
	writeFile(t, dir, "broken.schema.json", `{not json`)

	r := NewRegistry(dir, nil)

	t.Run("returns exact content", func(t *testing.T) {
		p, err := r.Get("invoice")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if p.Text != content {
			t.Errorf("Text = %q, want %q", p.Text, content)
		}
		if p.Name != "invoice" {
			t.Errorf("Name = %q", p.Name)
		}
		if p.Hash != HashText(content) {
			t.Error("Hash mismatch")
		}
		if p.HasSchema() {
			t.Error("invoice has no schema sidecar")
		}
	})

	t.Run("loads schema sidecar", func(t *testing.T) {
		p, err := r.Get("receipt")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if !p.HasSchema() {
			t.Error("expected schema")
		}
	})

	t.Run("invalid schema sidecar", func(t *testing.T) {
		if _, err := r.Get("broken"); err == nil {
			t.Error("expected error for invalid schema JSON")
		}
	})

	for _, name := range []string{"missing", "", "../invoice", "sub/invoice", "..", `a\b`} {
		t.Run("not found "+name, func(t *testing.T) {
			_, err := r.Get(name)
			var nf *NotFoundError
			if !errors.As(err, &nf) {
				t.Fatalf("Get(%q) error = %v, want NotFoundError", name, err)
			}
			if nf.Name != name {
				t.Errorf("NotFoundError.Name = %q", nf.Name)
			}
		})
	}
}
