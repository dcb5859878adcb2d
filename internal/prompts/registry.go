package prompts

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Registry lists and loads prompts from a directory. It reads the
// filesystem on every call.
type Registry struct {
	dir    string
	logger *slog.Logger
}

// NewRegistry creates a registry over dir.
func NewRegistry(dir string, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{dir: dir, logger: logger}
}

// Dir returns the prompt directory.
func (r *Registry) Dir() string {
	return r.dir
}

// List returns the names of all prompts, sorted. A missing directory yields
// an empty list.
func (r *Registry) List() ([]string, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			r.logger.Warn("prompt directory does not exist", "dir", r.dir)
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to read prompt directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		name, ok := strings.CutSuffix(e.Name(), promptExt)
		if !ok || !validName(name) {
			continue
		}
		if !r.isFile(e) {
			continue
		}
		names = append(names, name)
	}

	// ReadDir already returns entries sorted by filename, but "a.b.md" vs
	// "a.md" can order differently once the suffix is stripped.
	sort.Strings(names)
	return names, nil
}

// Get loads the prompt with the given name. The returned Text is the exact
// file content.
func (r *Registry) Get(name string) (*ExtractionPrompt, error) {
	if !validName(name) {
		return nil, &NotFoundError{Name: name, Dir: r.dir}
	}

	path := filepath.Join(r.dir, name+promptExt)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &NotFoundError{Name: name, Dir: r.dir}
		}
		return nil, fmt.Errorf("failed to read prompt %q: %w", name, err)
	}

	text := string(data)
	p := &ExtractionPrompt{
		Name: name,
		Text: text,
		Hash: HashText(text),
		Path: path,
	}

	schema, err := r.loadSchema(name)
	if err != nil {
		return nil, err
	}
	p.Schema = schema
	return p, nil
}

// loadSchema reads the optional <name>.schema.json sidecar.
func (r *Registry) loadSchema(name string) (json.RawMessage, error) {
	data, err := os.ReadFile(filepath.Join(r.dir, name+schemaExt))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read schema for prompt %q: %w", name, err)
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("schema for prompt %q is not valid JSON", name)
	}
	return json.RawMessage(data), nil
}

func (r *Registry) isFile(e fs.DirEntry) bool {
	if e.Type().IsRegular() {
		return true
	}
	if e.Type()&fs.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(filepath.Join(r.dir, e.Name()))
	return err == nil && info.Mode().IsRegular()
}
