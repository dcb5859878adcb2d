package render

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// PdftoppmRasterizer renders pages with pdftoppm (poppler-utils).
type PdftoppmRasterizer struct {
	path string
}

// NewPdftoppmRasterizer creates a rasterizer. An empty path uses "pdftoppm"
// from PATH.
func NewPdftoppmRasterizer(path string) *PdftoppmRasterizer {
	if path == "" {
		path = "pdftoppm"
	}
	return &PdftoppmRasterizer{path: path}
}

// Available reports whether the pdftoppm binary can be found.
func (p *PdftoppmRasterizer) Available() error {
	if _, err := exec.LookPath(p.path); err != nil {
		return fmt.Errorf("pdftoppm not found (install poppler-utils): %w", err)
	}
	return nil
}

// Rasterize renders one page. A non-zero exit from pdftoppm means the
// document could not be parsed and is reported as *DocumentFormatError.
func (p *PdftoppmRasterizer) Rasterize(ctx context.Context, pdfPath string, page, dpi int, format Format) ([]byte, error) {
	outDir, err := os.MkdirTemp(filepath.Dir(pdfPath), "page-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(outDir)

	// Output prefix for pdftoppm
	outputPrefix := filepath.Join(outDir, "page")

	// -png/-jpeg: output format
	// -f N -l N: render only page N
	// -r DPI: resolution
	// -singlefile: don't add page number suffix
	pageStr := strconv.Itoa(page)
	cmd := exec.CommandContext(ctx, p.path,
		"-"+string(format),
		"-f", pageStr,
		"-l", pageStr,
		"-r", strconv.Itoa(dpi),
		"-singlefile",
		pdfPath,
		outputPrefix,
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if errors.Is(err, exec.ErrNotFound) {
			return nil, fmt.Errorf("pdftoppm not found (install poppler-utils): %w", err)
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, &DocumentFormatError{
				Reason: "pdftoppm could not render page " + pageStr,
				Err:    fmt.Errorf("%w: %s", err, strings.TrimSpace(string(output))),
			}
		}
		return nil, fmt.Errorf("pdftoppm failed: %w (output: %s)", err, string(output))
	}

	// pdftoppm with -singlefile creates <prefix>.png or <prefix>.jpg
	ext := ".png"
	if format == JPEG {
		ext = ".jpg"
	}
	data, err := os.ReadFile(outputPrefix + ext)
	if err != nil {
		return nil, fmt.Errorf("pdftoppm did not create expected output: %w", err)
	}
	return data, nil
}

var _ Rasterizer = (*PdftoppmRasterizer)(nil)
