// Package render converts PDF documents into ordered page images.
//
// The document is validated and counted with pdfcpu before any page is
// rasterized. Rasterization is delegated to a Rasterizer, by default the
// pdftoppm binary from poppler-utils.
package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // register decoders for DecodeConfig
	_ "image/png"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"golang.org/x/sync/errgroup"
)

// DefaultDPI is the resolution applied to every page.
const DefaultDPI = 300

// Format is an output image encoding.
type Format string

const (
	PNG  Format = "png"
	JPEG Format = "jpeg"
)

// MIMEType returns the media type for the format.
func (f Format) MIMEType() string {
	if f == JPEG {
		return "image/jpeg"
	}
	return "image/png"
}

// ParseFormat accepts "png", "jpeg" or "jpg".
func ParseFormat(s string) (Format, error) {
	switch s {
	case "", "png":
		return PNG, nil
	case "jpeg", "jpg":
		return JPEG, nil
	}
	return "", fmt.Errorf("unsupported image format %q (want png or jpeg)", s)
}

// PageImage is one rendered page.
type PageImage struct {
	Index    int    `json:"index"` // zero-based page index
	Data     []byte `json:"-"`
	MIMEType string `json:"mime_type"`
	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`
}

// PageNumber returns the one-based page number.
func (p PageImage) PageNumber() int {
	return p.Index + 1
}

// Rasterizer renders a single page of a PDF file to an encoded image.
// page is one-based.
type Rasterizer interface {
	Rasterize(ctx context.Context, pdfPath string, page, dpi int, format Format) ([]byte, error)
}

// RasterizerFunc adapts a function to the Rasterizer interface.
type RasterizerFunc func(ctx context.Context, pdfPath string, page, dpi int, format Format) ([]byte, error)

// Rasterize calls f.
func (f RasterizerFunc) Rasterize(ctx context.Context, pdfPath string, page, dpi int, format Format) ([]byte, error) {
	return f(ctx, pdfPath, page, dpi, format)
}

// Config configures a Renderer.
type Config struct {
	DPI        int
	Format     Format
	MaxWorkers int        // concurrent page renders; defaults to NumCPU
	Rasterizer Rasterizer // defaults to pdftoppm on PATH
	TempDir    string     // defaults to os.TempDir()
	Logger     *slog.Logger
}

// Renderer turns PDF bytes into page images.
type Renderer struct {
	dpi        int
	format     Format
	maxWorkers int
	rasterizer Rasterizer
	tempDir    string
	logger     *slog.Logger
}

var disableConfigDir sync.Once

// New creates a Renderer.
func New(cfg Config) *Renderer {
	if cfg.DPI <= 0 {
		cfg.DPI = DefaultDPI
	}
	if cfg.Format == "" {
		cfg.Format = PNG
	}
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = runtime.NumCPU()
	}
	if cfg.Rasterizer == nil {
		cfg.Rasterizer = NewPdftoppmRasterizer("")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	// pdfcpu otherwise writes a config directory under the user's home.
	disableConfigDir.Do(api.DisableConfigDir)

	return &Renderer{
		dpi:        cfg.DPI,
		format:     cfg.Format,
		maxWorkers: cfg.MaxWorkers,
		rasterizer: cfg.Rasterizer,
		tempDir:    cfg.TempDir,
		logger:     cfg.Logger,
	}
}

// DPI returns the configured resolution.
func (r *Renderer) DPI() int { return r.dpi }

// Format returns the configured output format.
func (r *Renderer) Format() Format { return r.format }

// PageCount validates the document and returns its page count.
// Malformed input returns *DocumentFormatError.
func (r *Renderer) PageCount(pdf []byte) (int, error) {
	return pageCount(pdf)
}

// Render returns one image per page, in page order. Either every page
// renders or the call fails; no partial result is returned.
func (r *Renderer) Render(ctx context.Context, pdf []byte) ([]PageImage, error) {
	start := time.Now()

	count, err := pageCount(pdf)
	if err != nil {
		return nil, err
	}

	tmpDir, err := os.MkdirTemp(r.tempDir, "pdfextract-render-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	pdfPath := filepath.Join(tmpDir, "input.pdf")
	if err := os.WriteFile(pdfPath, pdf, 0o600); err != nil {
		return nil, fmt.Errorf("failed to write temp PDF: %w", err)
	}

	images := make([]PageImage, count)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.maxWorkers)

	for i := 0; i < count; i++ {
		g.Go(func() error {
			data, err := r.rasterizer.Rasterize(gctx, pdfPath, i+1, r.dpi, r.format)
			if err != nil {
				return fmt.Errorf("failed to render page %d: %w", i+1, err)
			}
			if len(data) == 0 {
				return &DocumentFormatError{Reason: fmt.Sprintf("page %d rendered to an empty image", i+1)}
			}
			img := PageImage{Index: i, Data: data, MIMEType: r.format.MIMEType()}
			if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
				img.Width, img.Height = cfg.Width, cfg.Height
			}
			images[i] = img
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	r.logger.Debug("rendered PDF", "pages", count, "dpi", r.dpi, "format", r.format, "duration", time.Since(start))
	return images, nil
}

// pageCount validates pdf with pdfcpu in relaxed mode.
func pageCount(pdf []byte) (n int, err error) {
	if len(pdf) == 0 {
		return 0, &DocumentFormatError{Reason: "empty document"}
	}
	head := pdf
	if len(head) > 1024 {
		head = head[:1024]
	}
	if !bytes.Contains(head, []byte("%PDF-")) {
		return 0, &DocumentFormatError{Reason: "missing %PDF header"}
	}

	// pdfcpu can panic on some corrupt cross-reference tables.
	defer func() {
		if p := recover(); p != nil {
			n, err = 0, &DocumentFormatError{Reason: "unreadable document", Err: fmt.Errorf("%v", p)}
		}
	}()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	n, err = api.PageCount(bytes.NewReader(pdf), conf)
	if err != nil {
		return 0, &DocumentFormatError{Reason: "unreadable document", Err: err}
	}
	if n == 0 {
		return 0, &DocumentFormatError{Reason: "document has no pages"}
	}
	return n, nil
}

// DocumentFormatError reports input that is not a readable PDF.
type DocumentFormatError struct {
	Reason string
	Err    error
}

func (e *DocumentFormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid PDF: %s: %v", e.Reason, e.Err)
	}
	return "invalid PDF: " + e.Reason
}

func (e *DocumentFormatError) Unwrap() error { return e.Err }

// IsDocumentFormat reports whether err is a *DocumentFormatError.
func IsDocumentFormat(err error) bool {
	var dfe *DocumentFormatError
	return errors.As(err, &dfe)
}
