// Package ocr runs a page-image OCR provider over a rendered document.
package ocr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jackzampolin/pdfextract/internal/providers"
	"github.com/jackzampolin/pdfextract/internal/render"
)

// Result is the recognized text for one page.
type Result struct {
	PageIndex int           `json:"page_index"` // zero-based, matches render.PageImage.Index
	Text      string        `json:"text"`
	Provider  string        `json:"provider"`
	Duration  time.Duration `json:"duration"`
	Attempts  int           `json:"attempts"`
}

// PageNumber returns the one-based page number.
func (r Result) PageNumber() int {
	return r.PageIndex + 1
}

// Config configures a Client.
type Config struct {
	Provider providers.OCRProvider

	// Concurrency is the number of pages in flight. Values <= 1 process
	// pages one at a time.
	Concurrency int

	Logger *slog.Logger
}

// Client sends one OCR request per page.
type Client struct {
	provider    providers.OCRProvider
	concurrency int
	logger      *slog.Logger
}

// New creates a Client.
func New(cfg Config) *Client {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Client{
		provider:    cfg.Provider,
		concurrency: cfg.Concurrency,
		logger:      cfg.Logger,
	}
}

// Recognize returns one Result per page in input order. The first failing
// page aborts the call and no partial results are returned. Provider errors
// keep their type (AuthenticationError, ServiceError, TimeoutError).
func (c *Client) Recognize(ctx context.Context, pages []render.PageImage) ([]Result, error) {
	if c.provider == nil {
		return nil, errors.New("no OCR provider configured")
	}
	start := time.Now()

	results := make([]Result, len(pages))
	if c.concurrency == 1 {
		for i, page := range pages {
			res, err := c.recognizePage(ctx, page)
			if err != nil {
				return nil, err
			}
			results[i] = res
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(c.concurrency)
		for i, page := range pages {
			g.Go(func() error {
				res, err := c.recognizePage(gctx, page)
				if err != nil {
					return err
				}
				results[i] = res
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	c.logger.Debug("OCR complete",
		"provider", c.provider.Name(),
		"pages", len(pages),
		"concurrency", c.concurrency,
		"duration", time.Since(start))
	return results, nil
}

func (c *Client) recognizePage(ctx context.Context, page render.PageImage) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	img := &providers.Image{Data: page.Data, MIMEType: page.MIMEType}
	out, err := c.provider.ProcessImage(ctx, img, page.PageNumber())
	if err != nil {
		return Result{}, fmt.Errorf("page %d: %w", page.PageNumber(), err)
	}
	return Result{
		PageIndex: page.Index,
		Text:      out.Text,
		Provider:  c.provider.Name(),
		Duration:  out.ExecutionTime,
		Attempts:  out.Attempts,
	}, nil
}

// PageHeader returns the marker that precedes a page's text in the
// concatenated document. n is one-based.
func PageHeader(n int) string {
	return fmt.Sprintf("=== Page %d ===", n)
}

// Concatenate joins page texts in order, each under its page header,
// separated by a blank line.
func Concatenate(results []Result) string {
	parts := make([]string, len(results))
	for i, r := range results {
		parts[i] = PageHeader(r.PageNumber()) + "\n" + r.Text
	}
	return strings.Join(parts, "\n\n")
}
