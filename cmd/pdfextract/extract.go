package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/pdfextract/internal/api"
	"github.com/jackzampolin/pdfextract/internal/extract"
	"github.com/jackzampolin/pdfextract/internal/pipeline"
	"github.com/jackzampolin/pdfextract/internal/prompts"
	"github.com/jackzampolin/pdfextract/internal/providers"
	"github.com/jackzampolin/pdfextract/internal/server/endpoints"
)

var (
	extractPrompt      string
	extractIncludeOCR  bool
	extractOCRProvider string
	extractLLMProvider string
	extractExport      bool
	extractExportDir   string
	extractFormat      string
)

var extractCmd = &cobra.Command{
	Use:   "extract FILE",
	Short: "Extract a structured record from a PDF without a server",
	Long: `Run the full pipeline on one PDF in this process and print the result.

With --export the record is also written to disk: one JSON file, one XLSX
workbook, or one CSV file per table, named <pdf>_<prompt>[_<table>].<ext>.

Examples:
  pdfextract extract invoice.pdf --prompt invoice
  pdfextract extract invoice.pdf -p invoice --export --format csv
  pdfextract extract invoice.pdf -p invoice --export --format xlsx
  pdfextract extract scan.pdf -p order_confirmation --llm-provider openai -o json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := extract.ParseExportFormat(extractFormat)
		if err != nil {
			return err
		}

		env, err := loadEnv()
		if err != nil {
			return err
		}
		cfg := env.config.Get()

		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", args[0], err)
		}

		registry, err := providers.NewRegistryFromConfig(cfg.ToProviderRegistryConfig(), env.logger)
		if err != nil {
			return err
		}
		defer registry.Close()

		p := pipeline.FromConfig(cfg, prompts.NewRegistry(env.promptDir(), env.logger), registry, env.logger)
		res, err := p.Run(cmd.Context(), pipeline.Input{
			PDF:         data,
			FileName:    filepath.Base(args[0]),
			Prompt:      extractPrompt,
			OCRProvider: extractOCRProvider,
			LLMProvider: extractLLMProvider,
		})
		if err != nil {
			return err
		}

		if extractExport {
			dir := extractExportDir
			if dir == "" {
				dir = env.home.ExportsDir()
			}
			paths, err := extract.ExportToDir(dir, res.FileName, res.Record.Prompt, res.Record, format)
			if err != nil {
				return err
			}
			for _, path := range paths {
				printErr("wrote %s\n", path)
			}
		}

		resp, err := endpoints.NewExtractResponse(res, extractIncludeOCR, false)
		if err != nil {
			return err
		}
		return api.Output(resp)
	},
}

func init() {
	extractCmd.Flags().StringVarP(&extractPrompt, "prompt", "p", "", "Prompt name (required)")
	extractCmd.Flags().BoolVar(&extractIncludeOCR, "include-ocr", false, "Include per-page OCR text")
	extractCmd.Flags().StringVar(&extractOCRProvider, "ocr-provider", "", "OCR provider override")
	extractCmd.Flags().StringVar(&extractLLMProvider, "llm-provider", "", "LLM provider override")
	extractCmd.Flags().BoolVar(&extractExport, "export", false, "Write the record to disk")
	extractCmd.Flags().StringVar(&extractExportDir, "export-dir", "", "Export directory (default: ~/.pdfextract/exports)")
	extractCmd.Flags().StringVar(&extractFormat, "format", "json", "Export format: json, csv or xlsx")
	extractCmd.MarkFlagRequired("prompt")

	rootCmd.AddCommand(extractCmd)
}
