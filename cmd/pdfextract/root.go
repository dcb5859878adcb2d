package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/jackzampolin/pdfextract/internal/api"
	"github.com/jackzampolin/pdfextract/internal/config"
	"github.com/jackzampolin/pdfextract/internal/home"
	"github.com/jackzampolin/pdfextract/version"
)

var (
	cfgFile      string
	homeDir      string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "pdfextract",
	Short: "Extract structured data from PDFs with OCR and an LLM",
	Long: `pdfextract turns PDF documents into structured records.

Each document goes through four stages:
  - prompt:  look up a named markdown prompt (prompt_extraction/<name>.md)
  - render:  rasterize every page with pdftoppm
  - ocr:     recognize each page's text with the configured OCR provider
  - extract: ask the configured LLM for a JSON record, shown as tables

Run "pdfextract serve" for the upload UI and JSON API, or
"pdfextract extract FILE --prompt NAME" to process a file locally.`,
	Version:      version.GitRelease,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.pdfextract/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "pdfextract home directory (default: ~/.pdfextract)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format: yaml or json",
	)

	// Set output format and load .env before any command runs
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		_ = godotenv.Load()
		api.SetOutputFormat(outputFormat)
	}

	rootCmd.AddCommand(versionCmd)
}

// runtimeEnv is the home directory, configuration and logger shared by the
// commands that run in-process.
type runtimeEnv struct {
	home   *home.Dir
	config *config.Manager
	logger *slog.Logger
}

// loadEnv resolves the home directory and loads and validates the config.
// Logs go to stderr so stdout stays machine-readable.
func loadEnv() (*runtimeEnv, error) {
	h, err := home.New(homeDir)
	if err != nil {
		return nil, err
	}

	cm, err := config.NewManager(cfgFile, h.Path())
	if err != nil {
		return nil, err
	}
	cfg := cm.Get()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	cm.SetLogger(logger)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if used := cm.ConfigFileUsed(); used != "" {
		logger.Debug("config loaded", "file", used)
	}
	return &runtimeEnv{home: h, config: cm, logger: logger}, nil
}

// promptDir returns the prompt directory the commands read from.
func (e *runtimeEnv) promptDir() string {
	return e.home.ResolvePromptDir(e.config.Get().PromptDir)
}

func printErr(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format, args...)
}
