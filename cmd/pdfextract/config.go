package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jackzampolin/pdfextract/internal/config"
	"github.com/jackzampolin/pdfextract/internal/home"
)

var configForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default config to the home directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := home.New(homeDir)
		if err != nil {
			return err
		}
		if err := h.EnsureExists(); err != nil {
			return err
		}
		if h.ConfigExists() && !configForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", h.ConfigPath())
		}
		if err := config.WriteDefault(h.ConfigPath()); err != nil {
			return err
		}
		fmt.Println("wrote", h.ConfigPath())
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := loadEnv()
		if err != nil {
			return err
		}
		cfg := redacted(env.config.Get())
		if used := env.config.ConfigFileUsed(); used != "" {
			fmt.Printf("# %s\n", used)
		}
		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(cfg)
	},
}

// redacted returns a copy of cfg with literal API keys masked. ${VAR}
// references are kept.
func redacted(cfg *config.Config) *config.Config {
	out := *cfg
	mask := func(key string) string {
		if key == "" || strings.HasPrefix(key, "${") {
			return key
		}
		return "****"
	}
	out.OCRProviders = make(map[string]config.OCRProviderCfg, len(cfg.OCRProviders))
	for name, p := range cfg.OCRProviders {
		p.APIKey = mask(p.APIKey)
		out.OCRProviders[name] = p
	}
	out.LLMProviders = make(map[string]config.LLMProviderCfg, len(cfg.LLMProviders))
	for name, p := range cfg.LLMProviders {
		p.APIKey = mask(p.APIKey)
		out.LLMProviders[name] = p
	}
	return &out
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite an existing config file")
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}
