package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/pdfextract/internal/api"
	"github.com/jackzampolin/pdfextract/internal/prompts"
)

var promptsCmd = &cobra.Command{
	Use:   "prompts",
	Short: "Inspect extraction prompts on disk",
}

var promptsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List prompt names in the prompt directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := loadEnv()
		if err != nil {
			return err
		}
		reg := prompts.NewRegistry(env.promptDir(), env.logger)
		names, err := reg.List()
		if err != nil {
			return err
		}
		return api.Output(map[string]any{"dir": reg.Dir(), "prompts": names})
	},
}

var promptsShowCmd = &cobra.Command{
	Use:   "show NAME",
	Short: "Print a prompt exactly as it is sent to the model",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := loadEnv()
		if err != nil {
			return err
		}
		p, err := prompts.NewRegistry(env.promptDir(), env.logger).Get(args[0])
		if err != nil {
			return err
		}
		fmt.Print(p.Text)
		if outline := prompts.ParseOutline(p); len(outline.Items) > 0 {
			printErr("\n%d fields, hash %s\n", len(outline.Items), p.Hash)
		}
		return nil
	},
}

func init() {
	promptsCmd.AddCommand(promptsListCmd)
	promptsCmd.AddCommand(promptsShowCmd)
	rootCmd.AddCommand(promptsCmd)
}
