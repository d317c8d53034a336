package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/menta2k/region-ocr/internal/config"
	"github.com/menta2k/region-ocr/pkg/ollama"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the models available on the Ollama daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := cfgManager.Get()
		c, err := ollama.NewClient(cfg.Ollama.URL, cfg.Ollama.Model, logger)
		if err != nil {
			return err
		}
		models, err := c.Models(cmd.Context())
		if err != nil {
			return err
		}
		for _, m := range models {
			marker := " "
			if m == cfg.Ollama.Model {
				marker = "*"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", marker, m)
		}
		if cfg.Backend == config.BackendOllama && !contains(models, cfg.Ollama.Model) {
			logger.Warn("configured model is not installed", "model", cfg.Ollama.Model)
		}
		return nil
	},
}
