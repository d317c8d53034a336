package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	regionocr "github.com/menta2k/region-ocr"
	"github.com/menta2k/region-ocr/internal/config"
	"github.com/menta2k/region-ocr/internal/logutil"
)

var (
	cfgFile string
	verbose bool

	logger     *slog.Logger
	cfgManager *config.Manager
)

var rootCmd = &cobra.Command{
	Use:   "region-ocr",
	Short: "Extract text from a region of a screenshot",
	Long: `region-ocr crops a rectangular region out of a captured image and reads
its text with one of several interchangeable backends:

  - tesseract: local OCR engine (tesseract CLI or libtesseract)
  - ollama:    streaming vision-language model on a local daemon
  - gemini:    single-shot vision-language model (API key required)
  - llamacpp:  OpenAI-compatible llama.cpp server, streamed
  - paddle:    OCR microservice on a local unix socket`,
	Version:       regionocr.Version,
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger = logutil.NewLogger(cmd.ErrOrStderr(), verbose)
		slog.SetDefault(logger)

		// config init must work even when the current file is broken
		if cmd.Annotations["skipConfig"] == "true" {
			return nil
		}
		m, err := config.NewManager(cfgFile, logger)
		if err != nil {
			return err
		}
		cfgManager = m
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./region-ocr.yaml or ~/.config/region-ocr/config.yaml)",
	)
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(recognizeCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(langsCmd)
	rootCmd.AddCommand(modelsCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
